// Package export turns sample records into a stored master-plate document.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"krakenexport/internal/blob"
	"krakenexport/internal/logger"
	"krakenexport/internal/masterplate"
	"krakenexport/internal/metrics"
	"krakenexport/pkg/plate"
)

// ErrEmptyResultSet aborts a run whose source produced no samples.
var ErrEmptyResultSet = errors.New("no samples found")

// Source names where the records of a run came from.
type Source string

const (
	SourceDB    Source = "db"
	SourceExcel Source = "excel"
	SourceEmpty Source = "empty"
)

// Request describes one export run.
type Request struct {
	OrderID string
	Source  Source
	Records []plate.SampleRecord
	Policy  plate.NTCPolicy
	RunType plate.RunType
	// ExcelSource qualifies long_id with the plate id.
	ExcelSource bool
}

// Result describes the stored document.
type Result struct {
	RunID     string
	Key       string
	Location  string
	Plates    int
	Wells     int
	SizeBytes int64
	CreatedAt time.Time
}

// FileName is the document key for an order.
func FileName(orderID string) string {
	return orderID + "-Kraken_masterplates.xml"
}

// Exporter reconciles, renders and stores master-plate documents.
type Exporter struct {
	store   blob.Store
	log     *zap.Logger
	metrics *metrics.Recorder
	now     func() time.Time
	newID   func() string
}

// New returns an exporter writing into store. log and rec may be nil.
func New(store blob.Store, log *zap.Logger, rec *metrics.Recorder) *Exporter {
	return &Exporter{
		store:   store,
		log:     logger.OrNop(log).Named("export"),
		metrics: rec,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   func() string { return uuid.NewString() },
	}
}

// Export runs one request end to end. The document is rendered fully in
// memory before anything is written, so a failed run leaves the previous
// output untouched.
func (e *Exporter) Export(ctx context.Context, req Request) (Result, error) {
	runID := e.newID()
	log := e.log.With(
		zap.String("run_id", runID),
		zap.String("order", req.OrderID),
		zap.String("source", string(req.Source)),
	)
	plates, res, err := e.export(ctx, runID, req, log)
	e.metrics.ObserveExport(string(req.Source), req.RunType, plates, err)
	if err != nil {
		log.Error("export failed", zap.Error(err))
		return Result{}, err
	}
	log.Info("export complete",
		zap.String("location", res.Location),
		zap.Int("plates", res.Plates),
		zap.Int("wells", res.Wells),
		zap.Int64("size_bytes", res.SizeBytes))
	return res, nil
}

func (e *Exporter) export(ctx context.Context, runID string, req Request, log *zap.Logger) ([]plate.Plate, Result, error) {
	if strings.TrimSpace(req.OrderID) == "" {
		return nil, Result{}, fmt.Errorf("order id required")
	}
	if len(req.Records) == 0 {
		return nil, Result{}, fmt.Errorf("%w for %s", ErrEmptyResultSet, req.OrderID)
	}
	if req.Policy == "" {
		req.Policy = plate.PolicyStandard
	}
	if req.RunType == "" {
		req.RunType = plate.RunRoutine
	}

	plates := plate.Reconcile(req.Records, plate.Options{Policy: req.Policy, RunType: req.RunType})
	doc := masterplate.Build(plates, masterplate.BuildOptions{ExcelSource: req.ExcelSource})
	payload, err := doc.Bytes()
	if err != nil {
		return nil, Result{}, err
	}
	log.Debug("document rendered",
		zap.Int("records", len(req.Records)),
		zap.Int("plates", len(plates)),
		zap.String("policy", string(req.Policy)),
		zap.String("run_type", string(req.RunType)))

	createdAt := e.now()
	key := FileName(req.OrderID)
	info, err := e.store.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{
		ContentType: masterplate.ContentType,
		Overwrite:   true,
		Metadata: map[string]string{
			"order_id":   req.OrderID,
			"run_id":     runID,
			"source":     string(req.Source),
			"policy":     string(req.Policy),
			"run_type":   string(req.RunType),
			"plates":     strconv.Itoa(len(plates)),
			"created_at": createdAt.Format(time.RFC3339),
		},
	})
	if err != nil {
		return nil, Result{}, fmt.Errorf("store %s: %w", key, err)
	}
	location := info.Location
	if location == "" {
		location = key
	}
	size := info.Size
	if size == 0 {
		size = int64(len(payload))
	}
	return plates, Result{
		RunID:     runID,
		Key:       key,
		Location:  location,
		Plates:    len(plates),
		Wells:     doc.WellCount(),
		SizeBytes: size,
		CreatedAt: createdAt,
	}, nil
}
