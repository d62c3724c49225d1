// Package metrics records import and export counters on a private
// Prometheus registry and can dump them in the node-exporter textfile format.
package metrics

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"krakenexport/pkg/plate"
)

// Prometheus metric names.
const (
	MetricImportRowsTotal    = "kraken_import_rows_total"
	MetricPlatesWrittenTotal = "kraken_plates_written_total"
	MetricWellsWrittenTotal  = "kraken_wells_written_total"
	MetricExportsTotal       = "kraken_exports_total"
)

// Import row outcomes.
const (
	OutcomeValid     = "valid"
	OutcomeBlank     = "blank"
	OutcomeCorrected = "corrected"
	OutcomeSkipped   = "skipped"
)

// Recorder owns the collectors for one process. The zero value is not
// usable; a nil *Recorder ignores every call.
type Recorder struct {
	registry *prometheus.Registry

	importRows    *prometheus.CounterVec
	platesWritten *prometheus.CounterVec
	wellsWritten  *prometheus.CounterVec
	exports       *prometheus.CounterVec
}

// New creates a recorder with its own registry so repeated construction in
// tests never collides with the global default registerer.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		importRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricImportRowsTotal,
			Help: "Order-form rows read, by outcome.",
		}, []string{"outcome"}),
		platesWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricPlatesWrittenTotal,
			Help: "Master plates written to export documents, by run type.",
		}, []string{"run_type"}),
		wellsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricWellsWrittenTotal,
			Help: "Wells written to export documents, by class.",
		}, []string{"class"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricExportsTotal,
			Help: "Export runs, by sample source and result.",
		}, []string{"source", "result"}),
	}
	r.registry.MustRegister(r.importRows, r.platesWritten, r.wellsWritten, r.exports)
	return r
}

// Registry exposes the underlying registry for gathering.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// ObserveImport adds one order-form import to the row counters.
func (r *Recorder) ObserveImport(valid, blank, corrected, skipped int) {
	if r == nil {
		return
	}
	r.importRows.WithLabelValues(OutcomeValid).Add(float64(valid))
	r.importRows.WithLabelValues(OutcomeBlank).Add(float64(blank))
	r.importRows.WithLabelValues(OutcomeCorrected).Add(float64(corrected))
	r.importRows.WithLabelValues(OutcomeSkipped).Add(float64(skipped))
}

// ObserveExport records the outcome of one export run. Plates and wells are
// only counted for successful runs.
func (r *Recorder) ObserveExport(source string, runType plate.RunType, plates []plate.Plate, err error) {
	if r == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	r.exports.WithLabelValues(source, result).Inc()
	if err != nil {
		return
	}
	r.platesWritten.WithLabelValues(string(runType)).Add(float64(len(plates)))
	for _, p := range plates {
		for _, class := range []plate.ClassTag{plate.ClassNone, plate.ClassNTC, plate.ClassEmpty} {
			if n := p.Count(class); n > 0 {
				r.wellsWritten.WithLabelValues(classLabel(class)).Add(float64(n))
			}
		}
	}
}

func classLabel(c plate.ClassTag) string {
	if c == plate.ClassNone {
		return "sample"
	}
	return strings.ToLower(string(c))
}

// WriteTextfile atomically writes all metrics to path in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
