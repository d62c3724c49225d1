// Package source produces sample records for the reconciler from the LIMS
// database, customer order forms and seed-plate listings.
package source

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"krakenexport/internal/infra/persistence/postgres"
	"krakenexport/internal/infra/persistence/sqlite"
	"krakenexport/internal/logger"
	"krakenexport/pkg/plate"
)

// LIMS entity templates.
const (
	TemplateSingleSample    = "PCR_SINGLE_SAMPLE"
	TemplateSubSample88Well = "PCR_SINGLE_SUB_SAMPLE_88_WELL"
	TemplateSeedPlate       = "PCR_SINGLE_SEED_PLATE"
)

// Dialect selects the bind-parameter syntax of the database.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// placeholder returns the n-th (1-based) bind parameter.
func (d Dialect) placeholder(n int) string {
	if d == DialectSQLite {
		return "?"
	}
	return "$" + strconv.Itoa(n)
}

// PlateRef is the LIMS identity of a customer plate.
type PlateRef struct {
	IDText     string
	ITKPlateID string
}

// SeedPlate is a plate registered without well-level samples.
type SeedPlate struct {
	IDText     string
	SampleName string
}

// LIMS reads sample rows from the laboratory database.
type LIMS struct {
	db      *sql.DB
	dialect Dialect
	log     *zap.Logger
}

// NewLIMS wraps an open database handle.
func NewLIMS(db *sql.DB, dialect Dialect, log *zap.Logger) *LIMS {
	if dialect == "" {
		dialect = DialectPostgres
	}
	return &LIMS{db: db, dialect: dialect, log: logger.OrNop(log).Named("lims")}
}

// OpenLIMS connects using the configured driver ("postgres" or "sqlite").
func OpenLIMS(ctx context.Context, driver, dsn string, log *zap.Logger) (*LIMS, error) {
	var (
		db  *sql.DB
		err error
	)
	switch Dialect(strings.ToLower(driver)) {
	case DialectPostgres, "":
		db, err = postgres.Open(ctx, dsn)
		driver = string(DialectPostgres)
	case DialectSQLite:
		db, err = sqlite.Open(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	return NewLIMS(db, Dialect(strings.ToLower(driver)), log), nil
}

// Close releases the connection pool.
func (l *LIMS) Close() error { return l.db.Close() }

// SeededSamples returns the well-level samples of an order. Sub-sample rows
// derive their well from the trailing digits of ID_TEXT; other rows use the
// customer well, normalized. Rows whose well cannot be resolved are skipped
// and counted.
func (l *LIMS) SeededSamples(ctx context.Context, orderID string, wellsPerPlate int) ([]plate.SampleRecord, ImportSummary, error) {
	query := `SELECT ID_TEXT, ITK_PLATE_ID, ENTITY_TEMPLATE_ID, SAMPLE_NAME, CUSTOMER_PLATE_WELL
FROM sample
WHERE ENTITY_TEMPLATE_ID IN ('` + TemplateSingleSample + `', '` + TemplateSubSample88Well + `')
AND JOB_NAME = ` + l.dialect.placeholder(1) + `
ORDER BY ID_NUMERIC`
	rows, err := l.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, ImportSummary{}, fmt.Errorf("query seeded samples: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var (
		records []plate.SampleRecord
		summary ImportSummary
	)
	for rows.Next() {
		var idText, template string
		var plateID, sampleName, customerWell sql.NullString
		if err := rows.Scan(&idText, &plateID, &template, &sampleName, &customerWell); err != nil {
			return nil, ImportSummary{}, fmt.Errorf("scan seeded sample: %w", err)
		}
		summary.TotalRows++

		var (
			well string
			ok   bool
		)
		if template == TemplateSubSample88Well {
			well, ok = plate.WellFromSampleID(idText, wellsPerPlate)
		} else {
			well, ok = plate.NormalizeWell(customerWell.String)
			if ok && plate.WellCorrected(customerWell.String, well) {
				summary.Corrected++
			}
		}
		if !ok {
			summary.Skipped++
			l.log.Debug("skipping sample without a usable well",
				zap.String("id_text", idText),
				zap.String("template", template),
				zap.String("customer_well", customerWell.String))
			continue
		}
		records = append(records, plate.SampleRecord{
			SampleWellName:  idText,
			CustomerPlateID: sampleName.String,
			Well:            well,
			PlateIDText:     plateID.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, ImportSummary{}, fmt.Errorf("iterate seeded samples: %w", err)
	}
	summary.Valid = len(records)
	l.log.Debug("seeded samples loaded",
		zap.String("order", orderID),
		zap.Int("rows", summary.TotalRows),
		zap.Int("skipped", summary.Skipped))
	return records, summary, nil
}

// PlateIDs resolves customer plate names to LIMS plate identifiers for an
// order. When a name matches more than one row the last row wins.
func (l *LIMS) PlateIDs(ctx context.Context, orderID string, customerPlateIDs []string) (map[string]PlateRef, error) {
	names := dedupe(customerPlateIDs)
	refs := make(map[string]PlateRef, len(names))
	if len(names) == 0 {
		return refs, nil
	}
	params := make([]string, len(names))
	args := make([]any, 0, len(names)+1)
	for i, name := range names {
		params[i] = l.dialect.placeholder(i + 1)
		args = append(args, name)
	}
	args = append(args, orderID)
	query := `SELECT SAMPLE_NAME, ID_TEXT, ITK_PLATE_ID
FROM sample
WHERE SAMPLE_NAME IN (` + strings.Join(params, ", ") + `)
AND JOB_NAME = ` + l.dialect.placeholder(len(names)+1) + `
ORDER BY ID_NUMERIC`
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query plate ids: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var name, idText string
		var itk sql.NullString
		if err := rows.Scan(&name, &idText, &itk); err != nil {
			return nil, fmt.Errorf("scan plate id: %w", err)
		}
		refs[name] = PlateRef{IDText: idText, ITKPlateID: itk.String}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plate ids: %w", err)
	}
	l.log.Debug("plate ids resolved", zap.String("order", orderID), zap.Int("requested", len(names)), zap.Int("found", len(refs)))
	return refs, nil
}

// SeedPlates lists the seed plates of an order in LIMS order.
func (l *LIMS) SeedPlates(ctx context.Context, orderID string) ([]SeedPlate, error) {
	query := `SELECT ID_TEXT, SAMPLE_NAME
FROM sample
WHERE ENTITY_TEMPLATE_ID = '` + TemplateSeedPlate + `' AND JOB_NAME = ` + l.dialect.placeholder(1) + `
ORDER BY ID_NUMERIC`
	rows, err := l.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("query seed plates: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var plates []SeedPlate
	for rows.Next() {
		var p SeedPlate
		var name sql.NullString
		if err := rows.Scan(&p.IDText, &name); err != nil {
			return nil, fmt.Errorf("scan seed plate: %w", err)
		}
		p.SampleName = name.String
		plates = append(plates, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate seed plates: %w", err)
	}
	return plates, nil
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
