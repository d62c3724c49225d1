package source

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"krakenexport/internal/infra/persistence/sqlite"
	"krakenexport/pkg/plate"
)

func newMockLIMS(t *testing.T) (*LIMS, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewLIMS(db, DialectPostgres, nil), mock
}

func TestSeededSamples_MapsTemplates(t *testing.T) {
	lims, mock := newMockLIMS(t)
	rows := sqlmock.NewRows([]string{"ID_TEXT", "ITK_PLATE_ID", "ENTITY_TEMPLATE_ID", "SAMPLE_NAME", "CUSTOMER_PLATE_WELL"}).
		AddRow("SE25-0130-001", "ITK1", TemplateSingleSample, "CUST1", "a1").
		AddRow("SE25-0130-089", "ITK1", TemplateSubSample88Well, "CUST1", nil).
		AddRow("SE25-0130-093", "ITK2", TemplateSubSample88Well, "CUST2", "").
		AddRow("SE25-0130-ABC", "ITK2", TemplateSubSample88Well, "CUST2", "").
		AddRow("SE25-0130-010", "ITK2", TemplateSingleSample, "CUST2", "Z99").
		AddRow("SE25-0130-011", nil, TemplateSingleSample, nil, "B02")
	mock.ExpectQuery(regexp.QuoteMeta("FROM sample\nWHERE ENTITY_TEMPLATE_ID IN ('PCR_SINGLE_SAMPLE', 'PCR_SINGLE_SUB_SAMPLE_88_WELL')\nAND JOB_NAME = $1\nORDER BY ID_NUMERIC")).
		WithArgs("SE-25-0130").
		WillReturnRows(rows)

	records, summary, err := lims.SeededSamples(context.Background(), "SE-25-0130", 92)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, records, 4)
	assert.Equal(t, plate.SampleRecord{SampleWellName: "SE25-0130-001", CustomerPlateID: "CUST1", Well: "A01", PlateIDText: "ITK1"}, records[0])
	assert.Equal(t, "H05", records[1].Well)
	assert.Equal(t, "A01", records[2].Well)
	assert.Equal(t, plate.SampleRecord{SampleWellName: "SE25-0130-011", Well: "B02"}, records[3])
	assert.Equal(t, ImportSummary{TotalRows: 6, Valid: 4, Corrected: 1, Skipped: 2}, summary)
}

func TestSeededSamples_QueryError(t *testing.T) {
	lims, mock := newMockLIMS(t)
	mock.ExpectQuery("FROM sample").WillReturnError(errors.New("connection reset"))

	_, _, err := lims.SeededSamples(context.Background(), "SO1", 92)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query seeded samples")
}

func TestSeededSamples_RowError(t *testing.T) {
	lims, mock := newMockLIMS(t)
	rows := sqlmock.NewRows([]string{"ID_TEXT", "ITK_PLATE_ID", "ENTITY_TEMPLATE_ID", "SAMPLE_NAME", "CUSTOMER_PLATE_WELL"}).
		AddRow("X001", "P", TemplateSingleSample, "C", "A01").
		RowError(0, errors.New("broken row"))
	mock.ExpectQuery("FROM sample").WillReturnRows(rows)

	_, _, err := lims.SeededSamples(context.Background(), "SO1", 92)
	assert.Error(t, err)
}

func TestPlateIDs_BuildsInClauseAndLastRowWins(t *testing.T) {
	lims, mock := newMockLIMS(t)
	rows := sqlmock.NewRows([]string{"SAMPLE_NAME", "ID_TEXT", "ITK_PLATE_ID"}).
		AddRow("CUST1", "PL-001", "ITK1").
		AddRow("CUST2", "PL-002", nil).
		AddRow("CUST1", "PL-003", "ITK3")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE SAMPLE_NAME IN ($1, $2)\nAND JOB_NAME = $3")).
		WithArgs("CUST1", "CUST2", "SO1").
		WillReturnRows(rows)

	refs, err := lims.PlateIDs(context.Background(), "SO1", []string{"CUST1", "CUST2", "CUST1"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, map[string]PlateRef{
		"CUST1": {IDText: "PL-003", ITKPlateID: "ITK3"},
		"CUST2": {IDText: "PL-002"},
	}, refs)
}

func TestPlateIDs_EmptyInputSkipsQuery(t *testing.T) {
	lims, mock := newMockLIMS(t)
	refs, err := lims.PlateIDs(context.Background(), "SO1", nil)
	require.NoError(t, err)
	assert.Empty(t, refs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedPlates(t *testing.T) {
	lims, mock := newMockLIMS(t)
	rows := sqlmock.NewRows([]string{"ID_TEXT", "SAMPLE_NAME"}).
		AddRow("SP-1", "Seed A").
		AddRow("SP-2", nil)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE ENTITY_TEMPLATE_ID = 'PCR_SINGLE_SEED_PLATE' AND JOB_NAME = $1")).
		WithArgs("SO1").
		WillReturnRows(rows)

	plates, err := lims.SeedPlates(context.Background(), "SO1")
	require.NoError(t, err)
	assert.Equal(t, []SeedPlate{{IDText: "SP-1", SampleName: "Seed A"}, {IDText: "SP-2"}}, plates)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedPlates_ScanError(t *testing.T) {
	lims, mock := newMockLIMS(t)
	mock.ExpectQuery("FROM sample").WillReturnRows(sqlmock.NewRows([]string{"ID_TEXT"}).AddRow("only one column"))
	_, err := lims.SeedPlates(context.Background(), "SO1")
	assert.Error(t, err)
}

func TestDialectPlaceholders(t *testing.T) {
	assert.Equal(t, "$3", DialectPostgres.placeholder(3))
	assert.Equal(t, "?", DialectSQLite.placeholder(3))
	assert.Equal(t, DialectPostgres, NewLIMS(nil, "", nil).dialect)
}

func TestOpenLIMS_UnknownDriver(t *testing.T) {
	_, err := OpenLIMS(context.Background(), "oracle", "", nil)
	assert.Error(t, err)
}

func TestLIMS_SQLiteEndToEnd(t *testing.T) {
	ctx := context.Background()
	lims, err := OpenLIMS(ctx, "sqlite", sqlite.Memory, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = lims.Close() })

	require.NoError(t, sqlite.InsertSamples(ctx, lims.db,
		sqlite.Sample{IDNumeric: 3, IDText: "SE25-0130-003", SampleName: "CUST1", ITKPlateID: "ITK1", EntityTemplateID: TemplateSubSample88Well, JobName: "SO1"},
		sqlite.Sample{IDNumeric: 1, IDText: "SE25-0130-001", SampleName: "CUST1", ITKPlateID: "ITK1", EntityTemplateID: TemplateSingleSample, CustomerPlateWell: "H12", JobName: "SO1"},
		sqlite.Sample{IDNumeric: 2, IDText: "OTHER-001", SampleName: "CUST9", ITKPlateID: "ITK9", EntityTemplateID: TemplateSingleSample, CustomerPlateWell: "A01", JobName: "SO2"},
		sqlite.Sample{IDNumeric: 4, IDText: "PL-CUST1", SampleName: "CUST1", ITKPlateID: "ITK1", EntityTemplateID: "PCR_PLATE", JobName: "SO1"},
		sqlite.Sample{IDNumeric: 5, IDText: "SP-1", SampleName: "Seed", EntityTemplateID: TemplateSeedPlate, JobName: "SO1"},
	))

	records, summary, err := lims.SeededSamples(ctx, "SO1", 92)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "SE25-0130-001", records[0].SampleWellName, "ordered by ID_NUMERIC")
	assert.Equal(t, "H12", records[0].Well)
	assert.Equal(t, "A03", records[1].Well)
	assert.Equal(t, 2, summary.Valid)

	refs, err := lims.PlateIDs(ctx, "SO1", []string{"CUST1", "CUST9"})
	require.NoError(t, err)
	assert.Equal(t, PlateRef{IDText: "PL-CUST1", ITKPlateID: "ITK1"}, refs["CUST1"], "last row by ID_NUMERIC wins")
	assert.NotContains(t, refs, "CUST9", "other orders are excluded")

	seeds, err := lims.SeedPlates(ctx, "SO1")
	require.NoError(t, err)
	assert.Equal(t, []SeedPlate{{IDText: "SP-1", SampleName: "Seed"}}, seeds)
}
