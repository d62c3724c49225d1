package source

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"krakenexport/pkg/plate"
)

// SampleListSheet is the worksheet read from customer order forms.
const SampleListSheet = "Sample List"

var (
	// ErrSheetNotFound is returned when the workbook has no Sample List sheet.
	ErrSheetNotFound = errors.New("sheet 'Sample List' not found")
	// ErrUnknownFormat is returned by ParseFormat for unrecognised names.
	ErrUnknownFormat = errors.New("unknown order form format")
)

// Format locates the relevant columns of an order form. Columns are zero-based.
type Format struct {
	Name      string
	StartRow  int
	SampleCol int
	PlateCol  int
	WellCol   int
}

var (
	// FormatIntertek has the subject id in column B, plate in C and well in D.
	FormatIntertek = Format{Name: "intertek", StartRow: 1, SampleCol: 1, PlateCol: 2, WellCol: 3}
	// FormatEIB has the subject id in column A, plate in B and well in C.
	FormatEIB = Format{Name: "eib", StartRow: 1, SampleCol: 0, PlateCol: 1, WellCol: 2}
)

// ParseFormat maps a format name to its column layout. Empty means intertek.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "intertek", "standard":
		return FormatIntertek, nil
	case "eib":
		return FormatEIB, nil
	default:
		return Format{}, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// ReadOrderFormFile opens path and reads it with ReadOrderForm.
func ReadOrderFormFile(path string, format Format) ([]plate.SampleRecord, ImportSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ImportSummary{}, fmt.Errorf("open order form: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ReadOrderForm(f, format)
}

// ReadOrderForm extracts sample records from the Sample List sheet of an
// .xlsx workbook. Header rows before format.StartRow and wholly blank rows are
// ignored. Each record's plate key is its customer plate id until the caller
// enriches it with EnrichPlateIDs.
func ReadOrderForm(r io.Reader, format Format) ([]plate.SampleRecord, ImportSummary, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, ImportSummary{}, fmt.Errorf("read workbook: %w", err)
	}
	defer func() { _ = wb.Close() }()

	sheet := ""
	for _, name := range wb.GetSheetList() {
		if strings.EqualFold(name, SampleListSheet) {
			sheet = name
			break
		}
	}
	if sheet == "" {
		return nil, ImportSummary{}, ErrSheetNotFound
	}
	rows, err := wb.GetRows(sheet)
	if err != nil {
		return nil, ImportSummary{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	var (
		records []plate.SampleRecord
		summary ImportSummary
	)
	if len(rows) > format.StartRow {
		summary.TotalRows = len(rows) - format.StartRow
	}
	for i := format.StartRow; i < len(rows); i++ {
		row := rows[i]
		if blankRow(row) {
			continue
		}
		sampleName := cell(row, format.SampleCol)
		customerPlateID := cell(row, format.PlateCol)
		rawWell := cell(row, format.WellCol)

		well, ok := plate.NormalizeWell(rawWell)
		if !ok {
			summary.Skipped++
			continue
		}
		if plate.WellCorrected(rawWell, well) {
			summary.Corrected++
		}
		if customerPlateID == "" {
			summary.Skipped++
			continue
		}
		if sampleName == "" {
			sampleName = "BLANK_" + customerPlateID + "_" + well
			summary.Blanks++
		}
		records = append(records, plate.SampleRecord{
			SampleWellName:  sampleName,
			CustomerPlateID: customerPlateID,
			Well:            well,
			PlateIDText:     customerPlateID,
		})
	}
	summary.Valid = len(records)
	return records, summary, nil
}

// cell returns the trimmed value at col; rows shorter than col read as empty.
func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
