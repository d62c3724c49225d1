package source

import (
	"fmt"

	"krakenexport/pkg/plate"
)

// GenerateEmptyPlateWells expands each seed plate into wells 1..wellsPerPlate
// in row-major order, naming each subject <plateIdText>_<well>.
func GenerateEmptyPlateWells(plates []SeedPlate, wellsPerPlate int) ([]plate.SampleRecord, error) {
	if wellsPerPlate < 1 || wellsPerPlate > plate.Density {
		return nil, fmt.Errorf("wells per plate must be between 1 and %d, got %d", plate.Density, wellsPerPlate)
	}
	records := make([]plate.SampleRecord, 0, len(plates)*wellsPerPlate)
	for _, p := range plates {
		for i := 1; i <= wellsPerPlate; i++ {
			well, _ := plate.WellFromIndex(i)
			records = append(records, plate.SampleRecord{
				SampleWellName:  p.IDText + "_" + well,
				CustomerPlateID: p.SampleName,
				Well:            well,
				PlateIDText:     p.IDText,
			})
		}
	}
	return records, nil
}

// CustomerPlateIDs returns the distinct customer plate ids in first-appearance order.
func CustomerPlateIDs(records []plate.SampleRecord) []string {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.CustomerPlateID)
	}
	return dedupe(ids)
}

// EnrichPlateIDs replaces each record's plate key with the LIMS ID_TEXT of
// its customer plate. Records whose customer plate is unknown are dropped;
// the number dropped is returned alongside.
func EnrichPlateIDs(records []plate.SampleRecord, refs map[string]PlateRef) ([]plate.SampleRecord, int) {
	out := make([]plate.SampleRecord, 0, len(records))
	for _, r := range records {
		ref, ok := refs[r.CustomerPlateID]
		if !ok {
			continue
		}
		r.PlateIDText = ref.IDText
		out = append(out, r)
	}
	return out, len(records) - len(out)
}
