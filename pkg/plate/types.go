// Package plate reconciles flat sample placements into canonical 96-well
// plate layouts. It performs no I/O; collaborators supply SampleRecords and
// serialize the resulting plates.
package plate

import (
	"fmt"
	"strings"
)

// SampleRecord is one sample's placement on a plate.
type SampleRecord struct {
	// SampleWellName is the subject identifier written into the output.
	SampleWellName string `json:"sample_well_name"`
	// CustomerPlateID is the plate identifier as known to the order form.
	CustomerPlateID string `json:"customer_plate_id"`
	// Well is a canonical well code or empty when unresolved.
	Well string `json:"well"`
	// PlateIDText is the internal plate identifier and the grouping key.
	PlateIDText string `json:"plate_id_text"`
}

// ClassTag marks reserved or empty positions in the output.
type ClassTag string

const (
	ClassNone  ClassTag = ""
	ClassNTC   ClassTag = "NTC"
	ClassEmpty ClassTag = "EMPTY"
)

// NTCPolicy selects which two positions are reserved for no-template controls.
type NTCPolicy string

const (
	// PolicyStandard reserves H11 and H12.
	PolicyStandard NTCPolicy = "snp"
	// PolicySnpDart reserves G12 and H12.
	PolicySnpDart NTCPolicy = "snp-dart"
)

// NTCWells returns the two reserved positions for the policy. Unknown
// policies fall back to the standard layout.
func (p NTCPolicy) NTCWells() [2]string {
	if p == PolicySnpDart {
		return [2]string{"G12", "H12"}
	}
	return [2]string{"H11", "H12"}
}

// IsNTC reports whether well is reserved under the policy.
func (p NTCPolicy) IsNTC(well string) bool {
	reserved := p.NTCWells()
	return well == reserved[0] || well == reserved[1]
}

// ParseNTCPolicy accepts snp|standard and snp-dart|snp+dart|dart.
func ParseNTCPolicy(s string) (NTCPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "snp", "standard":
		return PolicyStandard, nil
	case "snp-dart", "snp+dart", "snpdart", "dart":
		return PolicySnpDart, nil
	default:
		return "", fmt.Errorf("unknown ntc policy %q", s)
	}
}

// RunType selects between a single routine run and a duplicated
// verification run.
type RunType string

const (
	RunRoutine      RunType = "routine"
	RunVerification RunType = "verification"
)

// Suffixes returns the identifier suffixes applied per reconciliation pass.
func (r RunType) Suffixes() []string {
	if r == RunVerification {
		return []string{"_d1", "_d2"}
	}
	return []string{""}
}

// ParseRunType accepts routine and verification, case-insensitively.
func ParseRunType(s string) (RunType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "routine":
		return RunRoutine, nil
	case "verification":
		return RunVerification, nil
	default:
		return "", fmt.Errorf("unknown run type %q", s)
	}
}

// ReconciledWell is one canonical position after filling.
type ReconciledWell struct {
	Location        string   `json:"location"`
	SubjectID       string   `json:"subject_id"`
	CustomerPlateID string   `json:"customer_plate_id"`
	Class           ClassTag `json:"class,omitempty"`
}

// LongID renders the long identifier for the well. Order-form runs qualify
// the customer plate with the internal plate id.
func (w ReconciledWell) LongID(plateID string, excelSource bool) string {
	if excelSource {
		return w.CustomerPlateID + "_" + plateID
	}
	return w.CustomerPlateID
}

// Plate is a fully reconciled plate: exactly one well per canonical
// position, stored in row-major order.
type Plate struct {
	// Key is the source PlateIDText.
	Key string `json:"key"`
	// Suffix is the verification suffix applied to this copy ("" for routine).
	Suffix string `json:"suffix,omitempty"`
	// ID is Key+Suffix.
	ID    string                  `json:"id"`
	Wells [Density]ReconciledWell `json:"wells"`
}

// Well returns the reconciled well at location.
func (p Plate) Well(location string) (ReconciledWell, bool) {
	idx, ok := wellIndex[location]
	if !ok {
		return ReconciledWell{}, false
	}
	return p.Wells[idx], true
}

// Count returns how many wells carry the given class.
func (p Plate) Count(class ClassTag) int {
	n := 0
	for _, w := range p.Wells {
		if w.Class == class {
			n++
		}
	}
	return n
}

var wellIndex = func() map[string]int {
	m := make(map[string]int, Density)
	for i, w := range canonicalWells {
		m[w] = i
	}
	return m
}()
