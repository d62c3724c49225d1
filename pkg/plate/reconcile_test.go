package plate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcile_SingleSampleStandardRoutine(t *testing.T) {
	records := []SampleRecord{{SampleWellName: "S1", CustomerPlateID: "PLATE1", Well: "A01", PlateIDText: "PLATE1"}}

	plates := Reconcile(records, Options{Policy: PolicyStandard, RunType: RunRoutine})
	require.Len(t, plates, 1)
	p := plates[0]
	assert.Equal(t, "PLATE1", p.ID)
	assert.Equal(t, "PLATE1", p.Key)

	a01, ok := p.Well("A01")
	require.True(t, ok)
	assert.Equal(t, "S1", a01.SubjectID)
	assert.Equal(t, ClassNone, a01.Class)

	for _, loc := range []string{"H11", "H12"} {
		w, _ := p.Well(loc)
		assert.Equal(t, "NTC_PLATE1_"+loc, w.SubjectID)
		assert.Equal(t, ClassNTC, w.Class)
		assert.Equal(t, "PLATE1", w.CustomerPlateID)
	}
	assert.Equal(t, 2, p.Count(ClassNTC))
	assert.Equal(t, 93, p.Count(ClassEmpty))

	b05, _ := p.Well("B05")
	assert.Equal(t, "BLANK_PLATE1_B05", b05.SubjectID)
}

func TestReconcile_AlwaysNinetySixWellsInRowMajorOrder(t *testing.T) {
	many := make([]SampleRecord, 0, 150)
	for i := 0; i < 150; i++ {
		w, _ := WellFromIndex(i%Density + 1)
		many = append(many, SampleRecord{SampleWellName: "S", CustomerPlateID: "C", Well: w, PlateIDText: "P"})
	}
	for name, records := range map[string][]SampleRecord{
		"one":  {{SampleWellName: "S", CustomerPlateID: "C", Well: "D04", PlateIDText: "P"}},
		"many": many,
	} {
		t.Run(name, func(t *testing.T) {
			plates := Reconcile(records, Options{})
			require.Len(t, plates, 1)
			wells := CanonicalWells()
			for i, w := range plates[0].Wells {
				assert.Equal(t, wells[i], w.Location)
				assert.NotEmpty(t, w.SubjectID)
			}
		})
	}
}

func TestReconcilePlate_NoRecordsIsFullySynthetic(t *testing.T) {
	p := ReconcilePlate("EMPTYPLATE", nil, PolicyStandard, "")
	assert.Equal(t, 2, p.Count(ClassNTC))
	assert.Equal(t, 94, p.Count(ClassEmpty))
	w, _ := p.Well("A01")
	assert.Equal(t, "BLANK_EMPTYPLATE_A01", w.SubjectID)
	assert.Equal(t, "", w.CustomerPlateID)
}

func TestReconcile_ForcedNTCOverwritesRealSamples(t *testing.T) {
	records := []SampleRecord{
		{SampleWellName: "REAL_G12", CustomerPlateID: "C", Well: "G12", PlateIDText: "P"},
		{SampleWellName: "REAL_H11", CustomerPlateID: "C", Well: "H11", PlateIDText: "P"},
		{SampleWellName: "REAL_H12", CustomerPlateID: "C", Well: "H12", PlateIDText: "P"},
	}

	t.Run("standard", func(t *testing.T) {
		p := Reconcile(records, Options{Policy: PolicyStandard})[0]
		h11, _ := p.Well("H11")
		h12, _ := p.Well("H12")
		g12, _ := p.Well("G12")
		assert.Equal(t, "NTC_P_H11", h11.SubjectID)
		assert.Equal(t, ClassNTC, h11.Class)
		assert.Equal(t, "NTC_P_H12", h12.SubjectID)
		assert.Equal(t, "REAL_G12", g12.SubjectID)
		assert.Equal(t, ClassNone, g12.Class)
	})

	t.Run("snp dart", func(t *testing.T) {
		p := Reconcile(records, Options{Policy: PolicySnpDart})[0]
		h11, _ := p.Well("H11")
		g12, _ := p.Well("G12")
		h12, _ := p.Well("H12")
		assert.Equal(t, "REAL_H11", h11.SubjectID)
		assert.Equal(t, ClassNone, h11.Class)
		assert.Equal(t, "NTC_P_G12", g12.SubjectID)
		assert.Equal(t, ClassNTC, g12.Class)
		assert.Equal(t, ClassNTC, h12.Class)
	})
}

func TestReconcile_LastWriteWinsForDuplicateWells(t *testing.T) {
	records := []SampleRecord{
		{SampleWellName: "FIRST", CustomerPlateID: "C1", Well: "C03", PlateIDText: "P"},
		{SampleWellName: "SECOND", CustomerPlateID: "C2", Well: "C03", PlateIDText: "P"},
	}
	w, _ := Reconcile(records, Options{})[0].Well("C03")
	assert.Equal(t, "SECOND", w.SubjectID)
	assert.Equal(t, "C2", w.CustomerPlateID)
}

func TestReconcile_VerificationDuplicatesWithSuffixes(t *testing.T) {
	records := []SampleRecord{
		{SampleWellName: "S1", CustomerPlateID: "CUST1", Well: "A01", PlateIDText: "P1"},
		{SampleWellName: "S2", CustomerPlateID: "CUST2", Well: "A01", PlateIDText: "P2"},
	}
	routine := Reconcile(records, Options{RunType: RunRoutine})
	verification := Reconcile(records, Options{RunType: RunVerification})
	require.Len(t, routine, 2)
	require.Len(t, verification, 4)

	ids := make([]string, 0, len(verification))
	for _, p := range verification {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"P1_d1", "P2_d1", "P1_d2", "P2_d2"}, ids)

	p := verification[2]
	a01, _ := p.Well("A01")
	assert.Equal(t, "S1_d2", a01.SubjectID)
	assert.Equal(t, "CUST1_d2", a01.CustomerPlateID)
	b01, _ := p.Well("B01")
	assert.Equal(t, "BLANK_P1_B01_d2", b01.SubjectID)
	assert.Equal(t, "CUST1_d2", b01.CustomerPlateID)
	h12, _ := p.Well("H12")
	assert.Equal(t, "NTC_P1_H12_d2", h12.SubjectID)
}

func TestReconcile_EmptyClassFromSubjectName(t *testing.T) {
	records := []SampleRecord{
		{SampleWellName: "blank_customer", CustomerPlateID: "C", Well: "A01", PlateIDText: "P"},
		{SampleWellName: "Empty-7", CustomerPlateID: "C", Well: "A02", PlateIDText: "P"},
		{SampleWellName: "SAMPLE", CustomerPlateID: "C", Well: "A03", PlateIDText: "P"},
	}
	p := Reconcile(records, Options{})[0]
	for loc, want := range map[string]ClassTag{"A01": ClassEmpty, "A02": ClassEmpty, "A03": ClassNone} {
		w, _ := p.Well(loc)
		assert.Equal(t, want, w.Class, loc)
	}
}

func TestReconcile_IgnoresNonCanonicalWells(t *testing.T) {
	records := []SampleRecord{
		{SampleWellName: "S1", CustomerPlateID: "C", Well: "", PlateIDText: "P"},
		{SampleWellName: "S2", CustomerPlateID: "C", Well: BadWellID, PlateIDText: "P"},
	}
	p := Reconcile(records, Options{})[0]
	for _, w := range p.Wells {
		assert.True(t, strings.HasPrefix(w.SubjectID, "BLANK_") || strings.HasPrefix(w.SubjectID, "NTC_"), w.SubjectID)
	}
}

func TestGroupRecordsKeepsFirstAppearanceOrder(t *testing.T) {
	groups := GroupRecords([]SampleRecord{
		{PlateIDText: "B", Well: "A01"},
		{PlateIDText: "A", Well: "A01"},
		{PlateIDText: "B", Well: "A02"},
	})
	require.Len(t, groups, 2)
	assert.Equal(t, "B", groups[0].Key)
	assert.Len(t, groups[0].Records, 2)
	assert.Equal(t, "A", groups[1].Key)

	byID := ByID(Reconcile([]SampleRecord{{PlateIDText: "B", Well: "A01"}}, Options{RunType: RunVerification}))
	assert.Contains(t, byID, "B_d1")
	assert.Contains(t, byID, "B_d2")
}

func TestParsePolicyAndRunType(t *testing.T) {
	p, err := ParseNTCPolicy("Snp+Dart")
	require.NoError(t, err)
	assert.Equal(t, PolicySnpDart, p)
	p, err = ParseNTCPolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyStandard, p)
	_, err = ParseNTCPolicy("other")
	assert.Error(t, err)

	r, err := ParseRunType("Verification")
	require.NoError(t, err)
	assert.Equal(t, RunVerification, r)
	_, err = ParseRunType("weekly")
	assert.Error(t, err)
}

func TestLongID(t *testing.T) {
	w := ReconciledWell{CustomerPlateID: "CUST_d1"}
	assert.Equal(t, "CUST_d1_P1_d1", w.LongID("P1_d1", true))
	assert.Equal(t, "CUST_d1", w.LongID("P1_d1", false))
}
