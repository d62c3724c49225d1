package plate

import "strings"

// Options configures a reconciliation.
type Options struct {
	Policy  NTCPolicy
	RunType RunType
}

// Group is the set of records that share one PlateIDText.
type Group struct {
	Key     string
	Records []SampleRecord
}

// GroupRecords groups records by PlateIDText, keeping plates in order of
// first appearance and records in input order.
func GroupRecords(records []SampleRecord) []Group {
	index := make(map[string]int)
	var groups []Group
	for _, r := range records {
		i, ok := index[r.PlateIDText]
		if !ok {
			i = len(groups)
			index[r.PlateIDText] = i
			groups = append(groups, Group{Key: r.PlateIDText})
		}
		groups[i].Records = append(groups[i].Records, r)
	}
	return groups
}

// Reconcile fills every canonical position of every plate referenced by
// records. A verification run yields all _d1 plates followed by all _d2
// plates. Records whose well is not canonical are ignored.
func Reconcile(records []SampleRecord, opts Options) []Plate {
	groups := GroupRecords(records)
	suffixes := opts.RunType.Suffixes()
	out := make([]Plate, 0, len(groups)*len(suffixes))
	for _, suffix := range suffixes {
		for _, g := range groups {
			out = append(out, ReconcilePlate(g.Key, g.Records, opts.Policy, suffix))
		}
	}
	return out
}

type placement struct {
	subject  string
	customer string
}

// ReconcilePlate builds one plate in three explicit phases: apply records
// (last write wins per well), fill absent positions with placeholders, then
// force the policy's NTC positions regardless of what the records placed
// there. A plate with no records comes back fully synthetic.
func ReconcilePlate(key string, records []SampleRecord, policy NTCPolicy, suffix string) Plate {
	placed := make(map[string]placement, Density)
	for _, r := range records {
		if !IsCanonical(r.Well) {
			continue
		}
		placed[r.Well] = placement{
			subject:  r.SampleWellName + suffix,
			customer: r.CustomerPlateID + suffix,
		}
	}

	var fallbackCustomer string
	if len(records) > 0 {
		fallbackCustomer = records[0].CustomerPlateID
	}
	fallbackCustomer += suffix

	for _, well := range canonicalWells {
		if _, ok := placed[well]; ok {
			continue
		}
		kind := "BLANK"
		if policy.IsNTC(well) {
			kind = "NTC"
		}
		placed[well] = placement{subject: placeholder(kind, key, well, suffix), customer: fallbackCustomer}
	}

	for _, well := range policy.NTCWells() {
		placed[well] = placement{subject: placeholder("NTC", key, well, suffix), customer: fallbackCustomer}
	}

	p := Plate{Key: key, Suffix: suffix, ID: key + suffix}
	for i, well := range canonicalWells {
		pl := placed[well]
		p.Wells[i] = ReconciledWell{
			Location:        well,
			SubjectID:       pl.subject,
			CustomerPlateID: pl.customer,
			Class:           classify(policy, well, pl.subject),
		}
	}
	return p
}

func placeholder(kind, key, well, suffix string) string {
	return kind + "_" + key + "_" + well + suffix
}

func classify(policy NTCPolicy, well, subject string) ClassTag {
	if policy.IsNTC(well) {
		return ClassNTC
	}
	upper := strings.ToUpper(subject)
	if strings.Contains(upper, "BLANK") || strings.Contains(upper, "EMPTY") {
		return ClassEmpty
	}
	return ClassNone
}

// ByID indexes reconciled plates by their suffixed id.
func ByID(plates []Plate) map[string]Plate {
	m := make(map[string]Plate, len(plates))
	for _, p := range plates {
		m[p.ID] = p
	}
	return m
}
