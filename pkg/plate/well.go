package plate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	// Rows is the number of rows (A-H) on a plate.
	Rows = 8
	// Columns is the number of columns (01-12) on a plate.
	Columns = 12
	// Density is the number of canonical positions on a plate.
	Density = Rows * Columns

	// BadWellID is the printable placeholder for a sample id whose suffix
	// cannot be mapped to a well.
	BadWellID = "BAD_ID"
)

var (
	wellPattern      = regexp.MustCompile(`^([A-H])0?(\d{1,2})$`)
	canonicalPattern = regexp.MustCompile(`^[A-H](0[1-9]|1[0-2])$`)
	canonicalWells   = buildCanonicalWells()
)

func buildCanonicalWells() []string {
	wells := make([]string, 0, Density)
	for i := 1; i <= Density; i++ {
		w, _ := WellFromIndex(i)
		wells = append(wells, w)
	}
	return wells
}

// CanonicalWells returns A01..H12 in row-major order. The slice is a copy.
func CanonicalWells() []string {
	out := make([]string, len(canonicalWells))
	copy(out, canonicalWells)
	return out
}

// IsCanonical reports whether well is already in <Row A-H><Col 01-12> form.
func IsCanonical(well string) bool {
	return canonicalPattern.MatchString(well)
}

// NormalizeWell parses a raw well position into canonical two-digit form.
// The letter O in the tens slot of a three character code is read as a zero
// (HO1 -> H01) and single digit columns are padded (A1 -> A01). It returns
// false for anything outside rows A-H and columns 1-12.
func NormalizeWell(raw string) (string, bool) {
	well := strings.ToUpper(strings.TrimSpace(raw))
	if well == "" {
		return "", false
	}
	if len(well) == 3 && well[1] == 'O' && isDigit(well[2]) {
		well = well[:1] + "0" + well[2:]
	}
	m := wellPattern.FindStringSubmatch(well)
	if m == nil {
		return "", false
	}
	col, err := strconv.Atoi(m[2])
	if err != nil || col < 1 || col > Columns {
		return "", false
	}
	return formatWell(m[1][0], col), true
}

// WellCorrected reports whether a successfully normalized well differs from
// the raw input, ignoring case and surrounding whitespace.
func WellCorrected(raw, normalized string) bool {
	raw = strings.TrimSpace(raw)
	return raw != "" && !strings.EqualFold(raw, normalized)
}

// WellFromIndex maps a 1-based sequential index onto the plate in row-major
// order: 1 -> A01, 12 -> A12, 13 -> B01, 96 -> H12.
func WellFromIndex(index int) (string, bool) {
	if index < 1 || index > Density {
		return "", false
	}
	row := (index - 1) / Columns
	col := (index-1)%Columns + 1
	return formatWell(byte('A'+row), col), true
}

// WellFromSampleID derives the physical well of a sample from the numeric
// counter held in the last three characters of its id. The counter wraps
// every wellsPerPlate samples; an exact multiple lands on the last well
// rather than well zero.
func WellFromSampleID(id string, wellsPerPlate int) (string, bool) {
	if len(id) < 3 || wellsPerPlate < 1 || wellsPerPlate > Density {
		return "", false
	}
	num, err := strconv.ParseUint(id[len(id)-3:], 10, 32)
	if err != nil {
		return "", false
	}
	pos := int(num % uint64(wellsPerPlate))
	if pos == 0 {
		pos = wellsPerPlate
	}
	return WellFromIndex(pos)
}

func formatWell(row byte, col int) string {
	return fmt.Sprintf("%c%02d", row, col)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
