package source

import "go.uber.org/zap"

// ImportSummary counts what happened to the input rows of one import.
type ImportSummary struct {
	TotalRows int
	Valid     int
	Blanks    int
	Corrected int
	Skipped   int
}

// Fields renders the summary as structured log fields.
func (s ImportSummary) Fields() []zap.Field {
	return []zap.Field{
		zap.Int("total_rows", s.TotalRows),
		zap.Int("valid", s.Valid),
		zap.Int("blanks", s.Blanks),
		zap.Int("corrected", s.Corrected),
		zap.Int("skipped", s.Skipped),
	}
}
