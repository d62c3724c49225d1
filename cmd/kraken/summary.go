package main

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"krakenexport/internal/source"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	labelStyle  = lipgloss.NewStyle().Padding(0, 1)
	countStyle  = lipgloss.NewStyle().Padding(0, 1).Align(lipgloss.Right)
)

// renderSummary formats an order-form import summary as a bordered table.
func renderSummary(s source.ImportSummary) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 1:
				return countStyle
			default:
				return labelStyle
			}
		}).
		Headers("Import summary", "Rows").
		Row("Total rows", strconv.Itoa(s.TotalRows)).
		Row("Valid samples", strconv.Itoa(s.Valid)).
		Row("Blank samples", strconv.Itoa(s.Blanks)).
		Row("Corrected wells", strconv.Itoa(s.Corrected)).
		Row("Skipped rows", strconv.Itoa(s.Skipped))
	return t.String()
}
