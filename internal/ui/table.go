package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Palette
var (
	ColorAccent = lipgloss.AdaptiveColor{Light: "25", Dark: "39"}
	ColorMuted  = lipgloss.AdaptiveColor{Light: "245", Dark: "240"}
	ColorWarn   = lipgloss.AdaptiveColor{Light: "130", Dark: "214"}
	ColorPass   = lipgloss.AdaptiveColor{Light: "28", Dark: "40"}
)

var (
	TableHeaderStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorAccent).
		Align(lipgloss.Center)

	TableBorderStyle = lipgloss.NewStyle().
		Foreground(ColorMuted)

	WarnStyle = lipgloss.NewStyle().
		Foreground(ColorWarn)

	PassStyle = lipgloss.NewStyle().
		Foreground(ColorPass)

	HintStyle = lipgloss.NewStyle().
		Foreground(ColorMuted)
)

// ResultRow is one search hit prepared for rendering.
type ResultRow struct {
	Type    string
	ID      string
	Title   string
	Project string
	Score   float64
}

// RenderResults renders search hits as a bordered table, or plain lines
// when color is off (machine-readable output for pipes and agents).
func RenderResults(query string, rows []ResultRow, width int) string {
	if !ShouldUseColor() {
		out := ""
		for _, r := range rows {
			out += fmt.Sprintf("[%s] %s  %s  (%.2f)\n", r.Type, r.ID, r.Title, r.Score)
		}
		return out
	}

	maxTitle := width - 40
	if maxTitle < 10 {
		maxTitle = 10
	}
	data := [][]string{}
	for _, r := range rows {
		title := r.Title
		if len(title) > maxTitle {
			title = title[:maxTitle-3] + "..."
		}
		data = append(data, []string{r.Type, r.ID, title, fmt.Sprintf("%.2f", r.Score)})
	}

	t := table.New().
		Headers("TYPE", "ID", "TITLE", "SCORE").
		Border(lipgloss.RoundedBorder()).
		BorderStyle(TableBorderStyle).
		Width(width).
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			return lipgloss.NewStyle().Padding(0, 1).Align(lipgloss.Left)
		})
	header := TableHeaderStyle.Render(fmt.Sprintf("Search: %q", query))
	return header + "\n" + t.String()
}
