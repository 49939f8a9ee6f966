package query

import (
	"fmt"
	"math"
	"strings"

	"github.com/cory-johannsen/dicetab/internal/telnet"
)

// DefaultBarWidth is the bar budget for the most likely outcome.
const DefaultBarWidth = 40

// Style controls renderer output.
type Style struct {
	// Color enables ANSI escape sequences.
	Color bool
	// CRLF selects Telnet line endings; plain \n otherwise.
	CRLF bool
	// BarWidth overrides DefaultBarWidth when positive.
	BarWidth int
}

// TelnetStyle is the style used by the Telnet query service.
var TelnetStyle = Style{Color: true, CRLF: true}

func (s Style) newline() string {
	if s.CRLF {
		return "\r\n"
	}
	return "\n"
}

func (s Style) paint(color, text string) string {
	if !s.Color {
		return text
	}
	return telnet.Colorize(color, text)
}

func (s Style) barWidth() int {
	if s.BarWidth > 0 {
		return s.BarWidth
	}
	return DefaultBarWidth
}

// RenderTable formats the outcome table: one row per value with its
// probability, cumulative odds, and a bar proportional to the row's share
// of the most likely outcome.
//
// Postcondition: Returns a non-empty string terminated by a line ending.
func RenderTable(r *Result, style Style) string {
	var b strings.Builder
	nl := style.newline()
	rows := r.Rows()

	maxMass := 0.0
	for _, row := range rows {
		if row.Mass > maxMass {
			maxMass = row.Mass
		}
	}

	b.WriteString(style.paint(telnet.BrightYellow, r.Expression()))
	b.WriteString(nl)
	b.WriteString(style.paint(telnet.Cyan,
		fmt.Sprintf("%7s %9s %9s %9s", "value", "prob", "at least", "at most")))
	b.WriteString(nl)

	for _, row := range rows {
		b.WriteString(fmt.Sprintf("%7d %8.3f%% %8.3f%% %8.3f%% ",
			row.Value, row.Mass*100, row.AtLeast*100, row.AtMost*100))
		b.WriteString(style.paint(telnet.Green, bar(row.Mass, maxMass, style.barWidth())))
		b.WriteString(nl)
	}
	return b.String()
}

// RenderSummary formats the one-line statistics footer.
//
// Postcondition: Returns a single line terminated by a line ending.
func RenderSummary(r *Result, style Style) string {
	s := r.Summary()
	line := fmt.Sprintf("mean %.4f  stdev %.4f  min %d  max %d  outcomes %d",
		s.Mean, s.Stdev, s.Min, s.Max, s.Outcomes)
	return style.paint(telnet.Dim, line) + style.newline()
}

// bar sizes a row's bar against the most likely outcome's budget.
func bar(mass, maxMass float64, width int) string {
	if maxMass <= 0 {
		return ""
	}
	n := int(math.Round(mass / maxMass * float64(width)))
	return strings.Repeat("#", n)
}
