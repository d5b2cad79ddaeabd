package stats

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	tableHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	logStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).PaddingLeft(2)
)

// Render produces a static, non-interactive table. An interactive
// terminal stats view is explicitly out of scope for `fleet stats`.
func Render(rows []ProjectStats) string {
	var b strings.Builder
	b.WriteString(tableHeader.Render(fmt.Sprintf("%-14s %-20s %-14s %-8s %-8s %-6s", "ID", "NAME", "LAST DURATION", "CPU %", "MEM %", "RUNS")))
	b.WriteString("\n")
	for _, r := range rows {
		b.WriteString(fmt.Sprintf("%-14s %-20s %-14s %-8.1f %-8.1f %-6d\n", r.ID, r.Name, r.LastDuration, r.AvgCPU, r.AvgMem, r.Runs))
		for _, line := range r.LastLogLines {
			b.WriteString(logStyle.Render(line))
			b.WriteString("\n")
		}
	}
	return b.String()
}
