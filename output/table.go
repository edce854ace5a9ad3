// Package output renders TestResults for human or machine consumption. It
// only consumes the aggregated structures produced by the core; nothing in
// here feeds back into the comparison.
package output

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/hash-org/hashbench/results"
)

var (
	worseStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	betterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	plainStyle  = lipgloss.NewStyle().Bold(true)
)

// trendIcon marks the direction of a delta: up (a regression) in red, down
// (an improvement) in green.
func trendIcon(value float64) string {
	switch {
	case value == 0:
		return "="
	case value > 0:
		return worseStyle.Render("↑")
	default:
		return betterStyle.Render("↓")
	}
}

func trendStyle(value float64) lipgloss.Style {
	switch {
	case value == 0:
		return plainStyle
	case value > 0:
		return worseStyle
	default:
		return betterStyle
	}
}

func avgText(avg float64) string {
	return fmt.Sprintf("%s %.2f%%", trendIcon(avg), math.Abs(avg))
}

func domainText(lo, hi float64) string {
	if closeEnough(lo, hi) {
		return trendStyle(lo).Render(fmt.Sprintf("%.2f%%", lo))
	}
	return fmt.Sprintf("%s, %s",
		trendStyle(lo).Render(fmt.Sprintf("%.2f%%", lo)),
		trendStyle(hi).Render(fmt.Sprintf("%.2f%%", hi)))
}

func statText(line *results.StatLine) (avg, domain string) {
	if line == nil {
		return "N/A", "N/A"
	}
	return avgText(line.AvgPct), domainText(line.MinPct, line.MaxPct)
}

func closeEnough(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(math.Abs(a), math.Abs(b))
}

// sizeofFmt converts a byte count into a human-readable binary-unit string.
func sizeofFmt(num float64) string {
	for _, unit := range []string{"", "Ki", "Mi", "Gi", "Ti", "Pi", "Ei", "Zi"} {
		if math.Abs(num) < 1024.0 {
			return fmt.Sprintf("%3.1f%sB", num, unit)
		}
		num /= 1024.0
	}
	return fmt.Sprintf("%.1fYiB", num)
}

// WriteTables renders the per-stage RSS/time comparison table and the
// per-case executable size table.
func WriteTables(w io.Writer, res *results.TestResults, left, right fmt.Stringer) error {
	versus := fmt.Sprintf("%s vs %s", left, right)

	stageTable := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Stage", "RSS (average)", "RSS (range)", "Duration (average)", "Duration (range)")

	for _, stat := range res.StageStats() {
		rssAvg, rssDomain := statText(stat.RSS)
		timeAvg, timeDomain := statText(stat.Time)
		stageTable.Row(stat.Stage, rssAvg, rssDomain, timeAvg, timeDomain)
	}

	sizeTable := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Case", "Difference", "Value")

	for _, cmp := range res.SizeComparisons() {
		if !cmp.Applicable {
			sizeTable.Row(cmp.Name, "N/A", "N/A")
			continue
		}
		trend := trendIcon(float64(cmp.Diff))
		sizeTable.Row(cmp.Name,
			fmt.Sprintf("%s %s", trend, sizeofFmt(math.Abs(float64(cmp.Diff)))),
			fmt.Sprintf("%s %.2f%% (%s)", trend, math.Abs(cmp.Pct), sizeofFmt(float64(cmp.RightSize))))
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("RSS/Time Comparison of %s\n", versus))
	sb.WriteString(stageTable.Render())
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("Executable Size Comparison of %s\n", versus))
	sb.WriteString(sizeTable.Render())
	sb.WriteString("\n")

	_, err := io.WriteString(w, sb.String())
	return err
}
