package supervisor

import (
	"fmt"
	"strings"
	"time"
)

// PrintStatus renders the roll-up table of every child's health (spec §4.8:
// "print a table of {running?, name, uptime, restarts} plus totals"),
// printed at every HealthCheckInterval tick.
func (s *Supervisor) PrintStatus(now time.Time) {
	snapshot := s.Snapshot()

	var b strings.Builder
	b.WriteString("\n=== supervisor status ===\n")
	fmt.Fprintf(&b, "%-20s %-8s %-12s %-9s %-8s %-10s\n", "NAME", "RUNNING", "UPTIME", "RESTARTS", "CPU%", "RSS")

	var running, totalRestarts int
	for _, c := range snapshot {
		uptime := time.Duration(0)
		if c.Running && !c.LastStart.IsZero() {
			uptime = now.Sub(c.LastStart)
			running++
		}
		totalRestarts += c.Restarts

		fmt.Fprintf(&b, "%-20s %-8s %-12s %-9d %-8.1f %-10s\n",
			c.Name, runningGlyph(c.Running), uptime.Round(time.Second), c.Restarts, c.CPUPercent, humanBytes(c.RSSBytes))
	}

	fmt.Fprintf(&b, "--- %d/%d running, %d total restarts ---\n", running, len(snapshot), totalRestarts)
	s.log.Info().Msg(b.String())
}

func runningGlyph(running bool) string {
	if running {
		return "yes"
	}
	return "no"
}

func humanBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for b := n / unit; b >= unit; b /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
