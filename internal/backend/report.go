package backend

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Summary renders the report as one line for people, with times relative
// to now.
func (r Report) Summary(now time.Time) string {
	var b strings.Builder
	if r.Running {
		fmt.Fprintf(&b, "Running (pid %d, started %s)", r.PID, humanize.RelTime(r.StartedAt, now, "ago", "from now"))
		switch {
		case r.Healthy:
			b.WriteString(", healthy")
		case r.HealthError != "":
			b.WriteString(", unhealthy: " + r.HealthError)
		}
		return b.String()
	}

	b.WriteString("Stopped")
	if r.LastExitCode != nil {
		fmt.Fprintf(&b, " (exit code %d, %s)", *r.LastExitCode, humanize.RelTime(r.LastExitAt, now, "ago", "from now"))
	}
	return b.String()
}
