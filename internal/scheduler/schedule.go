package scheduler

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalidSchedule means a schedule is not a valid five-field cron
// expression.
var ErrInvalidSchedule = errors.New("invalid schedule")

// ParseSchedule parses a standard cron expression ("0 0 * * *", "@daily").
// Times are interpreted in loc unless the expression carries its own
// CRON_TZ= or TZ= prefix.
func ParseSchedule(expr string, loc *time.Location) (cron.Schedule, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrInvalidSchedule)
	}

	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidSchedule, expr, err)
	}

	if loc != nil && !hasTZPrefix(expr) {
		if spec, ok := sched.(*cron.SpecSchedule); ok {
			spec.Location = loc
		}
	}
	return sched, nil
}

func hasTZPrefix(expr string) bool {
	return strings.HasPrefix(expr, "CRON_TZ=") || strings.HasPrefix(expr, "TZ=")
}

// NextRun returns the first occurrence of expr strictly after after.
func NextRun(expr string, after time.Time, loc *time.Location) (time.Time, error) {
	sched, err := ParseSchedule(expr, loc)
	if err != nil {
		return time.Time{}, err
	}
	next := sched.Next(after)
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("%w: %q never fires", ErrInvalidSchedule, expr)
	}
	return next, nil
}

// NextAlignedTick returns the next tick after now, aligned to wall-clock
// multiples of interval. A five minute interval lands on :00, :05, :10 and
// so on.
func NextAlignedTick(now time.Time, interval time.Duration) time.Time {
	return now.Truncate(interval).Add(interval)
}
