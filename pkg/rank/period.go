package rank

import (
	"fmt"
	"time"
)

// Period is a rolling lookback window key. Items created before now-period
// are excluded from ranking entirely (hard filter, not a soft decay).
type Period string

const (
	PeriodHour  Period = "1h"
	PeriodDay   Period = "24h"
	PeriodWeek  Period = "7d"
	PeriodMonth Period = "30d"
)

// ParsePeriod validates a period key. Empty defaults to 24h.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "":
		return PeriodDay, nil
	case PeriodHour, PeriodDay, PeriodWeek, PeriodMonth:
		return Period(s), nil
	}
	return "", fmt.Errorf("unknown period %q (want 1h, 24h, 7d or 30d)", s)
}

// Duration returns the window length. Unknown keys fall back to 24h.
func (p Period) Duration() time.Duration {
	switch p {
	case PeriodHour:
		return time.Hour
	case PeriodWeek:
		return 7 * 24 * time.Hour
	case PeriodMonth:
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}
