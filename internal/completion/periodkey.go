package completion

import (
	"fmt"
	"time"

	"github.com/fernwood/hearth/internal/model"
)

// PeriodKey identifies the recurrence bucket a completion belongs to. At
// most one approved completion may exist per (task, member, period key).
//
//	one_time -> "once"
//	daily    -> YYYY-MM-DD
//	weekly   -> YYYY-Www (week of year, counted from Jan 1's week)
//	monthly  -> YYYY-MM
func PeriodKey(freq model.Frequency, at time.Time) string {
	at = at.UTC()
	switch freq {
	case model.FrequencyOneTime:
		return "once"
	case model.FrequencyDaily:
		return at.Format("2006-01-02")
	case model.FrequencyWeekly:
		return fmt.Sprintf("%d-W%02d", at.Year(), weekOfYear(at))
	case model.FrequencyMonthly:
		return at.Format("2006-01")
	}
	return "once"
}

// weekOfYear numbers weeks so that Jan 1 always falls in week 1 and weeks
// roll over on Sunday.
func weekOfYear(at time.Time) int {
	jan1 := time.Date(at.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	daysSinceJan1 := int(at.Sub(jan1).Hours() / 24)
	offset := daysSinceJan1 + int(jan1.Weekday()) + 1
	return (offset + 6) / 7
}
