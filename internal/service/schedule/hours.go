package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/sandevgo/replydesk/internal/core"
)

const (
	msgOpen          = "We are currently open."
	msgOpenUntil     = "We are currently open until %s."
	msgOpensToday    = "We are currently closed. We open at %s today."
	msgOpensOn       = "We are currently closed. We are open %s to %s on %s."
	msgClosedNoHours = "We are currently closed. We will get back to you during business hours."
)

// HoursStatus is the outcome of checking a weekly schedule at one instant.
type HoursStatus struct {
	Open    bool
	Message string
}

// IsBusinessOpen evaluates hours at now. now must already be in the business
// timezone. An empty schedule counts as always open.
func IsBusinessOpen(hours core.BusinessHours, now time.Time) HoursStatus {
	if len(hours) == 0 {
		return HoursStatus{Open: true, Message: msgOpen}
	}

	today := dayKey(now.Weekday())
	openAt, closeAt, ok := window(hours[today], now)
	if !ok {
		if hours[today] != nil {
			// unparseable hours for today
			return HoursStatus{Open: true, Message: msgOpen}
		}
		return nextOpening(hours, now)
	}

	current := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), now.Minute(), 0, 0, now.Location())
	switch {
	case !current.Before(openAt) && !current.After(closeAt):
		return HoursStatus{Open: true, Message: fmt.Sprintf(msgOpenUntil, hours[today].Close)}
	case current.Before(openAt):
		return HoursStatus{Message: fmt.Sprintf(msgOpensToday, hours[today].Open)}
	default:
		return nextOpening(hours, now)
	}
}

// nextOpening finds the next day after now with valid hours.
func nextOpening(hours core.BusinessHours, now time.Time) HoursStatus {
	for i := 1; i <= 7; i++ {
		day := now.AddDate(0, 0, i)
		h := hours[dayKey(day.Weekday())]
		if _, _, ok := window(h, day); ok {
			return HoursStatus{Message: fmt.Sprintf(msgOpensOn, h.Open, h.Close, day.Weekday().String())}
		}
	}
	return HoursStatus{Message: msgClosedNoHours}
}

func window(h *core.DayHours, day time.Time) (time.Time, time.Time, bool) {
	if h == nil || h.Open == "" || h.Close == "" {
		return time.Time{}, time.Time{}, false
	}
	openAt, err1 := clockOn(day, h.Open)
	closeAt, err2 := clockOn(day, h.Close)
	if err1 != nil || err2 != nil {
		return time.Time{}, time.Time{}, false
	}
	return openAt, closeAt, true
}

func clockOn(day time.Time, hhmm string) (time.Time, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(hhmm))
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location()), nil
}

func dayKey(d time.Weekday) string {
	return strings.ToLower(d.String())
}
