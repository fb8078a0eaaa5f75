package schedule

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sandevgo/replydesk/internal/core"
	"github.com/sandevgo/replydesk/internal/service/signals"
	"github.com/sandevgo/replydesk/pkg/log"
)

const (
	lookahead    = 14 * 24 * time.Hour
	maxSuggested = 5
	slotLayout   = "Mon, Jan 2, 3:04 PM"
)

// Scheduler answers scheduling intent, preferring a static booking link,
// then live availability, then a human follow-up.
type Scheduler struct {
	availability core.AvailabilityProvider
	timeout      time.Duration
	now          func() time.Time
}

func NewScheduler(availability core.AvailabilityProvider, timeout time.Duration) *Scheduler {
	return &Scheduler{availability: availability, timeout: timeout, now: time.Now}
}

func (s *Scheduler) Respond(ctx context.Context, b *core.Business, text string) core.SchedulingInfo {
	if b.CalendlyLink != "" {
		return core.SchedulingInfo{
			Message: fmt.Sprintf("I'd be happy to help you schedule an appointment with %s. You can book a time that works for you using this link: %s",
				b.Name, b.CalendlyLink),
			CalendlyLink:   b.CalendlyLink,
			ActionRequired: true,
		}
	}

	if b.CalendlyToken != "" && s.availability != nil {
		if info, ok := s.live(ctx, b, text); ok {
			return info
		}
	}

	return core.SchedulingInfo{
		Message: fmt.Sprintf("I'd be happy to help you schedule an appointment with %s. Please let me know what time works best for you, or I can have someone contact you to arrange a time.",
			b.Name),
	}
}

func (s *Scheduler) live(ctx context.Context, b *core.Business, text string) (core.SchedulingInfo, bool) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	from := s.now()
	slots, link, err := s.availability.AvailableTimes(ctx, b.CalendlyToken, from, from.Add(lookahead))
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("availability lookup failed")
		return core.SchedulingInfo{}, false
	}
	if len(slots) == 0 {
		return core.SchedulingInfo{}, false
	}

	loc := b.Location()
	if tz := signals.DetectTimezone(text); tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}

	times := FormatSlots(slots, loc, maxSuggested)
	var sb strings.Builder
	fmt.Fprintf(&sb, "I'd be happy to schedule an appointment with %s! Here are some available times:\n\n", b.Name)
	for i, t := range times {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, t)
	}
	sb.WriteString("\nWould you like to book one of these times? Or you can choose a time that works best for you.")

	return core.SchedulingInfo{
		Message:        sb.String(),
		CalendlyLink:   link,
		SuggestedTimes: times,
		ActionRequired: true,
	}, true
}

// FormatSlots renders at most limit slots in loc.
func FormatSlots(slots []time.Time, loc *time.Location, limit int) []string {
	if len(slots) > limit {
		slots = slots[:limit]
	}
	out := make([]string, len(slots))
	for i, t := range slots {
		out[i] = t.In(loc).Format(slotLayout)
	}
	return out
}
