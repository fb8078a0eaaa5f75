package schedule

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/sandevgo/replydesk/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2024-01-15 is a Monday.
func at(day, hour, minute int) time.Time {
	return time.Date(2024, 1, day, hour, minute, 0, 0, time.UTC)
}

func TestIsBusinessOpen(t *testing.T) {
	monday := core.BusinessHours{"monday": {Open: "09:00", Close: "17:00"}}

	tests := []struct {
		name  string
		hours core.BusinessHours
		now   time.Time
		open  bool
		msg   string
	}{
		{"monday morning", monday, at(15, 10, 0), true, "We are currently open until 17:00."},
		{"monday evening", monday, at(15, 20, 0), false, "We are currently closed. We are open 09:00 to 17:00 on Monday."},
		{"before opening", monday, at(15, 8, 30), false, "We are currently closed. We open at 09:00 today."},
		{"closing minute is open", monday, at(15, 17, 0), true, "We are currently open until 17:00."},
		{"no schedule", nil, at(15, 3, 0), true, "We are currently open."},
		{
			"closed day points to next open day",
			core.BusinessHours{"sunday": nil, "monday": {Open: "09:00", Close: "17:00"}, "tuesday": {Open: "10:00", Close: "14:00"}},
			at(14, 12, 0), false, "We are currently closed. We are open 09:00 to 17:00 on Monday.",
		},
		{
			"evening skips to tomorrow",
			core.BusinessHours{"monday": {Open: "09:00", Close: "17:00"}, "tuesday": {Open: "10:00", Close: "14:00"}},
			at(15, 18, 0), false, "We are currently closed. We are open 10:00 to 14:00 on Tuesday.",
		},
		{
			"no open day at all",
			core.BusinessHours{"monday": nil},
			at(15, 12, 0), false, "We are currently closed. We will get back to you during business hours.",
		},
		{"unparseable hours", core.BusinessHours{"monday": {Open: "nine", Close: "five"}}, at(15, 12, 0), true, "We are currently open."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsBusinessOpen(tt.hours, tt.now)
			assert.Equal(t, tt.open, got.Open)
			assert.Equal(t, tt.msg, got.Message)
		})
	}
}

type fakeAvailability struct {
	slots []time.Time
	link  string
	err   error
	token string
}

func (f *fakeAvailability) AvailableTimes(_ context.Context, token string, _, _ time.Time) ([]time.Time, string, error) {
	f.token = token
	return f.slots, f.link, f.err
}

func TestSchedulerTiers(t *testing.T) {
	ctx := context.Background()

	t.Run("static link wins", func(t *testing.T) {
		avail := &fakeAvailability{}
		s := NewScheduler(avail, 0)
		info := s.Respond(ctx, &core.Business{Name: "Glow", CalendlyLink: "https://calendly.com/glow", CalendlyToken: "tok"}, "book me")
		assert.Equal(t, "https://calendly.com/glow", info.CalendlyLink)
		assert.True(t, info.ActionRequired)
		assert.Contains(t, info.Message, "https://calendly.com/glow")
		assert.Empty(t, avail.token)
	})

	t.Run("live availability", func(t *testing.T) {
		var slots []time.Time
		for i := 0; i < 7; i++ {
			slots = append(slots, time.Date(2024, 1, 16+i, 15, 0, 0, 0, time.UTC))
		}
		avail := &fakeAvailability{slots: slots, link: "https://calendly.com/glow/30min"}
		s := NewScheduler(avail, time.Second)
		s.now = func() time.Time { return at(15, 9, 0) }

		info := s.Respond(ctx, &core.Business{Name: "Glow", CalendlyToken: "tok", Timezone: "America/New_York"}, "can we meet, I'm on PST")
		assert.Equal(t, "tok", avail.token)
		require.Len(t, info.SuggestedTimes, 5)
		assert.Equal(t, "Tue, Jan 16, 7:00 AM", info.SuggestedTimes[0])
		assert.Equal(t, "https://calendly.com/glow/30min", info.CalendlyLink)
		assert.True(t, info.ActionRequired)
		assert.Contains(t, info.Message, "1. Tue, Jan 16, 7:00 AM")
	})

	t.Run("falls back to a human", func(t *testing.T) {
		s := NewScheduler(&fakeAvailability{err: errors.New("401")}, 0)
		info := s.Respond(ctx, &core.Business{Name: "Glow", CalendlyToken: "tok"}, "book")
		assert.False(t, info.ActionRequired)
		assert.Empty(t, info.CalendlyLink)
		assert.Contains(t, info.Message, "someone contact you")

		empty := NewScheduler(&fakeAvailability{}, 0).Respond(ctx, &core.Business{Name: "Glow", CalendlyToken: "tok"}, "book")
		assert.False(t, empty.ActionRequired)

		noProvider := NewScheduler(nil, 0).Respond(ctx, &core.Business{Name: "Glow", CalendlyToken: "tok"}, "book")
		assert.False(t, noProvider.ActionRequired)
	})
}
