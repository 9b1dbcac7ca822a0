package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"themeplane/model"
)

func TestShouldRun(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 6, 10, 8, 0, 0, 0, loc)

	tests := []struct {
		name    string
		sc      model.Schedule
		lastRun time.Time
		want    bool
	}{
		{name: "interval first run", sc: model.Schedule{Type: model.ScheduleInterval, Every: "1h"}, want: true},
		{name: "interval too soon", sc: model.Schedule{Type: model.ScheduleInterval, Every: "1h"}, lastRun: now.Add(-30 * time.Minute), want: false},
		{name: "interval due", sc: model.Schedule{Type: model.ScheduleInterval, Every: "1h"}, lastRun: now.Add(-time.Hour), want: true},
		{name: "interval invalid", sc: model.Schedule{Type: model.ScheduleInterval, Every: "soon"}, want: false},
		{name: "interval zero", sc: model.Schedule{Type: model.ScheduleInterval, Every: "0s"}, want: false},
		{name: "daily before time", sc: model.Schedule{Type: model.ScheduleDaily, TimeOfDay: "09:00"}, want: false},
		{name: "daily after time", sc: model.Schedule{Type: model.ScheduleDaily, TimeOfDay: "07:30"}, want: true},
		{name: "daily already ran", sc: model.Schedule{Type: model.ScheduleDaily, TimeOfDay: "07:30"}, lastRun: now.Add(-10 * time.Minute), want: false},
		{name: "daily ran yesterday", sc: model.Schedule{Type: model.ScheduleDaily, TimeOfDay: "07:30"}, lastRun: now.AddDate(0, 0, -1), want: true},
		{name: "daily malformed", sc: model.Schedule{Type: model.ScheduleDaily, TimeOfDay: "7h30"}, want: false},
		{name: "daily out of range", sc: model.Schedule{Type: model.ScheduleDaily, TimeOfDay: "24:00"}, want: false},
		{name: "unknown type", sc: model.Schedule{Type: "weekly"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldRun(tt.sc, tt.lastRun, now))
		})
	}
}

func TestValidate(t *testing.T) {
	assert.True(t, Validate(model.Schedule{Type: model.ScheduleInterval, Every: "15m"}))
	assert.True(t, Validate(model.Schedule{Type: model.ScheduleDaily, TimeOfDay: "18:45"}))
	assert.False(t, Validate(model.Schedule{Type: model.ScheduleDaily, TimeOfDay: "18"}))
	assert.False(t, Validate(model.Schedule{Type: model.ScheduleInterval}))
}

func TestCheckRunsDueSchedules(t *testing.T) {
	var mu sync.Mutex
	var ran []string
	runner := func(_ context.Context, sc model.Schedule) error {
		mu.Lock()
		defer mu.Unlock()
		ran = append(ran, sc.ID)
		if sc.ID == "failing" {
			return errors.New("hyprctl not found")
		}
		return nil
	}
	s := New(runner, []model.Schedule{
		{ID: "rotate", Enabled: true, Type: model.ScheduleInterval, Every: "1h"},
		{ID: "failing", Enabled: true, Type: model.ScheduleInterval, Every: "1h"},
		{ID: "disabled", Enabled: false, Type: model.ScheduleInterval, Every: "1h"},
		{Enabled: true, Type: model.ScheduleInterval, Every: "1h"},
	}, nil)

	now := time.Now()
	s.check(context.Background(), now)
	s.Wait()
	s.check(context.Background(), now.Add(time.Minute))
	s.Wait()

	assert.ElementsMatch(t, []string{"rotate", "failing"}, ran)
}

func TestSetSchedulesResetsLastRun(t *testing.T) {
	count := 0
	s := New(func(context.Context, model.Schedule) error { count++; return nil }, nil, nil)
	sc := model.Schedule{ID: "rotate", Enabled: true, Type: model.ScheduleInterval, Every: "1h"}

	s.SetSchedules([]model.Schedule{sc})
	now := time.Now()
	s.check(context.Background(), now)
	s.Wait()

	s.SetSchedules([]model.Schedule{sc})
	s.check(context.Background(), now)
	s.Wait()

	assert.Equal(t, 2, count)
	assert.Equal(t, []model.Schedule{sc}, s.Schedules())
}
