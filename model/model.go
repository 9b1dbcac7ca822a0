package model

import (
	"time"
)

type Outcome string

const (
	OutcomeApplied         Outcome = "applied"
	OutcomeRecompileFailed Outcome = "recompile_failed"
	OutcomeFailed          Outcome = "failed"
)

// Activation records one apply attempt.
type Activation struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Theme      string    `json:"theme"`
	ThemeName  string    `json:"theme_name,omitempty"`
	Previous   string    `json:"previous,omitempty"`
	Outcome    Outcome   `json:"outcome"`
	Stage      string    `json:"stage,omitempty"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	Wallpaper  string    `json:"wallpaper,omitempty"`
	Source     string    `json:"source,omitempty"` // cli, api, picker, schedule
}

// Succeeded reports whether the theme ended up active.
func (a Activation) Succeeded() bool {
	return a.Outcome == OutcomeApplied || a.Outcome == OutcomeRecompileFailed
}

type ScheduleType string

const (
	ScheduleInterval ScheduleType = "interval"
	ScheduleDaily    ScheduleType = "daily"
)

// Schedule triggers a wallpaper change, or a theme switch when Theme is set.
type Schedule struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Enabled   bool         `json:"enabled"`
	Type      ScheduleType `json:"type"`
	Every     string       `json:"every,omitempty"`       // Go duration, e.g. "1h"
	TimeOfDay string       `json:"time_of_day,omitempty"` // "HH:MM" local time
	Theme     string       `json:"theme,omitempty"`
}
