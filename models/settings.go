// models/settings.go
package models

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

// TournamentSettings is the host-editable configuration of a tournament.
type TournamentSettings struct {
	EliminationType     EliminationType `json:"eliminationType"`
	WinCondition        WinCondition    `json:"winCondition"`
	MaxPlayers          int             `json:"maxPlayers"`
	AIFill              bool            `json:"aiFill"`
	MoveTimer           *int            `json:"moveTimer"` // seconds, nil = unlimited
	CountdownSpeed      float64         `json:"countdownSpeed"`
	BreakBetweenMatches int             `json:"breakBetweenMatches"`
	ChatEnabled         bool            `json:"chatEnabled"`
	ReactionsEnabled    bool            `json:"reactionsEnabled"`
	ReplayAutoSave      bool            `json:"replayAutoSave"`
	GrandFinalsReset    bool            `json:"grandFinalsReset"` // reserved, no bracket effect
	Seeding             Seeding         `json:"seeding"`
}

func DefaultTournamentSettings() TournamentSettings {
	timer := 15
	return TournamentSettings{
		EliminationType:     SingleElimination,
		WinCondition:        BestOf3,
		MaxPlayers:          8,
		AIFill:              true,
		MoveTimer:           &timer,
		CountdownSpeed:      3,
		BreakBetweenMatches: 5,
		ChatEnabled:         true,
		ReactionsEnabled:    true,
		ReplayAutoSave:      true,
		GrandFinalsReset:    false,
		Seeding:             SeedingRandom,
	}
}

// CountdownStep is the delay between countdown ticks (3, 2, 1, 0).
func (s TournamentSettings) CountdownStep() time.Duration {
	return time.Duration(s.CountdownSpeed / 3 * float64(time.Second))
}

// BreakDuration is the pause before the next set of matches starts.
func (s TournamentSettings) BreakDuration() time.Duration {
	return time.Duration(s.BreakBetweenMatches) * time.Second
}

// OptionalSeconds distinguishes an absent field from an explicit null.
type OptionalSeconds struct {
	Set   bool
	Value *int
}

func (o *OptionalSeconds) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("moveTimer: %w", err)
	}
	o.Value = &v
	return nil
}

func (o OptionalSeconds) MarshalJSON() ([]byte, error) {
	if o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}

// SettingsPatch carries the fields a host wants to change. Nil fields are kept.
type SettingsPatch struct {
	EliminationType     *EliminationType `json:"eliminationType,omitempty" validate:"omitnil,oneof=single double"`
	WinCondition        *WinCondition    `json:"winCondition,omitempty" validate:"omitnil,oneof=best_of_1 best_of_3 best_of_5"`
	MaxPlayers          *int             `json:"maxPlayers,omitempty" validate:"omitnil,oneof=4 8 16"`
	AIFill              *bool            `json:"aiFill,omitempty"`
	MoveTimer           OptionalSeconds  `json:"moveTimer"`
	CountdownSpeed      *float64         `json:"countdownSpeed,omitempty" validate:"omitnil,countdown_speed"`
	BreakBetweenMatches *int             `json:"breakBetweenMatches,omitempty" validate:"omitnil,oneof=0 5 10"`
	ChatEnabled         *bool            `json:"chatEnabled,omitempty"`
	ReactionsEnabled    *bool            `json:"reactionsEnabled,omitempty"`
	ReplayAutoSave      *bool            `json:"replayAutoSave,omitempty"`
	GrandFinalsReset    *bool            `json:"grandFinalsReset,omitempty"`
	Seeding             *Seeding         `json:"seeding,omitempty" validate:"omitnil,oneof=random manual"`
}

var (
	moveTimerOptions      = []int{10, 15, 30}
	countdownSpeedOptions = []float64{1.5, 3, 5}
)

var settingsValidator = newSettingsValidator()

func newSettingsValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("countdown_speed", func(fl validator.FieldLevel) bool {
		speed := fl.Field().Float()
		for _, opt := range countdownSpeedOptions {
			if speed == opt {
				return true
			}
		}
		return false
	})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks every provided field against its allowed options.
func (p SettingsPatch) Validate() error {
	if err := settingsValidator.Struct(p); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return &FieldError{Field: fe.Field(), Reason: fmt.Sprintf("value %v is not allowed", fe.Value())}
		}
		return err
	}
	if p.MoveTimer.Set && p.MoveTimer.Value != nil {
		allowed := false
		for _, opt := range moveTimerOptions {
			if *p.MoveTimer.Value == opt {
				allowed = true
				break
			}
		}
		if !allowed {
			return &FieldError{Field: "moveTimer", Reason: fmt.Sprintf("value %d is not allowed", *p.MoveTimer.Value)}
		}
	}
	return nil
}

// FieldError names the first settings field that failed validation.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Apply merges the patch over s. Call Validate first.
func (p SettingsPatch) Apply(s TournamentSettings) TournamentSettings {
	if p.EliminationType != nil {
		s.EliminationType = *p.EliminationType
	}
	if p.WinCondition != nil {
		s.WinCondition = *p.WinCondition
	}
	if p.MaxPlayers != nil {
		s.MaxPlayers = *p.MaxPlayers
	}
	if p.AIFill != nil {
		s.AIFill = *p.AIFill
	}
	if p.MoveTimer.Set {
		if p.MoveTimer.Value == nil {
			s.MoveTimer = nil
		} else {
			v := *p.MoveTimer.Value
			s.MoveTimer = &v
		}
	}
	if p.CountdownSpeed != nil {
		s.CountdownSpeed = *p.CountdownSpeed
	}
	if p.BreakBetweenMatches != nil {
		s.BreakBetweenMatches = *p.BreakBetweenMatches
	}
	if p.ChatEnabled != nil {
		s.ChatEnabled = *p.ChatEnabled
	}
	if p.ReactionsEnabled != nil {
		s.ReactionsEnabled = *p.ReactionsEnabled
	}
	if p.ReplayAutoSave != nil {
		s.ReplayAutoSave = *p.ReplayAutoSave
	}
	if p.GrandFinalsReset != nil {
		s.GrandFinalsReset = *p.GrandFinalsReset
	}
	if p.Seeding != nil {
		s.Seeding = *p.Seeding
	}
	return s
}
