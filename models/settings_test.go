package models

import (
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func ptr[T any](v T) *T { return &v }

func TestSettingsPatchValidate(t *testing.T) {
	cases := []struct {
		name  string
		patch SettingsPatch
		field string
	}{
		{name: "empty patch", patch: SettingsPatch{}},
		{name: "allowed values", patch: SettingsPatch{
			EliminationType:     ptr(DoubleElimination),
			WinCondition:        ptr(BestOf5),
			MaxPlayers:          ptr(16),
			CountdownSpeed:      ptr(1.5),
			BreakBetweenMatches: ptr(10),
			Seeding:             ptr(SeedingManual),
			MoveTimer:           OptionalSeconds{Set: true, Value: ptr(30)},
		}},
		{name: "unlimited move timer", patch: SettingsPatch{MoveTimer: OptionalSeconds{Set: true}}},
		{name: "bad max players", patch: SettingsPatch{MaxPlayers: ptr(6)}, field: "maxPlayers"},
		{name: "bad elimination", patch: SettingsPatch{EliminationType: ptr(EliminationType("triple"))}, field: "eliminationType"},
		{name: "bad countdown", patch: SettingsPatch{CountdownSpeed: ptr(2.0)}, field: "countdownSpeed"},
		{name: "bad break", patch: SettingsPatch{BreakBetweenMatches: ptr(7)}, field: "breakBetweenMatches"},
		{name: "bad move timer", patch: SettingsPatch{MoveTimer: OptionalSeconds{Set: true, Value: ptr(20)}}, field: "moveTimer"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.patch.Validate()
			if tc.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var fe *FieldError
			if !errors.As(err, &fe) {
				t.Fatalf("expected FieldError, got %v", err)
			}
			if fe.Field != tc.field {
				t.Fatalf("expected field %s, got %s", tc.field, fe.Field)
			}
		})
	}
}

func TestSettingsPatchApplyKeepsUnsetFields(t *testing.T) {
	base := DefaultTournamentSettings()
	got := SettingsPatch{
		MaxPlayers:  ptr(4),
		ChatEnabled: ptr(false),
		MoveTimer:   OptionalSeconds{Set: true},
	}.Apply(base)

	if got.MaxPlayers != 4 || got.ChatEnabled {
		t.Fatalf("patched fields not applied: %+v", got)
	}
	if got.MoveTimer != nil {
		t.Fatalf("expected unlimited move timer, got %d", *got.MoveTimer)
	}
	if got.WinCondition != base.WinCondition || got.Seeding != base.Seeding || !got.AIFill {
		t.Fatalf("unset fields changed: %+v", got)
	}
	if base.MoveTimer == nil || *base.MoveTimer != 15 {
		t.Fatal("apply mutated the base settings")
	}
}

func TestSettingsPatchDecodeMoveTimer(t *testing.T) {
	var p SettingsPatch
	if err := json.Unmarshal([]byte(`{"maxPlayers":16,"moveTimer":10}`), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !p.MoveTimer.Set || p.MoveTimer.Value == nil || *p.MoveTimer.Value != 10 {
		t.Fatalf("moveTimer not decoded: %+v", p.MoveTimer)
	}

	var absent SettingsPatch
	if err := json.Unmarshal([]byte(`{"maxPlayers":16}`), &absent); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if absent.MoveTimer.Set {
		t.Fatal("absent moveTimer should not be marked as set")
	}
}

func TestSettingsDurations(t *testing.T) {
	s := DefaultTournamentSettings()
	if s.CountdownStep() != time.Second {
		t.Fatalf("expected 1s step at speed 3, got %v", s.CountdownStep())
	}
	s.CountdownSpeed = 1.5
	if s.CountdownStep() != 500*time.Millisecond {
		t.Fatalf("expected 500ms step at speed 1.5, got %v", s.CountdownStep())
	}
	if s.BreakDuration() != 5*time.Second {
		t.Fatalf("expected 5s break, got %v", s.BreakDuration())
	}
}
