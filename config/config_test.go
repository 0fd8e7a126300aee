package config

import (
	"strings"
	"testing"
	"time"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.HTTPAddr != ":3000" || cfg.WSAddr != ":3001" {
		t.Fatalf("unexpected addresses %q %q", cfg.HTTPAddr, cfg.WSAddr)
	}
	if cfg.ReplayCapacity != 1000 || cfg.AIHistorySize != 50 {
		t.Fatalf("unexpected engine defaults %+v", cfg)
	}
	if cfg.MatchCompleteDelay != 3*time.Second || cfg.TournamentTTL != time.Hour {
		t.Fatalf("unexpected durations %v %v", cfg.MatchCompleteDelay, cfg.TournamentTTL)
	}
	if cfg.Archive.Backend != ArchiveNone || cfg.Archive.QueueSize != 256 {
		t.Fatalf("unexpected archive defaults %+v", cfg.Archive)
	}
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("ARCHIVE_BACKEND", ArchiveSQLite)
	t.Setenv("SQLITE_PATH", "/tmp/arena.db")
	t.Setenv("MATCH_COMPLETE_DELAY", "500ms")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CONNECTION_SECRET", "s3cret")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("origins not split and trimmed: %q", cfg.AllowedOrigins)
	}
	if cfg.Archive.SQLitePath != "/tmp/arena.db" || cfg.MatchCompleteDelay != 500*time.Millisecond {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Log.Level != "debug" || cfg.ConnectionSecret != "s3cret" {
		t.Fatalf("expected debug level and the connection secret, got %q %q", cfg.Log.Level, cfg.ConnectionSecret)
	}
}

func TestParseRejectsIncompleteArchive(t *testing.T) {
	cases := map[string]map[string]string{
		"postgres without dsn": {"ARCHIVE_BACKEND": ArchivePostgres},
		"r2 without bucket": {
			"ARCHIVE_BACKEND":       ArchiveR2,
			"CLOUDFLARE_ACCOUNT_ID": "acct",
			"R2_ACCESS_KEY_ID":      "key",
			"R2_ACCESS_KEY_SECRET":  "secret",
		},
		"unknown backend": {"ARCHIVE_BACKEND": "floppy"},
		"zero send buffer": {"SEND_BUFFER": "0"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range vars {
				t.Setenv(k, v)
			}
			if _, err := Parse(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestParseBadValue(t *testing.T) {
	t.Setenv("REPLAY_CAPACITY", "lots")
	_, err := Parse()
	if err == nil || !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env error, got %v", err)
	}
}
