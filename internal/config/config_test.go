package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TOKEN_TTL", "")
	t.Setenv("MAX_VISIT_DURATION", "")
	t.Setenv("DB_TYPE", "")
	t.Setenv("VENUE_TZ", "")
	t.Setenv("TRUSTED_PROXIES", "")

	cfg := Load()

	if cfg.TokenTTL != 2*time.Hour {
		t.Errorf("TokenTTL = %v, want 2h", cfg.TokenTTL)
	}
	if cfg.MaxVisitDuration != 24*time.Hour {
		t.Errorf("MaxVisitDuration = %v, want 24h", cfg.MaxVisitDuration)
	}
	if cfg.DatabaseType != "sqlite" {
		t.Errorf("DatabaseType = %q, want sqlite", cfg.DatabaseType)
	}
	if cfg.VenueLocation.String() != "America/Sao_Paulo" {
		t.Errorf("VenueLocation = %v, want America/Sao_Paulo", cfg.VenueLocation)
	}
	if len(cfg.TrustedProxies) != 0 {
		t.Errorf("TrustedProxies = %v, want none by default", cfg.TrustedProxies)
	}
}

func TestLoadVenueAndProxies(t *testing.T) {
	t.Setenv("VENUE_TZ", "Europe/Lisbon")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.0.2.10")

	cfg := Load()

	if cfg.VenueLocation.String() != "Europe/Lisbon" {
		t.Errorf("VenueLocation = %v, want Europe/Lisbon", cfg.VenueLocation)
	}
	if len(cfg.TrustedProxies) != 2 || cfg.TrustedProxies[1] != "192.0.2.10" {
		t.Errorf("TrustedProxies = %v", cfg.TrustedProxies)
	}
}

func TestGetLocationInvalid(t *testing.T) {
	t.Setenv("SOME_TZ", "Mars/Olympus_Mons")
	if got := getLocation("SOME_TZ", "UTC"); got != time.UTC {
		t.Errorf("getLocation() = %v, want UTC", got)
	}
}

func TestLoadCapsTokenTTL(t *testing.T) {
	t.Setenv("TOKEN_TTL", "48h")
	t.Setenv("MAX_VISIT_DURATION", "24h")

	cfg := Load()

	if cfg.TokenTTL != 24*time.Hour {
		t.Errorf("TokenTTL = %v, want capped at 24h", cfg.TokenTTL)
	}
}

func TestGetDurationInvalid(t *testing.T) {
	t.Setenv("SOME_DURATION", "soon")
	if got := getDuration("SOME_DURATION", time.Minute); got != time.Minute {
		t.Errorf("getDuration() = %v, want default", got)
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" a, ,b,c ")
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("splitList() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("splitList()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
