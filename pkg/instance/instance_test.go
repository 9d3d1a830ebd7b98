package instance

import (
	"strings"
	"testing"
)

func TestGetIDPrefersEnv(t *testing.T) {
	t.Setenv("BAKERY_INSTANCE_ID", "cron-1")
	if got := GetID(); got != "cron-1" {
		t.Fatalf("expected env override, got %q", got)
	}
}

func TestGetIDFallsBackToHost(t *testing.T) {
	t.Setenv("BAKERY_INSTANCE_ID", "")
	t.Setenv("INSTANCE_ID", "")
	if got := GetID(); got == "" || !strings.Contains(got, "-") {
		t.Fatalf("expected host-pid id, got %q", got)
	}
}
