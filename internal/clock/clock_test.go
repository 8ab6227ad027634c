package clock_test

import (
	"os"
	"testing"
	"time"

	"github.com/Daniel-LU-JC/CSE-DFS/internal/clock"
)

func TestNowHonorsSourceDateEpoch(t *testing.T) {
	t.Setenv("SOURCE_DATE_EPOCH", "1700000000")
	got := clock.Now()
	want := time.Unix(1700000000, 0).UTC()
	if !got.Equal(want) {
		t.Fatalf("Now() = %v, want %v", got, want)
	}
}

func TestNowFallsBackToWallClock(t *testing.T) {
	_ = os.Unsetenv("SOURCE_DATE_EPOCH")
	before := time.Now().UTC()
	got := clock.Now()
	after := time.Now().UTC()
	if got.Before(before) || got.After(after) {
		t.Fatalf("Now() = %v, want between %v and %v", got, before, after)
	}
}
