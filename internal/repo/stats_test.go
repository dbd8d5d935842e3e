package repo

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/tbourn/go-agent-bridge/internal/domain"
)

func TestMonthlySessionCounts_DistinctPerMonthZeroFilled(t *testing.T) {
	db := newFullDB(t)
	ctx := context.Background()
	year := 2025

	seed := func(session string, month time.Month) {
		t.Helper()
		c := &domain.Communication{
			SessionID: session,
			Message:   json.RawMessage(`{}`),
			CreatedAt: time.Date(year, month, 10, 12, 0, 0, 0, time.UTC),
		}
		if err := db.Create(c).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	// March: two sessions, one of them twice (distinct count must be 2).
	seed("s1", time.March)
	seed("s1", time.March)
	seed("s2", time.March)
	// July: one session.
	seed("s3", time.July)
	// Same session also active in August counts there too.
	seed("s3", time.August)
	// Outside the year: ignored.
	prev := &domain.Communication{
		SessionID: "s4",
		Message:   json.RawMessage(`{}`),
		CreatedAt: time.Date(year-1, time.December, 31, 23, 0, 0, 0, time.UTC),
	}
	if err := db.Create(prev).Error; err != nil {
		t.Fatalf("seed prev year: %v", err)
	}

	counts, err := MonthlySessionCounts(ctx, db, year)
	if err != nil {
		t.Fatalf("MonthlySessionCounts: %v", err)
	}

	want := [12]int64{}
	want[time.March-1] = 2
	want[time.July-1] = 1
	want[time.August-1] = 1
	if counts != want {
		t.Fatalf("counts mismatch:\n got %v\nwant %v", counts, want)
	}
}

func TestMonthlySessionCounts_EmptyYear(t *testing.T) {
	db := newFullDB(t)
	counts, err := MonthlySessionCounts(context.Background(), db, 2030)
	if err != nil {
		t.Fatalf("MonthlySessionCounts: %v", err)
	}
	if counts != ([12]int64{}) {
		t.Fatalf("expected all-zero counts, got %v", counts)
	}
}
