// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the aggregate query behind the
// communications statistics endpoint.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// MonthlySessionCounts returns, for the given year, the number of distinct
// communication sessions started in each month as a 12-slot array (index 0 =
// January), zero-filled for months without traffic.
//
// The month extraction happens in Go rather than SQL so the query stays
// portable across the SQLite and Postgres drivers.
func MonthlySessionCounts(ctx context.Context, db *gorm.DB, year int) ([12]int64, error) {
	var counts [12]int64

	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)

	var rows []struct {
		SessionID string
		CreatedAt time.Time
	}
	err := db.WithContext(ctx).
		Table("communication").
		Select("session_id, created_at").
		Where("created_at >= ? AND created_at < ?", from, to).
		Scan(&rows).Error
	if err != nil {
		return counts, err
	}

	var seen [12]map[string]struct{}
	for _, r := range rows {
		m := int(r.CreatedAt.UTC().Month()) - 1
		if seen[m] == nil {
			seen[m] = make(map[string]struct{})
		}
		seen[m][r.SessionID] = struct{}{}
	}
	for i, s := range seen {
		counts[i] = int64(len(s))
	}
	return counts, nil
}
