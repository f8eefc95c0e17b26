package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gcbaptista/go-help-search/model"
)

// QueryLog is one persisted query run.
type QueryLog struct {
	ID             string    `gorm:"primaryKey;type:text"`
	SessionID      string    `gorm:"index;type:text"`
	Query          string    `gorm:"type:text;not null"`
	ScopeIndex     int       `gorm:"not null"`
	SearchType     string    `gorm:"type:text"`
	Outcome        string    `gorm:"index;type:text"`
	ResponseTimeNs int64     `gorm:"not null"`
	ResultCount    int       `gorm:"not null"`
	CreatedAt      time.Time `gorm:"index;not null"`
}

// TableName pins the table name.
func (QueryLog) TableName() string { return "query_logs" }

// InsertQueryLog stores one search event. A zero timestamp is set to now.
func InsertQueryLog(ctx context.Context, db *gorm.DB, ev model.SearchEvent) error {
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	row := &QueryLog{
		ID:             uuid.NewString(),
		SessionID:      ev.SessionID,
		Query:          ev.Query,
		ScopeIndex:     ev.ScopeIndex,
		SearchType:     ev.SearchType,
		Outcome:        ev.Outcome,
		ResponseTimeNs: int64(ev.ResponseTime),
		ResultCount:    ev.ResultCount,
		CreatedAt:      ts.UTC(),
	}
	return db.WithContext(ctx).Create(row).Error
}

// ListQueryLogsSince returns events created at or after since, oldest
// first, keeping at most the newest limit rows when limit > 0.
func ListQueryLogsSince(ctx context.Context, db *gorm.DB, since time.Time, limit int) ([]model.SearchEvent, error) {
	var rows []QueryLog
	q := db.WithContext(ctx).
		Where("created_at >= ?", since.UTC()).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]model.SearchEvent, len(rows))
	for i, r := range rows {
		out[len(rows)-1-i] = model.SearchEvent{
			SessionID:    r.SessionID,
			Query:        r.Query,
			ScopeIndex:   r.ScopeIndex,
			SearchType:   r.SearchType,
			Outcome:      r.Outcome,
			ResponseTime: time.Duration(r.ResponseTimeNs),
			ResultCount:  r.ResultCount,
			Timestamp:    r.CreatedAt,
		}
	}
	return out, nil
}

// DeleteQueryLogsBefore removes rows older than before and returns how many
// were deleted.
func DeleteQueryLogsBefore(ctx context.Context, db *gorm.DB, before time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("created_at < ?", before.UTC()).Delete(&QueryLog{})
	return res.RowsAffected, res.Error
}

// CountQueryLogs returns the number of stored rows, optionally limited to
// one outcome.
func CountQueryLogs(ctx context.Context, db *gorm.DB, outcome string) (int64, error) {
	var n int64
	q := db.WithContext(ctx).Model(&QueryLog{})
	if outcome != "" {
		q = q.Where("outcome = ?", outcome)
	}
	if err := q.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
