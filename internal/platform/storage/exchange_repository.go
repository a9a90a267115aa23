package storage

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	platformerrors "voicetrim-server-go/internal/platform/errors"
)

// Exchange records one completed pipeline round: the transcribed utterance,
// the governed reply and how the governor settled on it.
type Exchange struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	SessionID      string         `gorm:"index;not null" json:"session_id"`
	Utterance      string         `gorm:"type:text" json:"utterance"`
	Reply          string         `gorm:"type:text" json:"reply"`
	Verdict        string         `gorm:"index" json:"verdict"`
	Duration       float64        `json:"duration"`
	DurationBefore float64        `json:"duration_before"`
	Attempts       int            `json:"attempts"`
	Detail         datatypes.JSON `json:"detail,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// TableName fixes the table name.
func (Exchange) TableName() string {
	return "exchanges"
}

// ExchangeRepository persists and queries exchange rows.
type ExchangeRepository struct {
	db *gorm.DB
}

// NewExchangeRepository wraps the database handle.
func NewExchangeRepository(db *gorm.DB) *ExchangeRepository {
	return &ExchangeRepository{db: db}
}

// Save inserts a finished exchange.
func (r *ExchangeRepository) Save(ctx context.Context, exchange *Exchange) error {
	if err := r.db.WithContext(ctx).Create(exchange).Error; err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "exchange.save", "insert exchange", err)
	}
	return nil
}

// ListBySession returns the most recent exchanges of one session, newest
// first.
func (r *ExchangeRepository) ListBySession(ctx context.Context, sessionID string, limit int) ([]Exchange, error) {
	if limit <= 0 {
		limit = 50
	}
	var exchanges []Exchange
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id DESC").
		Limit(limit).
		Find(&exchanges).Error
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindStorage, "exchange.list", "query session exchanges", err)
	}
	return exchanges, nil
}

// ListRecent returns the most recent exchanges across all sessions.
func (r *ExchangeRepository) ListRecent(ctx context.Context, limit int) ([]Exchange, error) {
	if limit <= 0 {
		limit = 50
	}
	var exchanges []Exchange
	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&exchanges).Error
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindStorage, "exchange.list", "query recent exchanges", err)
	}
	return exchanges, nil
}

// CountByVerdict aggregates how often each governor disposition occurred.
func (r *ExchangeRepository) CountByVerdict(ctx context.Context) (map[string]int64, error) {
	type row struct {
		Verdict string
		Total   int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&Exchange{}).
		Select("verdict, count(*) as total").
		Group("verdict").
		Find(&rows).Error
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindStorage, "exchange.count", "aggregate verdicts", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Verdict] = r.Total
	}
	return counts, nil
}
