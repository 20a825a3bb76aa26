// Package store holds the in-memory session store and the delivery journal.
package store

import (
	"context"
	"time"

	"github.com/ashureev/psicoflow/internal/domain"
)

// Journal records delivery attempts. Entries never contain personal data
// or free text.
type Journal interface {
	// Record stores the outcome of one delivery attempt.
	Record(ctx context.Context, rec domain.DeliveryRecord) error

	// Stats summarizes every recorded attempt.
	Stats(ctx context.Context) (domain.DeliveryStats, error)

	// Prune removes records older than retention.
	Prune(ctx context.Context, retention time.Duration) (int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}

// NopJournal discards records. It is used when no journal path is configured.
type NopJournal struct{}

func (NopJournal) Record(context.Context, domain.DeliveryRecord) error { return nil }

func (NopJournal) Stats(context.Context) (domain.DeliveryStats, error) {
	return domain.DeliveryStats{}, nil
}

func (NopJournal) Prune(context.Context, time.Duration) (int64, error) { return 0, nil }

func (NopJournal) Ping(context.Context) error { return nil }

func (NopJournal) Close() error { return nil }
