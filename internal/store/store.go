package store

import (
	"context"

	"github.com/scholarwatch/scholarship-watcher/internal/domain"
)

// SubscriberStore persists subscription records. Implementations must keep at
// most one record per lowercase email: saving an email that already exists
// unions the country sets, reactivates the record, and preserves its original
// created_at and position.
type SubscriberStore interface {
	// Save inserts the subscriber or merges it into an existing record.
	// The input is expected normalized (lowercase email, uppercase codes).
	Save(ctx context.Context, sub domain.Subscriber) error

	// Load returns all subscribers in insertion order. With activeOnly set,
	// deactivated records are skipped.
	Load(ctx context.Context, activeOnly bool) ([]domain.Subscriber, error)

	// Deactivate marks the record for the given email inactive. Missing
	// emails are a no-op.
	Deactivate(ctx context.Context, email string) error

	Close()
}
