package domain

import (
	"context"

	"gorm.io/gorm"
)

type EventRepository interface {
	// Insert stores a webhook record. It reports false without error
	// when a record with the same provider event id already exists.
	Insert(ctx context.Context, db *gorm.DB, record *EventRecord) (bool, error)

	FindByProviderEventID(ctx context.Context, db *gorm.DB, providerEventID string) (*EventRecord, error)
	ListByEmail(ctx context.Context, db *gorm.DB, email string, limit int) ([]EventRecord, error)
}
