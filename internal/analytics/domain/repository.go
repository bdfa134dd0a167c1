package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, tag *Tag) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Tag, error)
}

type ListFilter struct {
	UserID    snowflake.ID
	EventType string
	Limit     int
}
