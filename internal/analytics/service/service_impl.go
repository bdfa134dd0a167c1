package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/gammapace/backend/internal/analytics/domain"
	"github.com/gammapace/backend/internal/clock"
	"github.com/gammapace/backend/internal/observability/logger"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("analytics.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, req domain.RecordRequest) (*domain.Tag, error) {
	eventType := strings.TrimSpace(req.EventType)
	if eventType == "" {
		return nil, domain.ErrInvalidEventType
	}

	tag := domain.Tag{
		ID:        s.genID.Generate(),
		UserID:    req.UserID,
		SessionID: req.SessionID,
		EventType: eventType,
		Page:      req.Page,
		Status:    req.Status,
		Metadata:  datatypes.JSONMap(req.Metadata),
		CreatedAt: s.clock.Now(),
	}
	if tag.Metadata == nil {
		tag.Metadata = datatypes.JSONMap{}
	}

	if err := s.repo.Insert(ctx, s.db, &tag); err != nil {
		return nil, err
	}

	logger.WithContext(ctx, s.log).Debug("analytics event recorded",
		zap.String("event_type", eventType),
		zap.String("page", req.Page),
	)
	return &tag, nil
}

func (s *Service) List(ctx context.Context, filter domain.ListFilter) ([]domain.Tag, error) {
	return s.repo.List(ctx, s.db, filter)
}
