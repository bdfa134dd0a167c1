package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gammapace/backend/internal/clock"
	"github.com/gammapace/backend/internal/observability/metrics"
	"github.com/gammapace/backend/internal/session/domain"
)

const sessionTokenBytes = 32

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Repo    domain.Repository
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	repo    domain.Repository
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("session.service"),
		clock:   p.Clock,
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

func (s *Service) Check(ctx context.Context, userID snowflake.ID, deviceID string) (*domain.DeviceInfo, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil, domain.ErrInvalidDevice
	}

	existing, err := s.repo.Find(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if existing == nil || existing.DeviceID == deviceID || existing.Stale(s.clock.Now()) {
		return nil, nil
	}

	info := existing.Info()
	return &info, nil
}

func (s *Service) Start(ctx context.Context, req domain.StartRequest) (domain.StartedSession, error) {
	deviceID := strings.TrimSpace(req.DeviceID)
	if deviceID == "" {
		return domain.StartedSession{}, domain.ErrInvalidDevice
	}

	token, err := newSessionToken()
	if err != nil {
		return domain.StartedSession{}, err
	}

	now := s.clock.Now()
	session := domain.ActiveSession{
		UserID:       req.UserID,
		DeviceID:     deviceID,
		TokenHash:    hashToken(token),
		DeviceName:   strings.TrimSpace(req.DeviceName),
		Browser:      strings.TrimSpace(req.Browser),
		OS:           strings.TrimSpace(req.OS),
		StartedAt:    now,
		LastActivity: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	existing, err := s.repo.Find(ctx, s.db, req.UserID)
	if err != nil {
		return domain.StartedSession{}, err
	}

	if existing == nil {
		if err := s.repo.Insert(ctx, s.db, &session); err != nil {
			// A concurrent login inserted first. Surface whatever won.
			return domain.StartedSession{}, s.conflict(ctx, req.UserID, err)
		}
		return domain.StartedSession{Session: session, Token: token}, nil
	}

	if existing.DeviceID != deviceID && !existing.Stale(s.clock.Now()) && !req.Force {
		s.metrics.RecordSessionConflict(ctx, "blocked")
		return domain.StartedSession{}, &domain.ConflictError{Existing: existing.Info()}
	}

	// Overwrite is conditional on the record we just read. If another
	// login replaced it in between, the precondition fails and the
	// conflict is surfaced instead of silently losing the race.
	ok, err := s.repo.ReplaceIf(ctx, s.db, &session, existing.DeviceID, existing.LastActivity)
	if err != nil {
		return domain.StartedSession{}, err
	}
	if !ok {
		s.metrics.RecordSessionConflict(ctx, "lost_race")
		return domain.StartedSession{}, s.conflict(ctx, req.UserID, nil)
	}

	if req.Force && existing.DeviceID != deviceID {
		s.metrics.RecordSessionConflict(ctx, "forced")
		s.log.Info("session taken over",
			zap.String("user_id", req.UserID.String()),
			zap.String("previous_device", existing.DeviceID),
		)
	}
	return domain.StartedSession{Session: session, Token: token}, nil
}

func (s *Service) Heartbeat(ctx context.Context, token string) error {
	ok, err := s.repo.Touch(ctx, s.db, hashToken(token), s.clock.Now())
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Service) Validate(ctx context.Context, token string) (domain.ActiveSession, error) {
	session, err := s.repo.FindByTokenHash(ctx, s.db, hashToken(token))
	if err != nil {
		return domain.ActiveSession{}, err
	}
	if session == nil {
		return domain.ActiveSession{}, domain.ErrNotFound
	}
	if session.Stale(s.clock.Now()) {
		return domain.ActiveSession{}, domain.ErrSessionExpired
	}
	return *session, nil
}

func (s *Service) End(ctx context.Context, token string) error {
	return s.repo.DeleteByTokenHash(ctx, s.db, hashToken(token))
}

// conflict builds a ConflictError from the current record, falling back
// to the original error if the record vanished meanwhile.
func (s *Service) conflict(ctx context.Context, userID snowflake.ID, cause error) error {
	current, findErr := s.repo.Find(ctx, s.db, userID)
	if findErr == nil && current != nil {
		return &domain.ConflictError{Existing: current.Info()}
	}
	if cause != nil {
		return cause
	}
	return &domain.ConflictError{}
}

func newSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
