package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gammapace/backend/internal/clock"
	"github.com/gammapace/backend/internal/session/domain"
	"github.com/gammapace/backend/internal/session/repository"
	"github.com/gammapace/backend/pkg/db"
)

func newTestService(t *testing.T, clk clock.Clock) (domain.Service, *gorm.DB) {
	t.Helper()

	dbConn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, dbConn.AutoMigrate(&domain.ActiveSession{}))

	svc := New(Params{
		DB:    dbConn,
		Log:   zap.NewNop(),
		Clock: clk,
		Repo:  repository.Provide(),
	})
	return svc, dbConn
}

func TestStartFirstLogin(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC))
	svc, _ := newTestService(t, clk)

	started, err := svc.Start(context.Background(), domain.StartRequest{
		UserID:     snowflake.ID(1),
		DeviceID:   "device-a",
		DeviceName: "Laptop",
		Browser:    "Firefox",
		OS:         "Linux",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, started.Token)
	assert.Equal(t, "device-a", started.Session.DeviceID)
	// The token never hits the database in the clear.
	assert.NotEqual(t, started.Token, started.Session.TokenHash)
}

func TestStartConflictWithinWindow(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC))
	svc, _ := newTestService(t, clk)

	_, err := svc.Start(context.Background(), domain.StartRequest{
		UserID:   snowflake.ID(1),
		DeviceID: "device-a",
		Browser:  "Firefox",
	})
	require.NoError(t, err)

	clk.Advance(23 * time.Hour)

	_, err = svc.Start(context.Background(), domain.StartRequest{
		UserID:   snowflake.ID(1),
		DeviceID: "device-b",
	})
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "device-a", conflict.Existing.DeviceID)
	assert.Equal(t, "Firefox", conflict.Existing.Browser)
}

func TestStartStaleSessionOverwritten(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC))
	svc, _ := newTestService(t, clk)

	_, err := svc.Start(context.Background(), domain.StartRequest{
		UserID:   snowflake.ID(1),
		DeviceID: "device-a",
	})
	require.NoError(t, err)

	clk.Advance(domain.StaleAfter)

	started, err := svc.Start(context.Background(), domain.StartRequest{
		UserID:   snowflake.ID(1),
		DeviceID: "device-b",
	})
	require.NoError(t, err)
	assert.Equal(t, "device-b", started.Session.DeviceID)
}

func TestStartForcedTakeover(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC))
	svc, _ := newTestService(t, clk)

	first, err := svc.Start(context.Background(), domain.StartRequest{
		UserID:   snowflake.ID(1),
		DeviceID: "device-a",
	})
	require.NoError(t, err)

	started, err := svc.Start(context.Background(), domain.StartRequest{
		UserID:   snowflake.ID(1),
		DeviceID: "device-b",
		Force:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, "device-b", started.Session.DeviceID)

	// The evicted device's token stops working.
	_, err = svc.Validate(context.Background(), first.Token)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStartSameDeviceRefreshes(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC))
	svc, _ := newTestService(t, clk)

	first, err := svc.Start(context.Background(), domain.StartRequest{
		UserID:   snowflake.ID(1),
		DeviceID: "device-a",
	})
	require.NoError(t, err)

	clk.Advance(time.Hour)

	second, err := svc.Start(context.Background(), domain.StartRequest{
		UserID:   snowflake.ID(1),
		DeviceID: "device-a",
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, second.Token)

	// The previous token is invalidated by the refresh.
	_, err = svc.Validate(context.Background(), first.Token)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	session, err := svc.Validate(context.Background(), second.Token)
	require.NoError(t, err)
	assert.Equal(t, "device-a", session.DeviceID)
}

// racingRepo swaps the stored session for another device's right after
// the first read, reproducing a concurrent login landing between the
// caller's read and its conditional write.
type racingRepo struct {
	domain.Repository
	clk   clock.Clock
	raced bool
}

func (r *racingRepo) Find(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*domain.ActiveSession, error) {
	existing, err := r.Repository.Find(ctx, db, userID)
	if err != nil || existing == nil || r.raced {
		return existing, err
	}
	r.raced = true

	now := r.clk.Now()
	winner := domain.ActiveSession{
		UserID:       userID,
		DeviceID:     "device-c",
		TokenHash:    "someone-else",
		StartedAt:    now,
		LastActivity: now,
		UpdatedAt:    now,
	}
	if _, err := r.Repository.ReplaceIf(ctx, db, &winner, existing.DeviceID, existing.LastActivity); err != nil {
		return nil, err
	}
	snapshot := *existing
	return &snapshot, nil
}

func TestStartLostRaceSurfacesConflict(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC))

	dbConn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, dbConn.AutoMigrate(&domain.ActiveSession{}))

	svc := New(Params{
		DB:    dbConn,
		Log:   zap.NewNop(),
		Clock: clk,
		Repo:  &racingRepo{Repository: repository.Provide(), clk: clk},
	})

	_, err = svc.Start(context.Background(), domain.StartRequest{
		UserID:   snowflake.ID(1),
		DeviceID: "device-a",
	})
	require.NoError(t, err)
	clk.Advance(domain.StaleAfter)

	// This caller reads the stale device-a record, but device-c wins
	// the race before the conditional write lands.
	_, err = svc.Start(context.Background(), domain.StartRequest{
		UserID:   snowflake.ID(1),
		DeviceID: "device-b",
	})
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "device-c", conflict.Existing.DeviceID)
}

func TestCheck(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC))
	svc, _ := newTestService(t, clk)

	info, err := svc.Check(context.Background(), snowflake.ID(1), "device-a")
	require.NoError(t, err)
	assert.Nil(t, info)

	_, err = svc.Start(context.Background(), domain.StartRequest{
		UserID:   snowflake.ID(1),
		DeviceID: "device-a",
	})
	require.NoError(t, err)

	// Same device: no conflict.
	info, err = svc.Check(context.Background(), snowflake.ID(1), "device-a")
	require.NoError(t, err)
	assert.Nil(t, info)

	// Different device within the window: conflict info returned.
	info, err = svc.Check(context.Background(), snowflake.ID(1), "device-b")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "device-a", info.DeviceID)

	// Past the window the record is stale.
	clk.Advance(domain.StaleAfter)
	info, err = svc.Check(context.Background(), snowflake.ID(1), "device-b")
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestHeartbeatRepeatedSameInstant(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC))
	svc, _ := newTestService(t, clk)

	started, err := svc.Start(context.Background(), domain.StartRequest{
		UserID:   snowflake.ID(1),
		DeviceID: "device-a",
	})
	require.NoError(t, err)

	// Two heartbeats on the same timestamp write identical column
	// values; the second must not be mistaken for a missing session.
	require.NoError(t, svc.Heartbeat(context.Background(), started.Token))
	require.NoError(t, svc.Heartbeat(context.Background(), started.Token))

	assert.ErrorIs(t, svc.Heartbeat(context.Background(), "no-such-token"), domain.ErrNotFound)
}

func TestHeartbeatExtendsSession(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC))
	svc, _ := newTestService(t, clk)

	started, err := svc.Start(context.Background(), domain.StartRequest{
		UserID:   snowflake.ID(1),
		DeviceID: "device-a",
	})
	require.NoError(t, err)

	clk.Advance(23 * time.Hour)
	require.NoError(t, svc.Heartbeat(context.Background(), started.Token))

	// Without the heartbeat this would now be past the window.
	clk.Advance(2 * time.Hour)
	session, err := svc.Validate(context.Background(), started.Token)
	require.NoError(t, err)
	assert.Equal(t, "device-a", session.DeviceID)

	assert.ErrorIs(t, svc.Heartbeat(context.Background(), "bogus-token"), domain.ErrNotFound)
}

func TestValidateExpired(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC))
	svc, _ := newTestService(t, clk)

	started, err := svc.Start(context.Background(), domain.StartRequest{
		UserID:   snowflake.ID(1),
		DeviceID: "device-a",
	})
	require.NoError(t, err)

	clk.Advance(domain.StaleAfter)
	_, err = svc.Validate(context.Background(), started.Token)
	assert.ErrorIs(t, err, domain.ErrSessionExpired)
}

func TestEnd(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC))
	svc, _ := newTestService(t, clk)

	started, err := svc.Start(context.Background(), domain.StartRequest{
		UserID:   snowflake.ID(1),
		DeviceID: "device-a",
	})
	require.NoError(t, err)

	require.NoError(t, svc.End(context.Background(), started.Token))

	_, err = svc.Validate(context.Background(), started.Token)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Ending an already-ended session is harmless.
	require.NoError(t, svc.End(context.Background(), started.Token))
}
