package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tsu-battle/internal/entity/battle_runtime"
	"tsu-battle/internal/pkg/xerrors"
)

func newStoredSession(id string) *battle_runtime.BattleSession {
	now := time.Now()
	return &battle_runtime.BattleSession{
		ID:           id,
		Mode:         battle_runtime.ModeDuel,
		Status:       battle_runtime.StatusActive,
		CreatedAt:    now,
		LastActivity: now,
	}
}

func TestSessionStorePutRejectsDuplicateID(t *testing.T) {
	store := NewSessionStore()
	require.NoError(t, store.Put(newStoredSession("s1")))

	err := store.Put(newStoredSession("s1"))
	require.Error(t, err)

	appErr, ok := err.(*xerrors.AppError)
	require.True(t, ok)
	require.Equal(t, xerrors.CodeDuplicateResource, appErr.Code)
}

func TestSessionStoreAcquireUnknownSession(t *testing.T) {
	store := NewSessionStore()
	_, _, err := store.Acquire("missing")
	require.Error(t, err)

	appErr, ok := err.(*xerrors.AppError)
	require.True(t, ok)
	require.Equal(t, xerrors.CodeBattleSessionNotFound, appErr.Code)
}

func TestSessionStoreAcquireRefreshesActivity(t *testing.T) {
	store := NewSessionStore()
	session := newStoredSession("s1")
	session.LastActivity = time.Now().Add(-time.Hour)
	require.NoError(t, store.Put(session))

	got, unlock, err := store.Acquire("s1")
	require.NoError(t, err)
	defer unlock()

	require.Same(t, session, got)
	require.WithinDuration(t, time.Now(), got.LastActivity, time.Minute)
}

func TestSessionStoreIdleSessionIDs(t *testing.T) {
	store := NewSessionStore()
	stale := newStoredSession("stale")
	stale.LastActivity = time.Now().Add(-25 * time.Hour)
	fresh := newStoredSession("fresh")

	require.NoError(t, store.Put(stale))
	require.NoError(t, store.Put(fresh))

	ids := store.IdleSessionIDs(time.Now().Add(-24 * time.Hour))
	require.Equal(t, []string{"stale"}, ids)

	store.Delete("stale")
	require.Equal(t, 1, store.Count())
	_, ok := store.Peek("stale")
	require.False(t, ok)
}
