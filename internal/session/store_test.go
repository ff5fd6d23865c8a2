package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podstudio/internal/domain"
)

func TestStoreScopesSessionsToOwner(t *testing.T) {
	store := NewStore(time.Hour, nil)
	sess := store.Create("user-a")

	got, err := store.Get("user-a", sess.ID)
	require.NoError(t, err)
	assert.Same(t, sess, got)

	_, err = store.Get("user-b", sess.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStoreDelete(t *testing.T) {
	store := NewStore(time.Hour, nil)
	sess := store.Create("user-a")

	assert.ErrorIs(t, store.Delete("user-b", sess.ID), domain.ErrNotFound)
	require.NoError(t, store.Delete("user-a", sess.ID))

	_, err := store.Get("user-a", sess.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 0, store.Len())
}

func TestStoreExpiresIdleSessions(t *testing.T) {
	store := NewStore(20*time.Millisecond, nil)
	sess := store.Create("user-a")

	time.Sleep(50 * time.Millisecond)

	_, err := store.Get("user-a", sess.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBeginRejectsOverlappingSteps(t *testing.T) {
	sess := NewStore(time.Hour, nil).Create("user-a")

	_, finish, err := sess.Begin("generate")
	require.NoError(t, err)

	_, _, err = sess.Begin("remix")
	assert.ErrorIs(t, err, domain.ErrSessionBusy)

	_, err = sess.Update(func(s *State) error {
		s.SetProduct(tee)
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrSessionBusy)
	assert.Equal(t, "generate", sess.Busy())

	finish(func(s *State) { s.SetArtifact(domain.InlineBase64("QUJD", "image/png")) })
	finish(nil)

	assert.Empty(t, sess.Busy())
	assert.NotNil(t, sess.View().Artifact)

	_, finish, err = sess.Begin("remix")
	require.NoError(t, err)
	finish(nil)
}

func TestBeginIsExclusiveUnderContention(t *testing.T) {
	sess := NewStore(time.Hour, nil).Create("user-a")

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		acquired int
		release  []func(func(*State))
	)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, finish, err := sess.Begin("generate"); err == nil {
				mu.Lock()
				acquired++
				release = append(release, finish)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, acquired)
	for _, finish := range release {
		finish(nil)
	}
}
