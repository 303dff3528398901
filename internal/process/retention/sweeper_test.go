package retention

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"tgfeed/internal/cdn"
	"tgfeed/internal/process/dedup"
)

var errStoreDown = errors.New("store down")

type fakeStore struct {
	files      []cdn.File
	listErr    error
	deleteErrs map[string]error
	deleted    []string
}

func (f *fakeStore) List(_ context.Context, _ string) ([]cdn.File, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}

	return f.files, nil
}

func (f *fakeStore) Delete(_ context.Context, fileID string) error {
	if err := f.deleteErrs[fileID]; err != nil {
		return err
	}

	f.deleted = append(f.deleted, fileID)

	return nil
}

func nopLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

func TestSweeperDeletesOnlyExpiredUnreferenced(t *testing.T) {
	now := time.Now()
	store := &fakeStore{
		files: []cdn.File{
			{ID: "expired", CreatedAt: now.Add(-31 * 24 * time.Hour)},
			{ID: "expired-referenced", CreatedAt: now.Add(-31 * 24 * time.Hour)},
			{ID: "fresh", CreatedAt: now.Add(-time.Hour)},
			{ID: "unknown-age"},
		},
	}

	sweeper := NewSweeper(store, "/telegram", 30*24*time.Hour, nopLogger())

	err := sweeper.Sweep(context.Background(), dedup.NewSet("expired-referenced"))
	require.NoError(t, err)
	require.Equal(t, []string{"expired"}, store.deleted)
}

func TestSweeperContinuesAfterDeleteFailure(t *testing.T) {
	now := time.Now()
	store := &fakeStore{
		files: []cdn.File{
			{ID: "bad", CreatedAt: now.Add(-40 * 24 * time.Hour)},
			{ID: "good", CreatedAt: now.Add(-40 * 24 * time.Hour)},
		},
		deleteErrs: map[string]error{"bad": errStoreDown},
	}

	sweeper := NewSweeper(store, "/telegram", 30*24*time.Hour, nopLogger())

	err := sweeper.Sweep(context.Background(), dedup.NewSet())
	require.NoError(t, err)
	require.Equal(t, []string{"good"}, store.deleted)
}

func TestSweeperNilReferencedDeletesExpired(t *testing.T) {
	store := &fakeStore{
		files: []cdn.File{
			{ID: "expired", CreatedAt: time.Now().Add(-31 * 24 * time.Hour)},
		},
	}

	sweeper := NewSweeper(store, "/telegram", 30*24*time.Hour, nopLogger())

	require.NoError(t, sweeper.Sweep(context.Background(), nil))
	require.Equal(t, []string{"expired"}, store.deleted)
}

func TestSweeperListFailure(t *testing.T) {
	store := &fakeStore{listErr: errStoreDown}

	sweeper := NewSweeper(store, "/telegram", 30*24*time.Hour, nopLogger())

	err := sweeper.Sweep(context.Background(), dedup.NewSet())
	require.ErrorIs(t, err, errStoreDown)
	require.Empty(t, store.deleted)
}
