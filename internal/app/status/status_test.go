package status

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queueuphq/queueup-server/internal/domain/queue"
	"github.com/queueuphq/queueup-server/internal/infra/store"
)

type fakeStore struct {
	entry     *queue.Entry
	markErr   error
	insertErr error
	deleteErr error

	marked  []string
	plays   []queue.PlayRecord
	deleted []string
}

func (f *fakeStore) GetEntry(_ context.Context, _, _ string) (*queue.Entry, error) {
	if f.entry == nil {
		return nil, store.ErrNotFound
	}
	return f.entry, nil
}

func (f *fakeStore) MarkPlaying(_ context.Context, entryID string, _ time.Time) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.marked = append(f.marked, entryID)
	return nil
}

func (f *fakeStore) InsertPlay(_ context.Context, p *queue.PlayRecord) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.plays = append(f.plays, *p)
	return nil
}

func (f *fakeStore) DeleteEntry(_ context.Context, entryID, _ string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, entryID)
	return nil
}

func playingEntry() *queue.Entry {
	started := time.Now().Add(-2 * time.Minute)
	return &queue.Entry{
		ID:               "e1",
		VenueID:          "venue-1",
		TrackID:          "track123",
		SongName:         "Dancing Queen",
		ArtistName:       "ABBA",
		Status:           queue.StatusPlaying,
		StartedPlayingAt: &started,
	}
}

func TestUpdate_Playing(t *testing.T) {
	st := &fakeStore{entry: &queue.Entry{ID: "e1", VenueID: "venue-1", Status: queue.StatusPending}}
	u := NewUpdater(st)

	res, err := u.Update(context.Background(), "e1", "venue-1", "playing")
	require.NoError(t, err)

	assert.Contains(t, res.Message, "playing")
	assert.Equal(t, []string{"e1"}, st.marked)
	assert.Empty(t, st.plays)
}

func TestUpdate_CompletedArchivesThenDeletes(t *testing.T) {
	st := &fakeStore{entry: playingEntry()}
	u := NewUpdater(st)

	res, err := u.Update(context.Background(), "e1", "venue-1", "completed")
	require.NoError(t, err)

	assert.Contains(t, res.Message, "completed")
	require.Len(t, st.plays, 1)
	p := st.plays[0]
	assert.Equal(t, "track123", p.TrackID)
	require.NotNil(t, p.DurationMS)
	assert.InDelta(t, (2 * time.Minute).Milliseconds(), *p.DurationMS, 2000)
	assert.Equal(t, []string{"e1"}, st.deleted)
}

func TestUpdate_CompletedInsertFailureKeepsEntry(t *testing.T) {
	st := &fakeStore{entry: playingEntry(), insertErr: errors.New("db down")}
	u := NewUpdater(st)

	_, err := u.Update(context.Background(), "e1", "venue-1", "completed")
	require.Error(t, err)
	assert.Empty(t, st.deleted)
}

func TestUpdate_EntryNotFound(t *testing.T) {
	u := NewUpdater(&fakeStore{})

	_, err := u.Update(context.Background(), "missing", "venue-1", "playing")
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestUpdate_InvalidStatus(t *testing.T) {
	u := NewUpdater(&fakeStore{entry: playingEntry()})

	_, err := u.Update(context.Background(), "e1", "venue-1", "paused")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}
