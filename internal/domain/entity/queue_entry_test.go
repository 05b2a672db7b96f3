package entity

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeEntries(positions ...int) []*QueueEntry {
	entries := make([]*QueueEntry, len(positions))
	for i, pos := range positions {
		entries[i] = &QueueEntry{
			ID:       uuid.New(),
			Token:    i + 1,
			Position: pos,
			Status:   QueueStatusWaiting,
		}
	}
	return entries
}

func positions(entries []*QueueEntry) []int {
	out := make([]int, len(entries))
	for i, e := range entries {
		out[i] = e.Position
	}
	return out
}

func TestSortByPosition(t *testing.T) {
	entries := makeEntries(3, 1, 2)
	SortByPosition(entries)
	assert.Equal(t, []int{1, 2, 3}, positions(entries))
}

func TestSortByPosition_TokenTieBreak(t *testing.T) {
	a := &QueueEntry{ID: uuid.New(), Token: 7, Position: 1}
	b := &QueueEntry{ID: uuid.New(), Token: 3, Position: 1}
	entries := []*QueueEntry{a, b}

	SortByPosition(entries)

	// Equal positions fall back to arrival order (token ascending)
	assert.Equal(t, b.ID, entries[0].ID)
	assert.Equal(t, a.ID, entries[1].ID)
}

func TestNextPosition(t *testing.T) {
	assert.Equal(t, 1, NextPosition(nil))
	assert.Equal(t, 4, NextPosition(makeEntries(1, 2, 3)))
	assert.Equal(t, 6, NextPosition(makeEntries(2, 5, 1)))
}

func TestMoveToHead(t *testing.T) {
	entries := makeEntries(1, 2, 3)
	target := entries[2]

	require.NoError(t, MoveToHead(entries, target.ID))

	assert.Equal(t, 1, target.Position)
	SortByPosition(entries)
	assert.Equal(t, []int{1, 2, 3}, positions(entries))
	assert.Equal(t, target.ID, entries[0].ID)
}

func TestMoveToHead_NotInActiveSet(t *testing.T) {
	entries := makeEntries(1, 2)
	err := MoveToHead(entries, uuid.New())
	assert.Error(t, err)
}

func TestApplyReorder(t *testing.T) {
	entries := makeEntries(1, 2, 3)
	order := []uuid.UUID{entries[2].ID, entries[0].ID, entries[1].ID}

	require.NoError(t, ApplyReorder(entries, order))

	assert.Equal(t, 1, entries[2].Position)
	assert.Equal(t, 2, entries[0].Position)
	assert.Equal(t, 3, entries[1].Position)
}

func TestApplyReorder_Mismatch(t *testing.T) {
	entries := makeEntries(1, 2, 3)
	stranger := uuid.New()

	tests := []struct {
		name        string
		order       []uuid.UUID
		wantMissing int
		wantUnknown int
	}{
		{
			name:        "missing one entry",
			order:       []uuid.UUID{entries[0].ID, entries[1].ID},
			wantMissing: 1,
		},
		{
			name:        "unknown id in payload",
			order:       []uuid.UUID{entries[0].ID, entries[1].ID, stranger},
			wantMissing: 1,
			wantUnknown: 1,
		},
		{
			name:        "duplicate id in payload",
			order:       []uuid.UUID{entries[0].ID, entries[1].ID, entries[1].ID},
			wantMissing: 1,
			wantUnknown: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := positions(entries)

			err := ApplyReorder(entries, tt.order)

			var reorderErr *InvalidReorderError
			require.Error(t, err)
			require.True(t, errors.As(err, &reorderErr))
			assert.Len(t, reorderErr.Missing, tt.wantMissing)
			assert.Len(t, reorderErr.Unknown, tt.wantUnknown)
			// A rejected reorder must leave positions untouched
			assert.Equal(t, before, positions(entries))
		})
	}
}

func TestCloseGap(t *testing.T) {
	entries := makeEntries(1, 2, 3, 4)
	remaining := []*QueueEntry{entries[0], entries[2], entries[3]}

	CloseGap(remaining)

	assert.Equal(t, 1, entries[0].Position)
	assert.Equal(t, 2, entries[2].Position)
	assert.Equal(t, 3, entries[3].Position)
}

func TestQueueEntry_IsActive(t *testing.T) {
	tests := []struct {
		status QueueEntryStatus
		want   bool
	}{
		{QueueStatusWaiting, true},
		{QueueStatusInConsultation, true},
		{QueueStatusPendingTxn, false},
		{QueueStatusCompleted, false},
	}

	for _, tt := range tests {
		entry := &QueueEntry{Status: tt.status}
		assert.Equal(t, tt.want, entry.IsActive(), "%s", tt.status)
	}
}
