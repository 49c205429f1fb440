package command

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ext-flex/extflex-engine/internal/domain/exercise"
	"github.com/ext-flex/extflex-engine/internal/domain/shared"
	"github.com/ext-flex/extflex-engine/pkg/logger"
)

func newTransfer(f *fixture) *TransferHandler {
	return NewTransferHandler(f.entries, f.prog, f.pbs, f.streaks, f.bus, logger.Nop())
}

func TestTransfer_RoundTrip(t *testing.T) {
	f := newFixture()
	h := newTransfer(f)
	ctx := context.Background()

	f.log(t, "pushups", 200, day1)
	f.log(t, "squats", 15, day1.AddDate(0, 0, 1))

	raw, err := h.ExportJSON(ctx, day1.AddDate(0, 0, 2))
	require.NoError(t, err)

	// Restore into a fresh engine.
	g := newFixture()
	summary, err := newTransfer(g).Import(ctx, raw, ImportReplace)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.EntriesImported)
	assert.Zero(t, summary.EntriesDropped)

	want, err := f.prog.Get(ctx)
	require.NoError(t, err)
	got, err := g.prog.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	wantStreak, err := f.streaks.Load(ctx)
	require.NoError(t, err)
	gotStreak, err := g.streaks.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, wantStreak, gotStreak)

	wantPBs, err := f.pbs.All(ctx)
	require.NoError(t, err)
	gotPBs, err := g.pbs.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, wantPBs, gotPBs)
}

func TestImport_RejectsMalformedPayload(t *testing.T) {
	f := newFixture()
	h := newTransfer(f)

	_, err := h.Import(context.Background(), []byte("{not json"), ImportReplace)
	assert.ErrorIs(t, err, shared.ErrInvalidImportPayload)

	// Valid JSON, wrong shape: no version field.
	_, err = h.Import(context.Background(), []byte(`{"entries": []}`), ImportReplace)
	assert.ErrorIs(t, err, shared.ErrInvalidImportPayload)
}

func TestImport_RejectsFutureVersion(t *testing.T) {
	f := newFixture()
	h := newTransfer(f)

	payload := ExportPayload{Version: ExportVersion + 1}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	_, err = h.Import(context.Background(), raw, ImportReplace)
	assert.ErrorIs(t, err, shared.ErrUnsupportedVersion)
}

func TestImport_DropsInvalidEntriesSilently(t *testing.T) {
	f := newFixture()
	h := newTransfer(f)

	good, err := exercise.NewEntry("pushups", 10, nil, day1)
	require.NoError(t, err)

	payload := ExportPayload{
		Version: ExportVersion,
		Entries: []exercise.Entry{
			good,
			{ID: "", ExerciseID: "pushups", Value: 10, Timestamp: day1.UnixMilli()},
			{ID: "x", ExerciseID: "pushups", Value: 0, Timestamp: day1.UnixMilli()},
		},
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	summary, err := h.Import(context.Background(), raw, ImportReplace)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.EntriesImported)
	assert.Equal(t, 2, summary.EntriesDropped)

	entries, err := f.entries.All(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, good.ID, entries[0].ID)
}

func TestImport_MergeUnionsByEntryID(t *testing.T) {
	f := newFixture()
	h := newTransfer(f)
	ctx := context.Background()

	f.log(t, "pushups", 10, day1.Add(time.Hour))
	existing, err := f.entries.All(ctx)
	require.NoError(t, err)
	require.Len(t, existing, 1)

	imported, err := exercise.NewEntry("squats", 15, nil, day1)
	require.NoError(t, err)

	payload := ExportPayload{
		Version: ExportVersion,
		Entries: []exercise.Entry{existing[0], imported},
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	summary, err := h.Import(ctx, raw, ImportMerge)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.EntriesImported)

	entries, err := f.entries.All(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// Oldest first after the merge.
	assert.Equal(t, "squats", entries[0].ExerciseID)
	assert.Equal(t, "pushups", entries[1].ExerciseID)
}

func TestImport_ReplaceDiscardsExistingLog(t *testing.T) {
	f := newFixture()
	h := newTransfer(f)
	ctx := context.Background()

	f.log(t, "pushups", 10, day1)

	payload := ExportPayload{Version: ExportVersion}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	_, err = h.Import(ctx, raw, ImportReplace)
	require.NoError(t, err)

	entries, err := f.entries.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	snap, err := f.prog.Get(ctx)
	require.NoError(t, err)
	assert.Zero(t, snap.TotalXP)
}
