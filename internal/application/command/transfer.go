package command

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/ext-flex/extflex-engine/internal/domain/exercise"
	"github.com/ext-flex/extflex-engine/internal/domain/progression"
	"github.com/ext-flex/extflex-engine/internal/domain/records"
	"github.com/ext-flex/extflex-engine/internal/domain/shared"
	"github.com/ext-flex/extflex-engine/internal/domain/streak"
	"github.com/ext-flex/extflex-engine/internal/infrastructure/persistence/kvrepo"
	"github.com/ext-flex/extflex-engine/pkg/logger"
)

// ExportVersion is the current payload format version.
const ExportVersion = 1

// ExportPayload is the full engine state dump used for backup and restore.
type ExportPayload struct {
	Version       int                                      `json:"version"`
	ExportedAt    int64                                    `json:"exportedAt"`
	Entries       []exercise.Entry                         `json:"entries"`
	Progression   *progression.Snapshot                    `json:"progression"`
	Streak        streak.Data                              `json:"streak"`
	PersonalBests map[string]records.ExercisePersonalBests `json:"personalBests"`
}

// ImportMode controls how imported entries combine with the existing log.
type ImportMode string

const (
	// ImportReplace discards the existing log before importing.
	ImportReplace ImportMode = "replace"

	// ImportMerge unions imported entries with the existing log by entry ID.
	ImportMerge ImportMode = "merge"
)

// ImportSummary reports what a restore actually applied.
type ImportSummary struct {
	EntriesImported int
	EntriesDropped  int
}

// TransferHandler implements backup and restore of the full engine state.
type TransferHandler struct {
	entries     *kvrepo.EntryRepo
	progression *kvrepo.ProgressionRepo
	pbs         *kvrepo.PBRepo
	streaks     *kvrepo.StreakRepo
	bus         shared.EventPublisher
	log         *logger.Logger
}

// NewTransferHandler wires the handler.
func NewTransferHandler(entries *kvrepo.EntryRepo, prog *kvrepo.ProgressionRepo, pbs *kvrepo.PBRepo, streaks *kvrepo.StreakRepo, bus shared.EventPublisher, log *logger.Logger) *TransferHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &TransferHandler{entries: entries, progression: prog, pbs: pbs, streaks: streaks, bus: bus, log: log}
}

// Export assembles the full state dump.
func (h *TransferHandler) Export(ctx context.Context, now time.Time) (*ExportPayload, error) {
	entries, err := h.entries.All(ctx)
	if err != nil {
		return nil, err
	}
	snap, err := h.progression.Get(ctx)
	if err != nil {
		return nil, err
	}
	streakData, err := h.streaks.Load(ctx)
	if err != nil {
		return nil, err
	}
	pbs, err := h.pbs.All(ctx)
	if err != nil {
		return nil, err
	}

	return &ExportPayload{
		Version:       ExportVersion,
		ExportedAt:    now.UnixMilli(),
		Entries:       entries,
		Progression:   snap,
		Streak:        streakData,
		PersonalBests: pbs,
	}, nil
}

// ExportJSON renders the state dump as JSON.
func (h *TransferHandler) ExportJSON(ctx context.Context, now time.Time) ([]byte, error) {
	payload, err := h.Export(ctx, now)
	if err != nil {
		return nil, err
	}
	return json.Marshal(payload)
}

// Import restores state from a dump. The top-level shape is validated and a
// mismatch fails the whole restore; individual entries are validated one by
// one and invalid ones are dropped silently instead of aborting.
func (h *TransferHandler) Import(ctx context.Context, raw []byte, mode ImportMode) (*ImportSummary, error) {
	var payload ExportPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, shared.ErrInvalidImportPayload
	}
	if payload.Version <= 0 {
		return nil, shared.ErrInvalidImportPayload
	}
	if payload.Version > ExportVersion {
		return nil, shared.ErrUnsupportedVersion
	}

	summary := &ImportSummary{}
	kept := make([]exercise.Entry, 0, len(payload.Entries))
	for _, e := range payload.Entries {
		if !e.IsValid() {
			summary.EntriesDropped++
			continue
		}
		kept = append(kept, e)
	}

	if mode == ImportMerge {
		existing, err := h.entries.All(ctx)
		if err != nil {
			return nil, err
		}
		kept = mergeEntries(existing, kept)
	}
	summary.EntriesImported = len(kept)

	if err := h.entries.ReplaceAll(ctx, kept); err != nil {
		return nil, err
	}

	snap := payload.Progression
	if snap == nil {
		snap = progression.NewSnapshot()
	}
	snap.Normalize()
	if err := h.progression.Save(ctx, snap); err != nil {
		return nil, err
	}

	streakData := payload.Streak
	streakData.Normalize()
	if err := h.streaks.Save(ctx, streakData); err != nil {
		return nil, err
	}

	pbs := payload.PersonalBests
	if pbs == nil {
		pbs = map[string]records.ExercisePersonalBests{}
	}
	if err := h.pbs.SaveAll(ctx, pbs); err != nil {
		return nil, err
	}

	h.notifyAll()
	h.log.Info("state imported",
		logger.Int("entries", summary.EntriesImported),
		logger.Int("dropped", summary.EntriesDropped),
		logger.String("mode", string(mode)),
	)
	return summary, nil
}

// mergeEntries unions two logs by entry ID, keeping the existing copy on
// collision, ordered oldest first.
func mergeEntries(existing, imported []exercise.Entry) []exercise.Entry {
	seen := make(map[string]struct{}, len(existing))
	merged := make([]exercise.Entry, 0, len(existing)+len(imported))
	for _, e := range existing {
		seen[e.ID] = struct{}{}
		merged = append(merged, e)
	}
	for _, e := range imported {
		if _, ok := seen[e.ID]; ok {
			continue
		}
		seen[e.ID] = struct{}{}
		merged = append(merged, e)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}

func (h *TransferHandler) notifyAll() {
	if h.bus == nil {
		return
	}
	_ = h.bus.Publish(shared.NewRecordChangedEvent(shared.EventEntriesChanged, "entries"))
	_ = h.bus.Publish(shared.NewRecordChangedEvent(shared.EventProgressionChanged, "progression"))
	_ = h.bus.Publish(shared.NewRecordChangedEvent(shared.EventStreakChanged, "streak"))
	_ = h.bus.Publish(shared.NewRecordChangedEvent(shared.EventRecordsChanged, "personal_bests"))
}
