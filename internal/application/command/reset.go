package command

import (
	"context"

	"github.com/ext-flex/extflex-engine/internal/domain/shared"
	"github.com/ext-flex/extflex-engine/internal/infrastructure/persistence/kvrepo"
	"github.com/ext-flex/extflex-engine/pkg/logger"
)

// ResetHandler wipes individual subsystems back to their defaults. Each wipe
// is independent; there is no combined "reset everything" write.
type ResetHandler struct {
	progression *kvrepo.ProgressionRepo
	streaks     *kvrepo.StreakRepo
	pbs         *kvrepo.PBRepo
	bus         shared.EventPublisher
	log         *logger.Logger
}

// NewResetHandler wires the handler.
func NewResetHandler(prog *kvrepo.ProgressionRepo, streaks *kvrepo.StreakRepo, pbs *kvrepo.PBRepo, bus shared.EventPublisher, log *logger.Logger) *ResetHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &ResetHandler{progression: prog, streaks: streaks, pbs: pbs, bus: bus, log: log}
}

// ResetProgression wipes XP, levels, unlocks, and achievements. The next read
// sees the default empty snapshot with only starters available.
func (h *ResetHandler) ResetProgression(ctx context.Context) error {
	if err := h.progression.Reset(ctx); err != nil {
		return err
	}
	h.notify(shared.EventProgressionChanged, "progression")
	h.log.Info("progression reset")
	return nil
}

// ResetStreak wipes the streak record. The repair flag is left set: the
// one-time history scan never re-runs.
func (h *ResetHandler) ResetStreak(ctx context.Context) error {
	if err := h.streaks.Reset(ctx); err != nil {
		return err
	}
	h.notify(shared.EventStreakChanged, "streak")
	h.log.Info("streak reset")
	return nil
}

// ClearPersonalBests wipes every stored personal best.
func (h *ResetHandler) ClearPersonalBests(ctx context.Context) error {
	if err := h.pbs.Clear(ctx); err != nil {
		return err
	}
	h.notify(shared.EventRecordsChanged, "personal_bests")
	h.log.Info("personal bests cleared")
	return nil
}

func (h *ResetHandler) notify(eventType shared.EventType, record string) {
	if h.bus != nil {
		_ = h.bus.Publish(shared.NewRecordChangedEvent(eventType, record))
	}
}
