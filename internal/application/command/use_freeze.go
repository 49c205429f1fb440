package command

import (
	"context"
	"time"

	"github.com/ext-flex/extflex-engine/config"
	"github.com/ext-flex/extflex-engine/internal/domain/shared"
	"github.com/ext-flex/extflex-engine/internal/domain/streak"
	"github.com/ext-flex/extflex-engine/internal/infrastructure/persistence/kvrepo"
	"github.com/ext-flex/extflex-engine/pkg/datekey"
	"github.com/ext-flex/extflex-engine/pkg/logger"
)

// UseFreezeHandler spends a streak freeze on the current day.
type UseFreezeHandler struct {
	streaks  *kvrepo.StreakRepo
	bus      shared.EventPublisher
	features *config.FeatureFlags
	log      *logger.Logger
	loc      *time.Location
}

// NewUseFreezeHandler wires the handler.
func NewUseFreezeHandler(streaks *kvrepo.StreakRepo, bus shared.EventPublisher, features *config.FeatureFlags, log *logger.Logger, loc *time.Location) *UseFreezeHandler {
	if log == nil {
		log = logger.Nop()
	}
	if loc == nil {
		loc = time.Local
	}
	if features == nil {
		features = config.LoadFeatureFlags()
	}
	return &UseFreezeHandler{streaks: streaks, bus: bus, features: features, log: log, loc: loc}
}

// Handle attempts to freeze today. Rejection is an expected outcome carried in
// the result, not an error; errors are reserved for storage failures.
func (h *UseFreezeHandler) Handle(ctx context.Context, now time.Time) (streak.FreezeResult, error) {
	if !h.features.IsEnabled(config.FeatureStreakFreezes) {
		return streak.FreezeResult{Reason: streak.ReasonNoFreezesLeft}, nil
	}

	today := datekey.FromTime(now.In(h.loc))
	weekStart := datekey.WeekStart(now.In(h.loc))

	data, err := h.streaks.Get(ctx, today, weekStart, h.loc)
	if err != nil {
		return streak.FreezeResult{}, err
	}

	res := data.UseFreeze(today)
	if !res.Success {
		h.log.Debug("freeze rejected", logger.String("reason", res.Reason))
		return res, nil
	}

	if err := h.streaks.Save(ctx, data); err != nil {
		return streak.FreezeResult{}, err
	}

	if h.bus != nil {
		_ = h.bus.Publish(shared.NewStreakFrozenEvent(today.String(), data.FreezesRemaining))
		_ = h.bus.Publish(shared.NewRecordChangedEvent(shared.EventStreakChanged, "streak"))
	}
	h.log.Info("streak frozen",
		logger.String("date", today.String()),
		logger.Int("freezes_remaining", data.FreezesRemaining),
	)
	return res, nil
}
