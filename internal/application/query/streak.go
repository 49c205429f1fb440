package query

import (
	"context"
	"time"

	"github.com/ext-flex/extflex-engine/internal/domain/shared"
	"github.com/ext-flex/extflex-engine/internal/domain/streak"
	"github.com/ext-flex/extflex-engine/internal/infrastructure/persistence/kvrepo"
	"github.com/ext-flex/extflex-engine/pkg/datekey"
	"github.com/ext-flex/extflex-engine/pkg/logger"
)

// StreakView is the full at-a-glance streak readout for the UI.
type StreakView struct {
	streak.Status

	Tier              streak.Tier
	FlameIntensity    int
	NextMilestone     int
	MilestoneProgress int
}

// StreakQuery answers streak status lookups. Loading runs the stored record's
// self-heal: a streak that silently died since the last visit is broken and
// written back before the status is derived.
type StreakQuery struct {
	streaks *kvrepo.StreakRepo
	bus     shared.EventPublisher
	log     *logger.Logger
	loc     *time.Location
}

// NewStreakQuery wires the query side over the streak repository.
func NewStreakQuery(streaks *kvrepo.StreakRepo, bus shared.EventPublisher, log *logger.Logger, loc *time.Location) *StreakQuery {
	if log == nil {
		log = logger.Nop()
	}
	if loc == nil {
		loc = time.Local
	}
	return &StreakQuery{streaks: streaks, bus: bus, log: log, loc: loc}
}

// Status returns the streak state for the given moment.
func (q *StreakQuery) Status(ctx context.Context, now time.Time) (StreakView, error) {
	today := datekey.FromTime(now.In(q.loc))
	weekStart := datekey.WeekStart(now.In(q.loc))

	data, err := q.streaks.Get(ctx, today, weekStart, q.loc)
	if err != nil {
		return StreakView{}, err
	}

	previous := data.Current
	if data.Validate(today) {
		if err := q.streaks.Save(ctx, data); err != nil {
			return StreakView{}, err
		}
		if q.bus != nil {
			_ = q.bus.Publish(shared.NewStreakBrokenEvent(previous))
			_ = q.bus.Publish(shared.NewRecordChangedEvent(shared.EventStreakChanged, "streak"))
		}
		q.log.Info("stale streak broken", logger.StreakDays(previous))
	}

	return StreakView{
		Status:            data.StatusFor(today),
		Tier:              streak.TierFor(data.Current),
		FlameIntensity:    streak.FlameIntensity(data.Current),
		NextMilestone:     streak.NextMilestone(data.Current),
		MilestoneProgress: streak.MilestoneProgress(data.Current),
	}, nil
}
