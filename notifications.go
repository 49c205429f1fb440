package extflex

import (
	"sync"
	"time"
)

// NotificationKind classifies a queued celebration.
type NotificationKind string

const (
	NotificationExerciseUnlocked    NotificationKind = "exercise_unlocked"
	NotificationAchievementUnlocked NotificationKind = "achievement_unlocked"
	NotificationLevelUp             NotificationKind = "level_up"
	NotificationStreakMilestone     NotificationKind = "streak_milestone"
)

// Notification is one celebration waiting to be shown. The caller dequeues
// them one at a time, oldest first.
type Notification struct {
	Kind NotificationKind

	// RefID is the exercise or achievement ID the celebration is about.
	// Empty for streak milestones.
	RefID string

	Title   string
	Message string
	At      time.Time
}

// notificationQueue is a bounded FIFO. When full, the oldest entry is dropped
// so a burst of unlocks cannot grow the queue without bound.
type notificationQueue struct {
	mu    sync.Mutex
	items []Notification
	limit int
}

func newNotificationQueue(limit int) *notificationQueue {
	if limit < 1 {
		limit = 1
	}
	return &notificationQueue{limit: limit}
}

func (q *notificationQueue) push(n Notification) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= q.limit {
		q.items = q.items[1:]
	}
	q.items = append(q.items, n)
}

func (q *notificationQueue) pop() (Notification, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Notification{}, false
	}
	n := q.items[0]
	q.items = q.items[1:]
	return n, true
}

func (q *notificationQueue) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
