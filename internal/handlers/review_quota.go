package handlers

import (
	"strings"
	"sync"
	"time"
)

type reviewAction uint8

const (
	actionSubmitReview reviewAction = iota + 1
	actionMarkHelpful
)

// quotaPolicy allows Burst actions in any trailing Window.
type quotaPolicy struct {
	Burst  int
	Window time.Duration
}

type quotaKey struct {
	action  reviewAction
	session string
}

// reviewQuota is a sliding-log limiter shared by the review write endpoints. Each session gets an
// independent log per action, so voting cannot use up the submission budget.
type reviewQuota struct {
	policies map[reviewAction]quotaPolicy
	clock    func() time.Time

	mu    sync.Mutex
	logs  map[quotaKey][]time.Time
	sweep time.Time
}

func newReviewQuota(policies map[reviewAction]quotaPolicy, clock func() time.Time) *reviewQuota {
	if clock == nil {
		clock = time.Now
	}
	return &reviewQuota{
		policies: policies,
		clock:    clock,
		logs:     make(map[quotaKey][]time.Time),
	}
}

func defaultReviewQuota(clock func() time.Time) *reviewQuota {
	return newReviewQuota(map[reviewAction]quotaPolicy{
		actionSubmitReview: {Burst: reviewSubmitLimit, Window: reviewSubmitWindow},
		actionMarkHelpful:  {Burst: reviewHelpfulLimit, Window: reviewHelpfulInterval},
	}, clock)
}

// Take records one action. When the log is full it returns false and how long until the oldest
// entry leaves the window. Actions without a usable policy are never limited.
func (q *reviewQuota) Take(action reviewAction, session string) (bool, time.Duration) {
	if q == nil {
		return true, 0
	}
	policy, ok := q.policies[action]
	if !ok || policy.Burst <= 0 || policy.Window <= 0 {
		return true, 0
	}
	key := quotaKey{action: action, session: strings.TrimSpace(session)}
	now := q.clock()
	cutoff := now.Add(-policy.Window)

	q.mu.Lock()
	defer q.mu.Unlock()

	q.sweepLocked(now)
	log := q.logs[key]
	kept := log[:0]
	for _, at := range log {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	if len(kept) >= policy.Burst {
		q.logs[key] = kept
		return false, kept[0].Sub(cutoff)
	}
	q.logs[key] = append(kept, now)
	return true, 0
}

// sweepLocked drops idle sessions at most once per minute.
func (q *reviewQuota) sweepLocked(now time.Time) {
	if now.Sub(q.sweep) < time.Minute {
		return
	}
	q.sweep = now
	for key, log := range q.logs {
		policy := q.policies[key.action]
		if len(log) == 0 || !log[len(log)-1].After(now.Add(-policy.Window)) {
			delete(q.logs, key)
		}
	}
}

// retryAfterSeconds rounds up so clients never retry early.
func retryAfterSeconds(wait time.Duration) int {
	secs := int((wait + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
