package app

import (
	"context"
	"sync"

	"tegalsec-progression/internal/domain"
)

// LeaderboardHub fans leaderboard snapshots out to live subscribers.
type LeaderboardHub struct {
	// refreshMu orders build-and-publish so a board read earlier never lands last.
	refreshMu sync.Mutex

	mu          sync.RWMutex
	latest      domain.Leaderboard
	hasLatest   bool
	subscribers map[chan domain.Leaderboard]struct{}
}

func NewLeaderboardHub() *LeaderboardHub {
	return &LeaderboardHub{
		subscribers: make(map[chan domain.Leaderboard]struct{}),
	}
}

// Refresh builds a board and publishes it while holding the refresh lock.
// With onlyIfEmpty set it does nothing once any board has been published.
func (h *LeaderboardHub) Refresh(ctx context.Context, onlyIfEmpty bool, build func(context.Context) (domain.Leaderboard, error)) error {
	h.refreshMu.Lock()
	defer h.refreshMu.Unlock()
	if onlyIfEmpty {
		if _, ok := h.Latest(); ok {
			return nil
		}
	}
	lb, err := build(ctx)
	if err != nil {
		return err
	}
	h.Publish(lb)
	return nil
}

// Publish stores lb as the latest snapshot and pushes it to every subscriber.
// A board older than the latest one is dropped.
func (h *LeaderboardHub) Publish(lb domain.Leaderboard) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.hasLatest && lb.UpdatedAt.Before(h.latest.UpdatedAt) {
		return
	}
	h.latest = lb
	h.hasLatest = true
	for ch := range h.subscribers {
		select {
		case ch <- lb:
		default:
			// Slow subscribers only ever need the newest board.
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
}

// Latest returns the last published snapshot.
func (h *LeaderboardHub) Latest() (domain.Leaderboard, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest, h.hasLatest
}

// Subscribers reports the number of live subscriptions.
func (h *LeaderboardHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

func (h *LeaderboardHub) subscribe() (<-chan domain.Leaderboard, func()) {
	ch := make(chan domain.Leaderboard, 8)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	if h.hasLatest {
		ch <- h.latest
	}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// SubscribeLeaderboard returns a channel that receives the current board and every later change.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *ProgressionService) SubscribeLeaderboard(ctx context.Context) (<-chan domain.Leaderboard, func(), error) {
	if s.opts.Hub == nil {
		return nil, nil, domain.ErrNotFound
	}
	if err := s.opts.Hub.Refresh(ctx, true, s.currentLeaderboard); err != nil {
		return nil, nil, err
	}
	ch, cancel := s.opts.Hub.subscribe()
	return ch, cancel, nil
}
