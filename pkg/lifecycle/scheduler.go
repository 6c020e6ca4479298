// Package lifecycle expires rooms after their time-to-live elapses.
package lifecycle

import (
	"sync"
	"time"

	"roomdrop/pkg/log"
	"roomdrop/pkg/models"
)

// DeleteFunc removes a room's registry entry and storage tree. It must be
// idempotent: expiring a room that was already deleted explicitly is a no-op.
type DeleteFunc func(name string) error

// Scheduler runs one cancellable expiration timer per room. Timers are keyed
// by room name, so recreating a room replaces any stale timer instead of
// colliding with it.
type Scheduler struct {
	deleteRoom DeleteFunc

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewScheduler creates a Scheduler that deletes expired rooms via deleteRoom.
func NewScheduler(deleteRoom DeleteFunc) *Scheduler {
	return &Scheduler{
		deleteRoom: deleteRoom,
		timers:     make(map[string]*time.Timer),
	}
}

// NeverExpires reports whether a TTL (in seconds) is the never-expire
// sentinel.
func NeverExpires(ttlSeconds int) bool {
	return ttlSeconds >= models.NeverExpireTTL
}

// Schedule arms a one-shot expiration timer for a room. An existing timer
// for the same name is cancelled first, so the new room gets a fresh,
// independent countdown.
func (s *Scheduler) Schedule(name string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.timers[name]; ok {
		old.Stop()
		log.Debug().Str("room", name).Msg("Replacing stale expiration timer")
	}

	var timer *time.Timer
	timer = time.AfterFunc(ttl, func() {
		s.expire(name, timer)
	})
	s.timers[name] = timer

	log.Info().Str("room", name).Dur("ttl", ttl).Msg("Room expiration scheduled")
}

func (s *Scheduler) expire(name string, timer *time.Timer) {
	s.mu.Lock()
	// A fire that raced with Schedule or Cancel is stale and must not
	// delete the recreated room.
	if s.timers[name] != timer {
		s.mu.Unlock()
		return
	}
	delete(s.timers, name)
	s.mu.Unlock()

	log.Info().Str("room", name).Msg("Room timer expired")
	if err := s.deleteRoom(name); err != nil {
		log.Error().Err(err).Str("room", name).Msg("Failed to delete expired room")
	}
}

// Cancel stops a room's expiration timer, if one is armed. Returns whether a
// timer was cancelled.
func (s *Scheduler) Cancel(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	timer, ok := s.timers[name]
	if !ok {
		return false
	}
	timer.Stop()
	delete(s.timers, name)

	log.Debug().Str("room", name).Msg("Room expiration cancelled")
	return true
}

// Stop cancels all armed timers. Rooms are not deleted.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, timer := range s.timers {
		timer.Stop()
		delete(s.timers, name)
	}
}
