package enrollment

import (
	"sync"
	"time"

	"github.com/bosagora-go/agora-node/pkg/types"
)

// ValidatorLiveness holds in-memory liveness statistics for a single
// enrolled validator. Stats reset on node restart — this is purely
// informational and never gates consensus or enrollment validity.
type ValidatorLiveness struct {
	PubKey            types.PublicKey
	LastHeartbeat     time.Time // zero if never seen
	LastPreimage      time.Time // zero if never revealed
	PreimagesRevealed uint64
	MissedReveals     uint64 // reveal windows that elapsed with no RevealPreimage call
}

// Tracker tracks validator liveness via network heartbeats and pre-image
// reveal timestamps, adapted from the teacher's block-production
// liveness tracker to Agora's pre-image-reveal cadence
// (validator.preimage_reveal_interval, §6). All data is in-memory only.
type Tracker struct {
	mu             sync.RWMutex
	stats          map[types.PublicKey]*ValidatorLiveness
	revealInterval time.Duration
}

// NewTracker creates a tracker with the expected pre-image reveal interval.
func NewTracker(revealInterval time.Duration) *Tracker {
	return &Tracker{
		stats:          make(map[types.PublicKey]*ValidatorLiveness),
		revealInterval: revealInterval,
	}
}

// RecordHeartbeat records a network heartbeat from pubKey.
func (t *Tracker) RecordHeartbeat(pubKey types.PublicKey) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.getOrCreate(pubKey).LastHeartbeat = time.Now()
}

// RecordPreimageReveal records that pubKey successfully revealed its next
// pre-image.
func (t *Tracker) RecordPreimageReveal(pubKey types.PublicKey) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.getOrCreate(pubKey)
	s.LastPreimage = time.Now()
	s.PreimagesRevealed++
}

// RecordMissedReveal records that pubKey's reveal window elapsed without
// a pre-image being observed.
func (t *Tracker) RecordMissedReveal(pubKey types.PublicKey) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.getOrCreate(pubKey).MissedReveals++
}

// IsOnline returns true if pubKey's last heartbeat is within 2x the
// expected reveal interval.
func (t *Tracker) IsOnline(pubKey types.PublicKey) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.stats[pubKey]
	if !ok || s.LastHeartbeat.IsZero() {
		return false
	}
	return time.Since(s.LastHeartbeat) <= 2*t.revealInterval
}

// IsOverdue returns true if pubKey's last recorded pre-image reveal is
// older than the reveal interval — a candidate for RecordMissedReveal.
// A validator with no recorded reveal is not reported as overdue.
func (t *Tracker) IsOverdue(pubKey types.PublicKey) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.stats[pubKey]
	if !ok || s.LastPreimage.IsZero() {
		return false
	}
	return time.Since(s.LastPreimage) > t.revealInterval
}

// Stats returns a copy of pubKey's liveness stats, or nil if untracked.
func (t *Tracker) Stats(pubKey types.PublicKey) *ValidatorLiveness {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.stats[pubKey]
	if !ok {
		return nil
	}
	cp := *s
	return &cp
}

// AllStats returns copies of every tracked validator's liveness stats.
func (t *Tracker) AllStats() []*ValidatorLiveness {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*ValidatorLiveness, 0, len(t.stats))
	for _, s := range t.stats {
		cp := *s
		out = append(out, &cp)
	}
	return out
}

// Forget drops pubKey's tracked stats, called when its enrollment cycle
// expires so the tracker doesn't grow unbounded across re-enrollments.
func (t *Tracker) Forget(pubKey types.PublicKey) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.stats, pubKey)
}

func (t *Tracker) getOrCreate(pubKey types.PublicKey) *ValidatorLiveness {
	s, ok := t.stats[pubKey]
	if !ok {
		s = &ValidatorLiveness{PubKey: pubKey}
		t.stats[pubKey] = s
	}
	return s
}
