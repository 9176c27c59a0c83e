// Package enrollment maintains the active validator set: which
// public keys are currently enrolled, their pre-image chains, and
// when each one's cycle expires.
package enrollment

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/bosagora-go/agora-node/pkg/crypto"
	"github.com/bosagora-go/agora-node/pkg/tx"
	"github.com/bosagora-go/agora-node/pkg/types"
)

// Enrollment validation errors, surfaced by isInvalidEnrollmentReason.
var (
	ErrUTXONotFound     = errors.New("enrollment: referenced utxo not found")
	ErrNotFreeze        = errors.New("enrollment: referenced utxo is not a Freeze output")
	ErrAmountTooLow     = errors.New("enrollment: frozen amount below minimum")
	ErrNotYetUnlocked   = errors.New("enrollment: utxo not yet unlocked at this height")
	ErrBadSignature     = errors.New("enrollment: signature does not verify")
	ErrAlreadyEnrolled  = errors.New("enrollment: utxo already enrolled")
	ErrUnknownValidator = errors.New("enrollment: no active validator for that utxo key")
	ErrPreimageMismatch = errors.New("enrollment: preimage does not hash to the expected commitment")
)

// UTXOFinder is the UTXO lookup enrollments are validated against. It
// does not resolve the owning public key; AddValidator takes that key
// as a separate argument.
type UTXOFinder interface {
	tx.UTXOProvider
}

// validator tracks one enrolled key's lifecycle.
type validator struct {
	enrollment     types.Enrollment
	enrollHeight   uint64
	revealedIndex  int        // Highest revealed pre-image index, -1 if none revealed yet.
	currentImage   types.Hash // Most recently revealed pre-image (== RandomSeed before any reveal).
	enrollerPubKey types.PublicKey
}

// Manager is the in-memory active validator set. It is not
// goroutine-safe on its own beyond the embedded mutex: callers outside
// the Ledger's accept_block critical section should not mutate it
// concurrently with validation reads.
type Manager struct {
	mu         sync.RWMutex
	validators map[types.Hash]*validator // keyed by UTXOKey
}

// NewManager creates an empty enrollment manager.
func NewManager() *Manager {
	return &Manager{validators: make(map[types.Hash]*validator)}
}

// AddValidator validates and inserts enrollment, using finder to
// resolve its UTXOKey against the current UTXO view and enrollerKey as
// the public key whose signature EnrollSig must satisfy (the key
// locking the referenced Freeze output).
func (m *Manager) AddValidator(enrollment types.Enrollment, height uint64, finder UTXOFinder, enrollerKey types.PublicKey) error {
	if err := m.isInvalidEnrollmentReason(enrollment, height, finder, enrollerKey); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.validators[enrollment.UTXOKey] = &validator{
		enrollment:     enrollment,
		enrollHeight:   height,
		revealedIndex:  -1,
		currentImage:   enrollment.RandomSeed,
		enrollerPubKey: enrollerKey,
	}
	return nil
}

// isInvalidEnrollmentReason returns a descriptive error for the first
// rule enrollment violates, or nil if it is admissible.
func (m *Manager) isInvalidEnrollmentReason(enrollment types.Enrollment, height uint64, finder UTXOFinder, enrollerKey types.PublicKey) error {
	outpoint := types.Outpoint{TxID: enrollment.UTXOKey}
	utxo, ok := finder.FindUTXO(outpoint)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUTXONotFound, enrollment.UTXOKey)
	}
	if utxo.SourceType != tx.Freeze {
		return ErrNotFreeze
	}
	if utxo.Output.Value < types.MinFreezeAmount {
		return fmt.Errorf("%w: %d < %d", ErrAmountTooLow, utxo.Output.Value, types.MinFreezeAmount)
	}
	if height < utxo.UnlockHeight {
		return fmt.Errorf("%w: height %d < unlock %d", ErrNotYetUnlocked, height, utxo.UnlockHeight)
	}

	challenge := crypto.Hash(enrollment.SigningBytes())
	if !crypto.VerifySignature(challenge, enrollment.EnrollSig, enrollerKey) {
		return ErrBadSignature
	}

	m.mu.RLock()
	_, exists := m.validators[enrollment.UTXOKey]
	m.mu.RUnlock()
	if exists {
		return ErrAlreadyEnrolled
	}
	return nil
}

// RevealPreimage advances validator utxoKey's pre-image chain by one
// step: preimage must hash to the currently stored commitment.
func (m *Manager) RevealPreimage(utxoKey types.Hash, preimage types.Hash) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.validators[utxoKey]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownValidator, utxoKey)
	}
	if crypto.Hash(preimage[:]) != v.currentImage {
		return ErrPreimageMismatch
	}
	v.currentImage = preimage
	v.revealedIndex++
	return nil
}

// ClearExpired removes every validator whose cycle has ended by
// height (enrollHeight + CycleLength <= height), returning the number
// removed.
func (m *Manager) ClearExpired(height uint64) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, v := range m.validators {
		if v.enrollHeight+uint64(v.enrollment.CycleLength) <= height {
			delete(m.validators, key)
			removed++
		}
	}
	return removed
}

// ValidatorCount returns the number of currently active validators.
func (m *Manager) ValidatorCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.validators)
}

// GetEnrolledUTXOs returns the UTXOKey of every active validator.
func (m *Manager) GetEnrolledUTXOs() []types.Hash {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]types.Hash, 0, len(m.validators))
	for k := range m.validators {
		keys = append(keys, k)
	}
	return keys
}

// GetEnrollmentPublicKey returns the public key that locked
// utxoKey's Freeze output, as recorded at enrollment time.
func (m *Manager) GetEnrollmentPublicKey(utxoKey types.Hash) (types.PublicKey, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.validators[utxoKey]
	if !ok {
		return types.PublicKey{}, false
	}
	return v.enrollerPubKey, true
}

// SortedPublicKeys returns every active validator's public key,
// sorted ascending — the canonical ordering the block header's
// validator bitmask indexes into.
func (m *Manager) SortedPublicKeys() []types.PublicKey {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]types.PublicKey, 0, len(m.validators))
	for _, v := range m.validators {
		keys = append(keys, v.enrollerPubKey)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// GetRandomSeed combines the currently revealed pre-images of every
// validator in sortedKeys via XOR reduction, producing the
// shared randomness the quorum builder uses to pick slice members.
// Validators with no UTXOKey resolvable among the manager's active set
// are skipped.
func (m *Manager) GetRandomSeed(sortedKeys []types.PublicKey) types.Hash {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var seed types.Hash
	want := make(map[types.PublicKey]bool, len(sortedKeys))
	for _, k := range sortedKeys {
		want[k] = true
	}
	for _, v := range m.validators {
		if !want[v.enrollerPubKey] {
			continue
		}
		for i := range seed {
			seed[i] ^= v.currentImage[i]
		}
	}
	return seed
}
