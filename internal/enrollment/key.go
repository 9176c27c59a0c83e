package enrollment

import (
	"errors"
	"fmt"

	"github.com/bosagora-go/agora-node/pkg/types"
)

// ErrUnsupportedLockType is returned by EnrollerKeyFromLock for any
// lock that doesn't directly embed a public key.
var ErrUnsupportedLockType = errors.New("enrollment: freeze output lock does not directly embed a public key")

// EnrollerKeyFromLock extracts the public key an enrollment's
// referenced Freeze output is locked to. Only direct-key locks are
// admissible: the ledger must be able to check EnrollSig without
// first running the script engine.
func EnrollerKeyFromLock(lock types.Lock) (types.PublicKey, error) {
	if lock.Type != types.LockKey {
		return types.PublicKey{}, fmt.Errorf("%w: got %s", ErrUnsupportedLockType, lock.Type)
	}
	return types.PublicKeyFromBytes(lock.Data)
}
