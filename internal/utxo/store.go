package utxo

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/bosagora-go/agora-node/internal/storage"
	"github.com/bosagora-go/agora-node/pkg/crypto"
	"github.com/bosagora-go/agora-node/pkg/tx"
	"github.com/bosagora-go/agora-node/pkg/types"
)

// Key prefixes for the UTXO store.
var (
	prefixUTXO   = []byte("u/") // u/hashMulti(txid,index) -> UTXO JSON
	prefixFreeze = []byte("f/") // f/hashMulti(txid,index) -> empty (index of Freeze outputs)
)

// Store implements Set backed by a storage.DB. Records are keyed by
// hashMulti(tx_hash, out_index), matching the mapping the enrollment
// manager and ledger expect when they talk about a UTXO's "key".
type Store struct {
	db storage.DB
}

// NewStore creates a new UTXO store backed by the given database.
func NewStore(db storage.DB) *Store {
	return &Store{db: db}
}

// Key computes the storage key hashMulti(tx_hash, out_index) for an
// outpoint.
func Key(outpoint types.Outpoint) types.Hash {
	idx := make([]byte, 4)
	binary.LittleEndian.PutUint32(idx, outpoint.Index)
	return crypto.HashMulti(outpoint.TxID[:], idx)
}

func storeKey(outpoint types.Outpoint) []byte {
	k := Key(outpoint)
	return append(append([]byte{}, prefixUTXO...), k[:]...)
}

func freezeKey(outpoint types.Outpoint) []byte {
	k := Key(outpoint)
	return append(append([]byte{}, prefixFreeze...), k[:]...)
}

// record is the on-disk shape, since tx.UTXO doesn't carry its own
// outpoint (the key already does).
type record struct {
	Output       types.Output `json:"output"`
	SourceType   tx.TxType    `json:"source_type"`
	UnlockHeight uint64       `json:"unlock_height"`
}

// FindUTXO implements tx.UTXOProvider.
func (s *Store) FindUTXO(outpoint types.Outpoint) (tx.UTXO, bool) {
	data, err := s.db.Get(storeKey(outpoint))
	if err != nil {
		return tx.UTXO{}, false
	}
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return tx.UTXO{}, false
	}
	return tx.UTXO{Output: r.Output, SourceType: r.SourceType, UnlockHeight: r.UnlockHeight}, true
}

// Put stores a UTXO record and, if it is a Freeze output, also adds its
// key to the freeze index that FreezeOutpoints reads.
func (s *Store) Put(outpoint types.Outpoint, u tx.UTXO) error {
	r := record{Output: u.Output, SourceType: u.SourceType, UnlockHeight: u.UnlockHeight}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("utxo marshal: %w", err)
	}
	if err := s.db.Put(storeKey(outpoint), data); err != nil {
		return fmt.Errorf("utxo put: %w", err)
	}
	if u.SourceType == tx.Freeze {
		if err := s.db.Put(freezeKey(outpoint), []byte{}); err != nil {
			return fmt.Errorf("freeze index put: %w", err)
		}
	}
	return nil
}

// Delete removes a UTXO record and its freeze index entry, if any.
func (s *Store) Delete(outpoint types.Outpoint) error {
	_ = s.db.Delete(freezeKey(outpoint))
	if err := s.db.Delete(storeKey(outpoint)); err != nil {
		return fmt.Errorf("utxo delete: %w", err)
	}
	return nil
}

// Has checks if a UTXO exists for the given outpoint.
func (s *Store) Has(outpoint types.Outpoint) (bool, error) {
	return s.db.Has(storeKey(outpoint))
}

// ForEach iterates over every UTXO in the store. The storage key holds
// only the hash of the outpoint, so the outpoint passed to fn is not the
// original one: its TxID is the storage key hash and its Index is 0.
func (s *Store) ForEach(fn func(types.Outpoint, tx.UTXO) error) error {
	return s.db.ForEach(prefixUTXO, func(key, value []byte) error {
		var r record
		if err := json.Unmarshal(value, &r); err != nil {
			return fmt.Errorf("utxo unmarshal: %w", err)
		}
		var keyHash types.Hash
		copy(keyHash[:], key[len(prefixUTXO):])
		return fn(types.Outpoint{TxID: keyHash}, tx.UTXO{
			Output: r.Output, SourceType: r.SourceType, UnlockHeight: r.UnlockHeight,
		})
	})
}

// FreezeOutpoints returns the storage keys of every Freeze UTXO
// currently in the set.
func (s *Store) FreezeOutpoints() ([]types.Hash, error) {
	var keys []types.Hash
	err := s.db.ForEach(prefixFreeze, func(key, _ []byte) error {
		if len(key) < len(prefixFreeze)+types.HashSize {
			return nil
		}
		var h types.Hash
		copy(h[:], key[len(prefixFreeze):])
		keys = append(keys, h)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan freeze index: %w", err)
	}
	return keys, nil
}

// ClearAll removes every UTXO and index entry. Used when rebuilding
// the set from scratch during startup recovery.
func (s *Store) ClearAll() error {
	var keys [][]byte
	for _, prefix := range [][]byte{prefixUTXO, prefixFreeze} {
		if err := s.db.ForEach(prefix, func(key, _ []byte) error {
			k := make([]byte, len(key))
			copy(k, key)
			keys = append(keys, k)
			return nil
		}); err != nil {
			return fmt.Errorf("scan prefix %s: %w", prefix, err)
		}
	}
	for _, key := range keys {
		if err := s.db.Delete(key); err != nil {
			return fmt.Errorf("delete utxo key: %w", err)
		}
	}
	return nil
}
