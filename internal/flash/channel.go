package flash

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/bosagora-go/agora-node/pkg/crypto"
	"github.com/bosagora-go/agora-node/pkg/tx"
	"github.com/bosagora-go/agora-node/pkg/types"
)

// State is a Flash channel's lifecycle stage. States only ever advance
// forward; there is no transition back to an earlier state.
type State int

const (
	// StateSetup: nonce/key exchange and the first (seq 0) trigger and
	// settlement pair are being collaboratively signed.
	StateSetup State = iota
	// StateWaitingForFunding: the seq-0 pair is fully signed but the
	// funding transaction has not yet been observed on-chain.
	StateWaitingForFunding
	// StateOpen: funding is confirmed; balance updates may proceed.
	StateOpen
	// StatePendingClose: a close has been initiated; the latest update
	// transaction has been (or is about to be) published, and the
	// channel is waiting out settle_time before the settlement can
	// follow it.
	StatePendingClose
	// StateClosed: the channel's funds have been returned to an
	// on-chain, non-channel output.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateSetup:
		return "Setup"
	case StateWaitingForFunding:
		return "WaitingForFunding"
	case StateOpen:
		return "Open"
	case StatePendingClose:
		return "PendingClose"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// ErrStateRegression is returned by any attempt to move a channel to an
// earlier state than the one it already occupies.
var ErrStateRegression = errors.New("flash: channel state only moves forward")

// NoncePair is the pair of public nonce commitments a party publishes
// at the start of a signing round: one committing the settlement
// signature, one committing the update signature.
type NoncePair struct {
	SettleNonce types.PublicKey `json:"settle_nonce"`
	UpdateNonce types.PublicKey `json:"update_nonce"`
}

// SigShare is one party's contribution to an aggregate Schnorr
// signature: the nonce public key it committed to, and its scalar
// share once the shared challenge is known.
type SigShare struct {
	Nonce   types.PublicKey `json:"nonce"`
	Partial types.Scalar    `json:"partial"`
}

// ChannelConfig is the immutable agreement both parties hold about a
// channel: who funds it, how large it is, and how long a settlement
// must age before it can spend the latest update output.
type ChannelConfig struct {
	ChanID      types.Hash      `json:"chan_id"`
	GenesisHash types.Hash      `json:"genesis_hash"`
	FunderPK    types.PublicKey `json:"funder_pk"`
	PeerPK      types.PublicKey `json:"peer_pk"`
	Capacity    types.Amount    `json:"capacity"`
	// SettleTime is the number of blocks a settlement transaction's
	// input must have aged (VERIFY_INPUT_LOCK) before it is spendable.
	SettleTime uint32 `json:"settle_time"`
}

// DeriveChannelID computes the channel id both parties must agree on:
// a hash of the funding outpoint, both parties' public keys and the
// genesis hash, so a channel id can always be independently recomputed
// and checked rather than merely trusted. Capacity and settle time are
// not part of the hash.
func DeriveChannelID(fundingTxHash types.Hash, fundingIndex uint32, funderPK, peerPK types.PublicKey, genesisHash types.Hash) types.Hash {
	var idxBytes [4]byte
	binary.LittleEndian.PutUint32(idxBytes[:], fundingIndex)
	return crypto.HashMulti(fundingTxHash[:], idxBytes[:], funderPK.Bytes(), peerPK.Bytes(), genesisHash[:])
}

// round holds the in-progress state of a single sequence-id signing
// exchange: the candidate update/settlement pair, the nonce key this
// party generated for it, and whatever has been received from the
// counterparty so far.
type round struct {
	seqID                      uint64
	funderBalance, peerBalance types.Amount

	updateTx *tx.Transaction
	settleTx *tx.Transaction

	localSettleNonce *crypto.PrivateKey
	localUpdateNonce *crypto.PrivateKey

	remoteSettleNonce types.PublicKey
	remoteUpdateNonce types.PublicKey
	haveRemoteNonces  bool

	settleSig    types.Signature
	settleSigned bool
	updateSig    types.Signature
	updateSigned bool
}

// Channel is one party's view of a Flash payment channel: its own key
// material, the counterparty's public keys, and the latest co-signed
// update/settlement pair. Both sides of a channel run an independent
// Channel value; they never share state directly, only the signatures
// and nonce commitments exchanged via FlashPeer.
type Channel struct {
	mu sync.Mutex

	cfg      ChannelConfig
	isFunder bool

	localSettleBase *crypto.PrivateKey
	localUpdateKey  *crypto.PrivateKey

	remoteSettlePub0 types.PublicKey
	remoteUpdatePub  types.PublicKey

	state State

	fundingOutpoint types.Outpoint
	fundingPinned   bool

	current *round // latest fully-signed pair; nil until seq 0 completes
	pending *round // in-flight round, nil when no signing exchange is active
}

// NewChannel constructs a channel in the Setup state. localSettleBase
// and localUpdateKey are this party's long-lived channel key material;
// remoteSettlePub0/remoteUpdatePub are the counterparty's equivalents,
// learned during open_channel.
func NewChannel(cfg ChannelConfig, isFunder bool, localSettleBase, localUpdateKey *crypto.PrivateKey, remoteSettlePub0, remoteUpdatePub types.PublicKey) *Channel {
	return &Channel{
		cfg:              cfg,
		isFunder:         isFunder,
		localSettleBase:  localSettleBase,
		localUpdateKey:   localUpdateKey,
		remoteSettlePub0: remoteSettlePub0,
		remoteUpdatePub:  remoteUpdatePub,
		state:            StateSetup,
	}
}

// State returns the channel's current lifecycle state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ChanID returns the channel's id.
func (c *Channel) ChanID() types.Hash {
	return c.cfg.ChanID
}

// CurrentSequence returns the sequence id of the latest fully-signed
// pair, or 0 if only Setup's seq-0 round has not yet completed.
func (c *Channel) CurrentSequence() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return 0
	}
	return c.current.seqID
}

func (c *Channel) advanceState(next State) error {
	if next < c.state {
		return ErrStateRegression
	}
	c.state = next
	return nil
}

// nextSeqLocked returns the sequence id the next round must use.
// Callers must hold c.mu.
func (c *Channel) nextSeqLocked() uint64 {
	if c.current == nil {
		return 0
	}
	return c.current.seqID + 1
}

// seqHash hashes a little-endian sequence number, the marker
// settle_kp_s derivation and per-round nonce derivation both offset
// their base key by.
func seqHash(seq uint64) types.Hash {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], seq)
	return crypto.HashFull(b[:])
}

func scalarFromPriv(priv *crypto.PrivateKey) types.Scalar {
	var s types.Scalar
	copy(s[:], priv.Serialize())
	return s
}

// derivedSettlePriv computes settle_kp_s = settle_kp_0 + Scalar(hashFull(s))
// for this party's own base key.
func derivedSettlePriv(base *crypto.PrivateKey, seq uint64) (*crypto.PrivateKey, error) {
	derived := crypto.AddScalar(scalarFromPriv(base), seqHash(seq))
	return crypto.PrivateKeyFromBytes(derived[:])
}

// derivedSettlePub computes the same offset against a counterparty's
// public base key, without needing their private scalar: base_pub +
// Scalar(hashFull(s))*G.
func derivedSettlePub(basePub types.PublicKey, seq uint64) (types.PublicKey, error) {
	h := seqHash(seq)
	var offsetScalar types.Scalar
	copy(offsetScalar[:], h[:types.ScalarSize])
	offsetPub, err := crypto.DerivePublicKey(offsetScalar)
	if err != nil {
		return types.PublicKey{}, fmt.Errorf("derive settlement offset point: %w", err)
	}
	return crypto.SumPoints([]types.PublicKey{basePub, offsetPub})
}

// settleAggregatePub returns the 2-of-2 aggregate settlement public
// key for sequence seq, combining both parties' per-sequence derived
// settlement keys.
func (c *Channel) settleAggregatePub(seq uint64) (types.PublicKey, error) {
	localPriv, err := derivedSettlePriv(c.localSettleBase, seq)
	if err != nil {
		return types.PublicKey{}, err
	}
	remotePub, err := derivedSettlePub(c.remoteSettlePub0, seq)
	if err != nil {
		return types.PublicKey{}, err
	}
	return crypto.SumPoints(crypto.SortPublicKeys([]types.PublicKey{localPriv.PublicKey(), remotePub}))
}

// updateAggregatePub returns the 2-of-2 aggregate update public key.
// Unlike the settlement key it does not vary by sequence: the update
// path's replay protection comes entirely from VERIFY_TX_SEQ.
func (c *Channel) updateAggregatePub() (types.PublicKey, error) {
	return crypto.SumPoints(crypto.SortPublicKeys([]types.PublicKey{c.localUpdateKey.PublicKey(), c.remoteUpdatePub}))
}
