package flash

// ErrorCode enumerates every way a Flash operation can fail, mirroring
// the JSON-RPC style Request/Response/Error split the rest of the node
// uses for its own RPC surface, but as a closed Go enum rather than a
// free-form code+message pair: callers switch on ErrorCode rather than
// string-matching a message.
type ErrorCode int

const (
	// ErrNone indicates success. A Result is only successful when its
	// Error field equals ErrNone.
	ErrNone ErrorCode = iota
	// ErrSettleNotReceived means an update-sig was requested before the
	// matching settlement-sig for the same sequence was received.
	ErrSettleNotReceived
	// ErrInvalidSequenceID means a signing request named a sequence id
	// other than the channel's current one.
	ErrInvalidSequenceID
	// ErrInvalidSignature means a peer-supplied signature share failed
	// to verify against the expected challenge and public key.
	ErrInvalidSignature
	// ErrWrongChannelID means a request named a channel id this node
	// does not have any record of.
	ErrWrongChannelID
	// ErrDuplicateChannelID means open_channel was called with a
	// channel id already in use.
	ErrDuplicateChannelID
	// ErrInvalidGenesisHash means the peer's channel config names a
	// different genesis than this node is joined to.
	ErrInvalidGenesisHash
	// ErrFundingTooLow means the proposed capacity is below
	// flash.min_funding; it is also returned when the capacity exceeds
	// flash.max_funding.
	ErrFundingTooLow
	// ErrChannelNotFunded means an operation that requires a published
	// funding transaction was attempted before one exists.
	ErrChannelNotFunded
	// ErrChannelNotOpen means an operation that requires the Open state
	// was attempted from some other state.
	ErrChannelNotOpen
	// ErrSigningInProcess means a new balance update or close was
	// requested while a previous signing round has not yet resolved.
	ErrSigningInProcess
	// ErrCantDecrypt means a received envelope could not be decrypted
	// with this channel's negotiated key material.
	ErrCantDecrypt
	// ErrExceedsMaximumPayment means a proposed balance update would
	// move more than the channel's capacity allows.
	ErrExceedsMaximumPayment
	// ErrInvalidChannelID means the channel id supplied does not match
	// the expected derivation (funding outpoint, parties, genesis). It is
	// also the catch-all code for a settle_time out of range, a failure
	// to pin the funding outpoint, an unclassified internal error, and a
	// Flash RPC call that failed in transport or named an unknown method.
	ErrInvalidChannelID
)

// String returns a human-readable error code name.
func (e ErrorCode) String() string {
	switch e {
	case ErrNone:
		return "None"
	case ErrSettleNotReceived:
		return "SettleNotReceived"
	case ErrInvalidSequenceID:
		return "InvalidSequenceID"
	case ErrInvalidSignature:
		return "InvalidSignature"
	case ErrWrongChannelID:
		return "WrongChannelID"
	case ErrDuplicateChannelID:
		return "DuplicateChannelID"
	case ErrInvalidGenesisHash:
		return "InvalidGenesisHash"
	case ErrFundingTooLow:
		return "FundingTooLow"
	case ErrChannelNotFunded:
		return "ChannelNotFunded"
	case ErrChannelNotOpen:
		return "ChannelNotOpen"
	case ErrSigningInProcess:
		return "SigningInProcess"
	case ErrCantDecrypt:
		return "CantDecrypt"
	case ErrExceedsMaximumPayment:
		return "ExceedsMaximumPayment"
	case ErrInvalidChannelID:
		return "InvalidChannelID"
	default:
		return "Unknown"
	}
}

// Result wraps every value a Flash operation returns across the
// signer-exchange / peer-RPC boundary: Error == ErrNone is the only
// success condition, Message carries a human-readable detail for logs,
// and Value carries the payload on success.
type Result[T any] struct {
	Error   ErrorCode `json:"error"`
	Message string    `json:"message,omitempty"`
	Value   T         `json:"value,omitempty"`
}

// Ok wraps a successful value.
func Ok[T any](value T) Result[T] {
	return Result[T]{Error: ErrNone, Value: value}
}

// Fail wraps a failure code and message; Value is the zero value of T.
func Fail[T any](code ErrorCode, message string) Result[T] {
	return Result[T]{Error: code, Message: message}
}

// IsOK reports whether r represents success.
func (r Result[T]) IsOK() bool {
	return r.Error == ErrNone
}
