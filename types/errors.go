package types

import (
	"errors"
	"fmt"
)

// CodeUndecodable is returned for transactions that cannot be decoded at all
const CodeUndecodable uint32 = 1

// Error is a domain error kind carrying a stable ABCI result code
type Error struct {
	code uint32
	kind string
}

func (e *Error) Error() string {
	return e.kind
}

// Code returns the ABCI result code for this kind
func (e *Error) Code() uint32 {
	return e.code
}

// Error kinds surfaced to callers as the outcome of a command
var (
	ErrInsufficientFunds     = &Error{code: 2, kind: "insufficient funds sent"}
	ErrWalletLimitExceeded   = &Error{code: 3, kind: "wallet limit exceeded"}
	ErrSupplyExhausted       = &Error{code: 4, kind: "token supply exhausted"}
	ErrInvalidIdentifier     = &Error{code: 5, kind: "expected numeric token identifier"}
	ErrUnauthorized          = &Error{code: 6, kind: "unauthorized"}
	ErrNoStakedToken         = &Error{code: 7, kind: "no staked token"}
	ErrTokenAlreadyStaked    = &Error{code: 8, kind: "token already staked"}
	ErrUpstreamQueryFailed   = &Error{code: 9, kind: "upstream query failed"}
	ErrMalformedNotification = &Error{code: 10, kind: "malformed receive notification"}
	ErrNotFound              = &Error{code: 11, kind: "not found"}
	ErrUnknownRequest        = &Error{code: 12, kind: "unknown request"}
	ErrBeaconExists          = &Error{code: 13, kind: "beacon already submitted"}
	ErrTokenClaimed          = &Error{code: 14, kind: "token id already claimed"}
	ErrInvalidRequest        = &Error{code: 15, kind: "invalid request"}
)

// Wrapf attaches detail to an error kind while keeping it matchable with errors.Is
func Wrapf(kind *Error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

// Wrap classifies a lower-level failure as kind. Both kind and err stay
// matchable with errors.Is; kind decides the result code.
func Wrap(kind *Error, err error, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %w", kind, fmt.Sprintf(format, args...), err)
}

// CodeOf maps an error to its ABCI result code. Errors that carry no kind
// are reported as undecodable.
func CodeOf(err error) uint32 {
	if err == nil {
		return 0
	}
	var kind *Error
	if errors.As(err, &kind) {
		return kind.code
	}
	return CodeUndecodable
}
