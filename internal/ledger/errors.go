package ledger

import "errors"

// ErrOrderingViolation is returned when an event carries a timestamp
// earlier than the last-replayed event for the same wallet. Correctness
// depends on strict chronological replay, so the wallet's batch aborts
// rather than silently reordering.
var ErrOrderingViolation = errors.New("event timestamp precedes last replayed event")

// ErrWalletMismatch is returned when a replay receives an event for a
// different wallet than the one it was started for.
var ErrWalletMismatch = errors.New("event wallet does not match replay wallet")
