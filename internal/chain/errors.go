package chain

import "errors"

// Error taxonomy for chain operations (spec §7). Callers type-check these to
// decide whether a failure is safe to ignore for the current tick.
var (
	// ErrReadOnly is returned by every write operation when no private key was
	// configured (spec §6: absent PRIVATE_KEY => read-only mode).
	ErrReadOnly = errors.New("chain: read-only mode, no wallet configured")

	// ErrRegistrationSkipped is returned by RegisterAgent when the registry
	// address is unset or the zero address (spec §6).
	ErrRegistrationSkipped = errors.New("chain: registration skipped, no registry configured")

	// ErrInvalidConfidence is returned before send when confidence is out of
	// [0,100] (spec §4.1: client asserts the same check the contract makes).
	ErrInvalidConfidence = errors.New("chain: confidence must be in [0,100]")

	// ErrTargetTimeNotFuture is returned before send when a prediction's
	// target time is not strictly in the future (spec §4.1, §6).
	ErrTargetTimeNotFuture = errors.New("chain: targetTimeUnixSec must be in the future")
)

// TxError wraps a failed write (submission or receipt-wait failure). Spec §7:
// a write that times out waiting for receipt is not retried by the client —
// the caller decides whether to retry on the next tick.
type TxError struct {
	Op  string
	Err error
}

func (e *TxError) Error() string { return "chain: " + e.Op + ": " + e.Err.Error() }
func (e *TxError) Unwrap() error { return e.Err }
