package light

import (
	"errors"

	"github.com/bomba-atomica/atomica-sub003/accumulator"
	"github.com/bomba-atomica/atomica-sub003/smt"
)

// Verification errors. Every error returned by Client leaves the trusted
// state and the epoch registry unchanged.
var (
	ErrMalformedBitmask       = errors.New("light: signer bitmask does not match validator set")
	ErrQuorumNotMet           = errors.New("light: signer voting power below quorum")
	ErrInvalidSignature       = errors.New("light: invalid aggregate signature")
	ErrDigestMismatch         = errors.New("light: ledger info digest mismatch")
	ErrStaleUpdate            = errors.New("light: update version not newer than trusted state")
	ErrUnexpectedEpochChange  = errors.New("light: unexpected epoch change")
	ErrMissingEpochChangeData = errors.New("light: epoch change without new validator set")
	ErrDuplicateEpoch         = errors.New("light: epoch already registered")
	ErrInvalidQuorum          = errors.New("light: invalid quorum")
	ErrMalformedProof         = errors.New("light: malformed proof")

	ErrNotInitialized      = errors.New("light: client not initialized")
	ErrAlreadyInitialized  = errors.New("light: client already initialized")
	ErrInvalidValidatorSet = errors.New("light: invalid validator set")
	ErrUnknownEpoch        = errors.New("light: epoch not registered")
	ErrUpdateExpired       = errors.New("light: update older than maximum age")
)

var errorReasons = []struct {
	err    error
	reason string
}{
	{ErrMalformedBitmask, "malformed_bitmask"},
	{ErrQuorumNotMet, "quorum_not_met"},
	{ErrInvalidSignature, "invalid_signature"},
	{ErrDigestMismatch, "digest_mismatch"},
	{ErrStaleUpdate, "stale_update"},
	{ErrUnexpectedEpochChange, "unexpected_epoch_change"},
	{ErrMissingEpochChangeData, "missing_epoch_change_data"},
	{ErrDuplicateEpoch, "duplicate_epoch"},
	{ErrInvalidQuorum, "invalid_quorum"},
	{ErrMalformedProof, "malformed_proof"},
	{accumulator.ErrMalformedProof, "malformed_proof"},
	{smt.ErrMalformedProof, "malformed_proof"},
	{accumulator.ErrRootMismatch, "root_mismatch"},
	{smt.ErrRootMismatch, "root_mismatch"},
	{ErrNotInitialized, "not_initialized"},
	{ErrAlreadyInitialized, "already_initialized"},
	{ErrInvalidValidatorSet, "invalid_validator_set"},
	{ErrUnknownEpoch, "unknown_epoch"},
	{ErrUpdateExpired, "update_expired"},
}

// ErrorReason returns a short stable label for err, suitable for metrics.
// It returns "" for nil and "other" for errors outside the verification
// taxonomy (for example store failures).
func ErrorReason(err error) string {
	if err == nil {
		return ""
	}
	for _, r := range errorReasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return "other"
}
