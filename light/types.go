// Package light implements a light client that tracks a remote ledger by
// verifying validator-signed ledger summaries, then answers inclusion
// queries against the trusted roots without downloading ledger state.
package light

import (
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/prysmaticlabs/go-bitfield"
)

// TrustedState is the latest verified ledger summary. Values are immutable
// once published by Client.
type TrustedState struct {
	Version         uint64      `json:"version"`
	StateRoot       common.Hash `json:"stateRoot"`
	AccumulatorRoot common.Hash `json:"accumulatorRoot"`
	Epoch           uint64      `json:"epoch"`
	Timestamp       uint64      `json:"timestamp"` // microseconds since the Unix epoch
}

// Time returns the ledger timestamp as a time.Time.
func (s *TrustedState) Time() time.Time {
	return time.UnixMicro(int64(s.Timestamp))
}

// Waypoint is the out-of-band trust anchor a client starts from. Its values
// are trusted as given; only their internal consistency is checked.
type Waypoint struct {
	Version         uint64      `json:"version"`
	StateRoot       common.Hash `json:"stateRoot"`
	AccumulatorRoot common.Hash `json:"accumulatorRoot"`
	Timestamp       uint64      `json:"timestamp"`
	Epoch           uint64      `json:"epoch"`
	EpochState      *EpochState `json:"epochState"`
}

// TrustedState returns the state a client initialized from w starts at.
func (w *Waypoint) TrustedState() *TrustedState {
	return &TrustedState{
		Version:         w.Version,
		StateRoot:       w.StateRoot,
		AccumulatorRoot: w.AccumulatorRoot,
		Epoch:           w.Epoch,
		Timestamp:       w.Timestamp,
	}
}

// AggregateProof is a BLS aggregate signature over Message together with the
// set of validators that contributed to it.
type AggregateProof struct {
	Message   common.Hash      `json:"message"`
	Signature hexutil.Bytes    `json:"signature"`
	Signers   bitfield.Bitlist `json:"signers"`
}

type aggregateProofJSON struct {
	Message   common.Hash   `json:"message"`
	Signature hexutil.Bytes `json:"signature"`
	Signers   hexutil.Bytes `json:"signers"`
}

// MarshalJSON encodes the signer bitlist as hex rather than base64.
func (p AggregateProof) MarshalJSON() ([]byte, error) {
	return json.Marshal(aggregateProofJSON{
		Message:   p.Message,
		Signature: p.Signature,
		Signers:   hexutil.Bytes(p.Signers),
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *AggregateProof) UnmarshalJSON(data []byte) error {
	var dec aggregateProofJSON
	if err := json.Unmarshal(data, &dec); err != nil {
		return err
	}
	p.Message = dec.Message
	p.Signature = dec.Signature
	p.Signers = bitfield.Bitlist(dec.Signers)
	return nil
}

// Update advances the trusted state to a new ledger summary. EpochChange is
// set exactly when Epoch is one past the trusted epoch.
type Update struct {
	Version          uint64          `json:"version"`
	StateRoot        common.Hash     `json:"stateRoot"`
	AccumulatorRoot  common.Hash     `json:"accumulatorRoot"`
	Epoch            uint64          `json:"epoch"`
	Timestamp        uint64          `json:"timestamp"`
	LedgerInfoDigest common.Hash     `json:"ledgerInfoDigest"`
	Proof            *AggregateProof `json:"proof" rlp:"nil"`
	EpochChange      *EpochState     `json:"epochChange,omitempty" rlp:"nil"`
}

// LedgerInfo returns the ledger summary the update claims was signed.
func (u *Update) LedgerInfo() *LedgerInfo {
	return &LedgerInfo{
		Version:         u.Version,
		StateRoot:       u.StateRoot,
		AccumulatorRoot: u.AccumulatorRoot,
		Epoch:           u.Epoch,
		Timestamp:       u.Timestamp,
		NextEpochState:  u.EpochChange,
	}
}

// TrustedState returns the state the client holds once u is accepted.
func (u *Update) TrustedState() *TrustedState {
	return &TrustedState{
		Version:         u.Version,
		StateRoot:       u.StateRoot,
		AccumulatorRoot: u.AccumulatorRoot,
		Epoch:           u.Epoch,
		Timestamp:       u.Timestamp,
	}
}

// UpdateEvent is posted to subscribers after each accepted update.
type UpdateEvent struct {
	Version     uint64      `json:"version"`
	StateRoot   common.Hash `json:"stateRoot"`
	Epoch       uint64      `json:"epoch"`
	EpochChange bool        `json:"epochChange"`
}
