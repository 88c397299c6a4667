package light

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bomba-atomica/atomica-sub003/crypto"
)

// LedgerInfo is the ledger summary signed by a validator set. When the
// ledger moves to a new epoch, NextEpochState carries the incoming validator
// set so the outgoing set's signature covers it.
type LedgerInfo struct {
	Version         uint64      `json:"version"`
	StateRoot       common.Hash `json:"stateRoot"`
	AccumulatorRoot common.Hash `json:"accumulatorRoot"`
	Epoch           uint64      `json:"epoch"`
	Timestamp       uint64      `json:"timestamp"`
	NextEpochState  *EpochState `json:"nextEpochState,omitempty"`
}

// Encode returns the canonical little-endian encoding:
//
//	u64 version | state root | accumulator root | u64 epoch | u64 timestamp |
//	0x00, or 0x01 followed by the next epoch state hash
func (li *LedgerInfo) Encode() []byte {
	buf := make([]byte, 0, 8+32+32+8+8+1+32)
	buf = binary.LittleEndian.AppendUint64(buf, li.Version)
	buf = append(buf, li.StateRoot[:]...)
	buf = append(buf, li.AccumulatorRoot[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, li.Epoch)
	buf = binary.LittleEndian.AppendUint64(buf, li.Timestamp)
	if li.NextEpochState == nil {
		return append(buf, 0x00)
	}
	h := li.NextEpochState.Hash()
	buf = append(buf, 0x01)
	return append(buf, h[:]...)
}

// Digest is the message validators sign.
func (li *LedgerInfo) Digest() common.Hash {
	return crypto.LedgerInfoHasher.Hash(li.Encode())
}
