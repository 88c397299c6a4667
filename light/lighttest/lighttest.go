// Package lighttest builds deterministic validator committees and signed
// updates for tests and local tooling.
package lighttest

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prysmaticlabs/go-bitfield"

	"github.com/bomba-atomica/atomica-sub003/crypto"
	"github.com/bomba-atomica/atomica-sub003/light"
)

// Committee is a validator set together with its secret keys.
type Committee struct {
	Keys  []*crypto.SecretKey
	State *light.EpochState
}

// NewCommittee derives one validator per power for epoch. Keys depend only
// on (epoch, index), so equal arguments give equal committees. The quorum is
// the default, strictly above two thirds of the total.
func NewCommittee(epoch uint64, powers ...uint64) *Committee {
	c := &Committee{}
	validators := make([]light.Validator, len(powers))
	for i, p := range powers {
		sk := crypto.SecretKeyFromSeed(seed(epoch, i))
		c.Keys = append(c.Keys, sk)
		validators[i] = light.Validator{
			PublicKey:   sk.PublicKey(),
			VotingPower: p,
			Address:     common.BytesToAddress(crypto.SHA3(sk.PublicKey()).Bytes()),
		}
	}
	es, err := light.NewEpochState(epoch, validators)
	if err != nil {
		panic(fmt.Sprintf("lighttest: committee for epoch %d: %v", epoch, err))
	}
	c.State = es
	return c
}

func seed(epoch uint64, index int) []byte {
	b := make([]byte, 0, 24)
	b = append(b, "validator"...)
	b = binary.BigEndian.AppendUint64(b, epoch)
	return binary.BigEndian.AppendUint32(b, uint32(index))
}

// Signers returns a bitlist over the committee with the given indices set.
func (c *Committee) Signers(indices ...int) bitfield.Bitlist {
	bits := bitfield.NewBitlist(uint64(len(c.Keys)))
	for _, i := range indices {
		bits.SetBitAt(uint64(i), true)
	}
	return bits
}

// Sign returns an aggregate proof over digest by the given validators.
func (c *Committee) Sign(digest common.Hash, indices ...int) *light.AggregateProof {
	sigs := make([][]byte, 0, len(indices))
	for _, i := range indices {
		sig, err := c.Keys[i].Sign(digest[:])
		if err != nil {
			panic(fmt.Sprintf("lighttest: sign: %v", err))
		}
		sigs = append(sigs, sig)
	}
	agg, err := crypto.AggregateSignatures(sigs)
	if err != nil {
		panic(fmt.Sprintf("lighttest: aggregate: %v", err))
	}
	return &light.AggregateProof{
		Message:   digest,
		Signature: agg,
		Signers:   c.Signers(indices...),
	}
}

// Waypoint returns a waypoint trusting this committee at version.
func (c *Committee) Waypoint(version, timestamp uint64) *light.Waypoint {
	state, acc := Roots(version)
	return &light.Waypoint{
		Version:         version,
		StateRoot:       state,
		AccumulatorRoot: acc,
		Timestamp:       timestamp,
		Epoch:           c.State.Epoch,
		EpochState:      c.State.Copy(),
	}
}

// Roots returns deterministic placeholder roots for version.
func Roots(version uint64) (state, acc common.Hash) {
	v := binary.BigEndian.AppendUint64(nil, version)
	return crypto.SHA3([]byte("state"), v), crypto.SHA3([]byte("accumulator"), v)
}

// NewUpdate returns an unsigned update to version in epoch with
// deterministic roots.
func NewUpdate(version, epoch, timestamp uint64) *light.Update {
	state, acc := Roots(version)
	return &light.Update{
		Version:         version,
		StateRoot:       state,
		AccumulatorRoot: acc,
		Epoch:           epoch,
		Timestamp:       timestamp,
	}
}

// SignUpdate fills in the digest of u and signs it with the given
// validators. Fields changed afterwards are not covered by the signature.
func (c *Committee) SignUpdate(u *light.Update, indices ...int) *light.Update {
	u.LedgerInfoDigest = u.LedgerInfo().Digest()
	u.Proof = c.Sign(u.LedgerInfoDigest, indices...)
	return u
}

// All returns the indices of every validator.
func (c *Committee) All() []int {
	out := make([]int, len(c.Keys))
	for i := range out {
		out[i] = i
	}
	return out
}
