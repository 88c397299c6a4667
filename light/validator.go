package light

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/prysmaticlabs/go-bitfield"

	"github.com/bomba-atomica/atomica-sub003/crypto"
)

// maxVotingPowerBits bounds total and quorum voting power.
const maxVotingPowerBits = 128

// Validator is one member of an epoch's validator set. Address is an opaque
// identity and never enters signature verification.
type Validator struct {
	PublicKey   hexutil.Bytes  `json:"publicKey"`
	VotingPower uint64         `json:"votingPower"`
	Address     common.Address `json:"address"`
}

// EpochState is the validator set authoritative for one epoch. The order of
// Validators defines the bit positions of signer bitmasks.
type EpochState struct {
	Epoch             uint64       `json:"epoch"`
	Validators        []Validator  `json:"validators"`
	TotalVotingPower  *uint256.Int `json:"totalVotingPower"`
	QuorumVotingPower *uint256.Int `json:"quorumVotingPower"`
}

// NewEpochState builds an epoch state whose total is the sum of the
// validators' power and whose quorum is the smallest value strictly above
// two thirds of the total.
func NewEpochState(epoch uint64, validators []Validator) (*EpochState, error) {
	total := new(uint256.Int)
	for _, v := range validators {
		total.Add(total, uint256.NewInt(v.VotingPower))
	}
	quorum := new(uint256.Int).Mul(total, uint256.NewInt(2))
	quorum.Div(quorum, uint256.NewInt(3))
	quorum.AddUint64(quorum, 1)

	es := &EpochState{
		Epoch:             epoch,
		Validators:        append([]Validator(nil), validators...),
		TotalVotingPower:  total,
		QuorumVotingPower: quorum,
	}
	if err := es.Validate(); err != nil {
		return nil, err
	}
	return es, nil
}

// Validate checks the internal consistency of the validator set: a non-empty
// set of distinct, correctly sized keys with non-zero power, a total equal to
// the sum of powers and a quorum strictly above two thirds of that total.
// Curve membership of the keys is checked separately by ValidatePublicKeys.
func (es *EpochState) Validate() error {
	if len(es.Validators) == 0 {
		return fmt.Errorf("%w: epoch %d has no validators", ErrInvalidValidatorSet, es.Epoch)
	}
	seen := make(map[string]struct{}, len(es.Validators))
	sum := new(uint256.Int)
	for i, v := range es.Validators {
		if len(v.PublicKey) != crypto.PublicKeySize {
			return fmt.Errorf("%w: validator %d key is %d bytes", ErrInvalidValidatorSet, i, len(v.PublicKey))
		}
		if v.VotingPower == 0 {
			return fmt.Errorf("%w: validator %d has zero voting power", ErrInvalidValidatorSet, i)
		}
		if _, dup := seen[string(v.PublicKey)]; dup {
			return fmt.Errorf("%w: validator %d repeats a public key", ErrInvalidValidatorSet, i)
		}
		seen[string(v.PublicKey)] = struct{}{}
		sum.Add(sum, uint256.NewInt(v.VotingPower))
	}

	total, quorum := es.TotalVotingPower, es.QuorumVotingPower
	switch {
	case total == nil || quorum == nil:
		return fmt.Errorf("%w: missing voting power totals", ErrInvalidQuorum)
	case total.BitLen() > maxVotingPowerBits || quorum.BitLen() > maxVotingPowerBits:
		return fmt.Errorf("%w: voting power exceeds %d bits", ErrInvalidQuorum, maxVotingPowerBits)
	case !sum.Eq(total):
		return fmt.Errorf("%w: validators sum to %s, declared total %s", ErrInvalidQuorum, sum, total)
	case quorum.Gt(total):
		return fmt.Errorf("%w: quorum %s exceeds total %s", ErrInvalidQuorum, quorum, total)
	}
	// Both sides fit in 130 bits, so the products cannot overflow.
	lhs := new(uint256.Int).Mul(quorum, uint256.NewInt(3))
	rhs := new(uint256.Int).Mul(total, uint256.NewInt(2))
	if !lhs.Gt(rhs) {
		return fmt.Errorf("%w: quorum %s is not above two thirds of %s", ErrInvalidQuorum, quorum, total)
	}
	return nil
}

// ValidatePublicKeys checks every validator key decodes to a usable point
// on the given backend.
func (es *EpochState) ValidatePublicKeys(backend crypto.CurveBackend) error {
	for i, v := range es.Validators {
		if err := backend.ValidatePublicKey(v.PublicKey); err != nil {
			return fmt.Errorf("%w: validator %d: %v", ErrInvalidValidatorSet, i, err)
		}
	}
	return nil
}

// SignerPower sums the voting power of the validators whose bit is set.
func (es *EpochState) SignerPower(signers bitfield.Bitlist) (*uint256.Int, error) {
	if signers.Len() != uint64(len(es.Validators)) {
		return nil, fmt.Errorf("%w: %d bits for %d validators", ErrMalformedBitmask, signers.Len(), len(es.Validators))
	}
	power := new(uint256.Int)
	for i, v := range es.Validators {
		if signers.BitAt(uint64(i)) {
			power.Add(power, uint256.NewInt(v.VotingPower))
		}
	}
	return power, nil
}

// Encode returns the canonical encoding committed to by Hash.
func (es *EpochState) Encode() []byte {
	size := 8 + 4 + len(es.Validators)*(crypto.PublicKeySize+8+common.AddressLength) + 64
	buf := make([]byte, 0, size)
	buf = binary.LittleEndian.AppendUint64(buf, es.Epoch)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(es.Validators)))
	for _, v := range es.Validators {
		buf = append(buf, v.PublicKey...)
		buf = binary.LittleEndian.AppendUint64(buf, v.VotingPower)
		buf = append(buf, v.Address[:]...)
	}
	buf = appendPower(buf, es.TotalVotingPower)
	buf = appendPower(buf, es.QuorumVotingPower)
	return buf
}

// Hash commits to the epoch, the ordered validator set and its thresholds.
func (es *EpochState) Hash() common.Hash {
	return crypto.EpochStateHasher.Hash(es.Encode())
}

// Copy returns a deep copy.
func (es *EpochState) Copy() *EpochState {
	cpy := &EpochState{
		Epoch:      es.Epoch,
		Validators: make([]Validator, len(es.Validators)),
	}
	for i, v := range es.Validators {
		cpy.Validators[i] = Validator{
			PublicKey:   common.CopyBytes(v.PublicKey),
			VotingPower: v.VotingPower,
			Address:     v.Address,
		}
	}
	if es.TotalVotingPower != nil {
		cpy.TotalVotingPower = es.TotalVotingPower.Clone()
	}
	if es.QuorumVotingPower != nil {
		cpy.QuorumVotingPower = es.QuorumVotingPower.Clone()
	}
	return cpy
}

func appendPower(buf []byte, v *uint256.Int) []byte {
	var b [32]byte
	if v != nil {
		b = v.Bytes32()
	}
	return append(buf, b[:]...)
}
