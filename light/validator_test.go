package light

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/prysmaticlabs/go-bitfield"

	"github.com/bomba-atomica/atomica-sub003/crypto"
)

// fakeValidators returns validators with distinct, correctly sized keys.
// The keys are not curve points, which Validate does not check.
func fakeValidators(powers ...uint64) []Validator {
	out := make([]Validator, len(powers))
	for i, p := range powers {
		pk := bytes.Repeat([]byte{byte(i + 1)}, crypto.PublicKeySize)
		out[i] = Validator{PublicKey: pk, VotingPower: p, Address: common.BytesToAddress([]byte{byte(i)})}
	}
	return out
}

func rawState(epoch uint64, total, quorum uint64, powers ...uint64) *EpochState {
	return &EpochState{
		Epoch:             epoch,
		Validators:        fakeValidators(powers...),
		TotalVotingPower:  uint256.NewInt(total),
		QuorumVotingPower: uint256.NewInt(quorum),
	}
}

// --- NewEpochState ---

func TestNewEpochState_DefaultQuorum(t *testing.T) {
	tests := []struct {
		powers []uint64
		total  uint64
		quorum uint64
	}{
		{[]uint64{25, 25, 25, 25}, 100, 67},
		{[]uint64{1}, 1, 1},
		{[]uint64{1, 1, 1}, 3, 3},
		{[]uint64{10, 20, 30}, 60, 41},
	}
	for _, tt := range tests {
		es, err := NewEpochState(1, fakeValidators(tt.powers...))
		if err != nil {
			t.Fatalf("powers %v: %v", tt.powers, err)
		}
		if es.TotalVotingPower.Uint64() != tt.total || es.QuorumVotingPower.Uint64() != tt.quorum {
			t.Errorf("powers %v: total %s quorum %s, want %d/%d",
				tt.powers, es.TotalVotingPower, es.QuorumVotingPower, tt.total, tt.quorum)
		}
	}
}

func TestNewEpochState_Empty(t *testing.T) {
	if _, err := NewEpochState(1, nil); !errors.Is(err, ErrInvalidValidatorSet) {
		t.Fatalf("err = %v, want ErrInvalidValidatorSet", err)
	}
}

// --- Validate ---

func TestEpochState_Validate(t *testing.T) {
	dupKeys := rawState(1, 20, 14, 10, 10)
	dupKeys.Validators[1].PublicKey = dupKeys.Validators[0].PublicKey

	shortKey := rawState(1, 10, 7, 10)
	shortKey.Validators[0].PublicKey = shortKey.Validators[0].PublicKey[:95]

	huge := rawState(1, 0, 0, 1)
	huge.TotalVotingPower = new(uint256.Int).Lsh(uint256.NewInt(1), 130)
	huge.QuorumVotingPower = huge.TotalVotingPower.Clone()

	tests := []struct {
		name string
		es   *EpochState
		want error
	}{
		{"valid 67 of 100", rawState(1, 100, 67, 25, 25, 25, 25), nil},
		{"quorum equals total", rawState(1, 100, 100, 25, 25, 25, 25), nil},
		{"exactly two thirds", rawState(1, 3, 2, 1, 1, 1), ErrInvalidQuorum},
		{"quorum 66 of 100", rawState(1, 100, 66, 25, 25, 25, 25), ErrInvalidQuorum},
		{"quorum above total", rawState(1, 100, 101, 25, 25, 25, 25), ErrInvalidQuorum},
		{"sum mismatch", rawState(1, 99, 67, 25, 25, 25, 25), ErrInvalidQuorum},
		{"zero power", rawState(1, 50, 34, 50, 0), ErrInvalidValidatorSet},
		{"no validators", rawState(1, 0, 0), ErrInvalidValidatorSet},
		{"duplicate key", dupKeys, ErrInvalidValidatorSet},
		{"short key", shortKey, ErrInvalidValidatorSet},
		{"above 128 bits", huge, ErrInvalidQuorum},
		{"missing totals", &EpochState{Epoch: 1, Validators: fakeValidators(1)}, ErrInvalidQuorum},
	}
	for _, tt := range tests {
		err := tt.es.Validate()
		if tt.want == nil && err != nil {
			t.Errorf("%s: unexpected error %v", tt.name, err)
		}
		if tt.want != nil && !errors.Is(err, tt.want) {
			t.Errorf("%s: err = %v, want %v", tt.name, err, tt.want)
		}
	}
}

func TestEpochState_ValidatePublicKeys(t *testing.T) {
	es := rawState(1, 10, 7, 10)
	if err := es.ValidatePublicKeys(crypto.GnarkBackend{}); !errors.Is(err, ErrInvalidValidatorSet) {
		t.Fatalf("err = %v, want ErrInvalidValidatorSet", err)
	}
	es.Validators[0].PublicKey = crypto.SecretKeyFromSeed([]byte("v")).PublicKey()
	if err := es.ValidatePublicKeys(crypto.GnarkBackend{}); err != nil {
		t.Fatalf("real key rejected: %v", err)
	}
}

// --- SignerPower ---

func TestEpochState_SignerPower(t *testing.T) {
	es := rawState(1, 100, 67, 10, 20, 30, 40)
	bits := bitfield.NewBitlist(4)
	bits.SetBitAt(1, true)
	bits.SetBitAt(3, true)
	power, err := es.SignerPower(bits)
	if err != nil {
		t.Fatalf("SignerPower: %v", err)
	}
	if power.Uint64() != 60 {
		t.Fatalf("power = %s, want 60", power)
	}

	for _, n := range []uint64{0, 3, 5} {
		if _, err := es.SignerPower(bitfield.NewBitlist(n)); !errors.Is(err, ErrMalformedBitmask) {
			t.Errorf("len %d: err = %v, want ErrMalformedBitmask", n, err)
		}
	}
	if _, err := es.SignerPower(nil); !errors.Is(err, ErrMalformedBitmask) {
		t.Errorf("nil bitlist: err = %v, want ErrMalformedBitmask", err)
	}
}

// --- Hash and Copy ---

func TestEpochState_HashCoversFields(t *testing.T) {
	base := rawState(1, 100, 67, 25, 25, 25, 25)
	h := base.Hash()

	mutations := map[string]func(es *EpochState){
		"epoch":   func(es *EpochState) { es.Epoch++ },
		"power":   func(es *EpochState) { es.Validators[0].VotingPower++ },
		"key":     func(es *EpochState) { es.Validators[2].PublicKey[5] ^= 1 },
		"address": func(es *EpochState) { es.Validators[3].Address[0] ^= 1 },
		"quorum":  func(es *EpochState) { es.QuorumVotingPower = uint256.NewInt(68) },
		"total":   func(es *EpochState) { es.TotalVotingPower = uint256.NewInt(101) },
		"order": func(es *EpochState) {
			es.Validators[0], es.Validators[1] = es.Validators[1], es.Validators[0]
		},
	}
	for name, mutate := range mutations {
		cpy := base.Copy()
		mutate(cpy)
		if cpy.Hash() == h {
			t.Errorf("hash ignores %s", name)
		}
	}
	if base.Hash() != h {
		t.Fatal("mutating a copy changed the original")
	}
}

func TestEpochState_EncodeLayout(t *testing.T) {
	es := rawState(7, 100, 67, 25, 25, 25, 25)
	enc := es.Encode()
	want := 8 + 4 + 4*(crypto.PublicKeySize+8+20) + 32 + 32
	if len(enc) != want {
		t.Fatalf("encoding is %d bytes, want %d", len(enc), want)
	}
	if enc[0] != 7 || enc[8] != 4 {
		t.Fatalf("epoch or count not little-endian: % x", enc[:12])
	}
	if enc[len(enc)-1] != 67 || enc[len(enc)-33] != 100 {
		t.Fatal("totals not big-endian 32-byte words")
	}
}
