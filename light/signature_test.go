package light_test

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bomba-atomica/atomica-sub003/crypto"
	"github.com/bomba-atomica/atomica-sub003/light"
	"github.com/bomba-atomica/atomica-sub003/light/lighttest"
)

var backends = crypto.CurveBackends()

// quorumCommittee has total power 100 and quorum 67.
func quorumCommittee() *lighttest.Committee {
	return lighttest.NewCommittee(1, 33, 33, 34)
}

func TestSignatureVerifier_QuorumBoundary(t *testing.T) {
	c := quorumCommittee()
	if c.State.QuorumVotingPower.Uint64() != 67 {
		t.Fatalf("quorum = %s, want 67", c.State.QuorumVotingPower)
	}
	msg := common.HexToHash("0xabcdef")

	for _, b := range backends {
		t.Run(b.Name(), func(t *testing.T) {
			v := light.NewSignatureVerifier(b)

			// 66 of 100 with a valid signature.
			if err := v.Verify(msg, c.Sign(msg, 0, 1), c.State); !errors.Is(err, light.ErrQuorumNotMet) {
				t.Fatalf("66: err = %v, want ErrQuorumNotMet", err)
			}
			// 67 of 100.
			if err := v.Verify(msg, c.Sign(msg, 0, 2), c.State); err != nil {
				t.Fatalf("67: %v", err)
			}
			// Everyone.
			if err := v.Verify(msg, c.Sign(msg, c.All()...), c.State); err != nil {
				t.Fatalf("100: %v", err)
			}
		})
	}
}

func TestSignatureVerifier_CorruptedSignature(t *testing.T) {
	c := quorumCommittee()
	msg := common.HexToHash("0x01")

	for _, b := range backends {
		t.Run(b.Name(), func(t *testing.T) {
			v := light.NewSignatureVerifier(b)

			// A valid point signing another message.
			proof := c.Sign(msg, 0, 2)
			proof.Signature = c.Sign(common.HexToHash("0x02"), 0, 2).Signature
			if err := v.Verify(msg, proof, c.State); !errors.Is(err, light.ErrInvalidSignature) {
				t.Fatalf("wrong message signature: err = %v", err)
			}

			// Bytes that do not decode.
			proof = c.Sign(msg, 0, 2)
			proof.Signature = append([]byte(nil), proof.Signature...)
			proof.Signature[0] ^= 0x20
			proof.Signature[5] ^= 0xff
			if err := v.Verify(msg, proof, c.State); !errors.Is(err, light.ErrInvalidSignature) {
				t.Fatalf("garbled signature: err = %v", err)
			}

			proof.Signature = nil
			if err := v.Verify(msg, proof, c.State); !errors.Is(err, light.ErrInvalidSignature) {
				t.Fatalf("empty signature: err = %v", err)
			}
		})
	}
}

func TestSignatureVerifier_SignerSetMismatch(t *testing.T) {
	c := quorumCommittee()
	msg := common.HexToHash("0x03")
	v := light.NewSignatureVerifier(nil)

	// Signed by {0, 2} but claims {1, 2}: same power, wrong keys.
	proof := c.Sign(msg, 0, 2)
	proof.Signers = c.Signers(1, 2)
	if err := v.Verify(msg, proof, c.State); !errors.Is(err, light.ErrInvalidSignature) {
		t.Fatalf("err = %v, want ErrInvalidSignature", err)
	}
}

func TestSignatureVerifier_MalformedBitmask(t *testing.T) {
	c := quorumCommittee()
	other := lighttest.NewCommittee(1, 25, 25, 25, 25)
	msg := common.HexToHash("0x04")
	v := light.NewSignatureVerifier(nil)

	proof := c.Sign(msg, c.All()...)
	proof.Signers = other.Signers(0, 1, 2)
	if err := v.Verify(msg, proof, c.State); !errors.Is(err, light.ErrMalformedBitmask) {
		t.Fatalf("err = %v, want ErrMalformedBitmask", err)
	}
}

func TestSignatureVerifier_MessageMismatch(t *testing.T) {
	c := quorumCommittee()
	v := light.NewSignatureVerifier(nil)
	proof := c.Sign(common.HexToHash("0x05"), c.All()...)
	if err := v.Verify(common.HexToHash("0x06"), proof, c.State); !errors.Is(err, light.ErrInvalidSignature) {
		t.Fatalf("err = %v, want ErrInvalidSignature", err)
	}
	if err := v.Verify(common.HexToHash("0x06"), nil, c.State); !errors.Is(err, light.ErrInvalidSignature) {
		t.Fatalf("nil proof: err = %v", err)
	}
}

func TestSignatureVerifier_QuorumBeforeCurve(t *testing.T) {
	c := quorumCommittee()
	msg := common.HexToHash("0x07")
	proof := c.Sign(msg, 0)
	proof.Signature = []byte("not a point")
	// The quorum failure is reported, not the undecodable signature.
	if err := light.NewSignatureVerifier(nil).Verify(msg, proof, c.State); !errors.Is(err, light.ErrQuorumNotMet) {
		t.Fatalf("err = %v, want ErrQuorumNotMet", err)
	}
}
