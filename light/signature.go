package light

// Aggregate signature verification for ledger info digests.
//
// Validators sign the 32-byte digest with BLS12-381 in the min-sig setting:
// public keys live in G2, signatures and hashed messages in G1. A proof is
// accepted when the signers named by the bitmask hold at least the quorum of
// voting power and e(sig, g2) == e(H(digest), sum of signer keys).

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bomba-atomica/atomica-sub003/crypto"
)

// SignatureVerifier checks aggregate signatures against an epoch's
// validator set. Apart from the optional key cache it holds no mutable state.
type SignatureVerifier struct {
	backend crypto.CurveBackend
	keys    *KeyCache
}

// NewSignatureVerifier creates a verifier on backend, or on the process
// default backend when backend is nil.
func NewSignatureVerifier(backend crypto.CurveBackend) *SignatureVerifier {
	return NewCachingSignatureVerifier(backend, nil)
}

// NewCachingSignatureVerifier is like NewSignatureVerifier but reuses
// aggregated public keys from keys. A nil cache disables caching.
func NewCachingSignatureVerifier(backend crypto.CurveBackend, keys *KeyCache) *SignatureVerifier {
	if backend == nil {
		backend = crypto.DefaultCurveBackend()
	}
	return &SignatureVerifier{backend: backend, keys: keys}
}

// Backend returns the curve backend in use.
func (v *SignatureVerifier) Backend() crypto.CurveBackend { return v.backend }

// Verify checks that proof carries a quorum signature over message by the
// validators of es. The quorum is checked before any curve operation.
func (v *SignatureVerifier) Verify(message common.Hash, proof *AggregateProof, es *EpochState) error {
	if proof == nil {
		return fmt.Errorf("%w: nil proof", ErrInvalidSignature)
	}
	power, err := es.SignerPower(proof.Signers)
	if err != nil {
		return err
	}
	if proof.Message != message {
		return fmt.Errorf("%w: proof signs %x, expected %x", ErrInvalidSignature, proof.Message, message)
	}
	if power.Lt(es.QuorumVotingPower) {
		return fmt.Errorf("%w: %s of %s", ErrQuorumNotMet, power, es.QuorumVotingPower)
	}

	aggKey, err := v.aggregateKey(proof, es)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	hashed, err := v.backend.HashToSignatureGroup(message[:])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	ok, err := v.backend.PairingCheck(proof.Signature, hashed, aggKey)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if !ok {
		return ErrInvalidSignature
	}
	return nil
}

func (v *SignatureVerifier) aggregateKey(proof *AggregateProof, es *EpochState) ([]byte, error) {
	var ck keyCacheKey
	if v.keys != nil {
		ck = keyCacheKey{set: es.Hash(), signers: string(proof.Signers)}
		if aggKey, ok := v.keys.get(ck); ok {
			return aggKey, nil
		}
	}
	keys := make([][]byte, 0, proof.Signers.Count())
	for i, val := range es.Validators {
		if proof.Signers.BitAt(uint64(i)) {
			keys = append(keys, val.PublicKey)
		}
	}
	aggKey, err := v.backend.AggregatePublicKeys(keys)
	if err != nil {
		return nil, err
	}
	if v.keys != nil {
		v.keys.add(ck, aggKey)
	}
	return aggKey, nil
}
