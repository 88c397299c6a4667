package crypto

import (
	"fmt"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
)

// GnarkBackend implements CurveBackend in pure Go on top of gnark-crypto.
// It is the default backend since it needs no cgo toolchain.
type GnarkBackend struct{}

// Name returns the backend identifier.
func (GnarkBackend) Name() string { return "gnark" }

// ValidatePublicKey implements CurveBackend.
func (GnarkBackend) ValidatePublicKey(pk []byte) error {
	_, err := gnarkPublicKey(pk)
	return err
}

// AggregatePublicKeys implements CurveBackend.
func (GnarkBackend) AggregatePublicKeys(pks [][]byte) ([]byte, error) {
	if len(pks) == 0 {
		return nil, ErrNoPublicKeys
	}
	var acc bls12381.G2Jac
	for i, raw := range pks {
		p, err := gnarkPublicKey(raw)
		if err != nil {
			return nil, fmt.Errorf("public key %d: %w", i, err)
		}
		if i == 0 {
			acc.FromAffine(p)
			continue
		}
		acc.AddMixed(p)
	}
	var agg bls12381.G2Affine
	agg.FromJacobian(&acc)
	if agg.IsInfinity() {
		return nil, fmt.Errorf("%w: aggregate is the point at infinity", ErrInvalidPublicKey)
	}
	out := agg.Bytes()
	return out[:], nil
}

// HashToSignatureGroup implements CurveBackend.
func (GnarkBackend) HashToSignatureGroup(msg []byte) ([]byte, error) {
	p, err := bls12381.HashToG1(msg, SignatureDST)
	if err != nil {
		return nil, err
	}
	out := p.Bytes()
	return out[:], nil
}

// PairingCheck implements CurveBackend by checking
// e(sig, g2) * e(-hashed, pk) == 1.
func (GnarkBackend) PairingCheck(sig, hashed, pk []byte) (bool, error) {
	s, err := gnarkG1(sig, ErrInvalidSignature)
	if err != nil {
		return false, err
	}
	h, err := gnarkG1(hashed, ErrInvalidPoint)
	if err != nil {
		return false, err
	}
	q, err := gnarkPublicKey(pk)
	if err != nil {
		return false, err
	}
	_, _, _, g2 := bls12381.Generators()

	var negH bls12381.G1Affine
	negH.Neg(h)
	return bls12381.PairingCheck(
		[]bls12381.G1Affine{*s, negH},
		[]bls12381.G2Affine{g2, *q},
	)
}

func gnarkPublicKey(b []byte) (*bls12381.G2Affine, error) {
	if len(b) != PublicKeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidPublicKey, len(b), PublicKeySize)
	}
	p := new(bls12381.G2Affine)
	if _, err := p.SetBytes(b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	if p.IsInfinity() || !p.IsInSubGroup() {
		return nil, ErrInvalidPublicKey
	}
	return p, nil
}

func gnarkG1(b []byte, kind error) (*bls12381.G1Affine, error) {
	if len(b) != SignatureSize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", kind, len(b), SignatureSize)
	}
	p := new(bls12381.G1Affine)
	if _, err := p.SetBytes(b); err != nil {
		return nil, fmt.Errorf("%w: %v", kind, err)
	}
	if p.IsInfinity() || !p.IsInSubGroup() {
		return nil, kind
	}
	return p, nil
}
