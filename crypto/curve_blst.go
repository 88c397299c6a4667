//go:build blst

// blst-backed curve operations.
//
// The supranational/blst library is assembly-accelerated and reached through
// cgo. Only the min-sig types are used here: P2Affine holds public keys and
// P1Affine holds signatures and hashed messages.
//
// Build with: go build -tags blst
// Test with:  go test -tags blst ./crypto/ ./light/

package crypto

import (
	"fmt"

	blst "github.com/supranational/blst/bindings/go"
)

func init() { registerCurveBackend(BlstBackend{}) }

// BlstBackend implements CurveBackend on top of the blst library.
type BlstBackend struct{}

// Name returns the backend identifier.
func (BlstBackend) Name() string { return "blst" }

// ValidatePublicKey implements CurveBackend.
func (BlstBackend) ValidatePublicKey(pk []byte) error {
	_, err := blstPublicKey(pk)
	return err
}

// AggregatePublicKeys implements CurveBackend.
func (BlstBackend) AggregatePublicKeys(pks [][]byte) ([]byte, error) {
	if len(pks) == 0 {
		return nil, ErrNoPublicKeys
	}
	agg := new(blst.P2Aggregate)
	for i, raw := range pks {
		p, err := blstPublicKey(raw)
		if err != nil {
			return nil, fmt.Errorf("public key %d: %w", i, err)
		}
		// Group membership was already checked by blstPublicKey.
		if !agg.Add(p, false) {
			return nil, fmt.Errorf("public key %d: %w", i, ErrInvalidPublicKey)
		}
	}
	out := agg.ToAffine()
	if !out.KeyValidate() {
		return nil, fmt.Errorf("%w: aggregate is the point at infinity", ErrInvalidPublicKey)
	}
	return out.Compress(), nil
}

// HashToSignatureGroup implements CurveBackend.
func (BlstBackend) HashToSignatureGroup(msg []byte) ([]byte, error) {
	p := blst.HashToG1(msg, SignatureDST)
	if p == nil {
		return nil, ErrInvalidPoint
	}
	return p.ToAffine().Compress(), nil
}

// PairingCheck implements CurveBackend by comparing the final
// exponentiations of the two Miller loops.
func (BlstBackend) PairingCheck(sig, hashed, pk []byte) (bool, error) {
	s, err := blstG1(sig, ErrInvalidSignature)
	if err != nil {
		return false, err
	}
	h, err := blstG1(hashed, ErrInvalidPoint)
	if err != nil {
		return false, err
	}
	q, err := blstPublicKey(pk)
	if err != nil {
		return false, err
	}
	g2 := blst.P2Generator().ToAffine()
	lhs := blst.Fp12MillerLoop(g2, s)
	rhs := blst.Fp12MillerLoop(q, h)
	return blst.Fp12FinalVerify(lhs, rhs), nil
}

func blstPublicKey(b []byte) (*blst.P2Affine, error) {
	if len(b) != PublicKeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidPublicKey, len(b), PublicKeySize)
	}
	p := new(blst.P2Affine).Uncompress(b)
	if p == nil {
		return nil, ErrInvalidPublicKey
	}
	// KeyValidate rejects infinity and checks subgroup membership.
	if !p.KeyValidate() {
		return nil, ErrInvalidPublicKey
	}
	return p, nil
}

func blstG1(b []byte, kind error) (*blst.P1Affine, error) {
	if len(b) != SignatureSize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", kind, len(b), SignatureSize)
	}
	p := new(blst.P1Affine).Uncompress(b)
	if p == nil {
		return nil, kind
	}
	if !p.SigValidate(true) {
		return nil, kind
	}
	return p, nil
}
