package crypto

import (
	"errors"
	"io"
	"math/big"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
)

// Signing is not part of verification. These helpers exist for tooling that
// produces fixtures (waypoints, signed updates) and for tests.

var (
	ErrInvalidSecretKey = errors.New("bls: invalid secret key")
	ErrNoSignatures     = errors.New("bls: no signatures to aggregate")
)

// SecretKey is a BLS12-381 scalar in [1, r).
type SecretKey struct {
	s big.Int
}

// GenerateKey draws a secret key from rand.
func GenerateKey(rand io.Reader) (*SecretKey, error) {
	// 48 bytes keeps the modular bias negligible.
	buf := make([]byte, 48)
	if _, err := io.ReadFull(rand, buf); err != nil {
		return nil, err
	}
	return secretFromWide(buf), nil
}

// SecretKeyFromSeed deterministically derives a secret key from seed.
func SecretKeyFromSeed(seed []byte) *SecretKey {
	lo := SHA3([]byte("lo"), seed)
	hi := SHA3([]byte("hi"), seed)
	return secretFromWide(append(hi[:], lo[:]...))
}

// SecretKeyFromBytes decodes a 32-byte big-endian scalar.
func SecretKeyFromBytes(b []byte) (*SecretKey, error) {
	if len(b) != SecretKeySize {
		return nil, ErrInvalidSecretKey
	}
	sk := new(SecretKey)
	sk.s.SetBytes(b)
	if sk.s.Sign() == 0 || sk.s.Cmp(fr.Modulus()) >= 0 {
		return nil, ErrInvalidSecretKey
	}
	return sk, nil
}

func secretFromWide(b []byte) *SecretKey {
	sk := new(SecretKey)
	sk.s.SetBytes(b)
	// Map into [1, r).
	r := fr.Modulus()
	sk.s.Mod(&sk.s, new(big.Int).Sub(r, big.NewInt(1)))
	sk.s.Add(&sk.s, big.NewInt(1))
	return sk
}

// Bytes returns the 32-byte big-endian encoding of the scalar.
func (sk *SecretKey) Bytes() []byte {
	out := make([]byte, SecretKeySize)
	sk.s.FillBytes(out)
	return out
}

// PublicKey returns the compressed G2 public key sk * g2.
func (sk *SecretKey) PublicKey() []byte {
	_, _, _, g2 := bls12381.Generators()
	var pk bls12381.G2Affine
	pk.ScalarMultiplication(&g2, &sk.s)
	out := pk.Bytes()
	return out[:]
}

// Sign returns the compressed G1 signature sk * H(msg).
func (sk *SecretKey) Sign(msg []byte) ([]byte, error) {
	h, err := bls12381.HashToG1(msg, SignatureDST)
	if err != nil {
		return nil, err
	}
	var sig bls12381.G1Affine
	sig.ScalarMultiplication(&h, &sk.s)
	out := sig.Bytes()
	return out[:], nil
}

// AggregateSignatures sums compressed G1 signatures.
func AggregateSignatures(sigs [][]byte) ([]byte, error) {
	if len(sigs) == 0 {
		return nil, ErrNoSignatures
	}
	var acc bls12381.G1Jac
	for i, raw := range sigs {
		p, err := gnarkG1(raw, ErrInvalidSignature)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			acc.FromAffine(p)
			continue
		}
		acc.AddMixed(p)
	}
	var agg bls12381.G1Affine
	agg.FromJacobian(&acc)
	out := agg.Bytes()
	return out[:], nil
}
