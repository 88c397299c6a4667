// BLS12-381 group operations behind a swappable backend.
//
// The light client verifies aggregate signatures in the "min-sig" arrangement:
//
//   - public keys in G2 (96-byte compressed)
//   - signatures and hashed messages in G1 (48-byte compressed)
//   - hash-to-curve: RFC 9380 SSWU with SignatureDST
//
// A signature is accepted iff e(sig, g2) == e(H(msg), pk), where g2 is the G2
// generator and pk is the sum of the signers' public keys. Both backends use
// the ZCash compressed point encoding, so keys and signatures produced by one
// are accepted by the other. The blst backend needs cgo and is only compiled
// in with -tags blst.

package crypto

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Encoding sizes of the min-sig scheme.
const (
	PublicKeySize = 96 // compressed G2
	SignatureSize = 48 // compressed G1
	SecretKeySize = 32 // big-endian scalar
)

// SignatureDST is the domain separation tag for hashing messages into G1.
var SignatureDST = []byte("BLS_SIG_BLS12381G1_XMD:SHA-256_SSWU_RO_POP_")

// Curve backend errors.
var (
	ErrInvalidPublicKey = errors.New("bls: invalid public key")
	ErrInvalidSignature = errors.New("bls: invalid signature")
	ErrInvalidPoint     = errors.New("bls: invalid curve point")
	ErrNoPublicKeys     = errors.New("bls: no public keys to aggregate")
	ErrUnknownBackend   = errors.New("bls: unknown curve backend")
)

// CurveBackend exposes the pairing-friendly group operations needed to verify
// an aggregate signature. Points cross the interface in compressed form.
type CurveBackend interface {
	// Name returns a short identifier for the backend.
	Name() string

	// ValidatePublicKey decodes a compressed G2 point and rejects the point
	// at infinity and points outside the prime-order subgroup.
	ValidatePublicKey(pk []byte) error

	// AggregatePublicKeys returns the compressed sum of the given G2 points.
	AggregatePublicKeys(pks [][]byte) ([]byte, error)

	// HashToSignatureGroup maps msg to a compressed G1 point under
	// SignatureDST.
	HashToSignatureGroup(msg []byte) ([]byte, error)

	// PairingCheck reports whether e(sig, g2) == e(hashed, pk).
	PairingCheck(sig, hashed, pk []byte) (bool, error)
}

var (
	activeCurveMu      sync.RWMutex
	activeCurveBackend CurveBackend = GnarkBackend{}
)

// DefaultCurveBackend returns the process-wide curve backend.
func DefaultCurveBackend() CurveBackend {
	activeCurveMu.RLock()
	defer activeCurveMu.RUnlock()
	return activeCurveBackend
}

// SetCurveBackend replaces the process-wide curve backend. Passing nil resets
// it to the pure-Go backend.
func SetCurveBackend(b CurveBackend) {
	activeCurveMu.Lock()
	defer activeCurveMu.Unlock()
	if b == nil {
		b = GnarkBackend{}
	}
	activeCurveBackend = b
}

// curveBackends holds the backends compiled into this binary. The blst
// backend registers itself when built with -tags blst.
var curveBackends = map[string]CurveBackend{
	GnarkBackend{}.Name(): GnarkBackend{},
}

func registerCurveBackend(b CurveBackend) {
	curveBackends[b.Name()] = b
}

// CurveBackends returns the compiled-in backends ordered by name.
func CurveBackends() []CurveBackend {
	out := make([]CurveBackend, 0, len(curveBackends))
	for _, b := range curveBackends {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// CurveBackendByName resolves a backend by the name used in configuration.
// The empty name selects the pure-Go backend.
func CurveBackendByName(name string) (CurveBackend, error) {
	if name == "" {
		return GnarkBackend{}, nil
	}
	if b, ok := curveBackends[name]; ok {
		return b, nil
	}
	if name == "blst" {
		return nil, fmt.Errorf("%w: %q (rebuild with -tags blst)", ErrUnknownBackend, name)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
}
