package light

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
)

// EncodeUpdate returns the canonical RLP encoding of u.
func EncodeUpdate(u *Update) ([]byte, error) {
	return rlp.EncodeToBytes(u)
}

// DecodeUpdate decodes an RLP-encoded update. Decoding performs no
// verification.
func DecodeUpdate(b []byte) (*Update, error) {
	u := new(Update)
	if err := rlp.DecodeBytes(b, u); err != nil {
		return nil, fmt.Errorf("%w: decode update: %v", ErrMalformedProof, err)
	}
	return u, nil
}

// EncodeWaypoint returns the canonical RLP encoding of w.
func EncodeWaypoint(w *Waypoint) ([]byte, error) {
	return rlp.EncodeToBytes(w)
}

// DecodeWaypoint decodes an RLP-encoded waypoint.
func DecodeWaypoint(b []byte) (*Waypoint, error) {
	w := new(Waypoint)
	if err := rlp.DecodeBytes(b, w); err != nil {
		return nil, fmt.Errorf("light: decode waypoint: %w", err)
	}
	return w, nil
}
