package light

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"

	"github.com/bomba-atomica/atomica-sub003/accumulator"
	"github.com/bomba-atomica/atomica-sub003/crypto"
	"github.com/bomba-atomica/atomica-sub003/log"
	"github.com/bomba-atomica/atomica-sub003/smt"
)

// ErrNoStore is returned by Restore on a client without a store.
var ErrNoStore = errors.New("light: no store configured")

// Option configures a Client.
type Option func(*Client)

// WithCurveBackend selects the curve backend used for signature checks.
func WithCurveBackend(b crypto.CurveBackend) Option {
	return func(c *Client) { c.backend = b }
}

// WithKeyCache reuses aggregated signer keys across updates.
func WithKeyCache(kc *KeyCache) Option {
	return func(c *Client) { c.keyCache = kc }
}

// WithLogger sets the client logger. Nil discards log output.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l == nil {
			l = log.Discard()
		}
		c.log = l
	}
}

// WithMetrics sets the metrics sink. Nil disables metrics.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		if m == nil {
			m = NopMetrics()
		}
		c.metrics = m
	}
}

// WithStore persists every accepted state to s.
func WithStore(s Store) Option {
	return func(c *Client) { c.store = s }
}

// WithMaxUpdateAge rejects updates whose ledger timestamp is older than d.
// Zero disables the check.
func WithMaxUpdateAge(d time.Duration) Option {
	return func(c *Client) { c.maxAge = d }
}

// WithClock overrides the time source used by the maximum age check.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// Client is the light client state machine. It starts uninitialized, is
// initialized once from a waypoint (or restored from its store) and then
// advances only through verified updates.
//
// Initialize, Restore and UpdateState are serialized. Queries read an
// immutable snapshot of the trusted state and never block on writers.
type Client struct {
	mu       sync.Mutex // serializes writers
	pubMu    sync.Mutex // orders publication of accepted updates; taken before mu is released
	state    atomic.Pointer[TrustedState]
	registry *EpochRegistry
	verifier *SignatureVerifier
	backend  crypto.CurveBackend
	keyCache *KeyCache

	store   Store
	log     *log.Logger
	metrics *Metrics
	feed    event.Feed
	maxAge  time.Duration
	now     func() time.Time
}

// NewClient creates an uninitialized client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		registry: NewEpochRegistry(),
		log:      log.Default().Module("light"),
		metrics:  NopMetrics(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.verifier = NewCachingSignatureVerifier(c.backend, c.keyCache)
	return c
}

// Initialized reports whether the client holds a trusted state.
func (c *Client) Initialized() bool {
	return c.state.Load() != nil
}

// TrustedState returns a copy of the current trusted state, or nil before
// initialization.
func (c *Client) TrustedState() *TrustedState {
	s := c.state.Load()
	if s == nil {
		return nil
	}
	cpy := *s
	return &cpy
}

// Epoch returns the registered validator set of epoch n.
func (c *Client) Epoch(n uint64) (*EpochState, bool) {
	es, ok := c.registry.Get(n)
	if !ok {
		return nil, false
	}
	return es.Copy(), true
}

// Epochs lists the registered epochs in ascending order.
func (c *Client) Epochs() []uint64 {
	return c.registry.Epochs()
}

// SubscribeUpdates delivers an UpdateEvent to ch after each accepted update.
// Events arrive in version order. Delivery is synchronous with UpdateState
// returning, so ch should be buffered and drained by a goroutine that does
// not itself call UpdateState.
func (c *Client) SubscribeUpdates(ch chan<- UpdateEvent) event.Subscription {
	return c.feed.Subscribe(ch)
}

// Initialize trusts w and registers its validator set. Only the internal
// consistency of w is checked.
func (c *Client) Initialize(w *Waypoint) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Load() != nil {
		return ErrAlreadyInitialized
	}
	if w == nil || w.EpochState == nil {
		return fmt.Errorf("%w: waypoint without validator set", ErrInvalidValidatorSet)
	}
	if w.EpochState.Epoch != w.Epoch {
		return fmt.Errorf("%w: waypoint epoch %d, validator set epoch %d", ErrInvalidValidatorSet, w.Epoch, w.EpochState.Epoch)
	}
	if err := w.EpochState.Validate(); err != nil {
		return err
	}
	if err := w.EpochState.ValidatePublicKeys(c.verifier.Backend()); err != nil {
		return err
	}
	state := w.TrustedState()
	if c.store != nil {
		if err := c.store.SaveState(state, w.EpochState); err != nil {
			return fmt.Errorf("light: persist waypoint: %w", err)
		}
	}
	if err := c.registry.Register(w.EpochState); err != nil {
		return err
	}
	c.state.Store(state)
	c.metrics.TrustedVersion.Set(float64(state.Version))
	c.metrics.TrustedEpoch.Set(float64(state.Epoch))
	c.log.Info("initialized from waypoint", "version", state.Version, "epoch", state.Epoch,
		"validators", len(w.EpochState.Validators))
	return nil
}

// Restore initializes the client from its store.
func (c *Client) Restore() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Load() != nil {
		return ErrAlreadyInitialized
	}
	if c.store == nil {
		return ErrNoStore
	}
	state, err := c.store.LoadState()
	if err != nil {
		return err
	}
	epochs, err := c.store.LoadEpochs()
	if err != nil {
		return err
	}
	// Check everything before touching the live registry.
	staged := NewEpochRegistry()
	for _, es := range epochs {
		if err := staged.Register(es); err != nil {
			return fmt.Errorf("light: stored epoch %d: %w", es.Epoch, err)
		}
	}
	if !staged.Has(state.Epoch) {
		return fmt.Errorf("%w: stored state references epoch %d", ErrUnknownEpoch, state.Epoch)
	}
	for _, es := range epochs {
		if err := c.registry.Register(es); err != nil {
			return err
		}
	}
	c.state.Store(state)
	c.metrics.TrustedVersion.Set(float64(state.Version))
	c.metrics.TrustedEpoch.Set(float64(state.Epoch))
	c.log.Info("restored trusted state", "version", state.Version, "epoch", state.Epoch, "epochs", len(epochs))
	return nil
}

// UpdateState verifies u against the trusted state and, if every check
// passes, makes it the new trusted state. A rejected update changes nothing.
func (c *Client) UpdateState(u *Update) error {
	c.mu.Lock()
	ev, err := c.applyUpdate(u)
	if err != nil {
		c.mu.Unlock()
		reason := ErrorReason(err)
		c.metrics.UpdatesRejected.With("reason", reason).Add(1)
		c.log.Debug("update rejected", "reason", reason, "err", err)
		return err
	}
	// Hand over to pubMu so gauges and events follow version order while the
	// next writer already verifies.
	c.pubMu.Lock()
	c.mu.Unlock()
	defer c.pubMu.Unlock()

	c.metrics.UpdatesAccepted.Add(1)
	c.metrics.TrustedVersion.Set(float64(ev.Version))
	c.metrics.TrustedEpoch.Set(float64(ev.Epoch))
	if ev.EpochChange {
		c.metrics.EpochChanges.Add(1)
	}
	c.log.Info("update accepted", "version", ev.Version, "epoch", ev.Epoch, "stateRoot", ev.StateRoot)
	c.feed.Send(*ev)
	return nil
}

func (c *Client) applyUpdate(u *Update) (*UpdateEvent, error) {
	if u == nil {
		return nil, fmt.Errorf("%w: nil update", ErrMalformedProof)
	}
	cur := c.state.Load()
	if cur == nil {
		return nil, ErrNotInitialized
	}
	if u.Version <= cur.Version {
		return nil, fmt.Errorf("%w: version %d, trusted %d", ErrStaleUpdate, u.Version, cur.Version)
	}
	current, ok := c.registry.Get(cur.Epoch)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownEpoch, cur.Epoch)
	}

	start := time.Now()
	err := c.verifier.Verify(u.LedgerInfoDigest, u.Proof, current)
	c.metrics.SignatureVerifySeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	if digest := u.LedgerInfo().Digest(); digest != u.LedgerInfoDigest {
		return nil, fmt.Errorf("%w: signed %x, computed %x", ErrDigestMismatch, u.LedgerInfoDigest, digest)
	}
	if c.maxAge > 0 {
		if age := c.now().Sub(time.UnixMicro(int64(u.Timestamp))); age > c.maxAge {
			return nil, fmt.Errorf("%w: age %s", ErrUpdateExpired, age)
		}
	}

	var next *EpochState
	switch {
	case u.Epoch < cur.Epoch:
		return nil, fmt.Errorf("%w: epoch %d before trusted %d", ErrUnexpectedEpochChange, u.Epoch, cur.Epoch)
	case u.Epoch == cur.Epoch:
		if u.EpochChange != nil {
			return nil, fmt.Errorf("%w: validator set supplied within epoch %d", ErrUnexpectedEpochChange, u.Epoch)
		}
	default:
		if u.EpochChange == nil {
			return nil, fmt.Errorf("%w: epoch %d", ErrMissingEpochChangeData, u.Epoch)
		}
		if u.Epoch != cur.Epoch+1 || u.EpochChange.Epoch != u.Epoch {
			return nil, fmt.Errorf("%w: trusted %d, update %d, validator set %d",
				ErrUnexpectedEpochChange, cur.Epoch, u.Epoch, u.EpochChange.Epoch)
		}
		if err := u.EpochChange.Validate(); err != nil {
			return nil, err
		}
		if err := u.EpochChange.ValidatePublicKeys(c.verifier.Backend()); err != nil {
			return nil, err
		}
		if c.registry.Has(u.Epoch) {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateEpoch, u.Epoch)
		}
		next = u.EpochChange
	}

	state := u.TrustedState()
	if c.store != nil {
		if err := c.store.SaveState(state, next); err != nil {
			return nil, fmt.Errorf("light: persist trusted state: %w", err)
		}
	}
	if next != nil {
		if err := c.registry.Register(next); err != nil {
			return nil, err
		}
		c.log.Info("epoch change", "epoch", next.Epoch, "validators", len(next.Validators),
			"quorum", next.QuorumVotingPower.String())
	}
	c.state.Store(state)

	return &UpdateEvent{
		Version:     state.Version,
		StateRoot:   state.StateRoot,
		Epoch:       state.Epoch,
		EpochChange: next != nil,
	}, nil
}

// VerifyAccumulatorInclusion reports whether leafHash is in the trusted
// accumulator at the position given by proof.
func (c *Client) VerifyAccumulatorInclusion(leafHash common.Hash, proof *accumulator.Proof) bool {
	s := c.state.Load()
	ok := s != nil && proof.Verify(s.AccumulatorRoot, leafHash) == nil
	c.observeQuery("accumulator", ok)
	return ok
}

// VerifySparseInclusion reports whether key maps to valueHash in the
// trusted state tree.
func (c *Client) VerifySparseInclusion(key, valueHash common.Hash, proof *smt.Proof) bool {
	s := c.state.Load()
	ok := s != nil && proof.VerifyInclusion(s.StateRoot, key, valueHash) == nil
	c.observeQuery("inclusion", ok)
	return ok
}

// VerifyNonInclusion reports whether key is absent from the trusted state
// tree.
func (c *Client) VerifyNonInclusion(key common.Hash, proof *smt.Proof) bool {
	s := c.state.Load()
	ok := s != nil && proof.VerifyNonInclusion(s.StateRoot, key) == nil
	c.observeQuery("non_inclusion", ok)
	return ok
}

func (c *Client) observeQuery(kind string, ok bool) {
	result := "invalid"
	if ok {
		result = "valid"
	}
	c.metrics.ProofQueries.With("kind", kind, "result", result).Add(1)
}
