// Package store persists light client state in a go-ethereum key-value
// database. Only the trusted state and the registered epochs are written.
package store

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/ethdb/leveldb"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/bomba-atomica/atomica-sub003/light"
	"github.com/bomba-atomica/atomica-sub003/log"
)

var (
	trustedStateKey = []byte("TrustedState")
	epochPrefix     = []byte("e") // epochPrefix + epoch (uint64 big endian) -> EpochState
)

// epochKey = epochPrefix + epoch (uint64 big endian)
func epochKey(epoch uint64) []byte {
	return binary.BigEndian.AppendUint64(append([]byte(nil), epochPrefix...), epoch)
}

// DBStore implements light.Store on an ethdb.KeyValueStore.
type DBStore struct {
	db  ethdb.KeyValueStore
	log *log.Logger
}

var _ light.Store = (*DBStore)(nil)

// New wraps db.
func New(db ethdb.KeyValueStore) *DBStore {
	return &DBStore{db: db, log: log.Default().Module("store")}
}

// NewMemory returns a store backed by an in-memory database.
func NewMemory() *DBStore {
	return New(memorydb.New())
}

// OpenLevelDB opens (or creates) a LevelDB store at path.
func OpenLevelDB(path string, cache, handles int) (*DBStore, error) {
	db, err := leveldb.New(path, cache, handles, "lightclient/db/", false)
	if err != nil {
		return nil, errors.Wrapf(err, "open leveldb at %s", path)
	}
	s := New(db)
	s.log.Info("opened database", "path", path, "cache", cache, "handles", handles)
	return s, nil
}

// SaveState implements light.Store. The state and the new epoch are written
// in one batch.
func (s *DBStore) SaveState(state *light.TrustedState, newEpoch *light.EpochState) error {
	batch := s.db.NewBatch()
	enc, err := rlp.EncodeToBytes(state)
	if err != nil {
		return errors.Wrap(err, "encode trusted state")
	}
	if err := batch.Put(trustedStateKey, enc); err != nil {
		return errors.Wrap(err, "put trusted state")
	}
	if newEpoch != nil {
		enc, err := rlp.EncodeToBytes(newEpoch)
		if err != nil {
			return errors.Wrapf(err, "encode epoch %d", newEpoch.Epoch)
		}
		if err := batch.Put(epochKey(newEpoch.Epoch), enc); err != nil {
			return errors.Wrapf(err, "put epoch %d", newEpoch.Epoch)
		}
	}
	if err := batch.Write(); err != nil {
		return errors.Wrap(err, "write batch")
	}
	s.log.Debug("saved trusted state", "version", state.Version, "epoch", state.Epoch, "newEpoch", newEpoch != nil)
	return nil
}

// LoadState implements light.Store.
func (s *DBStore) LoadState() (*light.TrustedState, error) {
	ok, err := s.db.Has(trustedStateKey)
	if err != nil {
		return nil, errors.Wrap(err, "read trusted state")
	}
	if !ok {
		return nil, light.ErrNoTrustedState
	}
	enc, err := s.db.Get(trustedStateKey)
	if err != nil {
		return nil, errors.Wrap(err, "read trusted state")
	}
	state := new(light.TrustedState)
	if err := rlp.DecodeBytes(enc, state); err != nil {
		return nil, errors.Wrap(err, "decode trusted state")
	}
	return state, nil
}

// LoadEpochs implements light.Store. Keys sort by epoch, so the iterator
// yields epochs in ascending order.
func (s *DBStore) LoadEpochs() ([]*light.EpochState, error) {
	it := s.db.NewIterator(epochPrefix, nil)
	defer it.Release()

	var out []*light.EpochState
	for it.Next() {
		key := it.Key()
		if len(key) != len(epochPrefix)+8 {
			continue
		}
		es := new(light.EpochState)
		if err := rlp.DecodeBytes(it.Value(), es); err != nil {
			return nil, errors.Wrapf(err, "decode epoch at key %x", key)
		}
		if want := binary.BigEndian.Uint64(key[len(epochPrefix):]); es.Epoch != want {
			return nil, errors.Errorf("epoch %d stored under key for epoch %d", es.Epoch, want)
		}
		out = append(out, es)
	}
	if err := it.Error(); err != nil {
		return nil, errors.Wrap(err, "iterate epochs")
	}
	return out, nil
}

// Close closes the underlying database.
func (s *DBStore) Close() error {
	return s.db.Close()
}
