package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/ethdb/memorydb"

	"github.com/bomba-atomica/atomica-sub003/light"
	"github.com/bomba-atomica/atomica-sub003/light/lighttest"
	"github.com/bomba-atomica/atomica-sub003/log"
)

func TestDBStore_Empty(t *testing.T) {
	s := NewMemory()
	defer s.Close()
	if _, err := s.LoadState(); !errors.Is(err, light.ErrNoTrustedState) {
		t.Fatalf("err = %v, want ErrNoTrustedState", err)
	}
	epochs, err := s.LoadEpochs()
	if err != nil || len(epochs) != 0 {
		t.Fatalf("LoadEpochs = %v, %v", epochs, err)
	}
}

func TestDBStore_SaveLoad(t *testing.T) {
	s := NewMemory()
	defer s.Close()

	// Epoch 256 sorts after epoch 2 only with a fixed-width key.
	for _, e := range []uint64{256, 2, 1} {
		es := lighttest.NewCommittee(e, 10, 20, 30).State
		state := &light.TrustedState{Version: e * 10, Epoch: e, Timestamp: 7}
		if err := s.SaveState(state, es); err != nil {
			t.Fatalf("SaveState(%d): %v", e, err)
		}
	}
	if err := s.SaveState(&light.TrustedState{Version: 9999, Epoch: 256}, nil); err != nil {
		t.Fatalf("SaveState without epoch: %v", err)
	}

	state, err := s.LoadState()
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if state.Version != 9999 || state.Epoch != 256 {
		t.Fatalf("state = %+v", state)
	}
	epochs, err := s.LoadEpochs()
	if err != nil {
		t.Fatalf("LoadEpochs: %v", err)
	}
	if len(epochs) != 3 || epochs[0].Epoch != 1 || epochs[1].Epoch != 2 || epochs[2].Epoch != 256 {
		t.Fatalf("epochs out of order: %d entries", len(epochs))
	}
	want := lighttest.NewCommittee(2, 10, 20, 30).State
	if epochs[1].Hash() != want.Hash() {
		t.Fatal("stored epoch differs after decoding")
	}
	if err := epochs[1].Validate(); err != nil {
		t.Fatalf("decoded epoch invalid: %v", err)
	}
}

func TestDBStore_CorruptEpochKey(t *testing.T) {
	db := memorydb.New()
	s := New(db)
	es := lighttest.NewCommittee(5, 1).State
	if err := s.SaveState(&light.TrustedState{Epoch: 5}, es); err != nil {
		t.Fatalf("SaveState: %v", err)
	}
	// Move the record under another epoch's key.
	enc, _ := db.Get(epochKey(5))
	db.Put(epochKey(6), enc)
	db.Delete(epochKey(5))
	if _, err := s.LoadEpochs(); err == nil {
		t.Fatal("mismatched epoch key accepted")
	}
}

func TestDBStore_LevelDBRestoresClient(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db")
	s, err := OpenLevelDB(path, 16, 16)
	if err != nil {
		t.Fatalf("OpenLevelDB: %v", err)
	}

	c := lighttest.NewCommittee(1, 25, 25, 25, 25)
	client := light.NewClient(light.WithStore(s), light.WithLogger(log.Discard()))
	if err := client.Initialize(c.Waypoint(100, 1)); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := client.UpdateState(c.SignUpdate(lighttest.NewUpdate(101, 1, 2), 0, 1, 2)); err != nil {
		t.Fatalf("UpdateState: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = OpenLevelDB(path, 16, 16)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	restored := light.NewClient(light.WithStore(s), light.WithLogger(log.Discard()))
	if err := restored.Restore(); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if got := restored.TrustedState(); got.Version != 101 || got.Epoch != 1 {
		t.Fatalf("restored state = %+v", got)
	}
}
