package light

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

func TestTrustedState_Time(t *testing.T) {
	s := &TrustedState{Timestamp: 1_700_000_000_123_456}
	want := time.Unix(1_700_000_000, 123_456_000)
	if !s.Time().Equal(want) {
		t.Errorf("Time = %v, want %v", s.Time(), want)
	}
}

func TestWaypoint_TrustedState(t *testing.T) {
	w := &Waypoint{
		Version:         7,
		StateRoot:       common.Hash{1},
		AccumulatorRoot: common.Hash{2},
		Timestamp:       3,
		Epoch:           4,
	}
	got := w.TrustedState()
	want := TrustedState{Version: 7, StateRoot: common.Hash{1}, AccumulatorRoot: common.Hash{2}, Epoch: 4, Timestamp: 3}
	if *got != want {
		t.Errorf("TrustedState = %+v, want %+v", *got, want)
	}
}

func TestUpdate_LedgerInfo(t *testing.T) {
	next, err := NewEpochState(5, fakeValidators(1, 1, 1))
	if err != nil {
		t.Fatal(err)
	}
	u := &Update{
		Version:         9,
		StateRoot:       common.Hash{1},
		AccumulatorRoot: common.Hash{2},
		Epoch:           5,
		Timestamp:       6,
		EpochChange:     next,
	}
	li := u.LedgerInfo()
	if li.Version != 9 || li.Epoch != 5 || li.Timestamp != 6 || li.StateRoot != u.StateRoot || li.AccumulatorRoot != u.AccumulatorRoot {
		t.Errorf("LedgerInfo = %+v", li)
	}
	if li.NextEpochState != next {
		t.Error("LedgerInfo should carry the epoch change")
	}

	// The epoch change is part of what gets signed.
	plain := *u
	plain.EpochChange = nil
	if plain.LedgerInfo().Digest() == li.Digest() {
		t.Error("digest ignores the epoch change")
	}

	ts := u.TrustedState()
	if ts.Version != 9 || ts.Epoch != 5 || ts.Timestamp != 6 || ts.StateRoot != u.StateRoot {
		t.Errorf("TrustedState = %+v", ts)
	}
}
