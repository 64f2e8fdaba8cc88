package games

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestTowerMultiplierLadder(t *testing.T) {
	// multiplier(r) = floor((0.99 * 1.5^r) * 10000) / 10000, 1.0 at r=0
	cases := []struct {
		rows int
		want float64
	}{
		{0, 1.0},
		{1, 1.4849},
		{2, 2.2275},
		{3, 3.3412},
		{5, 7.5178},
		{9, 38.0589},
	}
	for _, tc := range cases {
		if got := towerMultiplier(tc.rows); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("towerMultiplier(%d) = %v, want %v", tc.rows, got, tc.want)
		}
	}
}

func TestTowerGoldenLayout(t *testing.T) {
	sess, err := (&TowerGame{}).Begin(newTestGen(7), nil)
	if err != nil {
		t.Fatal(err)
	}
	ts := sess.(*towerSession)

	want := []int{0, 0, 2, 1, 2, 0, 0, 0, 2}
	if !reflect.DeepEqual(ts.Bombs, want) {
		t.Errorf("bombs = %v, want %v", ts.Bombs, want)
	}
	if ts.DrawCount != 9 {
		t.Errorf("draw count = %d, want 9", ts.DrawCount)
	}
}

func TestTowerClimbOrder(t *testing.T) {
	s := &towerSession{Bombs: []int{2, 2, 2, 2, 2, 2, 2, 2, 2}}

	if _, err := s.Apply("climb", map[string]any{"row": 1.0, "col": 0.0}); !errors.Is(err, ErrInvalidAction) {
		t.Errorf("skipping row 0: err = %v, want ErrInvalidAction", err)
	}
	if _, err := s.Apply("climb", map[string]any{"row": 0.0, "col": 3.0}); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("col 3: err = %v, want ErrInvalidParams", err)
	}
	if _, err := s.Apply("climb", map[string]any{"row": 0.0}); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("missing col: err = %v, want ErrInvalidParams", err)
	}

	if _, err := s.Apply("climb", map[string]any{"row": 0.0, "col": 0.0}); err != nil {
		t.Fatal(err)
	}
	if s.RowsCleared != 1 {
		t.Errorf("rows cleared = %d, want 1", s.RowsCleared)
	}
}

func TestTowerBust(t *testing.T) {
	s := &towerSession{Bombs: []int{1, 0, 0, 0, 0, 0, 0, 0, 0}}

	if _, err := s.Apply("climb", map[string]any{"row": 0.0, "col": 1.0}); err != nil {
		t.Fatal(err)
	}
	if !s.Finished() {
		t.Fatal("not finished after hitting a bomb")
	}
	res := s.Result()
	if res.Multiplier != 0 {
		t.Errorf("multiplier = %v, want 0", res.Multiplier)
	}
	if res.Payload["busted"] != true {
		t.Error("payload busted flag not set")
	}

	if _, err := s.Apply("climb", map[string]any{"row": 1.0, "col": 0.0}); !errors.Is(err, ErrInvalidAction) {
		t.Errorf("action after settle: err = %v, want ErrInvalidAction", err)
	}
}

func TestTowerFullClimbAutoSettles(t *testing.T) {
	s := &towerSession{Bombs: []int{0, 0, 0, 0, 0, 0, 0, 0, 0}}

	for row := 0; row < towerRows; row++ {
		if _, err := s.Apply("climb", map[string]any{"row": float64(row), "col": 1.0}); err != nil {
			t.Fatalf("row %d: %v", row, err)
		}
	}
	if !s.Finished() {
		t.Fatal("not finished after clearing every row")
	}
	if got := s.Result().Multiplier; math.Abs(got-38.0589) > 1e-9 {
		t.Errorf("multiplier = %v, want 38.0589", got)
	}
}

func TestTowerCashoutMidClimb(t *testing.T) {
	s := &towerSession{Bombs: []int{0, 0, 0, 0, 0, 0, 0, 0, 0}}

	for row := 0; row < 2; row++ {
		if _, err := s.Apply("climb", map[string]any{"row": float64(row), "col": 1.0}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.Apply("cashout", nil); err != nil {
		t.Fatal(err)
	}
	if got := s.Result().Multiplier; math.Abs(got-2.2275) > 1e-9 {
		t.Errorf("multiplier = %v, want 2.2275", got)
	}
}

func TestTowerImmediateCashoutPaysStakeBack(t *testing.T) {
	res, err := (&TowerGame{}).Play(newTestGen(7), nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Multiplier != 1.0 {
		t.Errorf("multiplier = %v, want 1.0", res.Multiplier)
	}
	if res.DrawCount != 9 {
		t.Errorf("draw count = %d, want 9", res.DrawCount)
	}
}

func TestTowerViewHidesBombs(t *testing.T) {
	s := &towerSession{Bombs: []int{0, 0, 0, 0, 0, 0, 0, 0, 0}}

	if _, ok := s.View()["bombs"]; ok {
		t.Fatal("open session view exposes bomb layout")
	}

	if _, err := s.Apply("cashout", nil); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.View()["bombs"]; !ok {
		t.Error("settled view does not expose bomb layout")
	}
}

func TestTowerSnapshotRoundTrip(t *testing.T) {
	sess, err := (&TowerGame{}).Begin(newTestGen(7), nil)
	if err != nil {
		t.Fatal(err)
	}
	// Row 0 bomb is col 0 for this seed triple, so col 1 is safe.
	if _, err := sess.Apply("climb", map[string]any{"row": 0.0, "col": 1.0}); err != nil {
		t.Fatal(err)
	}

	snap, err := sess.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	restored, err := (&TowerGame{}).Resume(snap)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(restored.(*towerSession), sess.(*towerSession)) {
		t.Errorf("restored session %+v, want %+v", restored, sess)
	}
}

func TestTowerIdleActionIsCashout(t *testing.T) {
	s := &towerSession{Bombs: []int{0, 0, 0, 0, 0, 0, 0, 0, 0}}

	action, params := s.IdleAction()
	if action != "cashout" || params != nil {
		t.Fatalf("idle action = %q %v, want cashout", action, params)
	}
	if _, err := s.Apply(action, params); err != nil {
		t.Fatal(err)
	}
	if !s.Finished() {
		t.Error("idle action did not settle the session")
	}
}
