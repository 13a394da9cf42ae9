package mobility

import "testing"

func TestMoveReflectsAtUpperBound(t *testing.T) {
	m := Model{DirX: Positive, DirY: None, Velocity: 5}
	x, y := m.Move(98, 0, 100, 100)
	if x != 100 {
		t.Fatalf("expected clamp to area bound 100, got %v", x)
	}
	if y != 0 {
		t.Fatalf("expected stationary Y axis to remain 0, got %v", y)
	}
	if m.DirX != Negative {
		t.Fatalf("expected direction to reverse to Negative, got %v", m.DirX)
	}

	x2, _ := m.Move(x, y, 100, 100)
	if x2 != 95 {
		t.Fatalf("expected reversed travel to 95, got %v", x2)
	}
}

func TestMoveReflectsAtLowerBound(t *testing.T) {
	m := Model{DirX: Negative, DirY: None, Velocity: 3}
	x, _ := m.Move(2, 0, 100, 100)
	if x != 0 {
		t.Fatalf("expected clamp to 0, got %v", x)
	}
	if m.DirX != Positive {
		t.Fatalf("expected direction to reverse to Positive, got %v", m.DirX)
	}
}

func TestMoveYDownwardsIsIncreasing(t *testing.T) {
	m := Model{DirX: None, DirY: Positive, Velocity: 1}
	_, y := m.Move(0, 0, 100, 100)
	if y != 1 {
		t.Fatalf("expected downwards motion to increase Y, got %v", y)
	}
}

func TestMoveNoneAxisStationary(t *testing.T) {
	m := Model{DirX: None, DirY: None, Velocity: 10}
	x, y := m.Move(50, 50, 100, 100)
	if x != 50 || y != 50 {
		t.Fatalf("expected no movement, got (%v, %v)", x, y)
	}
}
