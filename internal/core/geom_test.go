package core

import (
	"math"
	"testing"
)

func TestRectContains(t *testing.T) {
	r := Rect{X: 0, Y: 0, W: 100, H: 50}

	tests := []struct {
		name     string
		x, y     float64
		expected bool
	}{
		{"inside", 10, 10, true},
		{"top-left corner", 0, 0, true},
		{"bottom-right corner", 100, 50, true},
		{"left of rect", -1, 10, false},
		{"below rect", 10, 51, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Contains(tt.x, tt.y); got != tt.expected {
				t.Errorf("Contains(%v, %v) = %v, expected %v", tt.x, tt.y, got, tt.expected)
			}
		})
	}
}

func TestRectExpandAndClamp(t *testing.T) {
	r := Rect{W: 100, H: 100}.Expand(10)
	if r.X != -10 || r.Right() != 110 {
		t.Errorf("unexpected expanded rect %+v", r)
	}

	x, y := Rect{W: 100, H: 100}.ClampPoint(-5, 150)
	if x != 0 || y != 100 {
		t.Errorf("ClampPoint = (%v, %v), expected (0, 100)", x, y)
	}
}

func TestVecNormalize(t *testing.T) {
	v := Vec{3, 4}.Normalize()
	if math.Abs(v.Len()-1) > 1e-9 {
		t.Errorf("expected unit length, got %v", v.Len())
	}
	if (Vec{}).Normalize() != (Vec{}) {
		t.Error("zero vector should stay zero")
	}
}

func TestVecOps(t *testing.T) {
	a, b := Vec{1, 2}, Vec{3, -1}
	if a.Add(b) != (Vec{4, 1}) {
		t.Errorf("Add = %v", a.Add(b))
	}
	if a.Sub(b) != (Vec{-2, 3}) {
		t.Errorf("Sub = %v", a.Sub(b))
	}
	if a.Dot(b) != 1 {
		t.Errorf("Dot = %v", a.Dot(b))
	}
	if a.Scale(2) != (Vec{2, 4}) {
		t.Errorf("Scale = %v", a.Scale(2))
	}
	d := FromAngle(math.Pi / 2)
	if math.Abs(d.X) > 1e-9 || math.Abs(d.Y-1) > 1e-9 {
		t.Errorf("FromAngle(pi/2) = %v", d)
	}
}

func TestDist(t *testing.T) {
	if Dist(0, 0, 3, 4) != 5 {
		t.Errorf("Dist = %v, expected 5", Dist(0, 0, 3, 4))
	}
	if DistSq(0, 0, 3, 4) != 25 {
		t.Errorf("DistSq = %v, expected 25", DistSq(0, 0, 3, 4))
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		val, min, max, expected int
	}{
		{5, 0, 10, 5},
		{-5, 0, 10, 0},
		{15, 0, 10, 10},
	}

	for _, tt := range tests {
		if got := Clamp(tt.val, tt.min, tt.max); got != tt.expected {
			t.Errorf("Clamp(%d, %d, %d) = %d, expected %d", tt.val, tt.min, tt.max, got, tt.expected)
		}
	}
	if ClampF(1.5, 0, 1) != 1 {
		t.Error("ClampF should cap at max")
	}
}
