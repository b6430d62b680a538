package geometry

import (
	"math"
	"testing"
)

const epsilon = 1e-9

func TestAngle(t *testing.T) {
	tests := []struct {
		name    string
		a, b, c Point
		want    float64
	}{
		{
			name: "straight line",
			a:    Point{X: 0, Y: 0},
			b:    Point{X: 1, Y: 0},
			c:    Point{X: 2, Y: 0},
			want: 180,
		},
		{
			name: "right angle",
			a:    Point{X: 0, Y: 1},
			b:    Point{X: 0, Y: 0},
			c:    Point{X: 1, Y: 0},
			want: 90,
		},
		{
			name: "forty five degrees",
			a:    Point{X: 1, Y: 1},
			b:    Point{X: 0, Y: 0},
			c:    Point{X: 1, Y: 0},
			want: 45,
		},
		{
			name: "reflex is folded back below 180",
			a:    Point{X: -1, Y: -0.01},
			b:    Point{X: 0, Y: 0},
			c:    Point{X: -1, Y: 0.01},
			want: 2 * math.Atan(0.01) * 180 / math.Pi,
		},
		{
			name: "coincident points",
			a:    Point{X: 3, Y: 3},
			b:    Point{X: 3, Y: 3},
			c:    Point{X: 3, Y: 3},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Angle(tt.a, tt.b, tt.c)
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("Angle() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestAngle_SymmetricAndBounded(t *testing.T) {
	points := []Point{
		{X: 0, Y: 0}, {X: 1, Y: 2}, {X: -3, Y: 4}, {X: 5, Y: -1},
		{X: 0.25, Y: 0.75}, {X: -2, Y: -2}, {X: 10, Y: 0},
	}

	for i, a := range points {
		for j, b := range points {
			for k, c := range points {
				if i == j || j == k || i == k {
					continue
				}
				ab := Angle(a, b, c)
				ba := Angle(c, b, a)
				if math.Abs(ab-ba) > epsilon {
					t.Errorf("Angle(%v,%v,%v)=%f != Angle(%v,%v,%v)=%f", a, b, c, ab, c, b, a, ba)
				}
				if ab < 0 || ab > 180 {
					t.Errorf("Angle(%v,%v,%v)=%f out of [0,180]", a, b, c, ab)
				}
			}
		}
	}
}

func TestAngle_ScaleAndTranslationInvariant(t *testing.T) {
	a := Point{X: 0.3, Y: 0.2}
	b := Point{X: 0.5, Y: 0.6}
	c := Point{X: 0.4, Y: 0.9}
	base := Angle(a, b, c)

	shift := Point{X: 120, Y: -40}
	move := func(p Point) Point {
		return Point{X: p.X * 640, Y: p.Y * 640}.Add(shift)
	}
	moved := Angle(move(a), move(b), move(c))

	if math.Abs(base-moved) > 1e-6 {
		t.Errorf("scaled/translated angle = %f, want %f", moved, base)
	}
}

func TestDistance(t *testing.T) {
	p := Point{X: 1, Y: 2}
	q := Point{X: 4, Y: 6}

	if got := Distance(p, q); math.Abs(got-5) > epsilon {
		t.Errorf("Distance() = %f, want 5", got)
	}
	if Distance(p, q) != Distance(q, p) {
		t.Error("Distance should be symmetric")
	}
	if got := Distance(p, p); got != 0 {
		t.Errorf("Distance(p, p) = %f, want 0", got)
	}
}

func TestAxisAngle(t *testing.T) {
	tests := []struct {
		name string
		v    Point
		axis Point
		want float64
	}{
		{name: "aligned with vertical", v: Point{X: 0, Y: 5}, axis: Vertical, want: 0},
		{name: "opposite vertical", v: Point{X: 0, Y: -5}, axis: Vertical, want: 180},
		{name: "upright trunk against horizontal", v: Point{X: 0, Y: -3}, axis: Horizontal, want: 90},
		{name: "diagonal", v: Point{X: 1, Y: 1}, axis: Horizontal, want: 45},
		{name: "zero vector", v: Point{}, axis: Vertical, want: 0},
		{name: "zero axis", v: Point{X: 1, Y: 0}, axis: Point{}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AxisAngle(tt.v, tt.axis)
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("AxisAngle() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestPolar(t *testing.T) {
	p := Polar(Point{X: 1, Y: 1}, math.Pi/2, 2)
	if math.Abs(p.X-1) > epsilon || math.Abs(p.Y-3) > epsilon {
		t.Errorf("Polar() = %v, want {1 3}", p)
	}
}
