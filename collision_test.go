package main

import (
	"math"
	"testing"
)

func TestAABBOverlaps(t *testing.T) {
	a := AABB{Center: Vec2{0, 0}, Half: Vec2{1, 1}}

	if !a.Overlaps(AABB{Center: Vec2{1.5, 0}, Half: Vec2{1, 1}}) {
		t.Error("expected overlap")
	}
	if !a.Overlaps(AABB{Center: Vec2{2, 0}, Half: Vec2{1, 1}}) {
		t.Error("touching boxes should overlap")
	}
	if a.Overlaps(AABB{Center: Vec2{2.1, 0}, Half: Vec2{1, 1}}) {
		t.Error("separated boxes should not overlap")
	}
	if a.Overlaps(AABB{Center: Vec2{0, 3}, Half: Vec2{1, 1}}) {
		t.Error("vertically separated boxes should not overlap")
	}
}

func TestAABBContains(t *testing.T) {
	a := AABB{Center: Vec2{2, 2}, Half: Vec2{1, 0.5}}
	if !a.Contains(Vec2{2.9, 2.4}) {
		t.Error("expected point inside")
	}
	if a.Contains(Vec2{2, 2.6}) {
		t.Error("expected point outside")
	}
}

func TestSegmentAABBHit(t *testing.T) {
	box := AABB{Center: Vec2{5, 0}, Half: Vec2{1, 1}}

	frac, hit := segmentAABBIntersect(Vec2{0, 0}, Vec2{10, 0}, box)
	if !hit {
		t.Fatal("expected hit")
	}
	if math.Abs(frac-0.4) > 1e-9 {
		t.Errorf("expected entry at 0.4, got %v", frac)
	}
}

func TestSegmentAABBMiss(t *testing.T) {
	box := AABB{Center: Vec2{5, 0}, Half: Vec2{1, 1}}

	if _, hit := segmentAABBIntersect(Vec2{0, 2}, Vec2{10, 2}, box); hit {
		t.Error("segment above the box should miss")
	}
	if _, hit := segmentAABBIntersect(Vec2{0, 0}, Vec2{3, 0}, box); hit {
		t.Error("segment ending before the box should miss")
	}
	if _, hit := segmentAABBIntersect(Vec2{0, -3}, Vec2{10, 3.1}, AABB{Center: Vec2{1, 2}, Half: Vec2{0.5, 0.5}}); hit {
		t.Error("diagonal segment passing below should miss")
	}
}

func TestSegmentAABBStartsInside(t *testing.T) {
	box := AABB{Center: Vec2{0, 0}, Half: Vec2{1, 1}}
	frac, hit := segmentAABBIntersect(Vec2{0, 0}, Vec2{5, 5}, box)
	if !hit || frac != 0 {
		t.Errorf("expected hit at 0, got %v %v", frac, hit)
	}
}

func TestSegmentAABBVertical(t *testing.T) {
	box := AABB{Center: Vec2{0, -0.5}, Half: Vec2{3, 0.5}}
	if _, hit := segmentAABBIntersect(Vec2{1, 0.5}, Vec2{1, -1}, box); !hit {
		t.Error("downward probe should hit the platform")
	}
	if _, hit := segmentAABBIntersect(Vec2{4, 0.5}, Vec2{4, -1}, box); hit {
		t.Error("probe past the edge should miss")
	}
}
