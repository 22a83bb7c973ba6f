package main

import "math"

// AABB is an axis-aligned box given by its center and half extents
type AABB struct {
	Center Vec2
	Half   Vec2
}

// Overlaps reports whether two boxes intersect (touching counts)
func (a AABB) Overlaps(b AABB) bool {
	return math.Abs(a.Center.X-b.Center.X) <= a.Half.X+b.Half.X &&
		math.Abs(a.Center.Y-b.Center.Y) <= a.Half.Y+b.Half.Y
}

// Contains reports whether p lies inside the box
func (a AABB) Contains(p Vec2) bool {
	return math.Abs(p.X-a.Center.X) <= a.Half.X && math.Abs(p.Y-a.Center.Y) <= a.Half.Y
}

// segmentAABBIntersect clips the segment start→end against the box (slab method).
// Returns the entry fraction in [0,1] and whether the segment hits the box.
func segmentAABBIntersect(start, end Vec2, box AABB) (float64, bool) {
	if box.Contains(start) {
		return 0, true
	}
	tMin, tMax := 0.0, 1.0
	d := end.Sub(start)
	lo := box.Center.Sub(box.Half)
	hi := box.Center.Add(box.Half)

	axes := [2]struct{ s, d, lo, hi float64 }{
		{start.X, d.X, lo.X, hi.X},
		{start.Y, d.Y, lo.Y, hi.Y},
	}
	for _, ax := range axes {
		if ax.d == 0 {
			if ax.s < ax.lo || ax.s > ax.hi {
				return 0, false
			}
			continue
		}
		t1 := (ax.lo - ax.s) / ax.d
		t2 := (ax.hi - ax.s) / ax.d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tMin = math.Max(tMin, t1)
		tMax = math.Min(tMax, t2)
		if tMin > tMax {
			return 0, false
		}
	}
	return tMin, true
}
