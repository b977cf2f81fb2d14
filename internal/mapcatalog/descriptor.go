// Package mapcatalog loads immutable map descriptors from a directory of
// YAML files and exposes lookup by id, keyed by filename stem, with the
// first-loaded map winning as the default.
package mapcatalog

import "github.com/meridian-games/arena/config"

// Point is a 2D world-space coordinate.
type Point struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

// Size is a map's world dimensions in (w,h).
type Size struct {
	W int `yaml:"w" json:"w"`
	H int `yaml:"h" json:"h"`
}

// Polygon is a non-empty list of points describing a static obstacle. The
// server only ever collides against its axis-aligned bounding rectangle.
type Polygon struct {
	Points []Point `yaml:"points" json:"points"`
}

// AABB is an axis-aligned bounding box. Each polygon's AABB is memoized at
// load time by Descriptor.precomputeBounds so the hot collision path in
// internal/simulation never recomputes it per tick.
type AABB struct {
	MinX, MinY, MaxX, MaxY float64
}

func (p Polygon) bounds() AABB {
	if len(p.Points) == 0 {
		return AABB{}
	}
	b := AABB{MinX: p.Points[0].X, MaxX: p.Points[0].X, MinY: p.Points[0].Y, MaxY: p.Points[0].Y}
	for _, pt := range p.Points[1:] {
		if pt.X < b.MinX {
			b.MinX = pt.X
		}
		if pt.X > b.MaxX {
			b.MaxX = pt.X
		}
		if pt.Y < b.MinY {
			b.MinY = pt.Y
		}
		if pt.Y > b.MaxY {
			b.MaxY = pt.Y
		}
	}
	return b
}

// Descriptor is an immutable description of one map: identity, world size,
// static collision geometry, and spawn points.
type Descriptor struct {
	ID          string    `yaml:"-" json:"id"`
	Name        string    `yaml:"name" json:"name"`
	Size        Size      `yaml:"size" json:"size"`
	Objects     []Polygon `yaml:"objects" json:"objects"`
	SpawnPoints []Point   `yaml:"spawn_points" json:"spawn_points"`

	bounds []AABB
}

// Bounds returns the memoized AABB for each object, in the same order as
// Objects.
func (d *Descriptor) Bounds() []AABB {
	return d.bounds
}

func (d *Descriptor) precomputeBounds() {
	d.bounds = make([]AABB, len(d.Objects))
	for i, obj := range d.Objects {
		d.bounds[i] = obj.bounds()
	}
}

// SpawnFor deterministically assigns a spawn point by player count:
// len(players) % len(spawn_points).
func (d *Descriptor) SpawnFor(playerCount int) Point {
	if len(d.SpawnPoints) == 0 {
		return Point{X: config.PlayerHalfSize, Y: config.PlayerHalfSize}
	}
	return d.SpawnPoints[playerCount%len(d.SpawnPoints)]
}
