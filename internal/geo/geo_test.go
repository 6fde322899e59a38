package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIoU(t *testing.T) {
	tests := []struct {
		name string
		a, b BoundingBox
		want float64
	}{
		{"identical", BoundingBox{0, 0, 100, 100}, BoundingBox{0, 0, 100, 100}, 1},
		{"disjoint", BoundingBox{0, 0, 10, 10}, BoundingBox{20, 20, 30, 30}, 0},
		{"touching edges", BoundingBox{0, 0, 10, 10}, BoundingBox{10, 0, 20, 10}, 0},
		{"small shift", BoundingBox{0, 0, 100, 100}, BoundingBox{5, 5, 105, 105}, 9025.0 / 10975.0},
		{"half overlap", BoundingBox{0, 0, 10, 10}, BoundingBox{5, 0, 15, 10}, 50.0 / 150.0},
		{"degenerate", BoundingBox{0, 0, 0, 10}, BoundingBox{0, 0, 10, 10}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, IoU(tt.a, tt.b), 1e-9)
			assert.InDelta(t, tt.want, IoU(tt.b, tt.a), 1e-9)
		})
	}

	assert.InDelta(t, 0.82, IoU(BoundingBox{0, 0, 100, 100}, BoundingBox{5, 5, 105, 105}), 0.01)
}

func TestBoundingBoxValid(t *testing.T) {
	assert.True(t, BoundingBox{1, 2, 3, 4}.Valid())
	assert.False(t, BoundingBox{3, 2, 1, 4}.Valid())
	assert.False(t, BoundingBox{1, 4, 3, 4}.Valid())
	assert.False(t, BoundingBox{math.NaN(), 0, 1, 1}.Valid())
	assert.False(t, BoundingBox{0, 0, math.Inf(1), 1}.Valid())
	assert.Zero(t, BoundingBox{3, 2, 1, 4}.Area())
}

func TestBoundingBoxPoints(t *testing.T) {
	b := BoundingBox{Left: 10, Top: 20, Right: 30, Bottom: 60}
	assert.Equal(t, Point{X: 20, Y: 40}, b.Center())
	assert.Equal(t, Point{X: 20, Y: 20}, b.TopMid())
}

func TestProjectIdentity(t *testing.T) {
	p := NewProjector(DefaultLandscapeTopOffset)
	box := BoundingBox{Left: 12.5, Top: 40, Right: 200, Bottom: 480}
	size := Size{Width: 480, Height: 640}

	assert.Equal(t, box, p.Project(box, size, size, 0))
}

func TestProjectScalesEachAxis(t *testing.T) {
	p := NewProjector(DefaultLandscapeTopOffset)
	box := BoundingBox{Left: 10, Top: 10, Right: 20, Bottom: 40}

	got := p.Project(box, Size{Width: 100, Height: 200}, Size{Width: 200, Height: 300}, 0)
	assert.Equal(t, BoundingBox{Left: 20, Top: 15, Right: 40, Bottom: 60}, got)
}

func TestProjectLandscapeOffset(t *testing.T) {
	p := NewProjector(DefaultLandscapeTopOffset)
	size := Size{Width: 640, Height: 480}

	t.Run("subtracts offset", func(t *testing.T) {
		got := p.Project(BoundingBox{Left: 0, Top: 100, Right: 50, Bottom: 200}, size, size, 0)
		assert.Equal(t, 20.0, got.Top)
		assert.Equal(t, 200.0, got.Bottom)
	})

	t.Run("clamps at zero", func(t *testing.T) {
		got := p.Project(BoundingBox{Left: 0, Top: 30, Right: 50, Bottom: 200}, size, size, 0)
		assert.Equal(t, 0.0, got.Top)
	})

	t.Run("custom offset", func(t *testing.T) {
		got := NewProjector(10).Project(BoundingBox{Left: 0, Top: 30, Right: 50, Bottom: 200}, size, size, 0)
		assert.Equal(t, 20.0, got.Top)
	})

	t.Run("scale keeps the unadjusted top", func(t *testing.T) {
		box := BoundingBox{Left: 0, Top: 100, Right: 50, Bottom: 200}
		scaled := p.Scale(box, size, size, 0)
		assert.Equal(t, box, scaled)
		assert.Equal(t, p.Project(box, size, size, 0), p.Overlay(scaled, size))
	})

	t.Run("portrait overlay is a no-op", func(t *testing.T) {
		box := BoundingBox{Left: 0, Top: 100, Right: 50, Bottom: 200}
		assert.Equal(t, box, p.Overlay(box, Size{Width: 480, Height: 640}))
	})
}

func TestProjectEmptyDetectorSize(t *testing.T) {
	p := NewProjector(DefaultLandscapeTopOffset)
	box := BoundingBox{Left: 1, Top: 2, Right: 3, Bottom: 4}

	assert.Equal(t, box, p.Project(box, Size{}, Size{Width: 100, Height: 200}, 0))
}

func TestProjectRotation(t *testing.T) {
	p := NewProjector(0)
	sensor := Size{Width: 200, Height: 100}
	box := BoundingBox{Left: 10, Top: 20, Right: 30, Bottom: 60}

	tests := []struct {
		degrees int
		out     Size
		want    BoundingBox
	}{
		{90, Size{Width: 100, Height: 200}, BoundingBox{Left: 40, Top: 10, Right: 80, Bottom: 30}},
		{180, Size{Width: 200, Height: 100}, BoundingBox{Left: 170, Top: 40, Right: 190, Bottom: 80}},
		{270, Size{Width: 100, Height: 200}, BoundingBox{Left: 20, Top: 170, Right: 60, Bottom: 190}},
		{-90, Size{Width: 100, Height: 200}, BoundingBox{Left: 20, Top: 170, Right: 60, Bottom: 190}},
		{45, Size{Width: 200, Height: 100}, box},
	}

	for _, tt := range tests {
		got := p.Project(box, sensor, tt.out, tt.degrees)
		assert.Equal(t, tt.want, got, "orientation %d", tt.degrees)
	}
}

func TestNormalizeOrientation(t *testing.T) {
	assert.Equal(t, 0, NormalizeOrientation(0))
	assert.Equal(t, 90, NormalizeOrientation(450))
	assert.Equal(t, 270, NormalizeOrientation(-90))
	assert.Equal(t, 0, NormalizeOrientation(30))
}
