package geo

import "math"

// Size размеры кадра или области вывода
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Empty сообщает, что у размера нет площади
func (s Size) Empty() bool {
	return !(s.Width > 0 && s.Height > 0)
}

// Landscape true, когда ширина больше высоты
func (s Size) Landscape() bool {
	return s.Width > s.Height
}

// Point точка в пространстве координат кадра
type Point struct {
	X float64
	Y float64
}

// BoundingBox прямоугольник (left, top, right, bottom) в одном пространстве координат
type BoundingBox struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// Width ширина прямоугольника
func (b BoundingBox) Width() float64 {
	return b.Right - b.Left
}

// Height высота прямоугольника
func (b BoundingBox) Height() float64 {
	return b.Bottom - b.Top
}

// Area площадь, 0 для вырожденных прямоугольников
func (b BoundingBox) Area() float64 {
	if !b.Valid() {
		return 0
	}
	return b.Width() * b.Height()
}

// Valid проверяет, что координаты конечны и площадь положительна
func (b BoundingBox) Valid() bool {
	for _, v := range [...]float64{b.Left, b.Top, b.Right, b.Bottom} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.Right > b.Left && b.Bottom > b.Top
}

// Center центр прямоугольника
func (b BoundingBox) Center() Point {
	return Point{X: (b.Left + b.Right) / 2, Y: (b.Top + b.Bottom) / 2}
}

// TopMid середина верхней грани
func (b BoundingBox) TopMid() Point {
	return Point{X: (b.Left + b.Right) / 2, Y: b.Top}
}

// IoU отношение площади пересечения к площади объединения двух прямоугольников
func IoU(a, b BoundingBox) float64 {
	if !a.Valid() || !b.Valid() {
		return 0
	}

	inter := BoundingBox{
		Left:   math.Max(a.Left, b.Left),
		Top:    math.Max(a.Top, b.Top),
		Right:  math.Min(a.Right, b.Right),
		Bottom: math.Min(a.Bottom, b.Bottom),
	}
	interArea := inter.Area()
	if interArea == 0 {
		return 0
	}

	union := a.Area() + b.Area() - interArea
	if union <= 0 {
		return 0
	}
	return interArea / union
}
