package geo

// DefaultLandscapeTopOffset сдвиг верхней грани в альбомной ориентации,
// компенсирует обрезку превью камеры
const DefaultLandscapeTopOffset = 80.0

// Projector переводит рамки детектора в пространство координат вывода
type Projector struct {
	landscapeTopOffset float64
}

// NewProjector создает новый проектор
func NewProjector(landscapeTopOffset float64) *Projector {
	return &Projector{landscapeTopOffset: landscapeTopOffset}
}

// Project переводит рамку из пространства детектора в рамку для оверлея:
// Scale, затем сдвиг верхней грани в альбомной ориентации.
func (p *Projector) Project(box BoundingBox, detectorSize, outputSize Size, orientationDegrees int) BoundingBox {
	return p.Overlay(p.Scale(box, detectorSize, outputSize, orientationDegrees), outputSize)
}

// Scale поворачивает и масштабирует рамку в пространство вывода без сдвига превью.
// orientationDegrees - поворот по часовой стрелке, который выпрямляет кадр детектора.
func (p *Projector) Scale(box BoundingBox, detectorSize, outputSize Size, orientationDegrees int) BoundingBox {
	box, detectorSize = rotate(box, detectorSize, orientationDegrees)

	scaleX, scaleY := 1.0, 1.0
	if !detectorSize.Empty() && !outputSize.Empty() {
		scaleX = outputSize.Width / detectorSize.Width
		scaleY = outputSize.Height / detectorSize.Height
	}

	return BoundingBox{
		Left:   box.Left * scaleX,
		Top:    box.Top * scaleY,
		Right:  box.Right * scaleX,
		Bottom: box.Bottom * scaleY,
	}
}

// Overlay сдвигает верхнюю грань для отрисовки: альбомное превью обрезано сверху.
// Положение относительно воды определяется по рамке до сдвига.
func (p *Projector) Overlay(box BoundingBox, outputSize Size) BoundingBox {
	if outputSize.Landscape() {
		box.Top -= p.landscapeTopOffset
		if box.Top < 0 {
			box.Top = 0
		}
	}
	return box
}

// NormalizeOrientation приводит угол к 0, 90, 180 или 270.
// Углы, не кратные 90, считаются нулевыми.
func NormalizeOrientation(degrees int) int {
	d := degrees % 360
	if d < 0 {
		d += 360
	}
	if d%90 != 0 {
		return 0
	}
	return d
}

// rotate поворачивает рамку внутри кадра размера size по часовой стрелке
func rotate(b BoundingBox, size Size, degrees int) (BoundingBox, Size) {
	w, h := size.Width, size.Height

	switch NormalizeOrientation(degrees) {
	case 90:
		// (x, y) -> (h - y, x)
		return BoundingBox{Left: h - b.Bottom, Top: b.Left, Right: h - b.Top, Bottom: b.Right}, Size{Width: h, Height: w}
	case 180:
		// (x, y) -> (w - x, h - y)
		return BoundingBox{Left: w - b.Right, Top: h - b.Bottom, Right: w - b.Left, Bottom: h - b.Top}, size
	case 270:
		// (x, y) -> (y, w - x)
		return BoundingBox{Left: b.Top, Top: w - b.Right, Right: b.Bottom, Bottom: w - b.Left}, Size{Width: h, Height: w}
	default:
		return b, size
	}
}
