package water

// Mask булева сетка пониженного разрешения поверх координат кадра.
// At отвечает для любого пикселя полного разрешения.
type Mask struct {
	width  int
	height int
	stride int
	cols   int
	rows   int
	cells  []bool
}

// NewMask создает пустую маску (вся суша) для кадра width x height
func NewMask(width, height, stride int) *Mask {
	if stride < 1 {
		stride = 1
	}
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	cols := (width + stride - 1) / stride
	rows := (height + stride - 1) / stride
	return &Mask{
		width:  width,
		height: height,
		stride: stride,
		cols:   cols,
		rows:   rows,
		cells:  make([]bool, cols*rows),
	}
}

// Width ширина кадра в пикселях
func (m *Mask) Width() int { return m.width }

// Height высота кадра в пикселях
func (m *Mask) Height() int { return m.height }

// Stride шаг выборки
func (m *Mask) Stride() int { return m.stride }

// At сообщает, помечен ли пиксель как вода. Вне кадра всегда false.
func (m *Mask) At(x, y int) bool {
	if m == nil || x < 0 || y < 0 || x >= m.width || y >= m.height {
		return false
	}
	return m.cells[(y/m.stride)*m.cols+x/m.stride]
}

// Set помечает блок, содержащий пиксель (x, y)
func (m *Mask) Set(x, y int, water bool) {
	if m == nil || x < 0 || y < 0 || x >= m.width || y >= m.height {
		return
	}
	m.cells[(y/m.stride)*m.cols+x/m.stride] = water
}

// Coverage доля кадра, помеченная как вода
func (m *Mask) Coverage() float64 {
	if m == nil || m.width == 0 || m.height == 0 {
		return 0
	}
	waterPixels := 0
	for row := 0; row < m.rows; row++ {
		blockH := min(m.stride, m.height-row*m.stride)
		for col := 0; col < m.cols; col++ {
			if !m.cells[row*m.cols+col] {
				continue
			}
			blockW := min(m.stride, m.width-col*m.stride)
			waterPixels += blockW * blockH
		}
	}
	return float64(waterPixels) / float64(m.width*m.height)
}
