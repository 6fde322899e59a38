// Package water строит грубую маску воды по цвету кадра.
package water

import "image"

const (
	// DefaultStride шаг выборки пикселей
	DefaultStride = 4
	// DefaultMinBlue синий канал должен быть строго больше этого значения
	DefaultMinBlue = 100
)

// Config параметры эвристики
type Config struct {
	Stride  int
	MinBlue uint8
}

// DefaultConfig возвращает параметры эвристики по умолчанию
func DefaultConfig() Config {
	return Config{Stride: DefaultStride, MinBlue: DefaultMinBlue}
}

// Classifier размечает кадр на воду и сушу
type Classifier struct {
	stride  int
	minBlue uint8
}

// NewClassifier создает классификатор. Шаг меньше 1 заменяется на 1.
func NewClassifier(cfg Config) *Classifier {
	stride := cfg.Stride
	if stride < 1 {
		stride = 1
	}
	return &Classifier{stride: stride, minBlue: cfg.MinBlue}
}

// IsWater проверяет один пиксель: B > MinBlue и B доминирует над R и G
func (c *Classifier) IsWater(r, g, b uint8) bool {
	return b > c.minBlue && b > r && b > g
}

// Classify строит маску для изображения. Каждый пиксель выборки закрашивает
// весь блок stride x stride, обрезанный по границам кадра.
func (c *Classifier) Classify(img image.Image) *Mask {
	if img == nil {
		return NewMask(0, 0, c.stride)
	}

	bounds := img.Bounds()
	mask := NewMask(bounds.Dx(), bounds.Dy(), c.stride)

	for row := 0; row < mask.rows; row++ {
		for col := 0; col < mask.cols; col++ {
			x := bounds.Min.X + col*c.stride
			y := bounds.Min.Y + row*c.stride
			r, g, b := rgb8(img, x, y)
			if c.IsWater(r, g, b) {
				mask.cells[row*mask.cols+col] = true
			}
		}
	}

	return mask
}

// rgb8 возвращает 8-битные каналы пикселя
func rgb8(img image.Image, x, y int) (uint8, uint8, uint8) {
	if rgba, ok := img.(*image.RGBA); ok {
		off := rgba.PixOffset(x, y)
		return rgba.Pix[off], rgba.Pix[off+1], rgba.Pix[off+2]
	}
	r, g, b, _ := img.At(x, y).RGBA()
	return uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)
}
