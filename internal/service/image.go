package service

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"swimmer-tracker-go/internal/geo"

	"github.com/disintegration/gift"
)

// ErrInvalidImage изображение не удалось декодировать
var ErrInvalidImage = errors.New("invalid image")

// decodeImage декодирует JPEG или PNG
func decodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return img, nil
}

// rotateUpright поворачивает кадр по часовой стрелке на orientation градусов
func rotateUpright(img image.Image, orientation int) image.Image {
	var filter gift.Filter
	switch geo.NormalizeOrientation(orientation) {
	case 90:
		// gift поворачивает против часовой стрелки
		filter = gift.Rotate270()
	case 180:
		filter = gift.Rotate180()
	case 270:
		filter = gift.Rotate90()
	default:
		return img
	}

	g := gift.New(filter)
	dst := image.NewRGBA(g.Bounds(img.Bounds()))
	g.Draw(dst, img)
	return dst
}

// sizeOf размеры изображения
func sizeOf(img image.Image) geo.Size {
	b := img.Bounds()
	return geo.Size{Width: float64(b.Dx()), Height: float64(b.Dy())}
}
