package classify

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
)

// Preprocess turns encoded image bytes into a model input tensor:
// decode, resize to size×size (bilinear), RGB channel order, pixel values
// normalized to [0, 1], with a leading batch dimension of 1.
//
// Undecodable bytes return a decode error; callers decide whether that is
// fatal (the worker logs it and leaves the document pending).
func Preprocess(data []byte, size int) ([][][][]float32, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)

	pixels := make([][][]float32, size)
	for y := 0; y < size; y++ {
		row := make([][]float32, size)
		for x := 0; x < size; x++ {
			c := dst.RGBAAt(x, y)
			row[x] = []float32{
				float32(c.R) / 255.0,
				float32(c.G) / 255.0,
				float32(c.B) / 255.0,
			}
		}
		pixels[y] = row
	}

	return [][][][]float32{pixels}, nil
}
