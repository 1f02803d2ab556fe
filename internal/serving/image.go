package serving

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"io"
	"math"
	"os"
)

// ReadImage decodes a PNG or JPEG file into a nested [height][width][3]
// array of 0-255 values, the layout expected by the predict API.
func ReadImage(path string) ([][][]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image '%s': %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image '%s': %w", path, err)
	}
	return ImageToArray(img), nil
}

// ImageToArray converts an image to [height][width][3] RGB values.
func ImageToArray(img image.Image) [][][]int {
	b := img.Bounds()
	out := make([][][]int, b.Dy())
	for y := range out {
		row := make([][]int, b.Dx())
		for x := range row {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			row[x] = []int{int(r >> 8), int(g >> 8), int(bl >> 8)}
		}
		out[y] = row
	}
	return out
}

// PredictionToImage squeezes the leading batch axis of a single prediction
// and converts the remaining [height][width][channels] values into an RGB
// image. Values are clamped to 0-255.
func PredictionToImage(predictions []any) (*image.RGBA, error) {
	if len(predictions) != 1 {
		return nil, fmt.Errorf("expected exactly one prediction, got %d", len(predictions))
	}
	rows, ok := predictions[0].([]any)
	if !ok || len(rows) == 0 {
		return nil, fmt.Errorf("prediction is not a [height][width][channels] array")
	}
	first, ok := rows[0].([]any)
	if !ok || len(first) == 0 {
		return nil, fmt.Errorf("prediction row 0 is not a [width][channels] array")
	}

	img := image.NewRGBA(image.Rect(0, 0, len(first), len(rows)))
	for y, r := range rows {
		cols, ok := r.([]any)
		if !ok || len(cols) != len(first) {
			return nil, fmt.Errorf("prediction row %d has inconsistent width", y)
		}
		for x, c := range cols {
			px, ok := c.([]any)
			if !ok || len(px) < 3 {
				return nil, fmt.Errorf("prediction pixel (%d,%d) has fewer than 3 channels", y, x)
			}
			var ch [3]uint8
			for i := range ch {
				v, ok := px[i].(float64)
				if !ok {
					return nil, fmt.Errorf("prediction pixel (%d,%d) channel %d is not a number", y, x, i)
				}
				ch[i] = clampByte(v)
			}
			img.SetRGBA(x, y, color.RGBA{R: ch[0], G: ch[1], B: ch[2], A: 255})
		}
	}
	return img, nil
}

// WritePNG encodes img to w.
func WritePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

func clampByte(v float64) uint8 {
	return uint8(math.Max(0, math.Min(255, math.Round(v))))
}
