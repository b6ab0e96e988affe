// Package imagesrc decodes image files into single-channel intensity grids.
package imagesrc

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
)

// Load decodes the image at path and converts it to grayscale.
func Load(path string) (*image.Gray, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	g, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}

	return g, nil
}

// Decode reads any registered image format from r and converts it to
// grayscale with ITU-R 601 luma weights.
func Decode(r io.Reader) (*image.Gray, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, err
	}

	return ToGray(img), nil
}

// ToGray converts img to an *image.Gray anchored at the origin. Gray images
// already anchored at the origin are returned as is.
func ToGray(img image.Image) *image.Gray {
	b := img.Bounds()
	if g, ok := img.(*image.Gray); ok && b.Min == (image.Point{}) {
		return g
	}

	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(g, g.Bounds(), img, b.Min, draw.Src)

	return g
}

// Resize resamples src to cols x rows using nearest-neighbour
// interpolation, so no intensity absent from src is introduced.
func Resize(src *image.Gray, rows, cols int) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, cols, rows))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	return dst
}
