package datagen

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/example/go-kernel-bench/internal/imagesrc"
)

// ErrImageUnavailable reports that the canonical image could not be loaded.
var ErrImageUnavailable = errors.New("datagen: canonical image unavailable")

// LoadFunc produces the canonical grayscale image.
type LoadFunc func() (*image.Gray, error)

// Source is the canonical image handle. The image is loaded on first use
// and kept for the lifetime of the Source; a failed load is not retried.
type Source struct {
	load LoadFunc

	once sync.Once
	img  *image.Gray
	err  error
}

// NewSource returns a Source that loads lazily through load.
func NewSource(load LoadFunc) *Source {
	return &Source{load: load}
}

// FileSource returns a Source backed by the image file at path.
func FileSource(path string) *Source {
	return NewSource(func() (*image.Gray, error) {
		return imagesrc.Load(path)
	})
}

// StaticSource returns a Source that serves img.
func StaticSource(img *image.Gray) *Source {
	return NewSource(func() (*image.Gray, error) { return img, nil })
}

// Image returns the canonical image, loading it on first call.
func (s *Source) Image() (*image.Gray, error) {
	s.once.Do(func() {
		if s.load == nil {
			s.err = fmt.Errorf("%w: no loader configured", ErrImageUnavailable)
			return
		}

		img, err := s.load()
		switch {
		case err != nil:
			s.err = fmt.Errorf("%w: %w", ErrImageUnavailable, err)
		case img == nil || img.Bounds().Empty():
			s.err = fmt.Errorf("%w: empty image", ErrImageUnavailable)
		default:
			s.img = img
		}
	})

	return s.img, s.err
}
