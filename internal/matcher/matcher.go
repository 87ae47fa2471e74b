// Package matcher defines the template-matching capability used by the
// detector loops. Two interchangeable implementations exist: the pure-Go
// matcher in this package and the OpenCV-accelerated one in cvmatch. Callers
// pick one at startup and treat it opaquely afterwards.
package matcher

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
)

// ErrTemplateMissing marks a reference template that could not be loaded.
// Detector loops treat it as no-match for the iteration and keep polling.
var ErrTemplateMissing = errors.New("template missing")

// Matcher compares an image region against a reference template.
type Matcher interface {
	// Score returns the best match confidence in [-1, 1] for the template
	// anywhere inside the region.
	Score(region, template image.Image) (float64, error)
	// Match reports whether the best confidence reaches threshold.
	Match(region, template image.Image, threshold float64) (bool, error)
}

// LoadTemplate reads and decodes a reference template image. Any failure is
// wrapped with ErrTemplateMissing so callers can skip the iteration.
func LoadTemplate(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTemplateMissing, path, err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTemplateMissing, path, err)
	}
	return img, nil
}

// Crop copies the part of img covered by rect (clamped to img bounds).
func Crop(img image.Image, rect image.Rectangle) image.Image {
	rect = rect.Intersect(img.Bounds())
	out := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(out, out.Bounds(), img, rect.Min, draw.Src)
	return out
}
