package matcher_test

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"clipmark/internal/matcher"
)

// checkered paints a recognizable 2-color pattern into the rectangle at
// (ox, oy) so template placements are unambiguous.
func checkered(img *image.RGBA, ox, oy, w, h int) {
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{R: 255, A: 255}
			if (x+y)%2 == 0 {
				c = color.RGBA{B: 255, A: 255}
			}
			img.SetRGBA(ox+x, oy+y, c)
		}
	}
}

func TestSoftwareFindsEmbeddedTemplate(t *testing.T) {
	region := image.NewRGBA(image.Rect(0, 0, 40, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			region.SetRGBA(x, y, color.RGBA{R: 10, G: 10, B: 10, A: 255})
		}
	}
	checkered(region, 12, 20, 8, 8)

	template := image.NewRGBA(image.Rect(0, 0, 8, 8))
	checkered(template, 0, 0, 8, 8)

	m := matcher.NewSoftware(true)
	score, err := m.Score(region, template)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if score < 0.95 {
		t.Fatalf("expected near-perfect score for embedded template, got %f", score)
	}

	ok, err := m.Match(region, template, 0.8)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if !ok {
		t.Fatal("expected match above threshold")
	}
}

func TestSoftwareRejectsAbsentTemplate(t *testing.T) {
	region := image.NewRGBA(image.Rect(0, 0, 30, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 30; x++ {
			region.SetRGBA(x, y, color.RGBA{R: uint8(x * 8), G: uint8(y * 8), A: 255})
		}
	}
	template := image.NewRGBA(image.Rect(0, 0, 6, 6))
	checkered(template, 0, 0, 6, 6)

	m := matcher.NewSoftware(true)
	ok, err := m.Match(region, template, 0.9)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if ok {
		t.Fatal("expected no match for absent template")
	}
}

func TestSoftwareColorMode(t *testing.T) {
	region := image.NewRGBA(image.Rect(0, 0, 20, 20))
	checkered(region, 4, 4, 10, 10)
	template := image.NewRGBA(image.Rect(0, 0, 10, 10))
	checkered(template, 0, 0, 10, 10)

	m := matcher.NewSoftware(false)
	score, err := m.Score(region, template)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if score < 0.95 {
		t.Fatalf("expected near-perfect color score, got %f", score)
	}
}

func TestSoftwareTemplateLargerThanRegion(t *testing.T) {
	region := image.NewRGBA(image.Rect(0, 0, 4, 4))
	template := image.NewRGBA(image.Rect(0, 0, 8, 8))
	m := matcher.NewSoftware(true)
	if _, err := m.Score(region, template); err == nil {
		t.Fatal("expected error for oversized template")
	}
}

func TestLoadTemplateMissing(t *testing.T) {
	_, err := matcher.LoadTemplate(filepath.Join(t.TempDir(), "nope.png"))
	if !errors.Is(err, matcher.ErrTemplateMissing) {
		t.Fatalf("expected ErrTemplateMissing, got %v", err)
	}
}

func TestLoadTemplateDecodes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tpl.png")
	img := image.NewRGBA(image.Rect(0, 0, 3, 3))
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := png.Encode(file, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := file.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	loaded, err := matcher.LoadTemplate(path)
	if err != nil {
		t.Fatalf("LoadTemplate: %v", err)
	}
	if loaded.Bounds().Dx() != 3 {
		t.Fatalf("unexpected bounds: %v", loaded.Bounds())
	}
}

func TestCropClampsToBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	cropped := matcher.Crop(img, image.Rect(5, 5, 20, 20))
	if cropped.Bounds().Dx() != 5 || cropped.Bounds().Dy() != 5 {
		t.Fatalf("unexpected crop size: %v", cropped.Bounds())
	}
}
