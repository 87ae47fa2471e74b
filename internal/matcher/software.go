package matcher

import (
	"errors"
	"image"
	"math"

	"github.com/disintegration/gift"
)

// Software is the pure-Go matcher: normalized cross-correlation of the
// template slid across the region. Slow compared to the OpenCV path but
// dependency-free at runtime, which is plenty for the small crop regions
// the detector loops feed it.
type Software struct {
	grayscale bool
}

// NewSoftware builds the software matcher. With grayscale enabled both
// inputs are converted before correlation; otherwise the RGB channels are
// correlated jointly.
func NewSoftware(grayscale bool) *Software {
	return &Software{grayscale: grayscale}
}

// Match reports whether the best confidence reaches threshold.
func (m *Software) Match(region, template image.Image, threshold float64) (bool, error) {
	score, err := m.Score(region, template)
	if err != nil {
		return false, err
	}
	return score >= threshold, nil
}

// Score returns the maximum normalized cross-correlation coefficient over
// every placement of template inside region.
func (m *Software) Score(region, template image.Image) (float64, error) {
	if region == nil || template == nil {
		return 0, errors.New("nil image")
	}

	reg := m.planes(region)
	tpl := m.planes(template)
	if tpl.w > reg.w || tpl.h > reg.h {
		return 0, errors.New("template larger than region")
	}

	tplMean := mean(tpl.pix)
	tplDev := make([]float64, len(tpl.pix))
	var tplNormSq float64
	for i, v := range tpl.pix {
		d := v - tplMean
		tplDev[i] = d
		tplNormSq += d * d
	}
	if tplNormSq == 0 {
		// Flat template correlates with nothing meaningfully.
		return 0, nil
	}

	channels := len(reg.pix) / (reg.w * reg.h)
	best := -1.0
	window := make([]float64, len(tpl.pix))
	for dy := 0; dy <= reg.h-tpl.h; dy++ {
		for dx := 0; dx <= reg.w-tpl.w; dx++ {
			idx := 0
			for c := 0; c < channels; c++ {
				chanOff := c * reg.w * reg.h
				for y := 0; y < tpl.h; y++ {
					rowOff := chanOff + (dy+y)*reg.w + dx
					for x := 0; x < tpl.w; x++ {
						window[idx] = reg.pix[rowOff+x]
						idx++
					}
				}
			}
			winMean := mean(window)
			var num, winNormSq float64
			for i, v := range window {
				d := v - winMean
				num += d * tplDev[i]
				winNormSq += d * d
			}
			if winNormSq == 0 {
				continue
			}
			score := num / math.Sqrt(winNormSq*tplNormSq)
			if score > best {
				best = score
			}
		}
	}
	return best, nil
}

type planeSet struct {
	w, h int
	// pix holds channels back to back, each w*h values.
	pix []float64
}

func (m *Software) planes(img image.Image) planeSet {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if m.grayscale {
		gray := image.NewGray(image.Rect(0, 0, w, h))
		gift.New(gift.Grayscale()).Draw(gray, img)
		pix := make([]float64, w*h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				pix[y*w+x] = float64(gray.GrayAt(x, y).Y)
			}
		}
		return planeSet{w: w, h: h, pix: pix}
	}

	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	gift.New().Draw(rgba, img)
	pix := make([]float64, 3*w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := rgba.RGBAAt(x, y)
			pix[y*w+x] = float64(c.R)
			pix[w*h+y*w+x] = float64(c.G)
			pix[2*w*h+y*w+x] = float64(c.B)
		}
	}
	return planeSet{w: w, h: h, pix: pix}
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
