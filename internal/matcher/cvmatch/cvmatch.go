// Package cvmatch is the OpenCV-accelerated matcher implementation. It
// requires gocv (and therefore an OpenCV installation) at build time; the
// composition root selects it via matcher.implementation = "opencv".
package cvmatch

import (
	"errors"
	"image"

	"gocv.io/x/gocv"
)

// CV matches templates with OpenCV's normalized cross-correlation.
type CV struct {
	grayscale bool
}

// New builds the accelerated matcher.
func New(grayscale bool) *CV {
	return &CV{grayscale: grayscale}
}

// Match reports whether the best confidence reaches threshold.
func (m *CV) Match(region, template image.Image, threshold float64) (bool, error) {
	score, err := m.Score(region, template)
	if err != nil {
		return false, err
	}
	return score >= threshold, nil
}

// Score returns the maximum TmCcoeffNormed response for template within region.
func (m *CV) Score(region, template image.Image) (float64, error) {
	if region == nil || template == nil {
		return 0, errors.New("nil image")
	}

	regionMat, err := gocv.ImageToMatRGB(region)
	if err != nil {
		return 0, err
	}
	defer regionMat.Close()

	templateMat, err := gocv.ImageToMatRGB(template)
	if err != nil {
		return 0, err
	}
	defer templateMat.Close()

	if templateMat.Cols() > regionMat.Cols() || templateMat.Rows() > regionMat.Rows() {
		return 0, errors.New("template larger than region")
	}

	if m.grayscale {
		gocv.CvtColor(regionMat, &regionMat, gocv.ColorRGBToGray)
		gocv.CvtColor(templateMat, &templateMat, gocv.ColorRGBToGray)
	}

	result := gocv.NewMat()
	defer result.Close()
	mask := gocv.NewMat()
	defer mask.Close()

	gocv.MatchTemplate(regionMat, templateMat, &result, gocv.TmCcoeffNormed, mask)
	_, maxVal, _, _ := gocv.MinMaxLoc(result)
	return float64(maxVal), nil
}
