package capability

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sort"

	toml "github.com/pelletier/go-toml/v2"

	"inferd/pkg/types"
)

// visionProfile calibrates the scene thresholds of the image classifier.
// It is the vision capability's model artifact; zero fields take defaults.
type visionProfile struct {
	BrightMin float64 `toml:"bright_min"`
	MonoMax   float64 `toml:"mono_max"`
	VividMin  float64 `toml:"vivid_min"`
}

// loadVisionProfile reads the calibration artifact. A missing or malformed
// file fails the load; vision has no fallback strategy.
func loadVisionProfile(path string) (visionProfile, error) {
	var p visionProfile
	b, err := os.ReadFile(path)
	if err != nil {
		return p, err
	}
	if err := toml.Unmarshal(b, &p); err != nil {
		return p, fmt.Errorf("parse %s: %w", path, err)
	}
	return p, nil
}

// statVision is the image classifier. It decodes the image and ranks coarse
// scene labels from pixel statistics (luminance, saturation, orientation)
// against its calibration profile, keeping the ranked label/score output
// shape of a real vision model.
type statVision struct {
	nopCloser
	profile visionProfile
}

func newStatVision(p visionProfile) statVision {
	if p.BrightMin <= 0 {
		p.BrightMin = 0.5
	}
	if p.MonoMax <= 0 {
		p.MonoMax = 0.08
	}
	if p.VividMin <= 0 {
		p.VividMin = 0.4
	}
	return statVision{profile: p}
}

func (v statVision) ClassifyImage(_ context.Context, data []byte) ([]types.Prediction, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, image.ErrFormat
	}

	// Sample a coarse grid; full decode stats are unnecessary for ranking.
	stepX, stepY := max(1, w/64), max(1, h/64)
	var sumLum, sumSat float64
	var n int
	for y := b.Min.Y; y < b.Max.Y; y += stepY {
		for x := b.Min.X; x < b.Max.X; x += stepX {
			r, g, bl, _ := img.At(x, y).RGBA()
			rf, gf, bf := float64(r)/65535, float64(g)/65535, float64(bl)/65535
			lum := 0.299*rf + 0.587*gf + 0.114*bf
			mx := maxF(rf, maxF(gf, bf))
			mn := minF(rf, minF(gf, bf))
			sumLum += lum
			sumSat += mx - mn
			n++
		}
	}
	lum := sumLum / float64(n)
	sat := sumSat / float64(n)
	p := v.profile

	preds := []types.Prediction{
		{Label: "photograph", Score: 0.55 + 0.2*sat},
	}
	if lum >= p.BrightMin {
		preds = append(preds, types.Prediction{Label: "bright scene", Score: 0.3 + 0.5*(lum-p.BrightMin)})
	} else {
		preds = append(preds, types.Prediction{Label: "dark scene", Score: 0.3 + 0.5*(p.BrightMin-lum)})
	}
	if sat < p.MonoMax {
		preds = append(preds, types.Prediction{Label: "monochrome", Score: 0.4 + 2*(p.MonoMax-sat)})
	} else if sat > p.VividMin {
		preds = append(preds, types.Prediction{Label: "vivid colors", Score: 0.3 + 0.5*(sat-p.VividMin)})
	}
	if w > h {
		preds = append(preds, types.Prediction{Label: "landscape orientation", Score: 0.25})
	} else if h > w {
		preds = append(preds, types.Prediction{Label: "portrait orientation", Score: 0.25})
	} else {
		preds = append(preds, types.Prediction{Label: "square format", Score: 0.25})
	}
	for i := range preds {
		if preds[i].Score > 0.99 {
			preds[i].Score = 0.99
		}
	}
	sort.SliceStable(preds, func(i, j int) bool { return preds[i].Score > preds[j].Score })
	return preds, nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
