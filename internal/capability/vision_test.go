package capability

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func encodePNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestStatVisionRanksLabels(t *testing.T) {
	v := newStatVision(visionProfile{})
	data := encodePNG(t, 64, 32, color.RGBA{R: 240, G: 240, B: 240, A: 255})
	preds, err := v.ClassifyImage(context.Background(), data)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if len(preds) < 3 {
		t.Fatalf("expected at least 3 predictions, got %d", len(preds))
	}
	for i := 1; i < len(preds); i++ {
		if preds[i].Score > preds[i-1].Score {
			t.Fatalf("predictions not sorted by score: %+v", preds)
		}
	}
	labels := make(map[string]bool, len(preds))
	for _, p := range preds {
		labels[p.Label] = true
		if p.Score <= 0 || p.Score > 0.99 {
			t.Fatalf("score out of range: %+v", p)
		}
	}
	if !labels["bright scene"] {
		t.Fatalf("near-white image should rank bright scene, got %+v", preds)
	}
	if !labels["monochrome"] {
		t.Fatalf("gray image should rank monochrome, got %+v", preds)
	}
	if !labels["landscape orientation"] {
		t.Fatalf("64x32 image should rank landscape, got %+v", preds)
	}
}

func TestStatVisionDarkPortrait(t *testing.T) {
	v := newStatVision(visionProfile{})
	data := encodePNG(t, 32, 64, color.RGBA{R: 10, G: 10, B: 20, A: 255})
	preds, err := v.ClassifyImage(context.Background(), data)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	labels := make(map[string]bool, len(preds))
	for _, p := range preds {
		labels[p.Label] = true
	}
	if !labels["dark scene"] || !labels["portrait orientation"] {
		t.Fatalf("got %+v", preds)
	}
}

func TestStatVisionHonorsProfileThresholds(t *testing.T) {
	// Mid-gray sits above the default brightness threshold but below a
	// raised one.
	data := encodePNG(t, 32, 32, color.RGBA{R: 150, G: 150, B: 150, A: 255})

	classify := func(v statVision) map[string]bool {
		preds, err := v.ClassifyImage(context.Background(), data)
		if err != nil {
			t.Fatalf("classify: %v", err)
		}
		labels := make(map[string]bool, len(preds))
		for _, p := range preds {
			labels[p.Label] = true
		}
		return labels
	}

	if labels := classify(newStatVision(visionProfile{})); !labels["bright scene"] {
		t.Fatalf("default profile: %v", labels)
	}
	if labels := classify(newStatVision(visionProfile{BrightMin: 0.7})); !labels["dark scene"] {
		t.Fatalf("raised threshold: %v", labels)
	}
}

func TestLoadVisionProfile(t *testing.T) {
	dir := t.TempDir()
	if _, err := loadVisionProfile(filepath.Join(dir, "vision.toml")); err == nil {
		t.Fatalf("expected error for missing profile")
	}

	path := filepath.Join(dir, "vision.toml")
	if err := os.WriteFile(path, []byte("bright_min = 0.6\nmono_max = 0.05\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	p, err := loadVisionProfile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.BrightMin != 0.6 || p.MonoMax != 0.05 || p.VividMin != 0 {
		t.Fatalf("profile: %+v", p)
	}

	if err := os.WriteFile(path, []byte("bright_min = {"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := loadVisionProfile(path); err == nil {
		t.Fatalf("expected error for malformed profile")
	}
}

func TestStatVisionRejectsGarbage(t *testing.T) {
	v := newStatVision(visionProfile{})
	if _, err := v.ClassifyImage(context.Background(), []byte("not an image")); err == nil {
		t.Fatalf("expected decode error")
	}
}
