package upload

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

// writeNoisyJPEG produces a JPEG that compresses poorly, so size thresholds
// are actually exercised.
func writeNoisyJPEG(t *testing.T, path string, w, h, quality int) int64 {
	t.Helper()
	rng := rand.New(rand.NewSource(1))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(rng.Intn(256)), G: uint8(rng.Intn(256)), B: uint8(rng.Intn(256)), A: 255,
			})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create test image: %v", err)
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: quality}); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	f.Close()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat test image: %v", err)
	}
	return info.Size()
}

func TestPreservePassthrough(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "small.jpg")
	size := writeNoisyJPEG(t, path, 32, 32, 80)

	opts := DefaultOptions()
	opts.PreserveMetadata = true

	p, err := Prepare(path, opts)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	defer p.Release()

	if p.Path != path {
		t.Errorf("expected original path back, got %s", p.Path)
	}
	if p.Recompressed {
		t.Error("small preserved image must not be recompressed")
	}
	if p.Size != size {
		t.Errorf("size = %d, want %d", p.Size, size)
	}
	// Releasing a passthrough payload must not delete the original.
	if err := p.Release(); err != nil {
		t.Errorf("release passthrough: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("original file was removed: %v", err)
	}
}

func TestRecompressToTarget(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.jpg")
	orig := writeNoisyJPEG(t, path, 800, 600, 100)

	opts := DefaultOptions()
	opts.TargetBytes = orig / 4
	opts.PreserveMetadata = true // too large, so preservation is overridden

	p, err := Prepare(path, opts)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	defer p.Release()

	if !p.Recompressed {
		t.Fatal("expected recompression for oversized image")
	}
	if p.Path == path {
		t.Error("recompression must write a new temporary file")
	}
	if p.Size >= orig {
		t.Errorf("recompressed size %d not smaller than original %d", p.Size, orig)
	}
	if p.Quality < opts.QualityFloor || p.Quality > opts.QualityStart {
		t.Errorf("quality %d outside ladder [%d, %d]", p.Quality, opts.QualityFloor, opts.QualityStart)
	}
}

func TestQualityFloorStopsLadder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "noisy.jpg")
	writeNoisyJPEG(t, path, 400, 300, 100)

	opts := DefaultOptions()
	opts.TargetBytes = 1 // unreachable target

	p, err := Prepare(path, opts)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	defer p.Release()

	if !p.Recompressed {
		t.Fatal("expected recompression")
	}
	if p.Quality > opts.QualityFloor+opts.QualityStep {
		t.Errorf("ladder stopped early at quality %d", p.Quality)
	}
}

func TestReleaseRemovesTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.jpg")
	writeNoisyJPEG(t, path, 400, 300, 100)

	opts := DefaultOptions()
	opts.TargetBytes = 1024

	p, err := Prepare(path, opts)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if err := p.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := os.Stat(p.Path); !os.IsNotExist(err) {
		t.Error("temporary file still present after release")
	}
	// Double release is harmless.
	if err := p.Release(); err != nil {
		t.Errorf("second release: %v", err)
	}
}

func TestBoundDownscales(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wide.png")

	img := image.NewRGBA(image.Rect(0, 0, 4000, 1000))
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	f.Close()

	opts := DefaultOptions()
	opts.TargetBytes = 1 // force the recompress path

	p, err := Prepare(path, opts)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	defer p.Release()

	out, err := os.Open(p.Path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer out.Close()
	cfg, _, err := image.DecodeConfig(out)
	if err != nil {
		t.Fatalf("decode output config: %v", err)
	}
	if cfg.Width > opts.MaxWidth || cfg.Height > opts.MaxHeight {
		t.Errorf("output %dx%d exceeds bounds %dx%d", cfg.Width, cfg.Height, opts.MaxWidth, opts.MaxHeight)
	}
}

func TestPrepareMissingFile(t *testing.T) {
	_, err := Prepare(filepath.Join(t.TempDir(), "absent.jpg"), DefaultOptions())
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
