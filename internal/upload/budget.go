// Package upload decides how much to compress an image before it is sent to
// the recognition service. Recompression strips EXIF, so an image that is
// already under budget is passed through untouched whenever the caller wants
// its metadata preserved.
package upload

import (
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"os"

	"golang.org/x/image/draw"
)

// Options controls the budgeting pass.
type Options struct {
	// TargetBytes is the upload size ceiling.
	TargetBytes int64
	// PreserveMetadata requests passthrough when the file is already under
	// budget. Recompression always drops metadata; the caller must have
	// extracted any GPS data before calling Prepare.
	PreserveMetadata bool
	// MaxWidth/MaxHeight bound the output dimensions when recompressing.
	MaxWidth  int
	MaxHeight int
	// Quality ladder: start at QualityStart and step down by QualityStep
	// until the output fits or QualityFloor is reached.
	QualityStart int
	QualityStep  int
	QualityFloor int
}

// DefaultOptions mirrors the capture app's upload settings.
func DefaultOptions() Options {
	return Options{
		TargetBytes:  500 * 1024,
		MaxWidth:     1920,
		MaxHeight:    1080,
		QualityStart: 90,
		QualityStep:  10,
		QualityFloor: 10,
	}
}

// Prepared is the upload payload for one attempt. The caller owns it and
// must call Release once the attempt finishes, success or not.
type Prepared struct {
	// Path of the file to upload. Either the original image or a temporary
	// recompressed copy.
	Path string
	// Size in bytes of the file at Path.
	Size int64
	// Recompressed reports whether a lossy re-encode happened. A
	// recompressed payload has no metadata worth reading.
	Recompressed bool
	// Quality is the JPEG quality factor used, 0 for passthrough.
	Quality int

	owned bool
}

// Release removes the temporary file, if one was produced. Safe to call more
// than once and on passthrough payloads.
func (p *Prepared) Release() error {
	if p == nil || !p.owned {
		return nil
	}
	p.owned = false
	return os.Remove(p.Path)
}

// Prepare returns the payload to upload for the image at path. With
// PreserveMetadata set and the file already at or under TargetBytes the
// original is returned unchanged; otherwise the image is decoded once,
// bounded to MaxWidth×MaxHeight, and re-encoded down the quality ladder
// until it fits or the floor is reached.
func Prepare(path string, opts Options) (*Prepared, error) {
	if opts.TargetBytes <= 0 {
		opts.TargetBytes = DefaultOptions().TargetBytes
	}
	if opts.QualityStart <= 0 {
		opts.QualityStart = DefaultOptions().QualityStart
	}
	if opts.QualityStep <= 0 {
		opts.QualityStep = DefaultOptions().QualityStep
	}
	if opts.QualityFloor <= 0 {
		opts.QualityFloor = DefaultOptions().QualityFloor
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat image: %w", err)
	}

	if opts.PreserveMetadata && info.Size() <= opts.TargetBytes {
		return &Prepared{Path: path, Size: info.Size()}, nil
	}

	src, err := decode(path)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	src = bound(src, opts.MaxWidth, opts.MaxHeight)

	tmp, err := os.CreateTemp("", "snapsync-upload-*.jpg")
	if err != nil {
		return nil, fmt.Errorf("create temp image: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	quality := opts.QualityStart
	var size int64
	for {
		size, err = encodeJPEG(tmpPath, src, quality)
		if err != nil {
			os.Remove(tmpPath)
			return nil, fmt.Errorf("encode image: %w", err)
		}
		if size <= opts.TargetBytes || quality-opts.QualityStep < opts.QualityFloor {
			break
		}
		quality -= opts.QualityStep
	}

	return &Prepared{
		Path:         tmpPath,
		Size:         size,
		Recompressed: true,
		Quality:      quality,
		owned:        true,
	}, nil
}

func decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}

// bound scales src down to fit within maxW×maxH, preserving aspect ratio.
// Images already inside the bounds are returned as-is; upscaling never
// happens.
func bound(src image.Image, maxW, maxH int) image.Image {
	if maxW <= 0 || maxH <= 0 {
		return src
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxW && h <= maxH {
		return src
	}
	scale := float64(maxW) / float64(w)
	if s := float64(maxH) / float64(h); s < scale {
		scale = s
	}
	dw := int(float64(w) * scale)
	dh := int(float64(h) * scale)
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}

func encodeJPEG(path string, img image.Image, quality int) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: quality}); err != nil {
		f.Close()
		return 0, err
	}
	if err := f.Close(); err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
