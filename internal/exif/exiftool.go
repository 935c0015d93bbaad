package exif

import (
	"fmt"

	"github.com/barasher/go-exiftool"

	"github.com/pic2nav/snapsync/internal/model"
)

// ReadFile extracts the raw metadata bag from an image file using exiftool.
// The returned map is handed to ExtractCoordinate unmodified; callers that
// already hold capture-time metadata (e.g. the HTTP surface) skip this step.
func ReadFile(path string) (model.RawMetadata, error) {
	et, err := exiftool.NewExiftool()
	if err != nil {
		return nil, fmt.Errorf("init exiftool: %w", err)
	}
	defer et.Close()

	infos := et.ExtractMetadata(path)
	if len(infos) == 0 {
		return nil, fmt.Errorf("no metadata extracted from %s", path)
	}
	info := infos[0]
	if info.Err != nil {
		return nil, fmt.Errorf("extract metadata: %w", info.Err)
	}

	meta := make(model.RawMetadata, len(info.Fields))
	for k, v := range info.Fields {
		meta[k] = v
	}
	return meta, nil
}
