// internal/fixtures/payload.go
package fixtures

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
)

// Fixture file names inside the payload directory.
const (
	ImageFile = "AFF_PPT.png"
	VideoFile = "shot12.mp4"
	ChunkDir  = "chunks"

	// VideoUploadName is the name the large upload declares.
	VideoUploadName = "shot 12.mp4"
)

// Payload is the read-only binary data every virtual user shares.
type Payload struct {
	Image  []byte
	Video  []byte
	Chunks [][]byte
}

// LoadPayload reads the image, the video and chunks/chunk_0..N-1 from dir.
// Chunks are read until the first missing index; at least one is required.
func LoadPayload(dir string) (*Payload, error) {
	image, err := os.ReadFile(filepath.Join(dir, ImageFile))
	if err != nil {
		return nil, fmt.Errorf("fixtures: read image: %w", err)
	}
	video, err := os.ReadFile(filepath.Join(dir, VideoFile))
	if err != nil {
		return nil, fmt.Errorf("fixtures: read video: %w", err)
	}

	p := &Payload{Image: image, Video: video}
	for i := 0; ; i++ {
		chunk, err := os.ReadFile(filepath.Join(dir, ChunkDir, "chunk_"+strconv.Itoa(i)))
		if errors.Is(err, fs.ErrNotExist) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("fixtures: read chunk %d: %w", i, err)
		}
		p.Chunks = append(p.Chunks, chunk)
	}
	if len(p.Chunks) == 0 {
		return nil, fmt.Errorf("fixtures: no chunks under %s", filepath.Join(dir, ChunkDir))
	}
	return p, nil
}
