package texture

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	xdraw "golang.org/x/image/draw"

	"github.com/kestrel3d/kestrel/common"
)

// Loader decodes image sources into textures asynchronously. A texture handed
// to the loader stays unready until its pixels arrive; frames encountering it
// in the meantime skip it and retry later.
type Loader interface {
	// Load decodes an image file from disk and delivers its pixels to the
	// texture. Returns immediately; decoding happens on a pool worker.
	//
	// Parameters:
	//   - path: file path of a PNG or JPEG image
	//   - tex: the destination texture
	Load(path string, tex Texture)

	// LoadBytes decodes an in-memory PNG or JPEG image and delivers its
	// pixels to the texture. Returns immediately.
	//
	// Parameters:
	//   - data: raw image bytes
	//   - tex: the destination texture
	LoadBytes(data []byte, tex Texture)

	// Wait blocks until every submitted decode has completed.
	Wait()
}

type engineLoader struct {
	pool worker.DynamicWorkerPool
	wg   *sync.WaitGroup

	// maxDimension caps texture width/height; larger images are downscaled.
	// Zero disables scaling.
	maxDimension int

	mu     *sync.Mutex
	taskID int
}

var _ Loader = &engineLoader{}

// NewLoader creates a Loader with the specified options.
//
// Parameters:
//   - options: functional options to configure the loader
//
// Returns:
//   - Loader: the configured loader
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &engineLoader{
		wg:           &sync.WaitGroup{},
		maxDimension: 0,
		mu:           &sync.Mutex{},
	}
	workers := 2
	for _, opt := range options {
		opt(l, &workers)
	}
	l.pool = worker.NewDynamicWorkerPool(workers, 256, 1*time.Second)
	return l
}

func (l *engineLoader) Load(path string, tex Texture) {
	l.submit(func() ([]byte, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read texture file %s: %w", path, err)
		}
		return data, nil
	}, path, tex)
}

func (l *engineLoader) LoadBytes(data []byte, tex Texture) {
	l.submit(func() ([]byte, error) { return data, nil }, "embedded", tex)
}

func (l *engineLoader) Wait() {
	l.wg.Wait()
}

func (l *engineLoader) submit(read func() ([]byte, error), source string, tex Texture) {
	l.mu.Lock()
	id := l.taskID
	l.taskID++
	l.mu.Unlock()

	l.wg.Add(1)
	l.pool.SubmitTask(worker.Task{
		ID: id,
		Do: func() (any, error) {
			defer l.wg.Done()

			data, err := read()
			if err != nil {
				common.Logger().Warn("texture load failed", "source", source, "error", err)
				return nil, err
			}
			pixels, w, h, err := decodeRGBA(data, l.maxDimension)
			if err != nil {
				common.Logger().Warn("texture decode failed", "source", source, "error", err)
				return nil, err
			}
			tex.SetPixels(pixels, w, h)
			common.Logger().Debug("texture ready", "source", source, "width", w, "height", h)
			return nil, nil
		},
	})
}

// decodeRGBA decodes PNG or JPEG bytes to raw RGBA pixels, downscaling to fit
// maxDim when set.
func decodeRGBA(data []byte, maxDim int) ([]byte, uint32, uint32, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if maxDim > 0 && (width > maxDim || height > maxDim) {
		scale := float64(maxDim) / float64(width)
		if height > width {
			scale = float64(maxDim) / float64(height)
		}
		dstW := int(float64(width) * scale)
		dstH := int(float64(height) * scale)
		scaled := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
		xdraw.BiLinear.Scale(scaled, scaled.Bounds(), img, bounds, xdraw.Src, nil)
		return scaled.Pix, uint32(dstW), uint32(dstH), nil
	}

	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)
	return rgba.Pix, uint32(width), uint32(height), nil
}
