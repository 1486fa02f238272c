package widget

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Placeholder is shown until an image has loaded.
const Placeholder = "data:image/gif;base64,R0lGODlhAQABAIAAAMLCwgAAACH5BAAAAAAALAAAAAABAAEAAAICRAEAOw=="

type ImageState int

const (
	ImageLoading ImageState = iota
	ImageLoaded
	ImageFailed
)

func (s ImageState) String() string {
	switch s {
	case ImageLoaded:
		return "loaded"
	case ImageFailed:
		return "failed"
	default:
		return "loading"
	}
}

// Image tracks loading of a resolved image. A failed load is logged
// and the image stays in the tree.
type Image struct {
	Src         string
	Alt         string
	Placeholder string

	logger *zap.Logger

	mu    sync.Mutex
	state ImageState
	err   error
}

func NewImage(src, alt string, logger *zap.Logger) *Image {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Image{
		Src:         src,
		Alt:         alt,
		Placeholder: Placeholder,
		logger:      logger,
	}
}

func (i *Image) Loaded() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.state = ImageLoaded
	i.err = nil
}

func (i *Image) Fail(err error) {
	i.mu.Lock()
	i.state = ImageFailed
	i.err = err
	i.mu.Unlock()

	i.logger.Warn("failed to load image", zap.String("src", i.Src), zap.Error(err))
}

func (i *Image) State() ImageState {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

func (i *Image) Err() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.err
}

// Current is the source to display right now. A failed image keeps
// its real source so the host shows a broken image.
func (i *Image) Current() string {
	if i.State() == ImageLoading {
		return i.Placeholder
	}
	return i.Src
}

func (i *Image) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type        string `json:"type"`
		Src         string `json:"src"`
		Alt         string `json:"alt,omitempty"`
		Placeholder string `json:"placeholder"`
		State       string `json:"state"`
	}{NameImage, i.Src, i.Alt, i.Placeholder, i.State().String()})
}
