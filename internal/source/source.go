package source

import "image"

// Source supplies the frames a detection run works through.
type Source interface {
	FrameCount() int
	FrameName(index int) string
	GetFrameDimensions(index int) (width, height int, err error)
	RenderFrame(index int) (image.Image, error)
	Close() error
}
