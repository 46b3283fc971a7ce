package analyzer

import (
	"github.com/ivlev/img2footprint/internal/footprint"
	"github.com/ivlev/img2footprint/internal/masked"
)

// Detector is the interface for source-detection strategies. A detector
// scans a masked image and produces one normalized footprint per detected
// object, peaks included.
type Detector interface {
	Detect(mi *masked.Image) ([]*footprint.Footprint, error)
}
