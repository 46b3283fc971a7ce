package analyzer

import "fmt"

// NewDetector creates a detector based on the specified variant
func NewDetector(variant string) (Detector, error) {
	switch variant {
	case "threshold", "":
		return NewThresholdDetector(), nil
	case "psf":
		return nil, fmt.Errorf("PSF-matched detector not yet implemented")
	default:
		return nil, fmt.Errorf("unknown detector variant: %s", variant)
	}
}
