package report

// Report summarises one detection/extraction run
type Report struct {
	Version string  `yaml:"version"`
	Input   string  `yaml:"input"`
	Frames  []Frame `yaml:"frames"`
}

// Frame lists the footprints extracted from one input frame
type Frame struct {
	Input      string  `yaml:"input"`
	Footprints []Entry `yaml:"footprints"`
}

// Entry is the shape summary of one extracted footprint
type Entry struct {
	ID    string    `yaml:"id"`
	Area  int       `yaml:"area"`
	BBox  Rectangle `yaml:"bbox"`
	Peaks int       `yaml:"peaks"`
	File  string    `yaml:"file"` // Path of the encoded .fp artifact
}

// Rectangle represents a bounding box
type Rectangle struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
	W int `yaml:"w"`
	H int `yaml:"h"`
}
