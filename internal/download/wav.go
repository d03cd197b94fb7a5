package download

import (
	"os"

	"github.com/go-audio/wav"
)

// readWAVDuration opens path, reads the header, and returns its duration
// in seconds. The file is closed before returning since Duration() only
// needs the header, not the sample data.
func readWAVDuration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, os.ErrInvalid
	}
	d, err := dec.Duration()
	if err != nil {
		return 0, err
	}
	return d.Seconds(), nil
}

