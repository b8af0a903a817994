// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"os"

	applog "hearsim/internal/log"
)

// WriteFile encodes samples with Encode's format and writes them to path,
// replacing any existing file. A partially written file is removed on error.
func WriteFile(path string, samples []float64, sampleRate int) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	if err := encodeTo(file, samples, sampleRate); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	applog.Infof("Audio: wrote %s (%d samples, %d Hz)", path, len(samples), sampleRate)
	return nil
}

// ReadFile decodes the WAV file at path.
func ReadFile(path string) ([]float64, int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}
	samples, rate, err := Decode(raw)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", path, err)
	}
	applog.Debugf("Audio: read %s (%d samples, %d Hz)", path, len(samples), rate)
	return samples, rate, nil
}
