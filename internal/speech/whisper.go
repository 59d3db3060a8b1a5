package speech

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-audio/wav"
)

// ErrNotWAV is returned for audio that is not a readable WAV file.
var ErrNotWAV = errors.New("not a WAV file")

// WhisperDetector flags quiet recordings as whispered speech
type WhisperDetector struct {
	// Threshold is the RMS level, in [0,1], under which audio counts as a whisper.
	Threshold float64
}

// IsWhisper reports whether the WAV file at path is a whisper.
func (d WhisperDetector) IsWhisper(path string) (bool, error) {
	level, err := Level(path)
	if err != nil {
		return false, err
	}
	return level < d.Threshold, nil
}

// Level returns the normalized RMS level of a WAV file. Empty audio has level 0.
func Level(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open audio: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, ErrNotWAV
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNotWAV, err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return 0, nil
	}

	bd := int(dec.BitDepth)
	if bd == 0 {
		bd = 16
	}
	scale := 1.0 / float64(int64(1)<<(bd-1))
	// 8-bit PCM is unsigned, centred on 128
	offset := 0
	if bd == 8 {
		offset = 128
	}

	var sum float64
	for _, v := range buf.Data {
		s := float64(v-offset) * scale
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(buf.Data))), nil
}
