package tts

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ProbeWAVDuration decodes a synthesized WAV file's header and reports its
// exact duration, the same measurement the download stage uses for the
// recognizer's decoded audio, so a provider reports a real duration
// instead of leaving §4.7's data-model invariant unmet.
func ProbeWAVDuration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, fmt.Errorf("tts: %s is not a valid wav file", path)
	}
	d, err := dec.Duration()
	if err != nil {
		return 0, err
	}
	return d.Seconds(), nil
}

// ConcatWAV decodes each chunk's PCM samples and re-encodes them as one
// continuous WAV, the boundary decode/re-encode step §4.7's chunked
// synthesis needs instead of trusting a codec's framing to concatenate
// cleanly across independently-requested pieces.
func ConcatWAV(paths []string, outputPath string) error {
	if len(paths) == 0 {
		return fmt.Errorf("tts: no wav chunks to concatenate")
	}

	var format *audio.Format
	var bitDepth int
	var data []int

	for _, p := range paths {
		buf, err := decodeWAV(p)
		if err != nil {
			return fmt.Errorf("tts: decode chunk %s: %w", p, err)
		}
		if format == nil {
			format = buf.Format
			bitDepth = buf.SourceBitDepth
		}
		data = append(data, buf.Data...)
	}

	return encodeWAV(outputPath, format, bitDepth, data)
}

// PadWAVSilence appends paddingSec of silence to a WAV file in place,
// implementing §4.7's "synthesized audio ran short" reconciliation.
func PadWAVSilence(path string, paddingSec float64) error {
	if paddingSec <= 0 {
		return nil
	}

	buf, err := decodeWAV(path)
	if err != nil {
		return fmt.Errorf("tts: decode for padding %s: %w", path, err)
	}

	silentSamples := int(paddingSec * float64(buf.Format.SampleRate) * float64(buf.Format.NumChannels))
	buf.Data = append(buf.Data, make([]int, silentSamples)...)

	return encodeWAV(path, buf.Format, buf.SourceBitDepth, buf.Data)
}

func decodeWAV(path string) (*audio.IntBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%s is not a valid wav file", path)
	}
	return dec.FullPCMBuffer()
}

func encodeWAV(path string, format *audio.Format, bitDepth int, data []int) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	enc := wav.NewEncoder(out, format.SampleRate, bitDepth, format.NumChannels, 1)
	if err := enc.Write(&audio.IntBuffer{Format: format, Data: data, SourceBitDepth: bitDepth}); err != nil {
		return err
	}
	return enc.Close()
}
