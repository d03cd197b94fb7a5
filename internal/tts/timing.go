package tts

import "media-dubber/internal/domain"

// SourceSpan returns the seconds the segments span in the source
// timeline, the reference duration a synthesized track is reconciled
// against.
func SourceSpan(segments []domain.TimedSegment) float64 {
	if len(segments) == 0 {
		return 0
	}
	first := segments[0].StartSec
	last := segments[len(segments)-1].EndSec
	if last < first {
		return 0
	}
	return last - first
}

// bytesPerSecondEstimate is the byte rate PaddingBytes uses when the
// caller passes none.
const bytesPerSecondEstimate = 16000 // 16kHz mono 8-bit PCM-equivalent budget

// ReconcileDuration implements §4.7's timing reconciliation: if the
// synthesized result is shorter than the source span, report how many
// seconds of silence padding are needed; if longer, no trimming is
// performed (return zero deficit, as-is). The providers append the
// padding as trailing silence at the end of the track (PadWAVSilence);
// it is not placed at paragraph breaks.
func ReconcileDuration(synthesizedSec, sourceSpanSec float64) (paddingSec float64, tooLong bool) {
	deficit := sourceSpanSec - synthesizedSec
	if deficit > 0 {
		return deficit, false
	}
	return 0, deficit < 0
}

// PaddingBytes estimates the number of silence bytes needed for a given
// padding duration at the given output byte rate, used by muxer-facing
// code that pads a raw PCM stream; container-aware formats compute this
// from their own header instead.
func PaddingBytes(paddingSec float64, bytesPerSecond int) int64 {
	if bytesPerSecond <= 0 {
		bytesPerSecond = bytesPerSecondEstimate
	}
	if paddingSec <= 0 {
		return 0
	}
	return int64(paddingSec * float64(bytesPerSecond))
}
