package transcriber

import (
	"math"
	"time"
)

// VAD is an energy-based voice activity filter applied to a complete capture
// before inference. It drops leading, trailing and long interior silences so
// the model never sees minutes of keyboard noise around two seconds of
// speech.
type VAD struct {
	// Threshold is the RMS level above which a window counts as speech.
	Threshold float32

	// MinSpeech is the shortest speech burst that is kept. Shorter bursts
	// are treated as noise.
	MinSpeech time.Duration

	// MinSilence is the shortest silence that separates two speech
	// segments. Shorter gaps stay attached to the surrounding speech.
	MinSilence time.Duration
}

// vadWindow is the analysis window size. 30 ms at 16 kHz.
const vadWindow = 30 * time.Millisecond

// Filter returns the speech portions of samples, in order. Returns nil when
// no window exceeds the threshold.
func (v VAD) Filter(samples []float32, sampleRate int) []float32 {
	windowLen := int(float64(sampleRate) * vadWindow.Seconds())
	if windowLen <= 0 || len(samples) < windowLen {
		return nil
	}

	speech := make([]bool, 0, len(samples)/windowLen)
	for start := 0; start+windowLen <= len(samples); start += windowLen {
		speech = append(speech, rms(samples[start:start+windowLen]) > v.Threshold)
	}

	minSpeechWin := windowCount(v.MinSpeech, windowLen, sampleRate)
	minSilenceWin := windowCount(v.MinSilence, windowLen, sampleRate)

	bridgeShortRuns(speech, false, minSilenceWin) // short gaps stay speech
	bridgeShortRuns(speech, true, minSpeechWin)   // short blips become silence

	total := 0
	for _, s := range speech {
		if s {
			total += windowLen
		}
	}
	if total == 0 {
		return nil
	}

	out := make([]float32, 0, total)
	for i, s := range speech {
		if s {
			out = append(out, samples[i*windowLen:(i+1)*windowLen]...)
		}
	}
	return out
}

// bridgeShortRuns flips runs of value shorter than minLen to the opposite
// value. Runs touching either end are only flipped when dropping speech;
// leading or trailing silence is never promoted to speech.
func bridgeShortRuns(flags []bool, value bool, minLen int) {
	if minLen <= 1 {
		return
	}
	i := 0
	for i < len(flags) {
		if flags[i] != value {
			i++
			continue
		}
		j := i
		for j < len(flags) && flags[j] == value {
			j++
		}
		interior := i > 0 && j < len(flags)
		if j-i < minLen && (value || interior) {
			for k := i; k < j; k++ {
				flags[k] = !value
			}
		}
		i = j
	}
}

func windowCount(d time.Duration, windowLen, sampleRate int) int {
	samples := int(d.Seconds() * float64(sampleRate))
	n := samples / windowLen
	if samples%windowLen != 0 {
		n++
	}
	return n
}

// rms computes the root mean square of samples.
func rms(samples []float32) float32 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return float32(math.Sqrt(sum / float64(len(samples))))
}
