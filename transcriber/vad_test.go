package transcriber

import (
	"math"
	"testing"
	"time"
)

const testRate = 16000

// tone returns d worth of a sine wave at the given amplitude.
func tone(d time.Duration, amplitude float64) []float32 {
	n := int(d.Seconds() * testRate)
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(amplitude * math.Sin(2*math.Pi*440*float64(i)/testRate))
	}
	return out
}

func silence(d time.Duration) []float32 {
	return make([]float32, int(d.Seconds()*testRate))
}

func testVAD() VAD {
	return VAD{
		Threshold:  0.05,
		MinSpeech:  250 * time.Millisecond,
		MinSilence: 700 * time.Millisecond,
	}
}

func TestVADTrimsSurroundingSilence(t *testing.T) {
	speech := tone(500*time.Millisecond, 0.5)
	var samples []float32
	samples = append(samples, silence(2*time.Second)...)
	samples = append(samples, speech...)
	samples = append(samples, silence(2*time.Second)...)

	got := testVAD().Filter(samples, testRate)
	if got == nil {
		t.Fatal("expected speech to survive filtering")
	}
	if len(got) >= len(samples)/2 {
		t.Fatalf("filter kept %d of %d samples, silence not trimmed", len(got), len(samples))
	}
	// Within a window of the actual speech length.
	win := int(vadWindow.Seconds() * testRate)
	if diff := len(got) - len(speech); diff > 2*win || diff < -2*win {
		t.Fatalf("kept %d samples, want about %d", len(got), len(speech))
	}
}

func TestVADSilenceOnly(t *testing.T) {
	if got := testVAD().Filter(silence(3*time.Second), testRate); got != nil {
		t.Fatalf("expected nil for pure silence, got %d samples", len(got))
	}
}

func TestVADDropsShortBlip(t *testing.T) {
	var samples []float32
	samples = append(samples, silence(time.Second)...)
	samples = append(samples, tone(60*time.Millisecond, 0.5)...)
	samples = append(samples, silence(time.Second)...)

	if got := testVAD().Filter(samples, testRate); got != nil {
		t.Fatalf("expected short blip to be dropped, kept %d samples", len(got))
	}
}

func TestVADBridgesShortGap(t *testing.T) {
	var samples []float32
	samples = append(samples, tone(500*time.Millisecond, 0.5)...)
	samples = append(samples, silence(200*time.Millisecond)...)
	samples = append(samples, tone(500*time.Millisecond, 0.5)...)

	got := testVAD().Filter(samples, testRate)
	if got == nil {
		t.Fatal("expected speech to survive filtering")
	}
	// The 200 ms gap is under MinSilence so it stays attached.
	win := int(vadWindow.Seconds() * testRate)
	if diff := len(samples) - len(got); diff > 2*win {
		t.Fatalf("kept %d of %d samples, short gap was cut", len(got), len(samples))
	}
}

func TestVADShortInput(t *testing.T) {
	if got := testVAD().Filter(tone(10*time.Millisecond, 0.5), testRate); got != nil {
		t.Fatalf("expected nil for sub-window input, got %d samples", len(got))
	}
	if got := testVAD().Filter(nil, testRate); got != nil {
		t.Fatal("expected nil for empty input")
	}
}

func TestRMS(t *testing.T) {
	if got := rms(nil); got != 0 {
		t.Fatalf("rms(nil) = %v, want 0", got)
	}
	got := rms([]float32{0.5, -0.5, 0.5, -0.5})
	if math.Abs(float64(got)-0.5) > 1e-6 {
		t.Fatalf("rms = %v, want 0.5", got)
	}
}
