package hotkey

import (
	"testing"
	"time"
)

func newTestDetector(threshold time.Duration) (*Detector, *int, *int) {
	doubles, cancels := 0, 0
	d := New([]string{"ctrl"}, threshold,
		func() { doubles++ },
		func() { cancels++ },
	)
	return d, &doubles, &cancels
}

func TestDoublePressWithinThreshold(t *testing.T) {
	d, doubles, _ := newTestDetector(400 * time.Millisecond)
	base := time.Now()

	d.handlePress("ctrl", base)
	d.handlePress("ctrl", base.Add(100*time.Millisecond))

	if *doubles != 1 {
		t.Fatalf("double-press count = %d, want 1", *doubles)
	}
}

func TestTriplePressFiresExactlyOnce(t *testing.T) {
	// Presses at t, t+0.1, t+0.5 with threshold 0.4: only the first pair
	// qualifies. The second press's timestamp is still consumed, so press 3
	// is measured against press 2, not press 1.
	d, doubles, _ := newTestDetector(400 * time.Millisecond)
	base := time.Now()

	d.handlePress("ctrl", base)
	d.handlePress("ctrl", base.Add(100*time.Millisecond))
	d.handlePress("ctrl", base.Add(500*time.Millisecond))

	if *doubles != 1 {
		t.Fatalf("double-press count = %d, want 1", *doubles)
	}
}

func TestSlowPressesNeverFire(t *testing.T) {
	d, doubles, _ := newTestDetector(400 * time.Millisecond)
	base := time.Now()

	d.handlePress("ctrl", base)
	d.handlePress("ctrl", base.Add(450*time.Millisecond))
	d.handlePress("ctrl", base.Add(900*time.Millisecond))

	if *doubles != 0 {
		t.Fatalf("double-press count = %d, want 0", *doubles)
	}
}

func TestFourRapidPressesFireThreeTimes(t *testing.T) {
	// Every adjacent pair inside the threshold fires: the timestamp update
	// is unconditional, not reset after a hit.
	d, doubles, _ := newTestDetector(400 * time.Millisecond)
	base := time.Now()

	for i := 0; i < 4; i++ {
		d.handlePress("ctrl", base.Add(time.Duration(i)*100*time.Millisecond))
	}

	if *doubles != 3 {
		t.Fatalf("double-press count = %d, want 3", *doubles)
	}
}

func TestCancelKeyFiresUnconditionally(t *testing.T) {
	d, doubles, cancels := newTestDetector(400 * time.Millisecond)
	base := time.Now()

	d.handlePress("esc", base)
	d.handlePress("ctrl", base.Add(10*time.Millisecond))
	d.handlePress("esc", base.Add(20*time.Millisecond))

	if *cancels != 2 {
		t.Fatalf("cancel count = %d, want 2", *cancels)
	}
	if *doubles != 0 {
		t.Fatalf("double-press count = %d, want 0", *doubles)
	}
}

func TestCancelKeyDoesNotConsumeTriggerTimestamp(t *testing.T) {
	d, doubles, _ := newTestDetector(400 * time.Millisecond)
	base := time.Now()

	d.handlePress("ctrl", base)
	d.handlePress("esc", base.Add(50*time.Millisecond))
	d.handlePress("ctrl", base.Add(100*time.Millisecond))

	if *doubles != 1 {
		t.Fatalf("double-press count = %d, want 1", *doubles)
	}
}

func TestUnknownKeyIgnored(t *testing.T) {
	d, doubles, cancels := newTestDetector(400 * time.Millisecond)
	base := time.Now()

	d.handlePress("a", base)
	d.handlePress("a", base.Add(50*time.Millisecond))

	if *doubles != 0 || *cancels != 0 {
		t.Fatalf("unexpected callbacks: doubles=%d cancels=%d", *doubles, *cancels)
	}
}

func TestMultipleTriggerKeysShareTimestamp(t *testing.T) {
	doubles := 0
	d := New([]string{"lctrl", "rctrl"}, 400*time.Millisecond, func() { doubles++ }, nil)
	base := time.Now()

	d.handlePress("lctrl", base)
	d.handlePress("rctrl", base.Add(100*time.Millisecond))

	if doubles != 1 {
		t.Fatalf("double-press count = %d, want 1", doubles)
	}
}
