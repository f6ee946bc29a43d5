package ui

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestNotifyDisabledIsNoop(t *testing.T) {
	n := &Notifier{enabled: false, run: func(ctx context.Context, title, message string) error {
		t.Fatal("run called while disabled")
		return nil
	}}
	n.Notify("title", "message")
	time.Sleep(50 * time.Millisecond)
}

func TestNotifySendsArguments(t *testing.T) {
	var mu sync.Mutex
	var gotTitle, gotMessage string
	done := make(chan struct{})

	n := &Notifier{enabled: true, run: func(ctx context.Context, title, message string) error {
		mu.Lock()
		gotTitle, gotMessage = title, message
		mu.Unlock()
		close(done)
		return nil
	}}

	n.Notify("Recording", "Listening")
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("run was never called")
	}

	mu.Lock()
	defer mu.Unlock()
	if gotTitle != "Recording" || gotMessage != "Listening" {
		t.Fatalf("got %q/%q", gotTitle, gotMessage)
	}
}

func TestNotifyDoesNotBlock(t *testing.T) {
	n := &Notifier{enabled: true, run: func(ctx context.Context, title, message string) error {
		<-ctx.Done()
		return ctx.Err()
	}}

	start := time.Now()
	n.Notify("slow", "desktop")
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("Notify blocked for %v", elapsed)
	}
}
