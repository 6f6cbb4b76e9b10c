package httpclient

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestHostSemaphore_perHost(t *testing.T) {
	sem := NewHostSemaphore(1)
	release := sem.Acquire("http://a.example/one.m3u8")

	// a different host is independent
	other, err := sem.AcquireContext(context.Background(), "http://b.example/x")
	if err != nil {
		t.Fatalf("other host: %v", err)
	}
	other()

	// same host, different path shares the slot
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := sem.AcquireContext(ctx, "http://a.example/two.m3u8"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}

	release()
	again, err := sem.AcquireContext(context.Background(), "http://a.example/two.m3u8")
	if err != nil {
		t.Fatalf("after release: %v", err)
	}
	again()
}

func TestNewHostSemaphore_minimum(t *testing.T) {
	if got := NewHostSemaphore(0).Limit(); got != 1 {
		t.Errorf("Limit = %d, want 1", got)
	}
}
