package orchestrator

import (
	"testing"
	"time"

	"github.com/pkeller/modelharness/internal/errors"
)

func TestControlServerReadyRoundTrip(t *testing.T) {
	cs, err := NewControlServer()
	if err != nil {
		t.Fatalf("NewControlServer failed: %v", err)
	}
	defer cs.Close()

	go func() {
		if err := SignalReady(cs.URL(), "env-a", "http://127.0.0.1:9999"); err != nil {
			t.Errorf("SignalReady failed: %v", err)
		}
	}()

	endpoint, err := cs.AwaitReady("env-a", 5*time.Second)
	if err != nil {
		t.Fatalf("AwaitReady failed: %v", err)
	}
	if endpoint != "http://127.0.0.1:9999" {
		t.Errorf("unexpected endpoint: %s", endpoint)
	}
}

func TestControlServerSignalBeforeAwait(t *testing.T) {
	cs, err := NewControlServer()
	if err != nil {
		t.Fatalf("NewControlServer failed: %v", err)
	}
	defer cs.Close()

	if err := SignalReady(cs.URL(), "env-b", "http://127.0.0.1:8888"); err != nil {
		t.Fatalf("SignalReady failed: %v", err)
	}

	endpoint, err := cs.AwaitReady("env-b", time.Second)
	if err != nil {
		t.Fatalf("AwaitReady after signal failed: %v", err)
	}
	if endpoint != "http://127.0.0.1:8888" {
		t.Errorf("unexpected endpoint: %s", endpoint)
	}
}

func TestControlServerAwaitTimeout(t *testing.T) {
	cs, err := NewControlServer()
	if err != nil {
		t.Fatalf("NewControlServer failed: %v", err)
	}
	defer cs.Close()

	_, err = cs.AwaitReady("silent", 50*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout")
	}
	if errors.GetCode(err) != "NOT_READY" {
		t.Errorf("expected NOT_READY, got %v", err)
	}
}
