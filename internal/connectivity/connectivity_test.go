package connectivity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestManualEdgeTrigger(t *testing.T) {
	m := NewManual(false)

	fired := 0
	m.OnRestored(func() { fired++ })

	m.SetOnline(true)
	if fired != 1 {
		t.Fatalf("fired = %d after offline->online, want 1", fired)
	}

	// Staying online is not an edge.
	m.SetOnline(true)
	if fired != 1 {
		t.Errorf("fired = %d after online->online, want 1", fired)
	}

	// Going offline is not a restore.
	m.SetOnline(false)
	if fired != 1 {
		t.Errorf("fired = %d after online->offline, want 1", fired)
	}

	m.SetOnline(true)
	if fired != 2 {
		t.Errorf("fired = %d after second restore, want 2", fired)
	}
}

func TestProberDetectsRestore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	p := NewProber(srv.URL, 10*time.Millisecond, nil)
	if p.IsOnline() {
		t.Fatal("prober must start offline")
	}

	restored := make(chan struct{}, 1)
	p.OnRestored(func() {
		select {
		case restored <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	select {
	case <-restored:
	case <-time.After(2 * time.Second):
		t.Fatal("restore callback never fired")
	}
	if !p.IsOnline() {
		t.Error("prober should report online after successful probe")
	}
}
