package httpserver

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func TestNewAppliesDefaultsAndOptions(t *testing.T) {
	srv := New(8080, http.NotFoundHandler())
	if srv.Addr() != ":8080" {
		t.Fatalf("expected :8080 got %s", srv.Addr())
	}
	if srv.inner.WriteTimeout != 2*time.Minute {
		t.Fatalf("unexpected default write timeout %s", srv.inner.WriteTimeout)
	}

	srv = New(9090, http.NotFoundHandler(), WithTimeouts(time.Second, 3*time.Second))
	if srv.inner.ReadTimeout != time.Second || srv.inner.WriteTimeout != 3*time.Second {
		t.Fatalf("options not applied: read=%s write=%s", srv.inner.ReadTimeout, srv.inner.WriteTimeout)
	}
}

func TestShutdownBeforeStart(t *testing.T) {
	srv := New(0, http.NotFoundHandler())
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("unexpected shutdown error: %v", err)
	}
}
