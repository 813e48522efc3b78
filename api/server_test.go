package api

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/angelmondragon/coverledger/pkg/config"
	"github.com/angelmondragon/coverledger/pkg/logger"
)

func TestServeDisabledWithoutAddr(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	if err := Serve(context.Background(), config.OpsConfig{}, http.NotFoundHandler(), logg); err != nil {
		t.Fatalf("expected nil for disabled listener, got %v", err)
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, config.OpsConfig{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second}, http.NotFoundHandler(), logg)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("serve did not return after cancel")
	}
}
