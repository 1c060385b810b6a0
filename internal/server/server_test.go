// File: internal/server/server_test.go
package server

import (
	"context"
	"testing"
	"time"

	"github.com/smartdevs17/rsk-readiness-orchestrator/pkg/utils"
)

func TestUptimeUpdaterStopsOnCancel(t *testing.T) {
	s := &HTTPServer{
		config: &ServerConfig{},
		logger: utils.GetLogger(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		s.uptimeUpdater(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("uptime updater kept running after cancellation")
	}
}
