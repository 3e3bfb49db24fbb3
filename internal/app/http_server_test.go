package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

func startTestMetricsServer(t *testing.T, handler *healthcheck.Handler) (string, context.CancelFunc) {
	t.Helper()

	port := findFreePort(t)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	srv := startMetricsServer(ctx, fmt.Sprintf(":%d", port), log.WithField("test", "metrics-server"), handler)
	if srv == nil {
		t.Fatal("startMetricsServer returned nil")
	}

	base := fmt.Sprintf("http://localhost:%d", port)
	waitForHTTP(t, base+"/livez")
	return base, cancel
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestStartMetricsServer_Endpoints(t *testing.T) {
	metrics.NewStoreMetrics().SetActiveProfiles(3)

	handler := healthcheck.NewHandler(version.GetVersion())
	handler.RegisterChecker("storage", healthcheck.NewFuncChecker("storage", func(context.Context) error { return nil }))
	base, _ := startTestMetricsServer(t, handler)

	testCases := []struct {
		path     string
		wantCode int
		contains string
	}{
		{path: "/metrics", wantCode: http.StatusOK, contains: "storefront_state_active_profiles 3"},
		{path: "/healthz", wantCode: http.StatusOK, contains: `"storage"`},
		{path: "/livez", wantCode: http.StatusOK, contains: "ok"},
		{path: "/readyz", wantCode: http.StatusOK, contains: "ready"},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			code, body := get(t, base+tc.path)
			if code != tc.wantCode {
				t.Fatalf("unexpected status: got=%d want=%d", code, tc.wantCode)
			}
			if !strings.Contains(body, tc.contains) {
				t.Fatalf("body does not contain %q: %s", tc.contains, body)
			}
		})
	}
}

func TestStartMetricsServer_StorageDownFailsReadiness(t *testing.T) {
	handler := healthcheck.NewHandler(version.GetVersion())
	handler.RegisterChecker("storage", healthcheck.NewFuncChecker("storage", func(context.Context) error {
		return errors.New("database is locked")
	}))
	base, _ := startTestMetricsServer(t, handler)

	if code, _ := get(t, base+"/healthz"); code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 from /healthz, got %d", code)
	}
	if code, body := get(t, base+"/readyz"); code != http.StatusServiceUnavailable || body != "not ready" {
		t.Fatalf("expected 503 not ready from /readyz, got %d %q", code, body)
	}
	// liveness не зависит от хранилища
	if code, _ := get(t, base+"/livez"); code != http.StatusOK {
		t.Fatalf("expected 200 from /livez, got %d", code)
	}
}

func TestStartMetricsServer_ForwarderBacklogIsDegraded(t *testing.T) {
	handler := healthcheck.NewHandler(version.GetVersion())
	handler.RegisterChecker("kafka-forwarder", healthcheck.NewBacklogChecker("kafka-forwarder", func() int { return 900 }, 800))
	base, _ := startTestMetricsServer(t, handler)

	code, body := get(t, base+"/healthz")
	if code != http.StatusOK || !strings.Contains(body, "degraded") {
		t.Fatalf("expected degraded 200 from /healthz, got %d %s", code, body)
	}
	if code, _ := get(t, base+"/readyz"); code != http.StatusOK {
		t.Fatalf("degraded service must stay ready, got %d", code)
	}
}

func TestStartMetricsServer_StopsOnContextCancel(t *testing.T) {
	base, cancel := startTestMetricsServer(t, healthcheck.NewHandler(version.GetVersion()))

	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(base + "/livez")
		if err != nil {
			return
		}
		resp.Body.Close()
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("metrics server still serving after context cancellation")
}

func TestShutdownHTTP_NilServer(_ *testing.T) {
	shutdownHTTP(nil, log.WithField("test", "http-nil"))
}

// findFreePort находит свободный порт для тестов
func findFreePort(t *testing.T) int {
	t.Helper()

	listener, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}
	defer listener.Close()

	return listener.Addr().(*net.TCPAddr).Port
}
