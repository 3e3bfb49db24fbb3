package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/api"
	"github.com/vladislavdragonenkov/storefront/internal/service/profile"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("loadtest", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func testConfig(mode loadMode) config {
	return config{
		baseURL:     "http://unused",
		total:       6,
		concurrency: 3,
		timeout:     2 * time.Second,
		mode:        mode,
		amount:      decimal.RequireFromString("25.00"),
		profileTag:  "lt",
	}
}

func newAPIServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := log.New()
	logger.SetOutput(io.Discard)
	entry := log.NewEntry(logger)

	registry := profile.NewRegistry(profile.Options{Store: memory.NewKVStore(), Logger: entry})
	srv := httptest.NewServer(api.NewRouter(registry, entry))
	t.Cleanup(srv.Close)
	return srv
}

type fakeClient struct {
	mu     sync.Mutex
	calls  []string
	status int
	err    error
}

func (f *fakeClient) Do(_ context.Context, method, path string, _ any) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, method+" "+path)
	return f.status, f.err
}

func TestParseMode(t *testing.T) {
	testCases := []struct {
		input   string
		want    loadMode
		wantErr bool
	}{
		{input: "browse", want: modeBrowse},
		{input: " wallet ", want: modeWallet},
		{input: "compare", want: modeCompare},
		{input: "create-pay", wantErr: true},
	}

	for _, tc := range testCases {
		got, err := parseMode(tc.input)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("parseMode(%q): expected error", tc.input)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("parseMode(%q) = %q, %v", tc.input, got, err)
		}
	}
}

func TestParseConfig(t *testing.T) {
	cfg, err := parseConfig(newFlagSet(), []string{
		"-url", "http://localhost:8080/",
		"-mode", "wallet",
		"-decline-rate", "20",
		"-amount", "12.50",
		"-duration", "2s",
	})
	if err != nil {
		t.Fatalf("parseConfig failed: %v", err)
	}
	if cfg.baseURL != "http://localhost:8080" {
		t.Fatalf("trailing slash must be trimmed, got %s", cfg.baseURL)
	}
	if cfg.mode != modeWallet || cfg.declineRate != 20 || !cfg.amount.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.duration != 2*time.Second || cfg.totalSet {
		t.Fatalf("unexpected duration settings %+v", cfg)
	}

	cfg, err = parseConfig(newFlagSet(), []string{"-duration", "1s", "-total", "10"})
	if err != nil {
		t.Fatalf("parseConfig failed: %v", err)
	}
	if !cfg.totalSet {
		t.Fatal("expected totalSet when -total is passed")
	}
}

func TestParseConfig_Errors(t *testing.T) {
	testCases := [][]string{
		{"-timeout", "soon"},
		{"-duration", "later"},
		{"-amount", "ten"},
		{"-amount", "0"},
		{"-mode", "unknown"},
		{"-url", " "},
		{"-duration", "-1s"},
		{"-total", "0"},
		{"-duration", "1s", "-total", "0"},
		{"-concurrency", "0"},
		{"-timeout", "0s"},
		{"-decline-rate", "101"},
		{"-profile-tag", " "},
	}

	for _, args := range testCases {
		if _, err := parseConfig(newFlagSet(), args); err == nil {
			t.Fatalf("parseConfig(%v): expected error", args)
		}
	}
}

func TestDispatchJobs(t *testing.T) {
	cfg := testConfig(modeBrowse)
	cfg.total = 5
	jobs := make(chan int, 10)
	dispatchJobs(jobs, cfg)

	var got []int
	for id := range jobs {
		got = append(got, id)
	}
	if len(got) != 5 {
		t.Fatalf("expected 5 jobs, got %d", len(got))
	}

	cfg.duration = 50 * time.Millisecond
	cfg.total = 3
	cfg.totalSet = true
	jobs = make(chan int, 10)
	dispatchJobs(jobs, cfg)
	count := 0
	for range jobs {
		count++
	}
	if count != 3 {
		t.Fatalf("expected total to cap duration run at 3, got %d", count)
	}
}

func TestDispatchJobs_DurationStops(t *testing.T) {
	cfg := testConfig(modeBrowse)
	cfg.duration = 30 * time.Millisecond
	jobs := make(chan int)

	done := make(chan struct{})
	go func() {
		for range jobs {
			time.Sleep(time.Millisecond)
		}
		close(done)
	}()
	dispatchJobs(jobs, cfg)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatchJobs did not stop after duration")
	}
}

func TestCollectorAndReport(t *testing.T) {
	col := newCollector()
	col.record("scenario", 10*time.Millisecond, "ok", true)
	col.record("scenario", 30*time.Millisecond, "failed", false)
	col.record("TopUpWallet", 5*time.Millisecond, "200", true)

	result := col.buildReport(time.Now(), time.Second)
	if result.TotalScenarios != 2 || result.SuccessScenarios != 1 || result.FailedScenarios != 1 {
		t.Fatalf("unexpected scenario totals %+v", result)
	}
	if result.ErrorRate != 0.5 {
		t.Fatalf("unexpected error rate %f", result.ErrorRate)
	}
	if result.RPS != 2 {
		t.Fatalf("unexpected rps %f", result.RPS)
	}
	if result.Methods["TopUpWallet"].Codes["200"] != 1 {
		t.Fatalf("unexpected codes %+v", result.Methods["TopUpWallet"].Codes)
	}
}

func TestUtilityFunctions(t *testing.T) {
	if ratio(1, 0) != 0 || ratio(1, 4) != 0.25 {
		t.Fatal("unexpected ratio")
	}
	if percentile(nil, 50) != 0 || percentile([]float64{7}, 99) != 7 {
		t.Fatal("unexpected percentile for short input")
	}
	if got := percentile([]float64{1, 2, 3, 4}, 50); got != 2.5 {
		t.Fatalf("unexpected p50 %f", got)
	}
	if shouldDecline(5, 0) || !shouldDecline(5, 100) || !shouldDecline(5, 10) || shouldDecline(15, 10) {
		t.Fatal("unexpected decline decision")
	}
	summary := buildLatencySummary([]float64{3, 1, 2})
	if summary.Min != 1 || summary.Max != 3 || summary.Avg != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	cfg := testConfig(modeBrowse)
	if runTarget(cfg) != "count:6" {
		t.Fatalf("unexpected target %s", runTarget(cfg))
	}
	cfg.duration = time.Minute
	if runTarget(cfg) != "duration:1m0s" {
		t.Fatalf("unexpected target %s", runTarget(cfg))
	}
	cfg.totalSet = true
	if runTarget(cfg) != "duration:1m0s,max-total:6" {
		t.Fatalf("unexpected target %s", runTarget(cfg))
	}
}

func TestWriteJSONReport(t *testing.T) {
	t.Chdir(t.TempDir())

	result := report{TotalScenarios: 3, Methods: map[string]methodReport{}}
	if err := writeJSONReport("report.json", result); err != nil {
		t.Fatalf("writeJSONReport failed: %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(".", "report.json"))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var decoded report
	if err := json.Unmarshal(raw, &decoded); err != nil || decoded.TotalScenarios != 3 {
		t.Fatalf("unexpected report %s (%v)", raw, err)
	}

	if err := writeJSONReport(".", result); err == nil {
		t.Fatal("expected error for directory path")
	}
	if err := writeJSONReport("../escape.json", result); err == nil {
		t.Fatal("expected error for path outside current directory")
	}
}

func TestScenariosAgainstAPI(t *testing.T) {
	srv := newAPIServer(t)
	client := newHTTPClient(srv.URL+"/", srv.Client())

	for _, mode := range []loadMode{modeBrowse, modeWallet, modeCompare} {
		t.Run(string(mode), func(t *testing.T) {
			cfg := testConfig(mode)
			cfg.declineRate = 50

			result := runLoad(client, cfg)
			if result.TotalScenarios != int64(cfg.total) {
				t.Fatalf("expected %d scenarios, got %d", cfg.total, result.TotalScenarios)
			}
			if result.FailedScenarios != 0 {
				t.Fatalf("expected no failed scenarios, got %+v", result.Methods)
			}
		})
	}
}

func TestWalletScenario_DeclineExpects402(t *testing.T) {
	srv := newAPIServer(t)
	client := newHTTPClient(srv.URL, srv.Client())
	cfg := testConfig(modeWallet)
	cfg.declineRate = 100
	col := newCollector()

	if err := runScenario(client, cfg, 1, "run", col); err != nil {
		t.Fatalf("runScenario failed: %v", err)
	}
	result := col.buildReport(time.Now(), time.Second)
	if result.Methods["DeductWallet"].Codes["402"] != 1 {
		t.Fatalf("expected a declined deduct, got %+v", result.Methods["DeductWallet"].Codes)
	}
}

func TestCompareScenario_RejectsOverflow(t *testing.T) {
	srv := newAPIServer(t)
	client := newHTTPClient(srv.URL, srv.Client())
	col := newCollector()

	if err := runScenario(client, testConfig(modeCompare), 7, "run", col); err != nil {
		t.Fatalf("runScenario failed: %v", err)
	}
	codes := col.buildReport(time.Now(), time.Second).Methods["ToggleComparison"].Codes
	if codes["200"] != comparisonSize-1 || codes["409"] != 1 {
		t.Fatalf("unexpected toggle codes %+v", codes)
	}
}

func TestRunScenario_Failures(t *testing.T) {
	col := newCollector()
	cfg := testConfig(modeBrowse)

	transport := &fakeClient{err: errors.New("connection refused")}
	if err := runScenario(transport, cfg, 0, "run", col); err == nil {
		t.Fatal("expected transport error")
	}
	if len(transport.calls) != 1 {
		t.Fatalf("scenario must stop at first failure, got %v", transport.calls)
	}

	unavailable := &fakeClient{status: http.StatusServiceUnavailable}
	if err := runScenario(unavailable, cfg, 1, "run", col); err == nil || !strings.Contains(err.Error(), "503") {
		t.Fatalf("expected unexpected status error, got %v", err)
	}

	result := col.buildReport(time.Now(), time.Second)
	if result.FailedScenarios != 2 {
		t.Fatalf("expected 2 failed scenarios, got %d", result.FailedScenarios)
	}
	if result.Methods["RecordView"].Codes[transportError] != 1 {
		t.Fatalf("expected transport error code, got %+v", result.Methods["RecordView"].Codes)
	}
}

func TestPrintReport(t *testing.T) {
	col := newCollector()
	col.record("scenario", time.Millisecond, "ok", true)
	col.record("GetSnapshot", time.Millisecond, "200", true)
	col.record("RecordView", time.Millisecond, "200", true)

	var out bytes.Buffer
	printReport(&out, col.buildReport(time.Now(), time.Second), testConfig(modeBrowse))

	text := out.String()
	if !strings.Contains(text, "mode=browse run=count:6 total=1") {
		t.Fatalf("unexpected summary line: %s", text)
	}
	if strings.Index(text, "GetSnapshot:") > strings.Index(text, "RecordView:") {
		t.Fatalf("methods must be sorted: %s", text)
	}
	if strings.Contains(text, "scenario:") {
		t.Fatalf("scenario must not be listed as a method: %s", text)
	}
}
