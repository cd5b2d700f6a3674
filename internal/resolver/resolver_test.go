package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"terabox-extractor/internal/monitor"
	"terabox-extractor/internal/platform/terabox"
	"terabox-extractor/internal/registry"
	"terabox-extractor/internal/utils"
	"terabox-extractor/pkg/models"
)

// mockStrategy is a scripted strategy that counts its calls
type mockStrategy struct {
	name   string
	result *models.VideoResult
	err    error
	panic  interface{}
	calls  int
	wait   bool
}

func (m *mockStrategy) Name() string { return m.name }

func (m *mockStrategy) Attempt(ctx context.Context, ref *models.ShareReference, originalURL string) (*models.VideoResult, error) {
	m.calls++
	if m.panic != nil {
		panic(m.panic)
	}
	if m.wait {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.result, m.err
}

func failing(name string) *mockStrategy {
	return &mockStrategy{name: name, err: models.NewStrategyError(name, errors.New("boom"))}
}

func succeeding(name, link string) *mockStrategy {
	return &mockStrategy{name: name, result: &models.VideoResult{Success: true, StreamURL: link, Title: name, Surl: "abc"}}
}

func newTestResolver(strategies ...models.Strategy) (*Resolver, *monitor.Monitor) {
	m := monitor.NewMonitor(zerolog.Nop())
	r := NewResolver(registry.NewRegistry(""), strategies, zerolog.Nop(), WithMonitor(m))
	return r, m
}

func TestResolveFirstSuccessWins(t *testing.T) {
	first := failing("one")
	second := succeeding("two", "https://stream/two")
	third := succeeding("three", "https://stream/three")

	r, m := newTestResolver(first, second, third)
	result := r.Resolve(context.Background(), "https://www.terabox.com/s/1abc")

	if !result.Playable() || result.StreamURL != "https://stream/two" {
		t.Errorf("Expected second strategy result, got %+v", result)
	}
	if first.calls != 1 || second.calls != 1 || third.calls != 0 {
		t.Errorf("Unexpected call counts: %d %d %d", first.calls, second.calls, third.calls)
	}

	if got := testutil.ToFloat64(m.GetMetrics().ResolutionsTotal.WithLabelValues(monitor.OutcomeSuccess)); got != 1 {
		t.Errorf("Expected success to be recorded, got %v", got)
	}
	if got := testutil.ToFloat64(m.GetMetrics().StrategyAttempts.WithLabelValues("one", monitor.StatusFailure)); got != 1 {
		t.Errorf("Expected failure of first strategy to be recorded, got %v", got)
	}
}

func TestResolveInvalidURL(t *testing.T) {
	strategy := succeeding("one", "https://s")
	r, m := newTestResolver(strategy)

	for _, u := range []string{"https://example.com/s/1abc", "not a url", ""} {
		result := r.Resolve(context.Background(), u)
		if result.Success || result.Error != models.MsgInvalidURL {
			t.Errorf("Expected invalid URL failure for %q, got %+v", u, result)
		}
	}

	if strategy.calls != 0 {
		t.Errorf("Expected no strategy calls, got %d", strategy.calls)
	}
	if got := testutil.ToFloat64(m.GetMetrics().ResolutionsTotal.WithLabelValues(monitor.OutcomeInvalidURL)); got != 3 {
		t.Errorf("Expected 3 invalid URL outcomes, got %v", got)
	}
}

func TestResolveNoShareToken(t *testing.T) {
	strategy := succeeding("one", "https://s")
	r, _ := newTestResolver(strategy)

	result := r.Resolve(context.Background(), "https://www.terabox.com/main?category=all")
	if result.Success || result.Error != models.MsgNoShareToken {
		t.Errorf("Expected missing share ID failure, got %+v", result)
	}
	if strategy.calls != 0 {
		t.Errorf("Expected no strategy calls, got %d", strategy.calls)
	}
}

func TestResolveAllFailedLeaksNothing(t *testing.T) {
	// a strategy returning a half-built result together with an error
	partial := &mockStrategy{
		name:   "partial",
		result: &models.VideoResult{Title: "leaked.mp4", Size: 99, FsID: "1"},
		err:    errors.New("no stream"),
	}
	// a strategy reporting success without a stream URL
	hollow := &mockStrategy{name: "hollow", result: &models.VideoResult{Success: true, Title: "hollow.mp4"}}

	r, m := newTestResolver(partial, hollow, failing("three"), failing("four"))
	result := r.Resolve(context.Background(), "https://terabox.app/s/1abc")

	expected := models.VideoResult{Surl: "abc", Error: models.MsgAllStrategiesFailed}
	if *result != expected {
		t.Errorf("Expected only surl and error, got %+v", result)
	}
	if got := testutil.ToFloat64(m.GetMetrics().ResolutionsTotal.WithLabelValues(monitor.OutcomeAllFailed)); got != 1 {
		t.Errorf("Expected all-failed outcome, got %v", got)
	}
}

func TestResolveRecoversStrategyPanic(t *testing.T) {
	panicking := &mockStrategy{name: "panicky", panic: "unexpected nil map"}
	next := succeeding("next", "https://stream/next")

	r, m := newTestResolver(panicking, next)
	result := r.Resolve(context.Background(), "https://www.terabox.com/s/1abc")

	if result.StreamURL != "https://stream/next" {
		t.Errorf("Expected fallback after panic, got %+v", result)
	}
	if got := testutil.ToFloat64(m.GetMetrics().StrategyAttempts.WithLabelValues("panicky", monitor.StatusPanic)); got != 1 {
		t.Errorf("Expected panic to be recorded, got %v", got)
	}
}

func TestResolveUnknownEndpointIsFatal(t *testing.T) {
	panicking := &mockStrategy{
		name:  "broken",
		panic: fmt.Errorf("%w: nope", models.ErrUnknownEndpoint),
	}
	r, _ := newTestResolver(panicking, succeeding("next", "https://s"))

	defer func() {
		if recover() == nil {
			t.Error("Expected unknown endpoint panic to propagate")
		}
	}()
	r.Resolve(context.Background(), "https://www.terabox.com/s/1abc")
}

func TestResolveTimeout(t *testing.T) {
	slow := &mockStrategy{name: "slow", wait: true}
	after := succeeding("after", "https://s")

	m := monitor.NewMonitor(zerolog.Nop())
	r := NewResolver(registry.NewRegistry(""), []models.Strategy{slow, after}, zerolog.Nop(),
		WithMonitor(m), WithTimeout(20*time.Millisecond))

	result := r.Resolve(context.Background(), "https://www.terabox.com/s/1abc")
	if result.Success || result.Error != models.MsgAllStrategiesFailed {
		t.Errorf("Expected all-failed after deadline, got %+v", result)
	}
	if after.calls != 0 {
		t.Errorf("Expected no attempts after the deadline, got %d", after.calls)
	}
}

func TestResolveWithoutMonitor(t *testing.T) {
	r := NewResolver(registry.NewRegistry(""), []models.Strategy{succeeding("one", "https://s")}, zerolog.Nop())
	if !r.Resolve(context.Background(), "  https://www.terabox.com/s/1abc  ").Playable() {
		t.Error("Expected success without a monitor")
	}
	if names := r.Strategies(); len(names) != 1 || names[0] != "one" {
		t.Errorf("Unexpected strategy names %v", names)
	}
}

func TestResolveEndToEndDirectLink(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/shorturlinfo" {
			t.Errorf("Expected only the direct-info call, got %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"errno":0,"shareid":1,"uk":2,"list":[{"server_filename":"e2e.mp4","size":1536,"fs_id":3,"dlink":"https://d/e2e"}]}`)
	}))
	defer server.Close()

	session := utils.NewSession(utils.DefaultClientConfig(), zerolog.Nop())
	defer session.Close()

	reg := registry.NewRegistry(server.URL)
	r := NewResolver(reg, terabox.NewStrategies(session, reg, zerolog.Nop()), zerolog.Nop())

	result := r.Resolve(context.Background(), "https://www.terabox.com/s/1abc")
	if !result.Playable() {
		t.Fatalf("Expected success, got %+v", result)
	}
	if result.StreamURL != "https://d/e2e" || result.Title != "e2e.mp4" || result.SizeStr != "1.50 KB" {
		t.Errorf("Unexpected result %+v", result)
	}
}

func TestResolveEndToEndAllFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	session := utils.NewSession(utils.DefaultClientConfig(), zerolog.Nop())
	defer session.Close()

	reg := registry.NewRegistry(server.URL)
	r := NewResolver(reg, terabox.NewStrategies(session, reg, zerolog.Nop()), zerolog.Nop())

	result := r.Resolve(context.Background(), "https://1024tera.com/s/1xyz")
	expected := models.VideoResult{Surl: "xyz", Error: models.MsgAllStrategiesFailed}
	if *result != expected {
		t.Errorf("Expected aggregate failure, got %+v", result)
	}
}
