package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/gordian/pkg/archive"
	"github.com/matzehuels/gordian/pkg/errors"
	"github.com/matzehuels/gordian/pkg/observability"
	"github.com/matzehuels/gordian/pkg/pipeline"
)

const (
	ringNodes = "pn 1 1 terminal\nps 1 1 terminal\npe 1 1 terminal\npw 1 1 terminal\nn 1 1\ns 1 1\ne 1 1\nw 1 1\n"
	ringNets  = "NetDegree : 2\npn B\nn B\nNetDegree : 2\nps B\ns B\nNetDegree : 2\npe B\ne B\nNetDegree : 2\npw B\nw B\n" +
		"NetDegree : 2\nn B\ne B\nNetDegree : 2\ne B\ns B\nNetDegree : 2\ns B\nw B\nNetDegree : 2\nw B\nn B\n"
)

func newTestServer(t *testing.T) (*httptest.Server, *archive.MemoryStore) {
	t.Helper()
	runner := pipeline.NewRunner(nil, nil, nil)
	store := archive.NewMemoryStore()
	runner.Archive = store
	ts := httptest.NewServer(New(runner, nil).Handler())
	t.Cleanup(ts.Close)
	return ts, store
}

func postPlace(t *testing.T, ts *httptest.Server, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(ts.URL+"/v1/place", "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestPlaceAndFetchRun(t *testing.T) {
	ts, store := newTestServer(t)
	resp := postPlace(t, ts, map[string]any{
		"design":      "ring",
		"nodes":       ringNodes,
		"nets":        ringNets,
		"utilization": 1,
		"bisector":    "area",
		"formats":     []string{"pl", "json"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	got := decode[PlaceResponse](t, resp)
	if got.Cells != 8 || got.Nets != 8 || got.Partitions != 2 || got.Cached {
		t.Errorf("response = %+v", got)
	}
	if !strings.HasPrefix(got.Artifacts["pl"], "UCLA pl 1.0") || got.Artifacts["json"] == "" {
		t.Errorf("artifacts = %v", got.Artifacts)
	}

	runs, _ := store.List(context.Background(), 0)
	if len(runs) != 1 || runs[0].ID != got.RunID {
		t.Fatalf("archive holds %d runs", len(runs))
	}

	r2, err := http.Get(ts.URL + "/v1/runs/" + got.RunID)
	if err != nil {
		t.Fatal(err)
	}
	defer r2.Body.Close()
	if r2.StatusCode != http.StatusOK {
		t.Fatalf("get run status = %d", r2.StatusCode)
	}
	run := decode[archive.Run](t, r2)
	if run.Design != "ring" || run.FinalHPWL != got.FinalHPWL {
		t.Errorf("run = %+v", run)
	}

	r3, err := http.Get(ts.URL + "/v1/runs?limit=5")
	if err != nil {
		t.Fatal(err)
	}
	defer r3.Body.Close()
	list := decode[struct {
		Runs []archive.Run `json:"runs"`
	}](t, r3)
	if len(list.Runs) != 1 {
		t.Errorf("listed %d runs", len(list.Runs))
	}
}

func TestErrors(t *testing.T) {
	ts, _ := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   errors.Code
	}{
		{"unknown run", http.MethodGet, "/v1/runs/6ba7b810-9dad-11d1-80b4-00c04fd430c8", "", http.StatusNotFound, errors.ErrCodeRunNotFound},
		{"bad limit", http.MethodGet, "/v1/runs?limit=x", "", http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"bad json", http.MethodPost, "/v1/place", "{", http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"unknown field", http.MethodPost, "/v1/place", `{"nodez": "x"}`, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"missing nets", http.MethodPost, "/v1/place", `{"nodes": "a 1 1\n"}`, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"malformed nodes", http.MethodPost, "/v1/place", `{"nodes": "a x 1\n", "nets": "NetDegree : 0\n"}`, http.StatusBadRequest, errors.ErrCodeInvalidFormat},
		{"no pads", http.MethodPost, "/v1/place", `{"nodes": "a 1 1\n", "nets": "NetDegree : 0\n"}`, http.StatusBadRequest, errors.ErrCodeConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, ts.URL+tt.path, strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			body := decode[errorBody](t, resp)
			if body.Code != tt.code || body.Error == "" {
				t.Errorf("body = %+v, want code %s", body, tt.code)
			}
		})
	}
}

type recordingHooks struct {
	observability.NoopHTTPHooks
	mu     sync.Mutex
	routes []string
	errs   int
}

func (h *recordingHooks) OnResponse(_ context.Context, method, route string, status int, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.routes = append(h.routes, method+" "+route)
}

func (h *recordingHooks) OnError(context.Context, string, string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errs++
}

func TestHTTPHooks(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetHTTPHooks(hooks)
	defer observability.Reset()

	ts, _ := newTestServer(t)
	for _, path := range []string{"/healthz", "/v1/runs/6ba7b810-9dad-11d1-80b4-00c04fd430c8"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}

	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	want := []string{"GET /healthz", "GET /v1/runs/{id}"}
	if strings.Join(hooks.routes, ",") != strings.Join(want, ",") {
		t.Errorf("routes = %v, want %v", hooks.routes, want)
	}
	if hooks.errs != 1 {
		t.Errorf("errors = %d, want 1", hooks.errs)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errors.New(errors.ErrCodeInvalidConfig, "x"), http.StatusBadRequest},
		{errors.New(errors.ErrCodeRunNotFound, "x"), http.StatusNotFound},
		{errors.New(errors.ErrCodeTimeout, "x"), http.StatusGatewayTimeout},
		{errors.New(errors.ErrCodeUnsupported, "x"), http.StatusNotImplemented},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New(errors.ErrCodeInternal, "x"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
