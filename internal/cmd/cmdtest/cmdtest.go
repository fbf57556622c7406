// Package cmdtest provides a fake Directory API and command harness for
// testing dirsync commands.
package cmdtest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp-forge/dirsync/internal/cmd/base"
)

// ConfigPath is the config file written by New.
const ConfigPath = "dirsync.hcl"

// Request is a request received by the fake API.
type Request struct {
	Method string
	Path   string
	Query  string
	Body   []byte
}

// Route returns "METHOD /path".
func (r Request) Route() string {
	return r.Method + " " + r.Path
}

// API is a fake Directory API. Unregistered routes answer 404.
type API struct {
	*httptest.Server

	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	requests []Request
}

// NewAPI starts a fake API that is closed when the test ends.
func NewAPI(t testing.TB) *API {
	t.Helper()
	a := &API{routes: map[string]http.HandlerFunc{}}
	a.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
		a.mu.Lock()
		a.requests = append(a.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Body:   body,
		})
		h, ok := a.routes[r.Method+" "+r.URL.Path]
		a.mu.Unlock()

		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"no route"}`))
			return
		}
		h(w, r)
	}))
	t.Cleanup(a.Close)
	return a
}

// JSON answers route with status and v encoded as JSON.
func (a *API) JSON(route string, status int, v any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.routes[route] = func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
}

// Sequence answers successive requests to route with the given values,
// repeating the last one.
func (a *API) Sequence(route string, values ...any) {
	var (
		mu sync.Mutex
		n  int
	)
	a.mu.Lock()
	defer a.mu.Unlock()
	a.routes[route] = func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		v := values[min(n, len(values)-1)]
		n++
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
}

// Requests returns the requests received so far.
func (a *API) Requests() []Request {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Request(nil), a.requests...)
}

// Routes returns the "METHOD /path" of each request received so far.
func (a *API) Routes() []string {
	var out []string
	for _, r := range a.Requests() {
		out = append(out, r.Route())
	}
	return out
}

// Harness runs commands against an API with an in-memory filesystem.
type Harness struct {
	*base.Command

	UI          *cli.MockUi
	Fs          afero.Fs
	JournalPath string
}

// New returns a harness whose environment points at api. A config file at
// ConfigPath stores the journal in a temporary directory.
func New(t testing.TB, api *API) *Harness {
	t.Helper()

	fs := afero.NewMemMapFs()
	journalPath := filepath.Join(t.TempDir(), "journal.db")
	cfg := fmt.Sprintf("poll_interval = \"1ms\"\nretry_delay = \"1ms\"\n\njournal {\n  path = %q\n}\n", journalPath)
	require.NoError(t, afero.WriteFile(fs, ConfigPath, []byte(cfg), 0o644))

	env := map[string]string{
		"QMPLUS_TENANT_ID":   "acme",
		"QMPLUS_API_TOKEN":   "test-token",
		"API_RETRY_ATTEMPTS": "0",
		"LOG_LEVEL":          "error",
	}
	if api != nil {
		env["QMPLUS_BASE_URL"] = api.URL
	}

	ui := cli.NewMockUi()
	return &Harness{
		Command: &base.Command{
			Log:    hclog.NewNullLogger(),
			UI:     ui,
			Fs:     fs,
			Getenv: func(k string) string { return env[k] },
		},
		UI:          ui,
		Fs:          fs,
		JournalPath: journalPath,
	}
}

// WriteFile adds a file to the harness filesystem.
func (h *Harness) WriteFile(t testing.TB, name, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(h.Fs, name, []byte(content), 0o644))
}

// Output returns everything written to the UI's output stream.
func (h *Harness) Output() string {
	return h.UI.OutputWriter.String()
}

// Errors returns everything written to the UI's error stream.
func (h *Harness) Errors() string {
	return h.UI.ErrorWriter.String()
}
