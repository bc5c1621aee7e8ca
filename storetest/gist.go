// Package storetest provides test support for packages using the store
// backends, notably an in-process fake of the GitHub gist API.
package storetest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Gist is an httptest.Server implementing the subset of the GitHub gist API
// used by store.RemoteBackend: reading a gist, reading raw file content, and
// patching file content.
type Gist struct {
	*httptest.Server

	ID    string // ID of the single gist served.
	Token string // Required bearer token.

	mu         sync.Mutex
	files      map[string]string
	truncateAt int
	fail       bool
	gets       int
	patches    int
}

// NewGist starts a Gist server which is closed with the test.
func NewGist(t testing.TB) *Gist {
	var g = &Gist{
		ID:    "0123abcd",
		Token: "test-token",
		files: make(map[string]string),
	}
	var mux = http.NewServeMux()
	mux.HandleFunc("GET /gists/{id}", g.serveGet)
	mux.HandleFunc("PATCH /gists/{id}", g.servePatch)
	mux.HandleFunc("GET /raw/{name}", g.serveRaw)

	g.Server = httptest.NewServer(g.authorize(mux))
	t.Cleanup(g.Server.Close)
	return g
}

// Put sets the content of file |name|.
func (g *Gist) Put(name, content string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.files[name] = content
}

// Content returns the content of file |name|, and whether it exists.
func (g *Gist) Content(name string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var c, ok = g.files[name]
	return c, ok
}

// TruncateAt causes inline content longer than |n| bytes to be truncated,
// as GitHub does for large files. Zero disables truncation.
func (g *Gist) TruncateAt(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.truncateAt = n
}

// Fail causes all requests to fail with an internal server error.
func (g *Gist) Fail(fail bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fail = fail
}

// Counts returns the number of served gist GETs and PATCHes.
func (g *Gist) Counts() (gets, patches int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gets, g.patches
}

func (g *Gist) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		var fail = g.fail
		g.mu.Unlock()

		if fail {
			http.Error(w, "unavailable", http.StatusInternalServerError)
		} else if r.Header.Get("Authorization") != "Bearer "+g.Token {
			http.Error(w, "bad credentials", http.StatusUnauthorized)
		} else {
			next.ServeHTTP(w, r)
		}
	})
}

type file struct {
	Filename  string `json:"filename"`
	Content   string `json:"content"`
	Truncated bool   `json:"truncated"`
	RawURL    string `json:"raw_url"`
}

func (g *Gist) serveGet(w http.ResponseWriter, r *http.Request) {
	if r.PathValue("id") != g.ID {
		http.NotFound(w, r)
		return
	}
	g.mu.Lock()
	g.gets++
	var body = g.render()
	g.mu.Unlock()

	writeJSON(w, body)
}

func (g *Gist) servePatch(w http.ResponseWriter, r *http.Request) {
	if r.PathValue("id") != g.ID {
		http.NotFound(w, r)
		return
	}
	var patch struct {
		Files map[string]struct {
			Content string `json:"content"`
		} `json:"files"`
	}
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	g.mu.Lock()
	g.patches++
	for name, f := range patch.Files {
		g.files[name] = f.Content
	}
	var body = g.render()
	g.mu.Unlock()

	writeJSON(w, body)
}

func (g *Gist) serveRaw(w http.ResponseWriter, r *http.Request) {
	var content, ok = g.Content(r.PathValue("name"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	_, _ = w.Write([]byte(content))
}

// render the gist resource. g.mu must be held.
func (g *Gist) render() interface{} {
	var files = make(map[string]file, len(g.files))
	for name, content := range g.files {
		var f = file{Filename: name, Content: content, RawURL: g.URL + "/raw/" + name}
		if g.truncateAt != 0 && len(content) > g.truncateAt {
			f.Content, f.Truncated = content[:g.truncateAt], true
		}
		files[name] = f
	}
	return map[string]interface{}{"id": g.ID, "files": files}
}

func writeJSON(w http.ResponseWriter, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}
