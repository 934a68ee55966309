// Package cmdtest provides a fake remote site and configuration helpers for
// command tests.
package cmdtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hashicorp-forge/distributor/internal/cmd/base"
	"github.com/hashicorp-forge/distributor/pkg/database"
	"github.com/hashicorp-forge/distributor/pkg/remote"
)

// ConfigPath is where Env writes the configuration.
const ConfigPath = "/etc/distributor.hcl"

// Peer is a fake remote site exposing a posts collection.
type Peer struct {
	*httptest.Server

	// Marker makes the peer answer with the distributor header.
	Marker bool

	mu     sync.Mutex
	posts  map[int64]map[string]any
	pushes []map[string]any
	nextID int64
}

// NewPeer starts a peer that is closed with the test.
func NewPeer(t *testing.T) *Peer {
	t.Helper()
	p := &Peer{posts: map[int64]map[string]any{}, nextID: 100}
	p.Server = httptest.NewServer(http.HandlerFunc(p.serve))
	t.Cleanup(p.Close)
	return p
}

// AddPost stores a published remote post.
func (p *Peer) AddPost(id int64, title string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.posts[id] = map[string]any{
		"id":       id,
		"date_gmt": "2024-01-02T03:04:05",
		"title":    map[string]string{"rendered": title},
		"content":  map[string]string{"rendered": "<p>" + title + "</p>"},
		"excerpt":  map[string]string{"rendered": ""},
		"status":   "publish",
		"type":     "post",
		"link":     fmt.Sprintf("%s/?p=%d", p.URL, id),
	}
}

// Pushes returns the bodies POSTed to the peer.
func (p *Peer) Pushes() []map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]map[string]any(nil), p.pushes...)
}

func (p *Peer) serve(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Marker {
		w.Header().Set(remote.HeaderMarker, "yes")
	}

	switch {
	case r.URL.Path == "/":
		writeJSON(w, http.StatusOK, map[string]any{
			"name": "Peer",
			"routes": map[string]any{
				"/wp/v2/posts": map[string]any{"methods": []string{"GET", "POST"}},
			},
		})
		return

	case r.URL.Path == "/wp/v2/types":
		writeJSON(w, http.StatusOK, map[string]any{
			"post": map[string]any{
				"_links": map[string]any{"wp:items": []any{map[string]string{"href": p.URL + "/wp/v2/posts"}}},
			},
		})
		return

	case !strings.HasPrefix(r.URL.Path, "/wp/v2/posts"):
		http.NotFound(w, r)
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/wp/v2/posts"), "/")
	switch {
	case r.Method == http.MethodGet && rest == "":
		out := []any{}
		for id := int64(1); id < p.nextID; id++ {
			if post, ok := p.posts[id]; ok {
				out = append(out, post)
			}
		}
		w.Header().Set(remote.HeaderTotal, strconv.Itoa(len(out)))
		writeJSON(w, http.StatusOK, out)

	case r.Method == http.MethodGet:
		id, _ := strconv.ParseInt(rest, 10, 64)
		post, ok := p.posts[id]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"code": "rest_post_invalid_id"})
			return
		}
		writeJSON(w, http.StatusOK, post)

	case r.Method == http.MethodPost:
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if _, probe := body["test"]; probe {
			writeJSON(w, http.StatusBadRequest, map[string]string{"code": "rest_invalid_param"})
			return
		}
		p.pushes = append(p.pushes, body)

		id, status := p.nextID, http.StatusCreated
		if rest != "" {
			id, _ = strconv.ParseInt(rest, 10, 64)
			status = http.StatusOK
		} else {
			p.nextID++
		}
		p.posts[id] = map[string]any{
			"id":      id,
			"title":   map[string]any{"rendered": body["title"]},
			"content": map[string]any{"rendered": body["content"]},
			"status":  body["status"],
			"type":    "post",
		}
		writeJSON(w, status, map[string]any{"id": id})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Env is an in-memory configuration plus a SQLite file that outlives single
// command runs.
type Env struct {
	FS     afero.Fs
	DBPath string
}

// NewEnv writes a configuration with one connection named "peer" pointing
// at peerURL. extra is appended verbatim.
func NewEnv(t *testing.T, peerURL, extra string) *Env {
	t.Helper()

	env := &Env{
		FS:     afero.NewMemMapFs(),
		DBPath: filepath.Join(t.TempDir(), "distributor.db"),
	}

	src := fmt.Sprintf(`
site {
  name = "Origin"
  url  = "https://origin.example"
}

database {
  driver = "sqlite"
  path   = %q
}

connection "peer" {
  url = %q
}

log {
  level = "error"
}
%s`, env.DBPath, peerURL, extra)

	require.NoError(t, afero.WriteFile(env.FS, ConfigPath, []byte(src), 0o644))
	return env
}

// DB opens the environment's database, migrated, for seeding and
// assertions. It is closed with the test.
func (e *Env) DB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Path: e.DBPath}, nil)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// Command returns a base command reading from the environment and the UI it
// writes to.
func (e *Env) Command() (*base.Command, *cli.MockUi) {
	ui := cli.NewMockUi()
	return &base.Command{Log: hclog.NewNullLogger(), UI: ui, FS: e.FS}, ui
}
