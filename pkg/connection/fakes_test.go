package connection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/hashicorp-forge/distributor/pkg/document"
	"github.com/hashicorp-forge/distributor/pkg/models"
	"github.com/hashicorp-forge/distributor/pkg/remote"
	"github.com/hashicorp-forge/distributor/pkg/subscriptions"
)

// peer is a fake remote site serving a posts collection.
type peer struct {
	*httptest.Server

	mu       sync.Mutex
	posts    map[int64]map[string]any
	nextID   int64
	requests []string
	queries  []map[string][]string
	pushes   []map[string]any
	auth     []string

	marker     bool
	total      string
	noID       bool
	pushStatus int
	typesDown  bool
}

func newPeer(t *testing.T) *peer {
	t.Helper()
	p := &peer{posts: map[int64]map[string]any{}, nextID: 100}
	p.Server = httptest.NewServer(http.HandlerFunc(p.serve))
	t.Cleanup(p.Close)
	return p
}

func (p *peer) addPost(id int64, title string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.posts[id] = map[string]any{
		"id":       id,
		"date_gmt": "2024-01-02T03:04:05",
		"modified": "2024-01-03T03:04:05",
		"title":    map[string]string{"rendered": title},
		"content":  map[string]string{"rendered": "<p>" + title + "</p>"},
		"excerpt":  map[string]string{"rendered": "", "raw": "excerpt of " + title},
		"status":   "publish",
		"type":     "post",
		"author":   3,
		"link":     p.URL + "/" + strconv.FormatInt(id, 10),
		"guid":     map[string]string{"rendered": p.URL + "/?p=" + strconv.FormatInt(id, 10)},

		"distributor_meta":               map[string][]any{"subtitle": {"sub " + title}},
		"distributor_terms":              map[string]any{"category": []any{map[string]any{"term_id": 1, "name": "News", "slug": "news", "taxonomy": "category"}}},
		"distributor_media":              []any{},
		"distributor_original_site_name": "Peer",
		"distributor_original_site_url":  p.URL,
	}
}

func (p *peer) serve(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests = append(p.requests, r.Method+" "+r.URL.Path)
	p.auth = append(p.auth, r.Header.Get("Authorization"))
	if p.marker {
		w.Header().Set(remote.HeaderMarker, "yes")
	}

	if r.URL.Path == "/wp/v2/types" {
		if p.typesDown {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"post": map[string]any{"_links": map[string]any{"wp:items": []any{map[string]string{"href": p.URL + "/wp/v2/posts"}}}},
		})
		return
	}

	if !strings.HasPrefix(r.URL.Path, "/wp/v2/posts") {
		http.NotFound(w, r)
		return
	}
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/wp/v2/posts"), "/")

	switch {
	case r.Method == http.MethodGet && rest == "":
		p.queries = append(p.queries, r.URL.Query())
		var out []any
		for _, raw := range r.URL.Query()["include[]"] {
			id, _ := strconv.ParseInt(raw, 10, 64)
			if post, ok := p.posts[id]; ok {
				out = append(out, post)
			}
		}
		if p.total != "" {
			w.Header().Set(remote.HeaderTotal, p.total)
		}
		writeJSON(w, http.StatusOK, out)

	case r.Method == http.MethodGet:
		id, _ := strconv.ParseInt(rest, 10, 64)
		if id == 500 {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"code": "rest_broken", "message": "it broke"})
			return
		}
		post, ok := p.posts[id]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"code": "rest_post_invalid_id"})
			return
		}
		p.queries = append(p.queries, r.URL.Query())
		writeJSON(w, http.StatusOK, post)

	case r.Method == http.MethodPost:
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		p.pushes = append(p.pushes, body)

		if p.pushStatus != 0 {
			writeJSON(w, p.pushStatus, map[string]string{"code": "rest_cannot_create", "message": "denied"})
			return
		}

		id := p.nextID
		status := http.StatusCreated
		if rest != "" {
			id, _ = strconv.ParseInt(rest, 10, 64)
			status = http.StatusOK
		} else {
			p.nextID++
		}
		if p.noID {
			writeJSON(w, status, map[string]any{"title": body["title"]})
			return
		}
		writeJSON(w, status, map[string]any{"id": id})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (p *peer) requestLog() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.requests...)
}

func (p *peer) lastPush() map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.pushes) == 0 {
		return nil
	}
	return p.pushes[len(p.pushes)-1]
}

func (p *peer) lastQuery() map[string][]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queries) == 0 {
		return nil
	}
	return p.queries[len(p.queries)-1]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// memStore is an in-memory document.Store and document.Importer.
type memStore struct {
	mu         sync.Mutex
	docs       map[int64]*document.Document
	provenance map[int64]document.Provenance
	meta       map[int64]document.Meta
	terms      map[int64]document.Terms
	nextID     int64
	failUpsert bool
	failMeta   bool
}

func newMemStore() *memStore {
	return &memStore{
		docs:       map[int64]*document.Document{},
		provenance: map[int64]document.Provenance{},
		meta:       map[int64]document.Meta{},
		terms:      map[int64]document.Terms{},
		nextID:     1,
	}
}

func (s *memStore) Get(_ context.Context, id int64) (*document.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, document.ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (s *memStore) Upsert(_ context.Context, doc *document.Document) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpsert {
		return 0, errors.New("disk full")
	}
	cp := *doc
	if cp.ID == 0 {
		cp.ID = s.nextID
		s.nextID++
	}
	s.docs[cp.ID] = &cp
	return cp.ID, nil
}

func (s *memStore) Permalink(_ context.Context, id int64) (string, error) {
	return fmt.Sprintf("https://origin.example/?p=%d", id), nil
}

func (s *memStore) SetProvenance(_ context.Context, id int64, p document.Provenance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.provenance[id] = p
	return nil
}

func (s *memStore) ImportMeta(_ context.Context, id int64, meta document.Meta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failMeta {
		return errors.New("meta rejected")
	}
	s.meta[id] = meta
	return nil
}

func (s *memStore) ImportTerms(_ context.Context, id int64, terms document.Terms) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terms[id] = terms
	return nil
}

func (s *memStore) ImportMedia(context.Context, int64, []document.Media) error { return nil }

// memRegistry is an in-memory subscriptions.Registry.
type memRegistry struct {
	mu   sync.Mutex
	subs map[string]models.Subscription
	fail bool
}

func newMemRegistry() *memRegistry {
	return &memRegistry{subs: map[string]models.Subscription{}}
}

func regKey(local int64, base string) string {
	return strconv.FormatInt(local, 10) + "|" + remote.NormalizeBaseURL(base)
}

func (r *memRegistry) Upsert(_ context.Context, sub *models.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("database is locked")
	}
	r.subs[regKey(sub.LocalPostID, sub.RemoteBaseURL)] = *sub
	return nil
}

func (r *memRegistry) Get(_ context.Context, local int64, base string) (*models.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[regKey(local, base)]
	if !ok {
		return nil, subscriptions.ErrNotFound
	}
	return &sub, nil
}

func (r *memRegistry) ListForPost(_ context.Context, local int64) ([]models.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Subscription
	for _, sub := range r.subs {
		if sub.LocalPostID == local {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (r *memRegistry) Verify(ctx context.Context, local int64, base, signature string) (*models.Subscription, error) {
	sub, err := r.Get(ctx, local, base)
	if err != nil {
		return nil, err
	}
	if sub.Signature != signature {
		return nil, subscriptions.ErrSignatureMismatch
	}
	return sub, nil
}

func (r *memRegistry) Touch(ctx context.Context, local int64, base string) error {
	_, err := r.Get(ctx, local, base)
	return err
}

func (r *memRegistry) Delete(_ context.Context, local int64, base string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, regKey(local, base))
	return nil
}

func (r *memRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}
