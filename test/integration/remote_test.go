//go:build integration

package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
)

// fakeRemote is a posts API: GET /posts lists records, POST /posts echoes
// the record back with a fresh id.
type fakeRemote struct {
	*httptest.Server

	mu      sync.Mutex
	titles  []string
	failing bool

	gets  atomic.Int32
	posts atomic.Int32
}

func newFakeRemote() *fakeRemote {
	fr := &fakeRemote{}
	fr.Server = httptest.NewServer(http.HandlerFunc(fr.serve))

	return fr
}

func (fr *fakeRemote) SetTitles(titles []string) {
	fr.mu.Lock()
	defer fr.mu.Unlock()

	fr.titles = titles
}

func (fr *fakeRemote) SetFailing(failing bool) {
	fr.mu.Lock()
	defer fr.mu.Unlock()

	fr.failing = failing
}

func (fr *fakeRemote) Gets() int  { return int(fr.gets.Load()) }
func (fr *fakeRemote) Posts() int { return int(fr.posts.Load()) }

type record struct {
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	UserID int    `json:"userId"`
}

func (fr *fakeRemote) serve(w http.ResponseWriter, r *http.Request) {
	fr.mu.Lock()
	failing := fr.failing
	titles := append([]string(nil), fr.titles...)
	fr.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		fr.gets.Add(1)
	case http.MethodPost:
		fr.posts.Add(1)
	}

	if failing {
		http.Error(w, `{"error":{"message":"unavailable"}}`, http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodGet:
		records := make([]record, len(titles))
		for i, title := range titles {
			records[i] = record{ID: i + 1, Title: title, Body: "remote", UserID: 1}
		}

		_ = json.NewEncoder(w).Encode(records)

	case http.MethodPost:
		var rec record
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		rec.ID = 100 + fr.Posts()

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(rec)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
