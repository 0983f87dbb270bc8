package catalog

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const sampleResponse = `{
	"resultCount": 5,
	"results": [
		{"wrapperType": "track", "trackId": 1, "trackName": "Aurora", "artistName": "North", "primaryGenreName": "Electronic", "previewUrl": "https://cdn.test/1.m4a"},
		{"trackId": 2, "trackName": "Basalt", "artistName": "North", "primaryGenreName": "Rock", "previewUrl": "https://cdn.test/2.m4a"},
		{"trackId": 1, "trackName": "Aurora (Remaster)", "artistName": "North", "primaryGenreName": "Electronic", "previewUrl": "https://cdn.test/1r.m4a"},
		{"trackId": 3, "trackName": "No Preview", "artistName": "South", "primaryGenreName": "Electronic", "previewUrl": ""},
		{"wrapperType": "collection", "trackId": 4, "trackName": "Aurora EP", "artistName": "North", "primaryGenreName": "Electronic", "previewUrl": "https://cdn.test/4.m4a"}
	]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 25, time.Second)
}

func TestSearch_FiltersAndDedupes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("term"); got != "aurora" {
			t.Errorf("term = %q, want %q", got, "aurora")
		}
		if got := r.URL.Query().Get("media"); got != "music" {
			t.Errorf("media = %q, want music", got)
		}
		fmt.Fprint(w, sampleResponse)
	})

	tracks, err := c.Search("aurora")
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}

	// Duplicate ID collapsed, missing preview dropped, collection
	// wrapper skipped
	if len(tracks) != 2 {
		t.Fatalf("len(tracks) = %d, want 2", len(tracks))
	}
	if tracks[0].ID != 1 || tracks[0].Title != "Aurora" {
		t.Errorf("tracks[0] = %+v", tracks[0])
	}
	if tracks[1].ID != 2 {
		t.Errorf("tracks[1].ID = %d, want 2", tracks[1].ID)
	}
}

func TestSearch_EmptyTerm(t *testing.T) {
	c := NewClient("", 25, time.Second)

	if _, err := c.Search(""); err == nil {
		t.Error("Search(\"\") should error")
	}
}

func TestSearch_APIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusForbidden)
	})

	if _, err := c.Search("anything"); err == nil {
		t.Error("Search() should surface API errors")
	}
}

func TestSearch_MalformedBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "{not json")
	})

	if _, err := c.Search("anything"); err == nil {
		t.Error("Search() should surface decode errors")
	}
}

func TestSearchByGenre_FiltersByGenre(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sampleResponse)
	})

	tracks, err := c.SearchByGenre("Electronic")
	if err != nil {
		t.Fatalf("SearchByGenre() error: %v", err)
	}

	for _, tr := range tracks {
		if tr.Genre != "Electronic" && tr.Genre != "" {
			t.Errorf("track %d has genre %q, want Electronic", tr.ID, tr.Genre)
		}
	}
}

func TestSearchByGenre_FallsBackWhenNoMatches(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sampleResponse)
	})

	tracks, err := c.SearchByGenre("Jazz")
	if err != nil {
		t.Fatalf("SearchByGenre() error: %v", err)
	}
	if len(tracks) == 0 {
		t.Error("no fallback results for unmatched genre label")
	}
}

func TestTrack_Valid(t *testing.T) {
	cases := []struct {
		track Track
		want  bool
	}{
		{Track{ID: 1, MediaURL: "https://cdn.test/a.mp3"}, true},
		{Track{ID: 0, MediaURL: "https://cdn.test/a.mp3"}, false},
		{Track{ID: 1, MediaURL: ""}, false},
	}
	for _, tc := range cases {
		if got := tc.track.Valid(); got != tc.want {
			t.Errorf("Valid(%+v) = %v, want %v", tc.track, got, tc.want)
		}
	}
}
