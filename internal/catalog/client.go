package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseURL = "https://itunes.apple.com"

// Client performs track lookups against the public search API.
// It is the only place untyped external JSON enters the system; results
// are converted to Track values and validated before they leave this package.
type Client struct {
	baseURL    string
	limit      int
	httpClient *http.Client
}

// NewClient creates a new catalog client.
// An empty baseURL selects the default public endpoint.
func NewClient(baseURL string, limit int, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if limit <= 0 {
		limit = 25
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		limit:      limit,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// searchResponse represents the API response for a track search
type searchResponse struct {
	ResultCount int `json:"resultCount"`
	Results     []struct {
		TrackID       int    `json:"trackId"`
		TrackName     string `json:"trackName"`
		ArtistName    string `json:"artistName"`
		ArtworkURL    string `json:"artworkUrl100"`
		PrimaryGenre  string `json:"primaryGenreName"`
		PreviewURL    string `json:"previewUrl"`
		WrapperType   string `json:"wrapperType"`
	} `json:"results"`
}

// Search looks up playable tracks matching the given term.
// Entries without a usable media URL are dropped and duplicate track IDs
// are collapsed, so the returned slice is safe to hand to the playback queue.
func (c *Client) Search(term string) ([]Track, error) {
	if term == "" {
		return nil, fmt.Errorf("empty search term")
	}

	query := url.Values{}
	query.Set("term", term)
	query.Set("media", "music")
	query.Set("limit", fmt.Sprintf("%d", c.limit))

	reqURL := fmt.Sprintf("%s/search?%s", c.baseURL, query.Encode())

	req, err := http.NewRequest("GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch search results: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("catalog API error (status %d): %s", resp.StatusCode, string(body))
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	// Convert to Track values, dropping unplayable entries and duplicates
	seen := make(map[int]bool)
	tracks := make([]Track, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		// The API mixes collection and artist wrappers into results;
		// only track wrappers are playable
		if r.WrapperType != "" && r.WrapperType != "track" {
			continue
		}
		track := Track{
			ID:         r.TrackID,
			Title:      r.TrackName,
			Artist:     r.ArtistName,
			ArtworkURL: r.ArtworkURL,
			Genre:      r.PrimaryGenre,
			MediaURL:   r.PreviewURL,
		}
		if !track.Valid() || seen[track.ID] {
			continue
		}
		seen[track.ID] = true
		tracks = append(tracks, track)
	}

	return tracks, nil
}

// SearchByGenre looks up tracks for a genre label, used to build the
// genre-seeded playlists shown after signup.
func (c *Client) SearchByGenre(genre string) ([]Track, error) {
	tracks, err := c.Search(genre)
	if err != nil {
		return nil, fmt.Errorf("genre lookup %q: %w", genre, err)
	}

	filtered := tracks[:0]
	for _, t := range tracks {
		if t.Genre == "" || t.Genre == genre {
			filtered = append(filtered, t)
		}
	}
	if len(filtered) == 0 {
		// Genre labels from the API don't always match the query; fall
		// back to the unfiltered result rather than an empty playlist.
		return tracks, nil
	}
	return filtered, nil
}
