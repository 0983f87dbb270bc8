package catalog

// Track represents a single playable audio item with display metadata.
// Tracks are immutable values produced at the catalog boundary; the
// playback core never mutates them.
type Track struct {
	ID         int
	Title      string
	Artist     string
	ArtworkURL string
	Genre      string
	MediaURL   string
}

// Valid reports whether the track carries enough information to be played.
// A track without a media URL or a positive ID is dropped at the boundary.
func (t Track) Valid() bool {
	return t.ID > 0 && t.MediaURL != ""
}
