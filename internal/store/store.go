// Package store provides the SQLite-backed persistence for playlists,
// likes, and mood reactions. The playback core knows nothing about it;
// callers read the current track and position off the session and hand
// them here.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // Import the driver anonymously

	"github.com/moodfm/moodfmd/internal/catalog"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("not found")

// MoodEntry records an emoji reaction tied to a playback position
type MoodEntry struct {
	ID              string
	TrackID         int
	TrackTitle      string
	TrackArtist     string
	Emoji           string
	PositionSeconds float64
	CreatedAt       time.Time
}

// Playlist is a named, ordered collection of saved tracks
type Playlist struct {
	ID        string
	Name      string
	Tracks    []catalog.Track
	CreatedAt time.Time
}

// Store wraps the SQLite connection
type Store struct {
	db *sql.DB
}

// Open creates a connection and runs the schema migration
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return s, nil
}

// Close ensures the DB connection is closed gracefully
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS playlists (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL UNIQUE,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS playlist_tracks (
		playlist_id TEXT NOT NULL,
		position    INTEGER NOT NULL,
		track_id    INTEGER NOT NULL,
		title       TEXT NOT NULL,
		artist      TEXT,
		artwork_url TEXT,
		genre       TEXT,
		media_url   TEXT NOT NULL,
		PRIMARY KEY (playlist_id, position),
		FOREIGN KEY (playlist_id) REFERENCES playlists(id) ON DELETE CASCADE
	);
	CREATE TABLE IF NOT EXISTS likes (
		track_id  INTEGER PRIMARY KEY,
		title     TEXT NOT NULL,
		artist    TEXT,
		liked_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS moods (
		id               TEXT PRIMARY KEY,
		track_id         INTEGER NOT NULL,
		track_title      TEXT NOT NULL,
		track_artist     TEXT,
		emoji            TEXT NOT NULL,
		position_seconds REAL NOT NULL,
		created_at       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SavePlaylist creates or replaces a named playlist with the given tracks
func (s *Store) SavePlaylist(ctx context.Context, name string, tracks []catalog.Track) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id string
	row := tx.QueryRowContext(ctx, "SELECT id FROM playlists WHERE name = ?", name)
	if err := row.Scan(&id); err != nil {
		if err != sql.ErrNoRows {
			return "", fmt.Errorf("failed to look up playlist: %w", err)
		}
		id = uuid.NewString()
		if _, err := tx.ExecContext(ctx, "INSERT INTO playlists (id, name) VALUES (?, ?)", id, name); err != nil {
			return "", fmt.Errorf("failed to create playlist: %w", err)
		}
	} else {
		if _, err := tx.ExecContext(ctx, "DELETE FROM playlist_tracks WHERE playlist_id = ?", id); err != nil {
			return "", fmt.Errorf("failed to clear playlist: %w", err)
		}
	}

	for i, t := range tracks {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO playlist_tracks (playlist_id, position, track_id, title, artist, artwork_url, genre, media_url)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, id, i, t.ID, t.Title, t.Artist, t.ArtworkURL, t.Genre, t.MediaURL)
		if err != nil {
			return "", fmt.Errorf("failed to save playlist track: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit playlist: %w", err)
	}
	return id, nil
}

// GetPlaylist loads a playlist and its tracks by name
func (s *Store) GetPlaylist(ctx context.Context, name string) (*Playlist, error) {
	row := s.db.QueryRowContext(ctx, "SELECT id, name, created_at FROM playlists WHERE name = ?", name)

	var pl Playlist
	if err := row.Scan(&pl.ID, &pl.Name, &pl.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load playlist: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT track_id, title, artist, artwork_url, genre, media_url
		FROM playlist_tracks
		WHERE playlist_id = ?
		ORDER BY position ASC
	`, pl.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load playlist tracks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t catalog.Track
		var artist, artwork, genre sql.NullString
		if err := rows.Scan(&t.ID, &t.Title, &artist, &artwork, &genre, &t.MediaURL); err != nil {
			return nil, fmt.Errorf("failed to scan playlist track: %w", err)
		}
		t.Artist = artist.String
		t.ArtworkURL = artwork.String
		t.Genre = genre.String
		pl.Tracks = append(pl.Tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate playlist tracks: %w", err)
	}

	return &pl, nil
}

// ListPlaylists returns all playlist names, oldest first
func (s *Store) ListPlaylists(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM playlists ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan playlist name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Like marks a track as liked; liking twice is a no-op
func (s *Store) Like(ctx context.Context, t catalog.Track) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO likes (track_id, title, artist) VALUES (?, ?, ?)
		ON CONFLICT(track_id) DO NOTHING
	`, t.ID, t.Title, t.Artist)
	if err != nil {
		return fmt.Errorf("failed to like track: %w", err)
	}
	return nil
}

// Unlike removes a like
func (s *Store) Unlike(ctx context.Context, trackID int) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM likes WHERE track_id = ?", trackID)
	if err != nil {
		return fmt.Errorf("failed to unlike track: %w", err)
	}
	return nil
}

// IsLiked reports whether a track is liked
func (s *Store) IsLiked(ctx context.Context, trackID int) (bool, error) {
	row := s.db.QueryRowContext(ctx, "SELECT 1 FROM likes WHERE track_id = ?", trackID)
	var one int
	if err := row.Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to check like: %w", err)
	}
	return true, nil
}

// RecordMood stores an emoji reaction against the given track and
// playback position, and returns the entry ID.
func (s *Store) RecordMood(ctx context.Context, t catalog.Track, emoji string, positionSeconds float64) (string, error) {
	if emoji == "" {
		return "", fmt.Errorf("empty emoji")
	}

	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO moods (id, track_id, track_title, track_artist, emoji, position_seconds)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, t.ID, t.Title, t.Artist, emoji, positionSeconds)
	if err != nil {
		return "", fmt.Errorf("failed to record mood: %w", err)
	}
	return id, nil
}

// MoodHistory returns the most recent mood entries, newest first
func (s *Store) MoodHistory(ctx context.Context, limit int) ([]MoodEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, track_id, track_title, track_artist, emoji, position_seconds, created_at
		FROM moods
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load mood history: %w", err)
	}
	defer rows.Close()

	var entries []MoodEntry
	for rows.Next() {
		var e MoodEntry
		var artist sql.NullString
		if err := rows.Scan(&e.ID, &e.TrackID, &e.TrackTitle, &artist, &e.Emoji, &e.PositionSeconds, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan mood entry: %w", err)
		}
		e.TrackArtist = artist.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
