package control

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const storeTimeout = 5 * time.Second

// cmdSearch handles the 'search' command
// search TERM... - search the catalog, load results as the queue, and
// start playback from the first result
func (s *Server) cmdSearch(args []string) string {
	if s.catalog == nil {
		return "ACK {search} no catalog configured\n"
	}
	if len(args) == 0 {
		return "ACK {search} missing search term\n"
	}

	term := strings.Join(args, " ")
	tracks, err := s.catalog.Search(term)
	if err != nil {
		return fmt.Sprintf("ACK {search} %s\n", err.Error())
	}
	if len(tracks) == 0 {
		return "ACK {search} no results\n"
	}

	s.session.Play(tracks[0], tracks, fmt.Sprintf("search: %s", term))

	var out strings.Builder
	for i, t := range tracks {
		out.WriteString(fmt.Sprintf("pos: %d\n", i))
		out.WriteString(fmt.Sprintf("id: %d\n", t.ID))
		out.WriteString(fmt.Sprintf("title: %s\n", t.Title))
		out.WriteString(fmt.Sprintf("artist: %s\n", t.Artist))
	}
	out.WriteString("OK\n")

	return out.String()
}

// cmdGenre handles the 'genre' command
// genre NAME - load a genre-seeded playlist and start playback
func (s *Server) cmdGenre(args []string) string {
	if s.catalog == nil {
		return "ACK {genre} no catalog configured\n"
	}
	if len(args) < 1 {
		return "ACK {genre} missing genre name\n"
	}

	genre := strings.Join(args, " ")
	tracks, err := s.catalog.SearchByGenre(genre)
	if err != nil {
		return fmt.Sprintf("ACK {genre} %s\n", err.Error())
	}
	if len(tracks) == 0 {
		return "ACK {genre} no results\n"
	}

	s.session.Play(tracks[0], tracks, fmt.Sprintf("genre: %s", genre))
	return "OK\n"
}

// cmdSave handles the 'save' command
// save NAME - persist the current queue as a named playlist
func (s *Server) cmdSave(args []string) string {
	if s.store == nil {
		return "ACK {save} no store configured\n"
	}
	if len(args) < 1 {
		return "ACK {save} missing playlist name\n"
	}

	tracks := s.session.QueueTracks()
	if len(tracks) == 0 {
		return "ACK {save} queue is empty\n"
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	name := strings.Join(args, " ")
	if _, err := s.store.SavePlaylist(ctx, name, tracks); err != nil {
		return fmt.Sprintf("ACK {save} %s\n", err.Error())
	}

	return "OK\n"
}

// cmdLoad handles the 'load' command
// load NAME - replace the queue with a saved playlist
func (s *Server) cmdLoad(args []string) string {
	if s.store == nil {
		return "ACK {load} no store configured\n"
	}
	if len(args) < 1 {
		return "ACK {load} missing playlist name\n"
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	name := strings.Join(args, " ")
	pl, err := s.store.GetPlaylist(ctx, name)
	if err != nil {
		return fmt.Sprintf("ACK {load} %s\n", err.Error())
	}

	s.session.SetPlaylist(pl.Tracks, fmt.Sprintf("playlist: %s", pl.Name))
	return "OK\n"
}

// cmdPlaylists handles the 'playlists' command
func (s *Server) cmdPlaylists(_ []string) string {
	if s.store == nil {
		return "ACK {playlists} no store configured\n"
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	names, err := s.store.ListPlaylists(ctx)
	if err != nil {
		return fmt.Sprintf("ACK {playlists} %s\n", err.Error())
	}

	var out strings.Builder
	for _, name := range names {
		out.WriteString(fmt.Sprintf("playlist: %s\n", name))
	}
	out.WriteString("OK\n")

	return out.String()
}

// cmdLike handles the 'like' command, liking the current track
func (s *Server) cmdLike(_ []string) string {
	if s.store == nil {
		return "ACK {like} no store configured\n"
	}

	track := s.session.CurrentTrack()
	if track == nil {
		return "ACK {like} no current track\n"
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if err := s.store.Like(ctx, *track); err != nil {
		return fmt.Sprintf("ACK {like} %s\n", err.Error())
	}

	return "OK\n"
}

// cmdUnlike handles the 'unlike' command
func (s *Server) cmdUnlike(_ []string) string {
	if s.store == nil {
		return "ACK {unlike} no store configured\n"
	}

	track := s.session.CurrentTrack()
	if track == nil {
		return "ACK {unlike} no current track\n"
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if err := s.store.Unlike(ctx, track.ID); err != nil {
		return fmt.Sprintf("ACK {unlike} %s\n", err.Error())
	}

	return "OK\n"
}

// cmdMood handles the 'mood' command
// mood EMOJI - record an emoji reaction against the current track at
// the current playback position
func (s *Server) cmdMood(args []string) string {
	if s.store == nil {
		return "ACK {mood} no store configured\n"
	}
	if len(args) < 1 {
		return "ACK {mood} missing emoji\n"
	}

	track := s.session.CurrentTrack()
	if track == nil {
		return "ACK {mood} no current track\n"
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	id, err := s.store.RecordMood(ctx, *track, args[0], s.session.Position())
	if err != nil {
		return fmt.Sprintf("ACK {mood} %s\n", err.Error())
	}

	return fmt.Sprintf("moodid: %s\nOK\n", id)
}

// cmdHistory handles the 'history' command
// history [N] - list the N most recent mood entries
func (s *Server) cmdHistory(args []string) string {
	if s.store == nil {
		return "ACK {history} no store configured\n"
	}

	limit := 0
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return "ACK {history} invalid limit\n"
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	entries, err := s.store.MoodHistory(ctx, limit)
	if err != nil {
		return fmt.Sprintf("ACK {history} %s\n", err.Error())
	}

	var out strings.Builder
	for _, e := range entries {
		out.WriteString(fmt.Sprintf("mood: %s\n", e.Emoji))
		out.WriteString(fmt.Sprintf("title: %s\n", e.TrackTitle))
		out.WriteString(fmt.Sprintf("artist: %s\n", e.TrackArtist))
		out.WriteString(fmt.Sprintf("position: %.1f\n", e.PositionSeconds))
		out.WriteString(fmt.Sprintf("at: %s\n", e.CreatedAt.Format(time.RFC3339)))
	}
	out.WriteString("OK\n")

	return out.String()
}
