package control

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/moodfm/moodfmd/internal/analysis"
)

// cmdStatus handles the 'status' command
func (s *Server) cmdStatus(_ []string) string {
	state := s.session.Snapshot()

	var status strings.Builder
	status.WriteString(fmt.Sprintf("volume: %.2f\n", state.Volume))
	status.WriteString(fmt.Sprintf("muted: %s\n", boolFlag(state.Muted)))
	status.WriteString(fmt.Sprintf("shuffle: %s\n", boolFlag(state.Shuffle)))
	status.WriteString(fmt.Sprintf("repeat: %s\n", boolFlag(state.Repeat)))
	status.WriteString(fmt.Sprintf("rate: %.2f\n", state.Rate))

	if state.Playing {
		status.WriteString("state: play\n")
	} else if state.CurrentTrack != nil {
		status.WriteString("state: pause\n")
	} else {
		status.WriteString("state: stop\n")
	}

	status.WriteString(fmt.Sprintf("queuelength: %d\n", len(state.Queue)))
	status.WriteString(fmt.Sprintf("queueindex: %d\n", state.QueueIndex))
	if state.QueueSource != "" {
		status.WriteString(fmt.Sprintf("queuesource: %s\n", state.QueueSource))
	}

	if state.CurrentTrack != nil {
		status.WriteString(fmt.Sprintf("elapsed: %.1f\n", state.PositionSeconds))
		status.WriteString(fmt.Sprintf("duration: %.1f\n", state.DurationSeconds))
	}

	status.WriteString("OK\n")

	return status.String()
}

// cmdCurrent handles the 'current' command
func (s *Server) cmdCurrent(_ []string) string {
	track := s.session.CurrentTrack()
	if track == nil {
		return "OK\n"
	}

	var out strings.Builder
	out.WriteString(fmt.Sprintf("id: %d\n", track.ID))
	out.WriteString(fmt.Sprintf("title: %s\n", track.Title))
	out.WriteString(fmt.Sprintf("artist: %s\n", track.Artist))
	if track.Genre != "" {
		out.WriteString(fmt.Sprintf("genre: %s\n", track.Genre))
	}
	out.WriteString("OK\n")

	return out.String()
}

// cmdQueue handles the 'queue' command
func (s *Server) cmdQueue(_ []string) string {
	state := s.session.Snapshot()

	var out strings.Builder
	for i, t := range state.Queue {
		out.WriteString(fmt.Sprintf("pos: %d\n", i))
		out.WriteString(fmt.Sprintf("id: %d\n", t.ID))
		out.WriteString(fmt.Sprintf("title: %s\n", t.Title))
		out.WriteString(fmt.Sprintf("artist: %s\n", t.Artist))
	}
	out.WriteString("OK\n")

	return out.String()
}

// cmdPlay handles the 'play' command
// play [POS] - play the queue entry at POS, or resume when paused
func (s *Server) cmdPlay(args []string) string {
	if len(args) == 0 {
		// No argument, resume if there is something to resume
		if s.session.CurrentTrack() == nil {
			return "ACK {play} nothing to play\n"
		}
		if !s.session.IsPlaying() {
			s.session.TogglePlay()
		}
		return "OK\n"
	}

	pos, err := strconv.Atoi(args[0])
	if err != nil {
		return "ACK {play} invalid position\n"
	}

	track := s.session.QueueTrack(pos)
	if track == nil {
		return "ACK {play} position out of range\n"
	}

	s.session.Play(*track, nil, "")
	return "OK\n"
}

// cmdPause handles the 'pause' command
func (s *Server) cmdPause(_ []string) string {
	if s.session.IsPlaying() {
		s.session.TogglePlay()
	}
	return "OK\n"
}

// cmdToggle handles the 'toggle' command
func (s *Server) cmdToggle(_ []string) string {
	if s.session.CurrentTrack() == nil {
		return "ACK {toggle} nothing to play\n"
	}
	s.session.TogglePlay()
	return "OK\n"
}

// cmdNext handles the 'next' command
func (s *Server) cmdNext(_ []string) string {
	s.session.PlayNext()
	return "OK\n"
}

// cmdPrevious handles the 'previous' command
func (s *Server) cmdPrevious(_ []string) string {
	s.session.PlayPrevious()
	return "OK\n"
}

// cmdSeek handles the 'seek' command
// seek TIME - seek to TIME seconds within the current track
func (s *Server) cmdSeek(args []string) string {
	if len(args) < 1 {
		return "ACK {seek} missing argument\n"
	}

	seconds, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return "ACK {seek} invalid time\n"
	}

	s.session.SeekTo(seconds)
	return "OK\n"
}

// cmdVolume handles the 'volume' command
// volume LEVEL - set volume as a 0.0 to 1.0 float
func (s *Server) cmdVolume(args []string) string {
	if len(args) < 1 {
		return "ACK {volume} missing argument\n"
	}

	level, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return "ACK {volume} invalid level\n"
	}

	s.session.SetVolume(level)
	return "OK\n"
}

// cmdMute handles the 'mute' command
func (s *Server) cmdMute(_ []string) string {
	s.session.ToggleMute()
	return "OK\n"
}

// cmdRate handles the 'rate' command
// rate SPEED - set the playback rate multiplier
func (s *Server) cmdRate(args []string) string {
	if len(args) < 1 {
		return "ACK {rate} missing argument\n"
	}

	rate, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return "ACK {rate} invalid rate\n"
	}

	s.session.SetPlaybackRate(rate)
	return "OK\n"
}

// cmdSpectrum handles the 'spectrum' command, reporting the current
// frequency spectrum as downsampled bar magnitudes in [0,255]
func (s *Server) cmdSpectrum(args []string) string {
	analyzer := s.session.Analyzer()
	if analyzer == nil {
		return "ACK {spectrum} analysis unavailable\n"
	}

	bars := 32
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 || n > analysis.BinCount {
			return "ACK {spectrum} invalid bar count\n"
		}
		bars = n
	}

	bins := make([]byte, analysis.BinCount)
	analyzer.FrequencyBins(bins)

	var out strings.Builder
	span := analysis.BinCount / bars
	for i := 0; i < bars; i++ {
		peak := byte(0)
		for _, mag := range bins[i*span : (i+1)*span] {
			if mag > peak {
				peak = mag
			}
		}
		out.WriteString(fmt.Sprintf("bar: %d\n", peak))
	}
	out.WriteString("OK\n")
	return out.String()
}

// cmdShuffle handles the 'shuffle' command
func (s *Server) cmdShuffle(_ []string) string {
	s.session.ToggleShuffle()
	return "OK\n"
}

// cmdRepeat handles the 'repeat' command
func (s *Server) cmdRepeat(_ []string) string {
	s.session.ToggleRepeat()
	return "OK\n"
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
