package control

import (
	"fmt"
)

// handleCommand dispatches a parsed command to its handler and returns
// the full protocol response including the trailing OK or ACK line.
func (s *Server) handleCommand(cmd string, args []string) string {
	switch cmd {
	case "ping":
		return "OK\n"

	case "status":
		return s.cmdStatus(args)

	case "current":
		return s.cmdCurrent(args)

	case "queue":
		return s.cmdQueue(args)

	case "search":
		return s.cmdSearch(args)

	case "genre":
		return s.cmdGenre(args)

	case "play":
		return s.cmdPlay(args)

	case "pause":
		return s.cmdPause(args)

	case "toggle":
		return s.cmdToggle(args)

	case "next":
		return s.cmdNext(args)

	case "previous":
		return s.cmdPrevious(args)

	case "seek":
		return s.cmdSeek(args)

	case "volume":
		return s.cmdVolume(args)

	case "mute":
		return s.cmdMute(args)

	case "rate":
		return s.cmdRate(args)

	case "spectrum":
		return s.cmdSpectrum(args)

	case "shuffle":
		return s.cmdShuffle(args)

	case "repeat":
		return s.cmdRepeat(args)

	case "save":
		return s.cmdSave(args)

	case "load":
		return s.cmdLoad(args)

	case "playlists":
		return s.cmdPlaylists(args)

	case "like":
		return s.cmdLike(args)

	case "unlike":
		return s.cmdUnlike(args)

	case "mood":
		return s.cmdMood(args)

	case "history":
		return s.cmdHistory(args)

	default:
		return fmt.Sprintf("ACK {%s} unknown command\n", cmd)
	}
}
