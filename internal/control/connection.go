package control

import (
	"bufio"
	"fmt"
	"log"
	"net"
	"strings"
)

// handleConnection serves a single control client
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	log.Printf("Control client connected: %s", conn.RemoteAddr())
	defer log.Printf("Control client disconnected: %s", conn.RemoteAddr())

	// Send greeting
	fmt.Fprintf(conn, "OK moodfm 1.0\n")

	// A dedicated reader goroutine feeds lines through a channel so an
	// idle wait can keep consuming input and notice noidle arriving.
	lines := make(chan string)
	done := make(chan struct{})
	defer close(done)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		if err := scanner.Err(); err != nil {
			log.Printf("Connection error: %v", err)
		}
	}()

	for raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		var response string
		var closing bool

		switch cmd {
		case "idle":
			response, closing = s.serveIdle(args, lines)

		case "noidle":
			// Not idling, nothing to cancel
			response = "OK\n"

		case "close":
			return

		default:
			response = s.handleCommand(cmd, args)
		}

		fmt.Fprint(conn, response)
		if closing {
			return
		}
	}
}

// serveIdle blocks until a watched subsystem changes or the client sends
// another line. Only noidle is a valid command while idling; anything
// else ends the connection.
func (s *Server) serveIdle(args []string, lines <-chan string) (string, bool) {
	subsystems := make(map[string]bool)
	for _, arg := range args {
		subsystems[strings.ToLower(arg)] = true
	}

	idle := &idleConnection{
		subsystems: subsystems,
		notify:     make(chan string, 10),
	}
	s.registerIdle(idle)
	defer s.unregisterIdle(idle)

	select {
	case subsystem := <-idle.notify:
		return fmt.Sprintf("changed: %s\nOK\n", subsystem), false
	case raw, ok := <-lines:
		if !ok {
			return "", true
		}
		if strings.ToLower(strings.TrimSpace(raw)) == "noidle" {
			return "OK\n", false
		}
		return "", true
	}
}
