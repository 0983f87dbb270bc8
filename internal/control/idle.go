package control

import (
	"log"
)

// idleConnection represents a client waiting in idle mode
type idleConnection struct {
	subsystems map[string]bool // Subsystems to watch (empty = all)
	notify     chan string     // Channel to send subsystem changes
}

func (s *Server) registerIdle(idle *idleConnection) {
	s.idleMu.Lock()
	defer s.idleMu.Unlock()
	s.idleConns[idle] = true
}

func (s *Server) unregisterIdle(idle *idleConnection) {
	s.idleMu.Lock()
	defer s.idleMu.Unlock()
	delete(s.idleConns, idle)
}

// NotifySubsystemChange fans a subsystem change out to every idle
// connection watching it. Called from the session on state changes.
func (s *Server) NotifySubsystemChange(subsystem string) {
	s.idleMu.RLock()
	defer s.idleMu.RUnlock()

	for idle := range s.idleConns {
		if len(idle.subsystems) == 0 || idle.subsystems[subsystem] {
			select {
			case idle.notify <- subsystem:
			default:
				log.Printf("Warning: idle notification channel full")
			}
		}
	}
}
