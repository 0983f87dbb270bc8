// Package control exposes the playback session over a line-oriented
// TCP protocol. Clients send one command per line and receive an OK or
// ACK terminated response; idle mode delivers change notifications.
package control

import (
	"fmt"
	"log"
	"net"
	"sync"

	"github.com/moodfm/moodfmd/internal/catalog"
	"github.com/moodfm/moodfmd/internal/session"
	"github.com/moodfm/moodfmd/internal/store"
)

// Server accepts control connections and dispatches commands
type Server struct {
	mu       sync.Mutex
	listener net.Listener
	session  *session.Session
	catalog  *catalog.Client
	store    *store.Store
	addr     string
	running  bool

	// Idle connection management
	idleMu    sync.RWMutex
	idleConns map[*idleConnection]bool
}

// NewServer creates a control server bound to the given session.
// The catalog client and store may be nil; commands that need them
// return an ACK.
func NewServer(addr string, sess *session.Session, cat *catalog.Client, st *store.Store) *Server {
	s := &Server{
		addr:      addr,
		session:   sess,
		catalog:   cat,
		store:     st,
		idleConns: make(map[*idleConnection]bool),
	}

	// Route session change events to idle clients
	sess.SetNotify(s.NotifySubsystemChange)

	return s
}

// Start begins listening for control connections
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to start control server: %w", err)
	}

	s.listener = listener
	s.running = true

	log.Printf("Control server listening on %s", s.addr)

	go s.acceptLoop()

	return nil
}

// Stop shuts down the listener
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.running = false
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

// Addr returns the bound listener address, useful when addr was ":0"
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.Lock()
			running := s.running
			s.mu.Unlock()
			if !running {
				return
			}
			log.Printf("Accept error: %v", err)
			continue
		}

		go s.handleConnection(conn)
	}
}
