package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/moodfm/moodfmd/internal/analysis"
	"github.com/moodfm/moodfmd/internal/cache"
	"github.com/moodfm/moodfmd/internal/catalog"
	"github.com/moodfm/moodfmd/internal/config"
	"github.com/moodfm/moodfmd/internal/control"
	"github.com/moodfm/moodfmd/internal/output"
	"github.com/moodfm/moodfmd/internal/session"
	"github.com/moodfm/moodfmd/internal/store"
	"github.com/moodfm/moodfmd/internal/visualizer"
)

var (
	configPath  = flag.String("config", getDefaultConfigPath(), "Path to configuration file")
	controlAddr = flag.String("control-addr", "", "Control server listen address (overrides config)")
	playTerm    = flag.String("play", "", "Search the catalog and play the results directly")
	daemonMode  = flag.Bool("daemon", false, "Run as control server daemon")
	noVisual    = flag.Bool("no-visualizer", false, "Disable the spectrum visualizer")
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *controlAddr != "" {
		cfg.Control.ListenAddr = *controlAddr
	}
	if *noVisual {
		cfg.Visualizer.Enabled = false
	}

	// Media cache
	mediaCache, err := cache.NewDiskCache(cfg.Cache.Directory, int64(cfg.Cache.MaxSizeMB)*1024*1024)
	if err != nil {
		log.Fatalf("Failed to initialize media cache: %v", err)
	}

	// Audio output with an analysis tap in the graph
	tap := analysis.NewTap(8192)
	device, err := output.NewBeepDevice(mediaCache, cfg.Audio.SampleRate, cfg.Audio.BufferMs, tap)
	if err != nil {
		log.Fatalf("Failed to initialize audio output: %v", err)
	}

	sess := session.New(device, tap, cfg.Audio.InitialVolume)
	defer sess.Close()

	// Drain async playback errors into the log
	go func() {
		for err := range sess.Errors() {
			log.Printf("Playback error: %v", err)
		}
	}()

	// Spectrum visualizer, direct mode only: frames render to the
	// terminal, and the loop runs only while something is playing. The
	// daemon serves spectrum data on demand through the control protocol
	// instead of burning frames with no display attached.
	var vis *visualizer.Visualizer
	if cfg.Visualizer.Enabled && !*daemonMode {
		sink := visualizer.NewTerminalSink(os.Stdout)
		vis = visualizer.New(sess.Analyzer(), device, sink.Frame,
			cfg.Visualizer.Width, cfg.Visualizer.Height, cfg.Visualizer.FPS)
		defer vis.Stop()
	}

	// Persistence
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	// Catalog client
	cat := catalog.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.Limit,
		time.Duration(cfg.Catalog.TimeoutSeconds)*time.Second)

	// Daemon mode: run the control server
	if *daemonMode {
		runDaemon(cfg.Control.ListenAddr, sess, cat, st)
		return
	}

	if vis != nil {
		sess.SetNotify(visualizerSync(vis, sess))
	}

	// Direct mode: search and play from the command line
	term := *playTerm
	if term == "" {
		term = strings.Join(flag.Args(), " ")
	}

	if term == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <search terms>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "       %s --daemon\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Search and play directly\n")
		fmt.Fprintf(os.Stderr, "  %s lo-fi beats\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n  # Run as control server daemon\n")
		fmt.Fprintf(os.Stderr, "  %s --daemon\n", os.Args[0])
		os.Exit(1)
	}

	runDirect(sess, cat, term)
}

// visualizerSync starts the frame loop when playback begins and stops
// it when playback ends or pauses
func visualizerSync(vis *visualizer.Visualizer, sess *session.Session) func(string) {
	return func(subsystem string) {
		if subsystem != "player" {
			return
		}
		if sess.IsPlaying() {
			vis.Start()
		} else {
			vis.Stop()
		}
	}
}

// runDaemon runs the control server until interrupted
func runDaemon(addr string, sess *session.Session, cat *catalog.Client, st *store.Store) {
	server := control.NewServer(addr, sess, cat, st)

	if err := server.Start(); err != nil {
		log.Fatalf("Failed to start control server: %v", err)
	}
	defer server.Stop()

	log.Printf("moodfmd running in daemon mode")
	log.Printf("Connect control clients to %s", addr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Printf("\nShutting down...")
}

// runDirect searches the catalog, plays the results, and exits on interrupt
func runDirect(sess *session.Session, cat *catalog.Client, term string) {
	tracks, err := cat.Search(term)
	if err != nil {
		log.Fatalf("Search failed: %v", err)
	}
	if len(tracks) == 0 {
		log.Fatalf("No results for %q", term)
	}

	log.Printf("Starting playback of %d tracks...", len(tracks))
	sess.Play(tracks[0], tracks, fmt.Sprintf("search: %s", term))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Printf("\nShutting down...")
}

func getDefaultConfigPath() string {
	// Check common locations
	locations := []string{
		"./moodfmd.yaml",
		"./config.yaml",
		filepath.Join(os.Getenv("HOME"), ".config", "moodfmd", "config.yaml"),
		"/etc/moodfmd/config.yaml",
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	// Default to first location if none exist
	return locations[0]
}
