// Package visualizer renders a live bar spectrum of whatever audio is
// flowing through the session's analysis tap.
package visualizer

import (
	"image"
	"image/color"
	"log"
	"sync"
	"time"

	"github.com/moodfm/moodfmd/internal/analysis"
)

// GraphResumer is the slice of the output device the visualizer needs:
// a suspended audio graph produces no samples, so each frame resumes it.
type GraphResumer interface {
	Suspended() bool
	Resume() error
}

// FrameSink receives rendered frames. The image is reused between frames;
// sinks that retain it must copy.
type FrameSink func(*image.RGBA)

// Visualizer runs a fixed-rate sampling loop while playback is active,
// pulling one frame of frequency magnitudes per tick and drawing one
// vertical bar per displayed bin, hue sweeping across the bin range.
// It holds no state between play sessions beyond the reused bin buffer.
type Visualizer struct {
	analyzer *analysis.Analyzer // nil renders nothing
	graph    GraphResumer
	sink     FrameSink

	width    int
	height   int
	bars     int
	interval time.Duration

	// Reused per frame
	bins []byte
	img  *image.RGBA

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// New creates a visualizer. analyzer may be nil (analysis unavailable);
// Start is then a no-op and no sampling loop ever runs.
func New(analyzer *analysis.Analyzer, graph GraphResumer, sink FrameSink, width, height, fps int) *Visualizer {
	if width <= 0 {
		width = 200
	}
	if height <= 0 {
		height = 40
	}
	if fps <= 0 {
		fps = 30
	}

	bars := width / 4
	if bars < 1 {
		bars = 1
	}
	if bars > analysis.BinCount {
		bars = analysis.BinCount
	}

	return &Visualizer{
		analyzer: analyzer,
		graph:    graph,
		sink:     sink,
		width:    width,
		height:   height,
		bars:     bars,
		interval: time.Second / time.Duration(fps),
		bins:     make([]byte, analysis.BinCount),
		img:      image.NewRGBA(image.Rect(0, 0, width, height)),
	}
}

// Start begins the sampling loop. Idempotent; a no-op when analysis is
// unavailable.
func (v *Visualizer) Start() {
	if v.analyzer == nil {
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.stop != nil {
		return // already running
	}

	v.stop = make(chan struct{})
	v.done = make(chan struct{})
	go v.loop(v.stop, v.done)
}

// Stop cancels the sampling loop and waits for the pending frame to
// finish. Failing to stop would leak a perpetual per-frame callback, so
// this is an explicit required action, not garbage collection.
func (v *Visualizer) Stop() {
	v.mu.Lock()
	stop, done := v.stop, v.done
	v.stop, v.done = nil, nil
	v.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// Running reports whether the sampling loop is active
func (v *Visualizer) Running() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stop != nil
}

func (v *Visualizer) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(v.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			// A suspended graph yields silence; wake it before sampling
			if v.graph != nil && v.graph.Suspended() {
				if err := v.graph.Resume(); err != nil {
					log.Printf("Error resuming audio graph in visualizer: %v", err)
					continue
				}
			}
			v.renderFrame()
			if v.sink != nil {
				v.sink(v.img)
			}
		}
	}
}

// renderFrame draws one spectrum frame into the reused image
func (v *Visualizer) renderFrame() {
	v.analyzer.FrequencyBins(v.bins)

	// Clear the surface to avoid smearing between frames
	for i := range v.img.Pix {
		v.img.Pix[i] = 0
	}

	barWidth := v.width / v.bars
	if barWidth < 1 {
		barWidth = 1
	}

	for i := 0; i < v.bars; i++ {
		mag := v.bins[i*analysis.BinCount/v.bars]
		barHeight := int(float64(mag) / 255 * float64(v.height) * 0.8)

		// Full hue sweep across the bin range
		hue := float64(i) / float64(v.bars) * 360
		c := hslToRGB(hue, 0.7, 0.5)

		x0 := i * barWidth
		for x := x0; x < x0+barWidth-1 && x < v.width; x++ {
			for y := v.height - barHeight; y < v.height; y++ {
				v.img.SetRGBA(x, y, c)
			}
		}
	}
}

// hslToRGB converts an HSL color (hue in degrees, s/l in [0,1]) to RGBA
func hslToRGB(h, s, l float64) color.RGBA {
	c := (1 - abs(2*l-1)) * s
	hp := h / 60
	x := c * (1 - abs(mod2(hp)-1))

	var r, g, b float64
	switch {
	case hp < 1:
		r, g, b = c, x, 0
	case hp < 2:
		r, g, b = x, c, 0
	case hp < 3:
		r, g, b = 0, c, x
	case hp < 4:
		r, g, b = 0, x, c
	case hp < 5:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}

	m := l - c/2
	return color.RGBA{
		R: uint8((r + m) * 255),
		G: uint8((g + m) * 255),
		B: uint8((b + m) * 255),
		A: 255,
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func mod2(f float64) float64 {
	for f >= 2 {
		f -= 2
	}
	return f
}
