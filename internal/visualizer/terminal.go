package visualizer

import (
	"bufio"
	"fmt"
	"image"
	"io"
	"sync"
)

// TerminalSink draws frames to an ANSI terminal with truecolor half
// blocks, packing two image rows into each text row. Cleared pixels
// (alpha zero) render as plain background.
type TerminalSink struct {
	mu sync.Mutex
	w  *bufio.Writer
}

func NewTerminalSink(w io.Writer) *TerminalSink {
	return &TerminalSink{w: bufio.NewWriter(w)}
}

// Frame renders one image. Satisfies FrameSink; the image is read in
// place, nothing is retained.
func (s *TerminalSink) Frame(img *image.RGBA) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := img.Bounds()

	// Home the cursor instead of clearing to avoid flicker
	s.w.WriteString("\x1b[H")

	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		for x := b.Min.X; x < b.Max.X; x++ {
			top := img.RGBAAt(x, y)
			bot := top
			if y+1 < b.Max.Y {
				bot = img.RGBAAt(x, y+1)
			}

			if top.A == 0 && bot.A == 0 {
				s.w.WriteString("\x1b[0m ")
				continue
			}
			fmt.Fprintf(s.w, "\x1b[38;2;%d;%d;%dm\x1b[48;2;%d;%d;%dm▀",
				top.R, top.G, top.B, bot.R, bot.G, bot.B)
		}
		s.w.WriteString("\x1b[0m\n")
	}
	s.w.Flush()
}
