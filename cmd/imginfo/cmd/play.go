package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/blacktop/go-imgdec"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/mosaic"
	"github.com/nfnt/resize"
	"github.com/spf13/cobra"
)

// fallbackDelay is used for frames without a duration
const fallbackDelay = 100 * time.Millisecond

var (
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	stateStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F25D94")).Bold(true)
)

var playCmd = &cobra.Command{
	Use:   "play FILE",
	Short: "Play an animated image in the terminal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dec, err := imgdec.Open(args[0], decoderOptions()...)
		if err != nil {
			return err
		}
		defer dec.Release()
		if !dec.IsValid() {
			return fmt.Errorf("%s: %w", args[0], imgdec.ErrUnknownFormat)
		}

		cols, rows := terminalSize()
		m, err := newPlayer(dec, cols, max(rows-2, 1))
		if err != nil {
			return err
		}
		_, err = tea.NewProgram(m).Run()
		return err
	},
}

type tickMsg struct {
	gen int
}

// player is a bubbletea model cycling through pre-rendered frames
type player struct {
	frames    []string
	durations []time.Duration
	loops     int // 0 plays forever
	index     int
	played    int
	gen       int // ticks from an older generation are dropped
	paused    bool
	done      bool
}

// newPlayer renders every frame of dec as halfblocks fitting cols x rows
func newPlayer(dec *imgdec.Decoder, cols, rows int) (player, error) {
	n := dec.FrameCount()
	if n == 0 {
		return player{}, fmt.Errorf("failed to decode frames: %w", dec.Err())
	}

	p := player{loops: dec.LoopCount()}
	for i := range n {
		f := dec.Frame(i)
		img := f.Bitmap.Image()
		if img == nil {
			return player{}, fmt.Errorf("frame %d has no pixels", i)
		}
		b := img.Bounds()
		w, h := fitCells(b.Dx(), b.Dy(), cols, rows)
		small := resize.Thumbnail(uint(w), uint(h*2), img, resize.NearestNeighbor)
		p.frames = append(p.frames, mosaic.New().Width(w).Height(h).Render(small))
		p.durations = append(p.durations, f.Duration)
	}
	return p, nil
}

func (m player) delay() time.Duration {
	if d := m.durations[m.index]; d > 0 {
		return d
	}
	return fallbackDelay
}

func (m player) tick() tea.Cmd {
	gen := m.gen
	return tea.Tick(m.delay(), func(time.Time) tea.Msg {
		return tickMsg{gen: gen}
	})
}

func (m player) Init() tea.Cmd {
	if len(m.frames) < 2 {
		return nil
	}
	return m.tick()
}

func (m player) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.paused = !m.paused
			if m.paused || m.done || len(m.frames) < 2 {
				return m, nil
			}
			m.gen++
			return m, m.tick()
		}
	case tickMsg:
		if msg.gen != m.gen || m.paused || m.done {
			return m, nil
		}
		return m.advance()
	}
	return m, nil
}

// advance moves to the next frame, stopping on the last frame once the
// loop count is exhausted.
func (m player) advance() (tea.Model, tea.Cmd) {
	m.index++
	if m.index == len(m.frames) {
		m.played++
		if m.loops > 0 && m.played >= m.loops {
			m.index = len(m.frames) - 1
			m.done = true
			return m, nil
		}
		m.index = 0
	}
	return m, m.tick()
}

func (m player) View() string {
	var sb strings.Builder
	sb.WriteString(m.frames[m.index])
	sb.WriteString("\n")

	loop := "forever"
	switch {
	case len(m.frames) < 2:
		loop = "-"
	case m.loops > 0:
		loop = fmt.Sprintf("%d/%d", min(m.played+1, m.loops), m.loops)
	}
	sb.WriteString(statusStyle.Render(fmt.Sprintf("frame %d/%d  %v  loop %s", m.index+1, len(m.frames), m.durations[m.index], loop)))
	switch {
	case m.done:
		sb.WriteString(" " + stateStyle.Render("done"))
	case m.paused:
		sb.WriteString(" " + stateStyle.Render("paused"))
	}
	sb.WriteString(statusStyle.Render("  (space pause, q quit)"))
	return sb.String()
}
