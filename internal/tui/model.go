// SPDX-License-Identifier: MIT
package tui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"consolefft/internal/analysis"
	"consolefft/internal/log"
)

// scaleStep is the factor applied by the + and - keys.
const scaleStep = 1.1

var (
	graphStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#1E7A4C", Dark: "#25A065"})

	waveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#1F5FA8", Dark: "#5FA8FF"})
)

// Source is what the renderer reads from and controls. *analysis.Analyzer
// implements it.
type Source interface {
	Averages(dst []float64) []float64
	Waveform(dst []float64) []float64
	Mode() analysis.Mode
	SetMode(m analysis.Mode)
	Mapper() *analysis.Mapper
}

var _ Source = (*analysis.Analyzer)(nil)

// Options configures the renderer.
type Options struct {
	Interval   time.Duration // Redraw interval.
	ScaleFFT   float64       // Initial spectrum scale; bars use ScaleFFT/100.
	ScaleWave  float64       // Initial waveform scale.
	CharMode   CharMode
	HelpFrames int // Frames the help stays visible after start and after each key.
}

type keyMap struct {
	Mode     key.Binding
	CharMode key.Binding
	ScaleUp  key.Binding
	ScaleDn  key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Mode: key.NewBinding(
		key.WithKeys(" "),
		key.WithHelp("space", "toggle spectrum/waveform"),
	),
	CharMode: key.NewBinding(
		key.WithKeys("c", "C"),
		key.WithHelp("c", "toggle style"),
	),
	ScaleUp: key.NewBinding(
		key.WithKeys("+", "="),
		key.WithHelp("+", "scale up"),
	),
	ScaleDn: key.NewBinding(
		key.WithKeys("-", "_"),
		key.WithHelp("-", "scale down"),
	),
	Quit: key.NewBinding(
		key.WithKeys("esc", "q", "ctrl+c"),
		key.WithHelp("esc", "exit"),
	),
}

type tickMsg time.Time

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Model is the Bubbletea model drawing the analyzer output.
type Model struct {
	src  Source
	opts Options

	scaleFFT  float64
	scaleWave float64
	charMode  CharMode
	helpLeft  int
	frames    uint64

	canvas   *Canvas
	averages []float64
	waveform []float64
	quitting bool
}

// New creates a new Model reading from src.
func New(src Source, opts Options) Model {
	if opts.Interval <= 0 {
		opts.Interval = 16 * time.Millisecond
	}
	return Model{
		src:       src,
		opts:      opts,
		scaleFFT:  opts.ScaleFFT,
		scaleWave: opts.ScaleWave,
		charMode:  opts.CharMode,
		helpLeft:  opts.HelpFrames,
		canvas:    NewCanvas(0, 0),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(m.opts.Interval), tea.SetWindowTitle("consolefft"))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.canvas = NewCanvas(msg.Width, msg.Height)
		return m, nil

	case tickMsg:
		m.draw()
		return m, tickCmd(m.opts.Interval)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Mode):
			if m.src.Mode() == analysis.ModeSpectrum {
				m.src.SetMode(analysis.ModeWaveform)
			} else {
				m.src.SetMode(analysis.ModeSpectrum)
			}
		case key.Matches(msg, keys.CharMode):
			if m.charMode == CharSimple {
				m.charMode = CharMultiple
			} else {
				m.charMode = CharSimple
			}
		case key.Matches(msg, keys.ScaleUp):
			m.adjustScale(scaleStep)
		case key.Matches(msg, keys.ScaleDn):
			m.adjustScale(1 / scaleStep)
		default:
			return m, nil
		}
		m.helpLeft = m.opts.HelpFrames
		return m, nil
	}
	return m, nil
}

// adjustScale multiplies the scale of the active mode.
func (m *Model) adjustScale(factor float64) {
	if m.src.Mode() == analysis.ModeSpectrum {
		m.scaleFFT *= factor
	} else {
		m.scaleWave *= factor
	}
}

// draw renders one frame into the canvas.
func (m *Model) draw() {
	c := m.canvas
	c.Clear()
	mode := m.src.Mode()
	switch mode {
	case analysis.ModeSpectrum:
		m.averages = m.src.Averages(m.averages)
		DrawSpectrum(c, m.src.Mapper(), m.averages, m.scaleFFT/100, m.charMode)
	case analysis.ModeWaveform:
		m.waveform = m.src.Waveform(m.waveform)
		DrawWaveform(c, m.waveform, m.scaleWave, m.charMode)
	}
	if m.helpLeft > 0 {
		DrawHelp(c, HelpLines(m.scaleFFT, m.scaleWave, m.charMode, mode))
		m.helpLeft--
	}
	m.frames++
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.src.Mode() == analysis.ModeWaveform {
		return waveStyle.Render(m.canvas.String())
	}
	return graphStyle.Render(m.canvas.String())
}

// Scales returns the current spectrum and waveform scales.
func (m Model) Scales() (fft, wave float64) { return m.scaleFFT, m.scaleWave }

// CharMode returns the current glyph mode.
func (m Model) CharMode() CharMode { return m.charMode }

// HelpVisible reports whether the help overlay is drawn on the next frame.
func (m Model) HelpVisible() bool { return m.helpLeft > 0 }

// Run shows the renderer on the alternate screen until the user quits or
// ctx is cancelled. Quitting returns nil so the caller can cancel the rest
// of the program.
func Run(ctx context.Context, src Source, opts Options) error {
	p := tea.NewProgram(New(src, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	}
	if fm, ok := final.(Model); ok {
		log.Infof("Renderer: Exited after %d frames", fm.frames)
	}
	return nil
}
