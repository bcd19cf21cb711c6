package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TUI message types
type RecordingStartMsg struct{}
type RecordingStopMsg struct{}
type RecordingTickMsg struct{ Elapsed float64 }
type AudioLevelMsg struct{ Level float64 }
type TranscriptionMsg struct {
	Text       string
	Confidence float64
	Copied     bool
	NoSpeech   bool
}
type RecognitionErrorMsg struct{ Err error }
type ModeLineMsg struct{ Text string }   // language/format/provider info
type DeviceLineMsg struct{ Text string } // microphone device name
type ToggleErrMsg struct{ Err error }
type frameMsg time.Time

type tuiState int

const (
	tuiStateIdle tuiState = iota
	tuiStateRecording
)

const meterBars = 42

var (
	styleRec     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	styleStandby = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	styleMode    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	styleDim     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	styleHelp    = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	styleHelpKey = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	styleText    = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	styleWarn    = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	styleErr     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	styleCopied  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleMeterLo = lipgloss.NewStyle().Foreground(lipgloss.Color("34"))
	styleMeterMd = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	styleMeterHi = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type tuiModel struct {
	state         tuiState
	elapsed       float64
	level         float64
	peak          float64 // peak level during current recording
	levels        []float64
	msgCount      int
	width, height int
	modeLine      string
	deviceLine    string
	lastText      string
	lastConf      float64
	copied        bool
	noSpeech      bool
	lastErr       string
	toggle        func() error
}

// NewTUIProgram builds the dictation screen. toggle flips the recording
// session on space; results come back through the sink as messages.
func NewTUIProgram(toggle func() error) *tea.Program {
	m := tuiModel{
		levels: make([]float64, meterBars),
		toggle: toggle,
	}
	return tea.NewProgram(m, tea.WithAltScreen())
}

func frameTick() tea.Cmd {
	return tea.Tick(60*time.Millisecond, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return frameTick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case " ", "enter":
			toggle := m.toggle
			if toggle != nil {
				return m, func() tea.Msg { return ToggleErrMsg{Err: toggle()} }
			}
		}

	case frameMsg:
		if m.state == tuiStateRecording {
			m.levels = append(m.levels[1:], m.level)
		}
		return m, frameTick()

	case RecordingStartMsg:
		m.state = tuiStateRecording
		m.elapsed = 0
		m.level = 0
		m.peak = 0
		m.lastErr = ""
		m.levels = make([]float64, meterBars)

	case RecordingStopMsg:
		m.state = tuiStateIdle
		m.level = 0

	case RecordingTickMsg:
		m.elapsed = msg.Elapsed

	case AudioLevelMsg:
		if m.state == tuiStateRecording {
			m.level = m.level*0.6 + msg.Level*0.4
			if msg.Level > m.peak {
				m.peak = msg.Level
			}
		}

	case TranscriptionMsg:
		m.msgCount++
		m.lastText = msg.Text
		m.lastConf = msg.Confidence
		m.copied = msg.Copied
		m.noSpeech = msg.NoSpeech

	case RecognitionErrorMsg:
		m.lastErr = msg.Err.Error()

	case ToggleErrMsg:
		if msg.Err != nil {
			m.lastErr = msg.Err.Error()
		}

	case ModeLineMsg:
		m.modeLine = msg.Text

	case DeviceLineMsg:
		m.deviceLine = msg.Text
	}
	return m, nil
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	const leftWidth = 46
	recording := m.state == tuiStateRecording

	var lines []string
	lines = append(lines, "")
	lines = append(lines, renderMeter(m.levels, recording))
	lines = append(lines, "")

	if recording {
		lines = append(lines, styleRec.Render(fmt.Sprintf("● REC %.1fs", m.elapsed)))
		// No usable signal after a full second means the mic is probably
		// muted or the wrong device is selected.
		if m.elapsed > 1.0 && m.peak < 0.02 {
			lines = append(lines, styleWarn.Render("  ⚠ no voice detected"))
		}
	} else {
		lines = append(lines, styleStandby.Render("○ STANDBY"))
	}

	if m.modeLine != "" {
		lines = append(lines, styleMode.Render(m.modeLine))
	}
	if m.deviceLine != "" {
		lines = append(lines, styleDim.Render(m.deviceLine))
	}
	if m.lastErr != "" {
		lines = append(lines, "")
		for _, l := range wrapText(m.lastErr, leftWidth-4) {
			lines = append(lines, styleErr.Render("✗ "+l))
		}
	}

	lines = append(lines, "")
	lines = append(lines, styleHelpKey.Render("space")+styleHelp.Render(" record/stop   ")+
		styleHelpKey.Render("q")+styleHelp.Render(" quit"))
	lines = append(lines, styleHelp.Render("vox "+version))

	rightWidth := m.width - leftWidth - 1
	if rightWidth < 20 {
		rightWidth = 20
	}
	wrapWidth := rightWidth - 2
	if wrapWidth < 10 {
		wrapWidth = 10
	}

	var right strings.Builder
	if m.lastText != "" {
		title := fmt.Sprintf("Last transcription (#%d)", m.msgCount)
		if !m.noSpeech && m.lastConf > 0 {
			title += fmt.Sprintf("  %.0f%%", m.lastConf*100)
		}
		right.WriteString(styleMode.Render(title) + "\n\n")

		textStyle := styleText
		if m.noSpeech {
			textStyle = styleWarn
		}
		wrapped := wrapText(m.lastText, wrapWidth)
		for i, line := range wrapped {
			right.WriteString(textStyle.Render(line))
			if i == len(wrapped)-1 && m.copied && !m.noSpeech {
				right.WriteString(" " + styleCopied.Render("[✓ copied]"))
			}
			right.WriteString("\n")
		}
	} else {
		right.WriteString(styleDim.Render("No transcriptions yet"))
	}

	leftPanel := lipgloss.NewStyle().
		Width(leftWidth).
		Height(m.height).
		PaddingLeft(1).
		Render(strings.Join(lines, "\n"))
	rightPanel := lipgloss.NewStyle().
		Width(rightWidth).
		Height(m.height).
		PaddingLeft(1).
		Render(right.String())

	return lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, rightPanel)
}

var meterGlyphs = []rune("▁▂▃▄▅▆▇█")

// renderMeter draws the rolling level history as a one-line sparkline.
// Levels are RMS in [0,1] but speech rarely exceeds ~0.3, so the scale
// is stretched before quantizing.
func renderMeter(levels []float64, recording bool) string {
	var b strings.Builder
	for _, lv := range levels {
		v := lv * 3
		if v > 1 {
			v = 1
		}
		idx := int(v * float64(len(meterGlyphs)-1))
		g := string(meterGlyphs[idx])
		if !recording {
			b.WriteString(styleDim.Render(g))
			continue
		}
		switch {
		case v > 0.8:
			b.WriteString(styleMeterHi.Render(g))
		case v > 0.4:
			b.WriteString(styleMeterMd.Render(g))
		default:
			b.WriteString(styleMeterLo.Render(g))
		}
	}
	return b.String()
}

func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	for len(text) > width {
		splitAt := width
		for i := width; i > 0; i-- {
			if text[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, text[:splitAt])
		text = strings.TrimLeft(text[splitAt:], " ")
	}
	if len(text) > 0 {
		lines = append(lines, text)
	}
	return lines
}

// tuiSink forwards recorder events into the Bubble Tea program. copy
// of the transcript happens here so the TUI can show the indicator.
type tuiSink struct {
	p    *tea.Program
	copy func(text string) bool
}

func (s *tuiSink) RecordingStart()            { s.p.Send(RecordingStartMsg{}) }
func (s *tuiSink) RecordingStop()             { s.p.Send(RecordingStopMsg{}) }
func (s *tuiSink) RecordingTick(elapsed float64) { s.p.Send(RecordingTickMsg{Elapsed: elapsed}) }
func (s *tuiSink) AudioLevel(level float64)   { s.p.Send(AudioLevelMsg{Level: level}) }

func (s *tuiSink) Transcript(text string, confidence float64) {
	copied := false
	if s.copy != nil {
		copied = s.copy(text)
	}
	s.p.Send(TranscriptionMsg{Text: text, Confidence: confidence, Copied: copied})
}

func (s *tuiSink) NoSpeech() {
	s.p.Send(TranscriptionMsg{Text: "(no speech detected)", NoSpeech: true})
}

func (s *tuiSink) RecognitionError(err error) {
	s.p.Send(RecognitionErrorMsg{Err: err})
}
