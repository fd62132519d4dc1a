package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/clipperhouse/uax29/v2/words"
)

// logWrapWidth matches the "line break every 80 ticks" console convention
// this CLI already follows in consoleNotifier, so the scrolling pane wraps
// to the same width rather than inventing a second one.
const logWrapWidth = 80

type tickMsg struct{}
type logMsg string
type errMsg struct {
	messageID string
	file      string
	cause     error
}
type runDoneMsg struct{ err error }

// tuiNotifier forwards Notifier calls as Bubble Tea messages to a running
// program, the way the teacher's StartupProgressModel is driven entirely
// by messages sent from a background goroutine rather than by direct
// field mutation.
type tuiNotifier struct {
	program *tea.Program
}

func (n *tuiNotifier) Tick() {
	n.program.Send(tickMsg{})
}

func (n *tuiNotifier) Log(messageID string, args ...any) {
	n.program.Send(logMsg(format(messageID, args...)))
}

func (n *tuiNotifier) Error(messageID string, file string, cause error) {
	n.program.Send(errMsg{messageID: messageID, file: file, cause: cause})
}

var tuiErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

type tuiModel struct {
	viewport viewport.Model
	progress progress.Model
	lines    []string
	ticks    int64
	runErr   error
	quitting bool
}

func newTUIModel() tuiModel {
	vp := viewport.New(80, 18)
	pr := progress.New(progress.WithDefaultGradient())
	pr.Width = 50
	return tuiModel{viewport: vp, progress: pr}
}

func (m tuiModel) Init() tea.Cmd {
	return nil
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - 4
		m.progress.Width = msg.Width - 10
		return m, nil

	case tickMsg:
		m.ticks++
		cmd := m.progress.SetPercent(float64(m.ticks%80) / 80)
		if m.ticks%80 == 0 {
			m.appendLine(fmt.Sprintf("-- %d instruments processed --", m.ticks))
		}
		return m, cmd

	case logMsg:
		for _, line := range wordWrap(string(msg), logWrapWidth) {
			m.appendLine(line)
		}
		return m, nil

	case errMsg:
		text := fmt.Sprintf("%s: %s", msg.messageID, msg.file)
		if msg.cause != nil {
			text = fmt.Sprintf("%s (%v)", text, msg.cause)
		}
		for _, line := range wordWrap(text, logWrapWidth) {
			m.appendLine(tuiErrorStyle.Render(line))
		}
		return m, nil

	case runDoneMsg:
		m.runErr = msg.err
		m.quitting = true
		return m, tea.Quit

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}

	case progress.FrameMsg:
		next, cmd := m.progress.Update(msg)
		if pm, ok := next.(progress.Model); ok {
			m.progress = pm
		}
		return m, cmd
	}

	return m, nil
}

func (m *tuiModel) appendLine(line string) {
	const maxLines = 500
	m.lines = append(m.lines, line)
	if len(m.lines) > maxLines {
		m.lines = m.lines[len(m.lines)-maxLines:]
	}
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	m.viewport.GotoBottom()
}

func (m tuiModel) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.viewport.View(),
		m.progress.View(),
	)
}

// wordWrap breaks text into lines no wider than width, splitting on word
// boundaries rather than byte offsets so multi-byte grapheme clusters in
// instrument/file names never get cut mid-rune.
func wordWrap(text string, width int) []string {
	seg := words.NewSegmenter([]byte(text))
	var lines []string
	var cur strings.Builder
	for seg.Next() {
		tok := string(seg.Value())
		if cur.Len() > 0 && cur.Len()+len(tok) > width {
			lines = append(lines, strings.TrimRight(cur.String(), " "))
			cur.Reset()
		}
		cur.WriteString(tok)
	}
	if cur.Len() > 0 {
		lines = append(lines, strings.TrimRight(cur.String(), " "))
	}
	if len(lines) == 0 {
		lines = []string{""}
	}
	return lines
}
