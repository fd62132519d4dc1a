package main

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/charmbracelet/lipgloss"
)

var (
	styleTick = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	styleLog  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	styleErr  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// consoleNotifier is the CLI's default Notifier: one styled line per log
// message or error, and for Tick a running progress count printed as one
// line every 80 ticks, in the same terse style the teacher's TUI reserves
// for its own debug log line prefixes.
type consoleNotifier struct {
	ticks int64
}

func newConsoleNotifier() *consoleNotifier {
	return &consoleNotifier{}
}

func (n *consoleNotifier) Tick() {
	count := atomic.AddInt64(&n.ticks, 1)
	if count%80 == 0 {
		fmt.Fprintln(os.Stderr, styleTick.Render(fmt.Sprintf("... %d instruments processed", count)))
	}
}

func (n *consoleNotifier) Log(messageID string, args ...any) {
	fmt.Fprintln(os.Stderr, styleLog.Render(format(messageID, args...)))
}

func (n *consoleNotifier) Error(messageID string, file string, cause error) {
	msg := fmt.Sprintf("%s: %s", messageID, file)
	if cause != nil {
		msg = fmt.Sprintf("%s (%v)", msg, cause)
	}
	fmt.Fprintln(os.Stderr, styleErr.Render(msg))
}

func format(messageID string, args ...any) string {
	if len(args) == 0 {
		return messageID
	}
	return fmt.Sprintf(messageID+" %v", args)
}
