package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// ANSI 256 palette for console records.
const (
	colorLime     = "154" // info
	colorYellow   = "220" // warnings
	colorRed      = "196" // errors
	colorDarkGray = "238" // debug, attribute keys
)

var (
	styleDebug = lipgloss.NewStyle().Foreground(lipgloss.Color(colorDarkGray))
	styleInfo  = lipgloss.NewStyle().Foreground(lipgloss.Color(colorLime))
	styleWarn  = lipgloss.NewStyle().Foreground(lipgloss.Color(colorYellow))
	styleError = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorRed))
	styleKey   = lipgloss.NewStyle().Foreground(lipgloss.Color(colorDarkGray))
)

// consoleHandler renders one colorized line per record for interactive use.
// JSON output (the non-TTY path) stays the slog JSON handler.
type consoleHandler struct {
	mu     *sync.Mutex
	out    io.Writer
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func newConsoleHandler(out io.Writer, level slog.Level) *consoleHandler {
	return &consoleHandler{
		mu:    &sync.Mutex{},
		out:   out,
		level: level,
	}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *consoleHandler) Handle(_ context.Context, rec slog.Record) error {
	var b strings.Builder

	if !rec.Time.IsZero() {
		b.WriteString(rec.Time.Format("15:04:05.000"))
		b.WriteByte(' ')
	}
	b.WriteString(levelStyle(rec.Level).Render(fmt.Sprintf("%-5s", rec.Level.String())))
	b.WriteByte(' ')
	b.WriteString(rec.Message)

	prefix := strings.Join(h.groups, ".")
	for _, a := range h.attrs {
		writeAttr(&b, prefix, a)
	}
	rec.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, prefix, a)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string{}, h.groups...), name)
	return &clone
}

func levelStyle(level slog.Level) lipgloss.Style {
	switch {
	case level >= slog.LevelError:
		return styleError
	case level >= slog.LevelWarn:
		return styleWarn
	case level >= slog.LevelInfo:
		return styleInfo
	default:
		return styleDebug
	}
}

func writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}

	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			writeAttr(b, key, ga)
		}
		return
	}

	b.WriteByte(' ')
	b.WriteString(styleKey.Render(key + "="))
	b.WriteString(a.Value.String())
}
