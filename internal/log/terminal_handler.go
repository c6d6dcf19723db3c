package log

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	colorReset   = "\033[0m"
	colorDim     = "\033[2m"
	colorBold    = "\033[1m"
	colorRed     = "\033[31m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorMagenta = "\033[35m"
)

// terminalHandler renders records as one colored line:
//
//	15:04:05 INFO  server listening addr=:8080
//
// It implements slog.Handler directly instead of wrapping TextHandler
// so group prefixes and quoting stay under our control.
type terminalHandler struct {
	out    io.Writer
	level  slog.Leveler
	prefix string      // dotted group path for subsequent attrs
	attrs  []slog.Attr // attrs bound via WithAttrs, already prefixed
	mu     *sync.Mutex
}

func newTerminalHandler(w io.Writer, opts *slog.HandlerOptions) *terminalHandler {
	var level slog.Leveler = slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level
	}
	return &terminalHandler{out: w, level: level, mu: &sync.Mutex{}}
}

func (h *terminalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *terminalHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer
	buf.Grow(256)

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	buf.WriteString(colorDim + ts.Format("15:04:05") + colorReset + " ")

	color, label := levelStyle(r.Level)
	buf.WriteString(color + label + colorReset + " ")
	buf.WriteString(colorBold + r.Message + colorReset)

	for _, a := range h.attrs {
		h.writeAttr(&buf, a, h.prefix)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.writeAttr(&buf, a, h.prefix)
		return true
	})
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(buf.Bytes())
	return err
}

func (h *terminalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(clone.attrs, h.attrs)
	clone.attrs = append(clone.attrs, attrs...)
	return &clone
}

func (h *terminalHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

func (h *terminalHandler) writeAttr(buf *bytes.Buffer, a slog.Attr, prefix string) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		sub := prefix
		if a.Key != "" {
			sub += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			h.writeAttr(buf, ga, sub)
		}
		return
	}

	key := prefix + a.Key
	buf.WriteString(" " + colorDim + key + "=" + colorReset)
	if key == "error" {
		buf.WriteString(colorRed + renderValue(a.Value) + colorReset)
		return
	}
	buf.WriteString(renderValue(a.Value))
}

func levelStyle(level slog.Level) (color, label string) {
	switch {
	case level < slog.LevelInfo:
		return colorMagenta, "DEBUG"
	case level < slog.LevelWarn:
		return colorGreen, "INFO "
	case level < slog.LevelError:
		return colorYellow, "WARN "
	default:
		return colorRed, "ERROR"
	}
}

func renderValue(v slog.Value) string {
	s := v.String()
	if v.Kind() == slog.KindString && strings.ContainsAny(s, " \t\n\"\\=") {
		return strconv.Quote(s)
	}
	return s
}
