package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// DefaultMaxFragmentLen is the number of bytes of markup kept per attribute.
const DefaultMaxFragmentLen = 160

// markupKeys contains attribute keys whose values carry fixture markup or
// extracted text. Keys ending in "_html" are treated the same way.
var markupKeys = map[string]bool{
	"html":       true,
	"raw":        true,
	"fragment":   true,
	"snippet":    true,
	"diagnostic": true,
}

// ContentHandler wraps an slog.Handler so that fixture content cannot flood
// or corrupt log output. Markup-bearing attributes are collapsed to a single
// line and truncated, and every string value is forced to valid UTF-8 since
// binary fixtures flow through the same code paths.
type ContentHandler struct {
	// handler is the underlying slog handler that receives cleaned records.
	handler slog.Handler

	// maxLen is the byte budget for markup attributes.
	maxLen int
}

// NewContentHandler creates a ContentHandler wrapping the given handler.
// If handler is nil, slog.Default().Handler() is used. A non-positive
// maxLen selects DefaultMaxFragmentLen.
func NewContentHandler(handler slog.Handler, maxLen int) *ContentHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	if maxLen <= 0 {
		maxLen = DefaultMaxFragmentLen
	}
	return &ContentHandler{handler: handler, maxLen: maxLen}
}

// Enabled reports whether the handler handles records at the given level.
// It delegates to the underlying handler.
func (h *ContentHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle cleans the record's attributes and passes it to the underlying handler.
func (h *ContentHandler) Handle(ctx context.Context, r slog.Record) error {
	cleaned := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)

	r.Attrs(func(a slog.Attr) bool {
		cleaned.AddAttrs(h.cleanAttr(a))
		return true
	})

	return h.handler.Handle(ctx, cleaned)
}

// WithAttrs returns a new handler with the given attributes added.
// Attributes are cleaned before being added.
func (h *ContentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cleaned := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		cleaned[i] = h.cleanAttr(a)
	}
	return &ContentHandler{handler: h.handler.WithAttrs(cleaned), maxLen: h.maxLen}
}

// WithGroup returns a new handler with the given group name.
func (h *ContentHandler) WithGroup(name string) slog.Handler {
	return &ContentHandler{handler: h.handler.WithGroup(name), maxLen: h.maxLen}
}

// cleanAttr cleans a single attribute, recursively handling groups.
func (h *ContentHandler) cleanAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		cleaned := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			cleaned[i] = h.cleanAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(cleaned...)}
	}

	if a.Value.Kind() != slog.KindString {
		return a
	}

	s := strings.ToValidUTF8(a.Value.String(), "\uFFFD")
	if isMarkupKey(a.Key) {
		s = truncateFragment(strings.Join(strings.Fields(s), " "), h.maxLen)
	}
	return slog.String(a.Key, s)
}

// isMarkupKey reports whether values under key carry fixture content.
func isMarkupKey(key string) bool {
	key = strings.ToLower(key)
	return markupKeys[key] || strings.HasSuffix(key, "_html")
}

// truncateFragment cuts s to at most maxLen bytes on a rune boundary and
// notes how much was dropped.
func truncateFragment(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return fmt.Sprintf("%s...(+%d bytes)", s[:cut], len(s)-cut)
}

// NewLogger creates a new slog.Logger writing text records through a
// ContentHandler.
//
// Parameters:
//   - w: The io.Writer to write log output to (typically os.Stderr)
//   - verbose: If true, sets log level to Debug; otherwise Warn
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewContentHandler(slog.NewTextHandler(w, handlerOptions(verbose)), 0))
}

// NewJSONLogger creates a new slog.Logger writing JSON records through a
// ContentHandler. Useful for structured log aggregation in CI.
func NewJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewContentHandler(slog.NewJSONHandler(w, handlerOptions(verbose)), 0))
}

func handlerOptions(verbose bool) *slog.HandlerOptions {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return &slog.HandlerOptions{Level: level}
}
