package testlog

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/log"
)

// CapturedRecord is a single log record kept by a CapturingHandler.
type CapturedRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// CapturingHandler keeps every record it handles, for assertions on logged output.
type CapturingHandler struct {
	mu      *sync.Mutex
	records *[]CapturedRecord
	attrs   []slog.Attr
	level   slog.Level
}

func CaptureLogger(level slog.Level) (log.Logger, *CapturingHandler) {
	h := &CapturingHandler{
		mu:      new(sync.Mutex),
		records: new([]CapturedRecord),
		level:   level,
	}
	return log.NewLogger(h), h
}

func (c *CapturingHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= c.level
}

func (c *CapturingHandler) Handle(_ context.Context, r slog.Record) error {
	rec := CapturedRecord{Level: r.Level, Message: r.Message, Attrs: make(map[string]any)}
	for _, a := range c.attrs {
		rec.Attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		rec.Attrs[a.Key] = a.Value.Any()
		return true
	})
	c.mu.Lock()
	defer c.mu.Unlock()
	*c.records = append(*c.records, rec)
	return nil
}

func (c *CapturingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CapturingHandler{
		mu:      c.mu,
		records: c.records,
		attrs:   append(append([]slog.Attr{}, c.attrs...), attrs...),
		level:   c.level,
	}
}

func (c *CapturingHandler) WithGroup(string) slog.Handler {
	return c
}

// FindLog returns the first record whose message contains msg.
func (c *CapturingHandler) FindLog(msg string) *CapturedRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range *c.records {
		if strings.Contains((*c.records)[i].Message, msg) {
			rec := (*c.records)[i]
			return &rec
		}
	}
	return nil
}

func (c *CapturingHandler) Records() []CapturedRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]CapturedRecord(nil), *c.records...)
}
