// Package transcript writes an asynchronous NDJSON log of intake
// conversations, one file per user session.
package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Directions.
const (
	Inbound  = "inbound"
	Outbound = "outbound"
)

// Event types.
const (
	EventUserMessage  = "user_message"
	EventBotReply     = "bot_reply"
	EventStage        = "stage_transition"
	EventCrisis       = "crisis_gate"
	EventFinalization = "finalization"
)

// Event is a single NDJSON line.
type Event struct {
	Timestamp  time.Time         `json:"ts"`
	UserID     string            `json:"user_id"`
	SessionID  string            `json:"session_id"`
	Channel    string            `json:"channel,omitempty"`
	Direction  string            `json:"direction,omitempty"`
	EventType  string            `json:"event_type"`
	Stage      string            `json:"stage,omitempty"`
	Content    string            `json:"content,omitempty"`
	ContentRaw string            `json:"content_raw,omitempty"`
	ContentLen int               `json:"content_len,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Logger records conversation events.
type Logger interface {
	Log(event Event)
	Close() error
}

// Config controls transcript logging.
type Config struct {
	Enabled bool
	Dir     string
	// GlobalPath, when set, also receives every event.
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int
	// IncludeContent keeps message text. Otherwise only its length is kept.
	IncludeContent bool
}

// NopLogger discards events.
type NopLogger struct{}

func (NopLogger) Log(Event) {}

func (NopLogger) Close() error { return nil }

type fileLogger struct {
	cfg     Config
	logger  *slog.Logger
	queue   chan Event
	done    chan struct{}
	files   map[string]*os.File
	global  *os.File
	dropped atomic.Int64

	mu     sync.RWMutex
	closed bool
}

// New returns a Logger for cfg. A disabled config yields a NopLogger.
func New(cfg Config, logger *slog.Logger) (Logger, error) {
	if !cfg.Enabled {
		return NopLogger{}, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Dir == "" {
		return nil, errors.New("transcript dir is required")
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("create transcript dir: %w", err)
	}

	l := &fileLogger{
		cfg:    cfg,
		logger: logger,
		queue:  make(chan Event, cfg.QueueSize),
		done:   make(chan struct{}),
		files:  make(map[string]*os.File),
	}
	if cfg.GlobalEnabled && cfg.GlobalPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.GlobalPath), 0o750); err != nil {
			return nil, fmt.Errorf("create global transcript dir: %w", err)
		}
		f, err := os.OpenFile(cfg.GlobalPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err != nil {
			return nil, fmt.Errorf("open global transcript: %w", err)
		}
		l.global = f
	}

	go l.run()
	return l, nil
}

// Log enqueues event without blocking. Events are dropped when the queue
// is full or the logger is closed.
func (l *fileLogger) Log(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if l.cfg.IncludeContent {
		if event.ContentRaw != "" && event.Content == "" {
			event.Content = cleanForReadability(event.ContentRaw)
		}
	} else {
		raw := event.ContentRaw
		if raw == "" {
			raw = event.Content
		}
		event.ContentLen = len([]rune(raw))
		event.Content = ""
		event.ContentRaw = ""
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return
	}
	select {
	case l.queue <- event:
	default:
		if n := l.dropped.Add(1); n == 1 || n%100 == 0 {
			l.logger.Warn("transcript queue full, dropping events", "dropped", n)
		}
	}
}

func (l *fileLogger) run() {
	defer close(l.done)
	for event := range l.queue {
		if err := l.write(event); err != nil {
			l.logger.Warn("failed to write transcript event", "error", err, "user_id", event.UserID)
		}
	}
	for key, f := range l.files {
		if err := f.Close(); err != nil {
			l.logger.Warn("failed to close transcript file", "error", err, "file", key)
		}
	}
	if l.global != nil {
		_ = l.global.Close()
	}
}

func (l *fileLogger) write(event Event) error {
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	line = append(line, '\n')

	f, err := l.fileFor(event)
	if err != nil {
		return err
	}
	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	if l.global != nil {
		if _, err := l.global.Write(line); err != nil {
			return fmt.Errorf("write global event: %w", err)
		}
	}
	return nil
}

func (l *fileLogger) fileFor(event Event) (*os.File, error) {
	userDir := safeName(event.UserID, "anonymous")
	session := safeName(event.SessionID, "default")
	key := userDir + "/" + session
	if f, ok := l.files[key]; ok {
		return f, nil
	}

	dir := filepath.Join(l.cfg.Dir, userDir)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create user transcript dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, session+".ndjson"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	l.files[key] = f
	return f, nil
}

// Close drains the queue and closes every file.
func (l *fileLogger) Close() error {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.queue)
	}
	l.mu.Unlock()
	<-l.done
	return nil
}

var (
	ansiEscape  = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)
	unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)
)

// cleanForReadability strips terminal escape sequences and control
// characters and collapses whitespace.
func cleanForReadability(raw string) string {
	s := ansiEscape.ReplaceAllString(raw, "")
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return ' '
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

func safeName(s, fallback string) string {
	s = unsafeChars.ReplaceAllString(s, "_")
	s = strings.Trim(s, ".")
	if s == "" {
		return fallback
	}
	return s
}
