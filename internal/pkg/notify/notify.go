// Package notify is the user-facing message channel of the client: successes, failures,
// informational notes and level-up announcements.
package notify

import (
	"fmt"
	"io"
	"sync"

	"reciclo/internal/pkg/logger"

	"go.uber.org/zap"
)

//go:generate mockgen -destination=mocks/mock_notify.go -package=mocks reciclo/internal/pkg/notify Notifier

// Notifier shows messages to the user.
type Notifier interface {
	Success(msg string)
	Error(msg string)
	Info(msg string)
	LevelUp(level int)
}

// LevelUpMessage is the text shown when the user reaches a new level.
func LevelUpMessage(level int) string {
	return fmt.Sprintf("Congratulations! You reached level %d!", level)
}

// Console writes notifications as lines to w.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsole creates a Console writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) print(prefix, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "%s %s\n", prefix, msg)
}

func (c *Console) Success(msg string) { c.print("[ok]", msg) }
func (c *Console) Error(msg string)   { c.print("[error]", msg) }
func (c *Console) Info(msg string)    { c.print("[info]", msg) }
func (c *Console) LevelUp(level int)  { c.print("[level]", LevelUpMessage(level)) }

// Log records notifications in the structured log.
type Log struct {
	log *logger.Logger
}

// NewLog creates a Log notifier.
func NewLog(l *logger.Logger) *Log {
	return &Log{log: l}
}

func (n *Log) Success(msg string) { n.log.Info("notification", zap.String("kind", "success"), zap.String("message", msg)) }
func (n *Log) Error(msg string)   { n.log.Warn("notification", zap.String("kind", "error"), zap.String("message", msg)) }
func (n *Log) Info(msg string)    { n.log.Info("notification", zap.String("kind", "info"), zap.String("message", msg)) }
func (n *Log) LevelUp(level int) {
	n.log.Info("notification", zap.String("kind", "level_up"), zap.Int("level", level))
}

// Multi fans a notification out to several notifiers.
type Multi []Notifier

func (m Multi) Success(msg string) {
	for _, n := range m {
		n.Success(msg)
	}
}

func (m Multi) Error(msg string) {
	for _, n := range m {
		n.Error(msg)
	}
}

func (m Multi) Info(msg string) {
	for _, n := range m {
		n.Info(msg)
	}
}

func (m Multi) LevelUp(level int) {
	for _, n := range m {
		n.LevelUp(level)
	}
}

// Kind classifies a recorded notification.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
	KindLevelUp Kind = "level_up"
)

// Message is a recorded notification.
type Message struct {
	Kind  Kind
	Text  string
	Level int
}

// Recorder keeps every notification in memory.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

func (r *Recorder) add(m Message) {
	r.mu.Lock()
	r.messages = append(r.messages, m)
	r.mu.Unlock()
}

func (r *Recorder) Success(msg string) { r.add(Message{Kind: KindSuccess, Text: msg}) }
func (r *Recorder) Error(msg string)   { r.add(Message{Kind: KindError, Text: msg}) }
func (r *Recorder) Info(msg string)    { r.add(Message{Kind: KindInfo, Text: msg}) }
func (r *Recorder) LevelUp(level int) {
	r.add(Message{Kind: KindLevelUp, Text: LevelUpMessage(level), Level: level})
}

// Messages returns a copy of the recorded notifications.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// Last returns the most recent notification, or the zero Message.
func (r *Recorder) Last() Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return Message{}
	}
	return r.messages[len(r.messages)-1]
}

// Reset discards recorded notifications.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.messages = nil
	r.mu.Unlock()
}
