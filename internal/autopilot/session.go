package autopilot

import (
	"context"
	"sync"
	"time"

	"github.com/zulandar/switchboard/internal/decision"
	"github.com/zulandar/switchboard/internal/models"
	"github.com/zulandar/switchboard/internal/qualify"
	"github.com/zulandar/switchboard/internal/reply"
)

// LogType classifies a log entry.
type LogType string

// Log entry types.
const (
	LogInfo    LogType = "INFO"
	LogAction  LogType = "ACTION"
	LogError   LogType = "ERROR"
	LogSuccess LogType = "SUCCESS"
	LogWarning LogType = "WARNING"
)

// Actor is who caused a log entry.
type Actor string

// Log entry actors.
const (
	ActorUser   Actor = "User"
	ActorBot    Actor = "Bot"
	ActorSystem Actor = "System"
)

// maxLogEntries is the in-memory log capacity.
const maxLogEntries = 100

// LogEntry is one line of user-visible engine activity.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Type    LogType   `json:"type"`
	Actor   Actor     `json:"actor"`
	Message string    `json:"message"`
}

// Stats are the counters for the current (or last) session. They are reset
// on start and only grow while running.
type Stats struct {
	ChatsProcessed int        `json:"chatsProcessed"`
	RepliesSent    int        `json:"repliesSent"`
	LeadsFound     int        `json:"leadsFound"`
	StartTime      *time.Time `json:"startTime"`
	TokensUsed     int        `json:"tokensUsed"`
	CurrentModel   string     `json:"currentModel"`
	Provider       string     `json:"provider"`
}

// logRing keeps the newest entries first, capped at maxLogEntries.
type logRing struct {
	entries []LogEntry
}

func (r *logRing) push(e LogEntry) {
	r.entries = append(r.entries, LogEntry{})
	copy(r.entries[1:], r.entries)
	r.entries[0] = e
	if len(r.entries) > maxLogEntries {
		r.entries = r.entries[:maxLogEntries]
	}
}

func (r *logRing) snapshot() []LogEntry {
	out := make([]LogEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *logRing) load(rows []models.LogEntry) {
	r.entries = r.entries[:0]
	for _, row := range rows {
		if len(r.entries) == maxLogEntries {
			break
		}
		r.entries = append(r.entries, LogEntry{
			Time:    row.Time,
			Type:    LogType(row.Type),
			Actor:   Actor(row.Actor),
			Message: row.Message,
		})
	}
}

func toModels(entries []LogEntry, sessionID string) []models.LogEntry {
	out := make([]models.LogEntry, len(entries))
	for i, e := range entries {
		out[i] = models.LogEntry{
			Time:      e.Time,
			Type:      string(e.Type),
			Actor:     string(e.Actor),
			Message:   e.Message,
			SessionID: sessionID,
		}
	}
	return out
}

// session is one Running period. Everything a step needs hangs off it so a
// stopped session's in-flight work can be recognized and ignored.
type session struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc

	batchSize   int
	strictHours bool
	doubleText  bool
	provider    string
	model       string

	decider   *decision.Engine
	qualifier *qualify.Qualifier
	generator *reply.Generator
}

// scheduler owns the single pending wake-up. Every Schedule replaces the
// previous one.
type scheduler struct {
	mu    sync.Mutex
	timer *time.Timer
	seq   uint64
	due   time.Time
}

func (s *scheduler) Schedule(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.seq++
	seq := s.seq
	s.due = time.Now().Add(d)
	s.timer = time.AfterFunc(d, func() {
		s.mu.Lock()
		if s.seq != seq {
			s.mu.Unlock()
			return
		}
		s.timer = nil
		s.mu.Unlock()
		fn()
	})
}

func (s *scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.seq++
}

// Next returns the pending wake-up time, if any.
func (s *scheduler) Next() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer == nil {
		return time.Time{}, false
	}
	return s.due, true
}
