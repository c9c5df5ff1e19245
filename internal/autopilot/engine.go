// Package autopilot runs the reply loop: it walks a batch of inbox threads,
// decides which need an answer, drafts and types replies, and reschedules
// itself until stopped.
package autopilot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zulandar/switchboard/internal/config"
	"github.com/zulandar/switchboard/internal/decision"
	"github.com/zulandar/switchboard/internal/doubletext"
	"github.com/zulandar/switchboard/internal/history"
	"github.com/zulandar/switchboard/internal/llm"
	"github.com/zulandar/switchboard/internal/models"
	"github.com/zulandar/switchboard/internal/notify"
	"github.com/zulandar/switchboard/internal/pacing"
	"github.com/zulandar/switchboard/internal/qualify"
	"github.com/zulandar/switchboard/internal/reply"
)

const (
	hoursRetry   = 15 * time.Minute
	alertTimeout = 30 * time.Second
	maxBatch     = 100
)

// ErrAlreadyRunning is returned by Start while a session is active.
var ErrAlreadyRunning = errors.New("autopilot: already running")

// Store is the persistence the engine needs. *history.Store implements it.
type Store interface {
	SaveConversation(leadID, leadName string, msgs []models.ConversationMessage) (*history.History, error)
	GetLeadProfile(leadID string) (*models.LeadProfile, error)
	SaveLeadProfile(p *models.LeadProfile) error
	SaveLogs(newestFirst []models.LogEntry) error
	LoadLogs() ([]models.LogEntry, error)
	SaveSession(s *models.Session) error
}

// ChatFactory builds a chat client for a provider and model.
type ChatFactory func(provider, model string) (llm.Chatter, error)

// StartRequest carries the START command's options. Nil pointers and zero
// values fall back to the configuration.
type StartRequest struct {
	BatchSize   int
	StrictHours *bool
	UseGroq     *bool
	GroqModel   string
}

// Status is a read-only snapshot of the engine.
type Status struct {
	Running bool       `json:"running"`
	Stats   Stats      `json:"stats"`
	Logs    []LogEntry `json:"logs"`
	NextRun *time.Time `json:"nextRun,omitempty"`
}

// Opts holds the engine's collaborators.
type Opts struct {
	Config   *config.Config
	Page     Page
	Store    Store
	Chat     ChatFactory
	Notifier notify.Notifier // nil disables lead alerts
	Pacer    *pacing.Pacer
	// For testing: override the clock and the sleep used for all pauses.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// Engine is the reply loop state machine (Idle -> Running -> Idle).
type Engine struct {
	cfg      *config.Config
	page     Page
	store    Store
	chat     ChatFactory
	notifier notify.Notifier
	pacer    *pacing.Pacer
	dt       *doubletext.Generator
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error

	// mu guards the session state below.
	mu      sync.Mutex
	running bool
	sess    *session
	stats   Stats
	logs    logRing

	// work serializes iterations.
	work sync.Mutex
	// persist orders log writes so a stopped session cannot overwrite the
	// final snapshot.
	persist sync.Mutex
	sched   scheduler
	alerts  sync.WaitGroup
	events  *broker
}

// New builds an Engine and restores the persisted log.
func New(opts Opts) (*Engine, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("autopilot: config is required")
	}
	if opts.Page == nil {
		return nil, fmt.Errorf("autopilot: page is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("autopilot: store is required")
	}
	if opts.Chat == nil {
		return nil, fmt.Errorf("autopilot: chat factory is required")
	}
	e := &Engine{
		cfg:      opts.Config,
		page:     opts.Page,
		store:    opts.Store,
		chat:     opts.Chat,
		notifier: opts.Notifier,
		pacer:    opts.Pacer,
		now:      opts.Now,
		sleep:    opts.Sleep,
		events:   newBroker(),
	}
	if e.pacer == nil {
		e.pacer = pacing.New()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.sleep == nil {
		e.sleep = pacing.Sleep
	}
	e.dt = doubletext.New(e.pacer)

	rows, err := e.store.LoadLogs()
	if err != nil {
		log.Printf("autopilot: load logs: %v", err)
	} else {
		e.logs.load(rows)
	}
	return e, nil
}

// Start begins a session. It fails with ErrAlreadyRunning, leaving the
// current stats untouched, if one is active.
func (e *Engine) Start(req StartRequest) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return ErrAlreadyRunning
	}
	s, err := e.newSession(req)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	now := e.now()
	e.running = true
	e.sess = s
	e.stats = Stats{StartTime: &now, CurrentModel: s.model, Provider: s.provider}
	e.appendLocked(LogEntry{
		Time:    now,
		Type:    LogAction,
		Actor:   ActorUser,
		Message: fmt.Sprintf("Started: batch of %d using %s/%s", s.batchSize, s.provider, s.model),
	})
	e.sched.Schedule(0, func() { e.iterate(s) })
	e.mu.Unlock()

	e.events.publish(Event{Type: EventStatus, Time: now, Data: map[string]bool{"running": true}})
	return nil
}

func (e *Engine) newSession(req StartRequest) (*session, error) {
	provider := e.cfg.LLM.Provider
	if req.UseGroq != nil {
		provider = config.ProviderOpenAI
		if *req.UseGroq {
			provider = config.ProviderGroq
		}
	}
	model := e.cfg.LLM.OpenAI.Model
	if provider == config.ProviderGroq {
		model = e.cfg.LLM.Groq.Model
		if req.GroqModel != "" {
			model = req.GroqModel
		}
	}
	chat, err := e.chat(provider, model)
	if err != nil {
		return nil, fmt.Errorf("autopilot: start: %w", err)
	}

	batch := req.BatchSize
	if batch <= 0 {
		batch = e.cfg.BatchSize
	}
	if batch > maxBatch {
		batch = maxBatch
	}
	strict := e.cfg.Hours.Strict
	if req.StrictHours != nil {
		strict = *req.StrictHours
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &session{
		id:          uuid.NewString(),
		ctx:         ctx,
		cancel:      cancel,
		batchSize:   batch,
		strictHours: strict,
		doubleText:  e.cfg.DoubleText.Enabled,
		provider:    provider,
		model:       model,
		decider:     decision.New(chat, model),
		qualifier:   qualify.New(chat, model),
		generator:   reply.New(chat, model),
	}, nil
}

// Stop ends the session: the pending wake-up is cancelled, in-flight sleeps
// return early and nothing further is logged for it. Stats and logs are kept.
// Stopping an idle engine is a no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	s := e.sess
	now := e.now()
	e.appendLocked(LogEntry{Time: now, Type: LogAction, Actor: ActorUser, Message: "Stopped"})
	e.running = false
	e.sched.Cancel()
	s.cancel()
	stats := e.stats
	logs := e.logs.snapshot()
	e.mu.Unlock()

	e.events.publish(Event{Type: EventStatus, Time: now, Data: map[string]bool{"running": false}})

	e.persist.Lock()
	if err := e.store.SaveLogs(toModels(logs, s.id)); err != nil {
		log.Printf("autopilot: persist logs: %v", err)
	}
	e.persist.Unlock()
	rec := &models.Session{
		ID:             s.id,
		StoppedAt:      &now,
		ChatsProcessed: stats.ChatsProcessed,
		RepliesSent:    stats.RepliesSent,
		LeadsFound:     stats.LeadsFound,
		TokensUsed:     stats.TokensUsed,
		Model:          stats.CurrentModel,
		Provider:       stats.Provider,
	}
	if stats.StartTime != nil {
		rec.StartedAt = *stats.StartTime
	}
	if err := e.store.SaveSession(rec); err != nil {
		log.Printf("autopilot: save session: %v", err)
	}
}

// Status returns a snapshot. It never changes state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	st := Status{Running: e.running, Stats: e.stats, Logs: e.logs.snapshot()}
	if st.Stats.StartTime != nil {
		t := *st.Stats.StartTime
		st.Stats.StartTime = &t
	}
	e.mu.Unlock()
	if next, ok := e.sched.Next(); ok {
		st.NextRun = &next
	}
	return st
}

// CheckUnread asks the page for its unread badge count and publishes an
// unread event when it is non-zero.
func (e *Engine) CheckUnread(ctx context.Context) (int, error) {
	n, err := e.page.UnreadCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("autopilot: check unread: %w", err)
	}
	if n > 0 {
		e.events.publish(Event{Type: EventUnread, Time: e.now(), Data: UnreadEvent{Count: n}})
	}
	return n, nil
}

// Subscribe returns a channel of live events and a function to unsubscribe.
func (e *Engine) Subscribe() (<-chan Event, func()) {
	return e.events.subscribe()
}

// Wait blocks until in-flight lead alerts have finished.
func (e *Engine) Wait() {
	e.alerts.Wait()
}

// Close stops any session and waits for outstanding alerts.
func (e *Engine) Close() {
	e.Stop()
	e.Wait()
}

// ---------------------------------------------------------------------------
// Session bookkeeping
// ---------------------------------------------------------------------------

// active reports whether s is still the running session.
func (e *Engine) active(s *session) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running && e.sess == s
}

// logf records an entry for s, unless s has been stopped or replaced.
func (e *Engine) logf(s *session, typ LogType, actor Actor, format string, args ...any) {
	entry := LogEntry{Time: e.now(), Type: typ, Actor: actor, Message: fmt.Sprintf(format, args...)}
	e.mu.Lock()
	if !e.running || e.sess != s {
		e.mu.Unlock()
		return
	}
	e.appendLocked(entry)
	e.mu.Unlock()
}

func (e *Engine) appendLocked(entry LogEntry) {
	e.logs.push(entry)
	log.Printf("autopilot: [%s] %s", entry.Type, entry.Message)
	e.events.publish(Event{Type: EventLog, Time: entry.Time, Data: entry})
}

// bump applies fn to the stats of s if it is still running.
func (e *Engine) bump(s *session, fn func(*Stats)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running && e.sess == s {
		fn(&e.stats)
	}
}

// reschedule arms the next iteration for s unless it was stopped meanwhile.
func (e *Engine) reschedule(s *session, d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running && e.sess == s {
		e.sched.Schedule(d, func() { e.iterate(s) })
	}
}

func (e *Engine) persistLogs(s *session) {
	e.persist.Lock()
	defer e.persist.Unlock()
	e.mu.Lock()
	if !e.running || e.sess != s {
		e.mu.Unlock()
		return
	}
	logs := e.logs.snapshot()
	e.mu.Unlock()
	if err := e.store.SaveLogs(toModels(logs, s.id)); err != nil {
		log.Printf("autopilot: persist logs: %v", err)
	}
}

func (e *Engine) pause(ctx context.Context, d time.Duration) {
	_ = e.sleep(ctx, d)
}

func (e *Engine) chatDelay() time.Duration {
	return e.pacer.BetweenMs(e.cfg.Delays.ChatMinMs, e.cfg.Delays.ChatMaxMs)
}

func (e *Engine) loopDelay() time.Duration {
	return e.pacer.BetweenMs(e.cfg.Delays.LoopMinMs, e.cfg.Delays.LoopMaxMs)
}

// dispatchAlert sends a lead alert in the background. Failures are logged and
// never affect the reply flow.
func (e *Engine) dispatchAlert(s *session, a notify.Alert) {
	e.alerts.Add(1)
	go func() {
		defer e.alerts.Done()
		ctx, cancel := context.WithTimeout(context.Background(), alertTimeout)
		defer cancel()
		if err := e.notifier.Notify(ctx, a); err != nil {
			log.Printf("autopilot: lead alert for %s: %v", a.LeadName, err)
			e.logf(s, LogError, ActorSystem, "Lead alert for %s failed: %v", a.LeadName, err)
		}
	}()
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
