package autopilot

import (
	"errors"
	"strings"
	"time"

	"github.com/zulandar/switchboard/internal/decision"
	"github.com/zulandar/switchboard/internal/doubletext"
	"github.com/zulandar/switchboard/internal/history"
	"github.com/zulandar/switchboard/internal/models"
	"github.com/zulandar/switchboard/internal/notify"
	"github.com/zulandar/switchboard/internal/pacing"
	"github.com/zulandar/switchboard/internal/qualify"
	"github.com/zulandar/switchboard/internal/reply"
)

// iterate runs one batch for s and arms the next one.
func (e *Engine) iterate(s *session) {
	e.work.Lock()
	defer e.work.Unlock()

	if !e.active(s) {
		return
	}
	ctx := s.ctx

	if s.strictHours {
		h := e.now().Hour()
		if !pacing.InWindow(h, e.cfg.Hours.Start, e.cfg.Hours.End) {
			e.reschedule(s, hoursRetry)
			e.logf(s, LogWarning, ActorSystem, "Outside working hours (%02d:00-%02d:00), retrying in 15 minutes",
				e.cfg.Hours.Start, e.cfg.Hours.End)
			e.persistLogs(s)
			return
		}
	}

	e.logf(s, LogInfo, ActorBot, "Scanning inbox")
	if err := e.page.ScrollInbox(ctx, e.pacer.ScrollOffsets()); err != nil {
		e.logf(s, LogWarning, ActorBot, "Inbox scroll failed: %v", err)
	}
	threads, err := e.page.ListThreads(ctx)
	if err != nil {
		e.logf(s, LogError, ActorBot, "Could not list threads: %v", err)
		threads = nil
	}
	if len(threads) > s.batchSize {
		threads = threads[:s.batchSize]
	}

	for _, idx := range e.pacer.BiasedOrder(len(threads)) {
		if !e.active(s) {
			return
		}
		e.processThread(s, threads[idx])
		e.persistLogs(s)
		if !e.active(s) {
			return
		}
		e.pause(ctx, e.chatDelay())
	}

	if !e.active(s) {
		return
	}
	d := e.loopDelay()
	e.reschedule(s, d)
	e.logf(s, LogInfo, ActorSystem, "Batch complete, next run in %s", d.Round(time.Second))
	e.persistLogs(s)
}

// processThread handles one conversation. Every failure is logged and ends
// only this thread.
func (e *Engine) processThread(s *session, t Thread) {
	ctx := s.ctx

	if err := e.page.ScrollToThread(ctx, t); err != nil {
		e.logf(s, LogInfo, ActorBot, "Thread %d not reachable, skipping", t.Index)
		return
	}
	e.pause(ctx, e.chatDelay())
	if !e.active(s) {
		return
	}
	if err := e.page.OpenThread(ctx, t); err != nil {
		e.logf(s, LogInfo, ActorBot, "Could not open thread %d, skipping", t.Index)
		return
	}
	if err := e.page.WaitThreadLoaded(ctx); err != nil {
		e.logf(s, LogInfo, ActorBot, "Thread %d did not load, skipping", t.Index)
		return
	}

	hdr, err := e.page.ReadHeader(ctx)
	if err != nil || hdr == nil || strings.TrimSpace(hdr.LeadName) == "" {
		e.logf(s, LogInfo, ActorBot, "No lead name in thread %d, skipping", t.Index)
		return
	}
	name := strings.TrimSpace(hdr.LeadName)
	last := models.ConversationMessage{Speaker: hdr.LastSender, Message: hdr.LastMessage}
	if strings.TrimSpace(hdr.LastSender) == "" || !decision.IsOtherParty(last, name) {
		e.logf(s, LogInfo, ActorBot, "No new message from %s, skipping", name)
		return
	}

	conv, err := e.page.ReadTranscript(ctx)
	if err != nil || len(conv) == 0 {
		e.logf(s, LogInfo, ActorBot, "Empty transcript for %s, skipping", name)
		return
	}
	e.bump(s, func(st *Stats) { st.ChatsProcessed++ })

	leadID := leadKey(hdr, t)
	if _, err := e.store.SaveConversation(leadID, name, conv); err != nil {
		e.logf(s, LogError, ActorSystem, "Saving history for %s failed: %v", name, err)
	}
	e.refreshProfile(s, leadID)

	d := s.decider.Decide(ctx, conv, name)
	if !d.ShouldReply {
		e.logf(s, LogInfo, ActorBot, "Skipping %s: %s", name, d.Reason)
		return
	}
	e.logf(s, LogAction, ActorBot, "Replying to %s: %s", name, d.Reason)

	if e.notifier != nil && e.cfg.NotificationsEnabled() {
		criteria := e.cfg.Templates.LeadCriteria
		if s.qualifier.IsQualified(ctx, criteria, qualify.LastTwo(conv)) {
			e.bump(s, func(st *Stats) { st.LeadsFound++ })
			e.logf(s, LogSuccess, ActorBot, "Qualified lead: %s", name)
			e.dispatchAlert(s, notify.Alert{
				Owner:      e.cfg.Owner,
				LeadName:   name,
				LeadID:     leadID,
				Criteria:   criteria,
				Transcript: qualify.FormatTranscript(conv),
				Time:       e.now(),
			})
		}
	}
	if !e.active(s) {
		return
	}

	res, err := s.generator.Generate(ctx, reply.Request{
		Template:     e.cfg.Templates.Reply,
		Conversation: conv,
		LeadName:     name,
		MyName:       e.cfg.Owner,
	})
	if err != nil {
		e.logf(s, LogError, ActorBot, "Reply generation for %s failed: %v", name, err)
		return
	}
	e.bump(s, func(st *Stats) { st.TokensUsed += res.TokensUsed })

	parts := []string{res.Reply}
	var gap time.Duration
	if s.doubleText {
		latest := reply.LatestFrom(conv, name)
		if p := e.dt.MaybeSplit(res.Reply, doubletext.Context{
			MessageCount:         len(conv),
			LastMessageQuestions: doubletext.CountQuestions(latest),
		}); p != nil {
			parts = []string{p.FirstMessage, p.SecondMessage}
			gap = p.Delay
			e.logf(s, LogInfo, ActorBot, "Splitting reply to %s (%s)", name, p.Kind)
		}
	}

	for i, part := range parts {
		if i > 0 {
			e.pause(ctx, gap)
		}
		if !e.active(s) {
			return
		}
		if !e.submit(s, name, part) {
			return
		}
	}
	e.bump(s, func(st *Stats) { st.RepliesSent++ })
	e.logf(s, LogSuccess, ActorBot, "Replied to %s: %q", name, truncate(res.Reply, 80))
}

// submit types text into the composer and sends it. It reports true only when
// the composer was cleared afterwards.
func (e *Engine) submit(s *session, name, text string) bool {
	ctx := s.ctx
	e.pause(ctx, e.pacer.TypingDelay(text))

	runes := []rune(text)
	for i, r := range runes {
		if ctx.Err() != nil {
			return false
		}
		if err := e.page.Type(ctx, string(r)); err != nil {
			e.logf(s, LogError, ActorBot, "Typing to %s failed: %v", name, err)
			return false
		}
		e.pause(ctx, e.pacer.KeystrokeDelay(runes, i))
	}
	if !e.active(s) {
		return false
	}

	enabled, err := e.page.SendEnabled(ctx)
	if err != nil || !enabled {
		e.logf(s, LogError, ActorBot, "Send button disabled for %s", name)
		return false
	}
	if err := e.page.ClickSend(ctx); err != nil {
		e.logf(s, LogError, ActorBot, "Clicking send for %s failed: %v", name, err)
		return false
	}
	e.pause(ctx, e.pacer.Between(800*time.Millisecond, 2*time.Second))

	left, err := e.page.InputText(ctx)
	if err != nil || strings.TrimSpace(left) != "" {
		e.logf(s, LogWarning, ActorBot, "Composer not cleared after sending to %s", name)
		return false
	}
	return true
}

// refreshProfile captures the lead's profile when the cached one is stale.
// Failures only reach the process log.
func (e *Engine) refreshProfile(s *session, leadID string) {
	p, err := e.store.GetLeadProfile(leadID)
	if err != nil && !errors.Is(err, history.ErrNotFound) {
		e.logf(s, LogWarning, ActorSystem, "Loading profile %s failed: %v", leadID, err)
		return
	}
	if !history.ShouldRefreshProfile(p, e.now()) {
		return
	}
	fresh, err := e.page.ReadProfile(s.ctx, leadID)
	if err != nil || fresh == nil {
		return
	}
	fresh.LeadID = leadID
	fresh.LastScraped = e.now()
	if err := e.store.SaveLeadProfile(fresh); err != nil {
		e.logf(s, LogWarning, ActorSystem, "Saving profile %s failed: %v", leadID, err)
	}
}

func leadKey(h *Header, t Thread) string {
	switch {
	case h.LeadID != "":
		return h.LeadID
	case t.ID != "":
		return t.ID
	default:
		return strings.ToLower(strings.Join(strings.Fields(h.LeadName), "-"))
	}
}
