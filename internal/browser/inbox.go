package browser

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/zulandar/switchboard/internal/autopilot"
	"github.com/zulandar/switchboard/internal/models"
	"github.com/zulandar/switchboard/internal/pacing"
)

// ScrollInbox moves the mouse over the thread list and scrolls by each
// offset with a short pause in between.
func (b *Browser) ScrollInbox(ctx context.Context, offsets []int) error {
	p := b.within(ctx, findTimeout)
	first, err := p.Element(b.sel.ThreadItem)
	if err != nil {
		return fmt.Errorf("browser: thread list: %w", err)
	}
	if err := first.Hover(); err != nil {
		return fmt.Errorf("browser: hover thread list: %w", err)
	}
	for _, off := range offsets {
		steps := 4 + b.pacer.IntN(6)
		if err := p.Mouse.Scroll(0, float64(off), steps); err != nil {
			return fmt.Errorf("browser: scroll: %w", err)
		}
		if err := pacing.Sleep(ctx, b.pacer.Between(150*time.Millisecond, 450*time.Millisecond)); err != nil {
			return err
		}
	}
	return nil
}

// ListThreads returns the loaded inbox entries in display order.
func (b *Browser) ListThreads(ctx context.Context) ([]autopilot.Thread, error) {
	p := b.within(ctx, findTimeout)
	if _, err := p.Element(b.sel.ThreadItem); err != nil {
		return nil, fmt.Errorf("browser: thread list: %w", err)
	}
	items, err := p.Elements(b.sel.ThreadItem)
	if err != nil {
		return nil, fmt.Errorf("browser: list threads: %w", err)
	}
	out := make([]autopilot.Thread, 0, len(items))
	for i, item := range items {
		t := autopilot.Thread{Index: i}
		if has, link, _ := item.Has(b.sel.ThreadLink); has {
			if href, _ := link.Attribute("href"); href != nil {
				t.ID = ThreadIDFromHref(*href)
			}
		}
		t.Unread, _, _ = item.Has(b.sel.UnreadBadge)
		out = append(out, t)
	}
	return out, nil
}

func (b *Browser) threadItem(ctx context.Context, t autopilot.Thread) (*rod.Element, error) {
	items, err := b.within(ctx, findTimeout).Elements(b.sel.ThreadItem)
	if err != nil {
		return nil, fmt.Errorf("browser: list threads: %w", err)
	}
	if t.Index < 0 || t.Index >= len(items) {
		return nil, fmt.Errorf("browser: thread %d no longer listed", t.Index)
	}
	return items[t.Index], nil
}

// ScrollToThread brings the thread's list entry into view.
func (b *Browser) ScrollToThread(ctx context.Context, t autopilot.Thread) error {
	el, err := b.threadItem(ctx, t)
	if err != nil {
		return err
	}
	return el.ScrollIntoView()
}

// OpenThread clicks the thread's list entry.
func (b *Browser) OpenThread(ctx context.Context, t autopilot.Thread) error {
	el, err := b.threadItem(ctx, t)
	if err != nil {
		return err
	}
	if has, link, _ := el.Has(b.sel.ThreadLink); has {
		el = link
	}
	if err := el.Hover(); err != nil {
		return fmt.Errorf("browser: hover thread: %w", err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("browser: open thread: %w", err)
	}
	return nil
}

// WaitThreadLoaded waits for the first message of the open thread.
func (b *Browser) WaitThreadLoaded(ctx context.Context) error {
	if _, err := b.within(ctx, loadTimeout).Element(b.sel.MessageGroup); err != nil {
		return fmt.Errorf("browser: thread not loaded: %w", err)
	}
	return nil
}

// ReadHeader reads the counterpart's name and profile id and the sender and
// text of the most recent message. A missing name yields nil.
func (b *Browser) ReadHeader(ctx context.Context) (*autopilot.Header, error) {
	p := b.within(ctx, findTimeout)
	nameEl, err := p.Element(b.sel.LeadName)
	if err != nil {
		return nil, nil
	}
	name, _ := nameEl.Text()
	name = CleanText(name)
	if name == "" {
		return nil, nil
	}
	h := &autopilot.Header{LeadName: name}
	if has, link, _ := b.within(ctx, probeTimeout).Has(b.sel.ProfileLink); has {
		if href, _ := link.Attribute("href"); href != nil {
			h.LeadID = LeadIDFromProfileURL(*href)
		}
	}

	conv, err := b.ReadTranscript(ctx)
	if err != nil {
		return nil, err
	}
	if n := len(conv); n > 0 {
		h.LastSender = conv[n-1].Speaker
		h.LastMessage = conv[n-1].Message
	}
	return h, nil
}

// ReadTranscript returns the open thread's messages oldest first. Grouped
// messages without a sender label inherit the previous sender.
func (b *Browser) ReadTranscript(ctx context.Context) ([]models.ConversationMessage, error) {
	groups, err := b.within(ctx, findTimeout).Elements(b.sel.MessageGroup)
	if err != nil {
		return nil, fmt.Errorf("browser: read transcript: %w", err)
	}
	var (
		out    []models.ConversationMessage
		sender string
	)
	for _, g := range groups {
		if has, el, _ := g.Has(b.sel.MessageSender); has {
			if s, err := el.Text(); err == nil && CleanText(s) != "" {
				sender = CleanText(s)
			}
		}
		bodies, err := g.Elements(b.sel.MessageBody)
		if err != nil {
			continue
		}
		for _, body := range bodies {
			text, err := body.Text()
			if err != nil {
				continue
			}
			if text = strings.TrimSpace(text); text == "" || sender == "" {
				continue
			}
			out = append(out, models.ConversationMessage{Speaker: sender, Message: text})
		}
	}
	return out, nil
}

// UnreadCount sums the unread badges in the inbox. A badge without a number
// counts as one.
func (b *Browser) UnreadCount(ctx context.Context) (int, error) {
	badges, err := b.within(ctx, findTimeout).Elements(b.sel.UnreadBadge)
	if err != nil {
		return 0, fmt.Errorf("browser: unread badges: %w", err)
	}
	total := 0
	for _, el := range badges {
		text, _ := el.Text()
		total += BadgeCount(text)
	}
	return total, nil
}

// BadgeCount parses a badge label such as "3" or "9+". Anything unparsable
// counts as one.
func BadgeCount(label string) int {
	label = strings.TrimSuffix(strings.TrimSpace(label), "+")
	n, err := strconv.Atoi(label)
	if err != nil || n < 1 {
		return 1
	}
	return n
}
