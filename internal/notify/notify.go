// Package notify delivers qualified-lead alerts. Each sink implements
// Notifier; Multi fans out to several of them.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Alert describes one qualified lead.
type Alert struct {
	Owner      string
	LeadName   string
	LeadID     string
	Criteria   string
	Transcript string
	Time       time.Time
}

// Subject is the one-line summary used as an email subject or card title.
func (a Alert) Subject() string {
	return fmt.Sprintf("Qualified lead: %s", a.LeadName)
}

// Notifier sends an alert somewhere.
type Notifier interface {
	Notify(ctx context.Context, a Alert) error
}

// Multi sends to every sink and joins their errors. One failing sink does
// not stop the others.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, a Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Color used for lead cards in chat sinks.
const ColorLead = "#36a64f"

// Summary renders the alert as plain text for chat sinks.
func Summary(a Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s looks like a qualified lead.\n", a.LeadName)
	if a.Criteria != "" {
		fmt.Fprintf(&b, "Criteria: %s\n", a.Criteria)
	}
	if a.Transcript != "" {
		fmt.Fprintf(&b, "\n%s", a.Transcript)
	}
	return strings.TrimRight(b.String(), "\n")
}
