package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"
)

var emailTmpl = template.Must(template.New("lead").Parse(`<!DOCTYPE html>
<html><body style="font-family:sans-serif">
<h2>New qualified lead: {{.LeadName}}</h2>
<p>Switchboard flagged this conversation for {{.Owner}} at {{.Time.Format "Jan 2, 15:04 MST"}}.</p>
{{if .Criteria}}<p><strong>Criteria:</strong> {{.Criteria}}</p>{{end}}
<h3>Conversation</h3>
<pre style="white-space:pre-wrap;background:#f6f8fa;padding:12px;border-radius:6px">{{.Transcript}}</pre>
</body></html>`))

// Email posts alerts to a REST email API (Resend-compatible JSON body with
// bearer auth).
type Email struct {
	endpoint   string
	apiKey     string
	from       string
	to         string
	httpClient *http.Client
}

// EmailOpts configures an Email sink.
type EmailOpts struct {
	Endpoint string
	APIKey   string
	From     string
	To       string
	// For testing: inject an HTTP client.
	Client *http.Client
}

// NewEmail validates opts and returns an Email sink.
func NewEmail(opts EmailOpts) (*Email, error) {
	if opts.To == "" {
		return nil, fmt.Errorf("notify: email recipient is required")
	}
	if opts.APIKey == "" {
		return nil, fmt.Errorf("notify: email API key is required")
	}
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("notify: email endpoint is required")
	}
	from := opts.From
	if from == "" {
		from = "Switchboard <onboarding@resend.dev>"
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Email{endpoint: opts.Endpoint, apiKey: opts.APIKey, from: from, to: opts.To, httpClient: client}, nil
}

// RenderHTML fills the fixed alert template.
func RenderHTML(a Alert) (string, error) {
	if a.Time.IsZero() {
		a.Time = time.Now()
	}
	var buf bytes.Buffer
	if err := emailTmpl.Execute(&buf, a); err != nil {
		return "", fmt.Errorf("notify: render email: %w", err)
	}
	return buf.String(), nil
}

type emailBody struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Notify implements Notifier.
func (e *Email) Notify(ctx context.Context, a Alert) error {
	html, err := RenderHTML(a)
	if err != nil {
		return err
	}
	body, err := json.Marshal(emailBody{From: e.from, To: []string{e.to}, Subject: a.Subject(), HTML: html})
	if err != nil {
		return fmt.Errorf("notify: marshal email: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: create email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify: send email: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("notify: email API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return nil
}
