package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

var testAlert = Alert{
	Owner:      "Alice",
	LeadName:   "Jane <Doe>",
	LeadID:     "jane-doe",
	Criteria:   "Asks about pricing",
	Transcript: "Jane: How much is it?",
	Time:       time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
}

type stubNotifier struct {
	err   error
	calls int
}

func (s *stubNotifier) Notify(context.Context, Alert) error {
	s.calls++
	return s.err
}

// ---------------------------------------------------------------------------
// Multi
// ---------------------------------------------------------------------------

func TestMulti_CallsAllAndJoinsErrors(t *testing.T) {
	errA := errors.New("slack down")
	errB := errors.New("email down")
	a := &stubNotifier{err: errA}
	b := &stubNotifier{}
	c := &stubNotifier{err: errB}

	err := Multi{a, b, c}.Notify(context.Background(), testAlert)
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("err = %v, want both sink errors", err)
	}
	if a.calls != 1 || b.calls != 1 || c.calls != 1 {
		t.Errorf("calls = %d/%d/%d", a.calls, b.calls, c.calls)
	}
}

func TestMulti_Empty(t *testing.T) {
	if err := (Multi{}).Notify(context.Background(), testAlert); err != nil {
		t.Errorf("err = %v", err)
	}
}

func TestSummary(t *testing.T) {
	s := Summary(testAlert)
	for _, want := range []string{"Jane <Doe> looks like a qualified lead.", "Criteria: Asks about pricing", "Jane: How much is it?"} {
		if !strings.Contains(s, want) {
			t.Errorf("Summary missing %q:\n%s", want, s)
		}
	}
}

// ---------------------------------------------------------------------------
// Email
// ---------------------------------------------------------------------------

func TestRenderHTML_EscapesAndIncludesTranscript(t *testing.T) {
	html, err := RenderHTML(testAlert)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(html, "Jane &lt;Doe&gt;") {
		t.Error("lead name not escaped")
	}
	if !strings.Contains(html, "Jane: How much is it?") {
		t.Error("transcript missing")
	}
	if !strings.Contains(html, "Asks about pricing") {
		t.Error("criteria missing")
	}
}

func TestEmail_Notify(t *testing.T) {
	var got emailBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer re_test" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id":"abc"}`))
	}))
	defer srv.Close()

	e, err := NewEmail(EmailOpts{Endpoint: srv.URL, APIKey: "re_test", To: "alice@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Notify(context.Background(), testAlert); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(got.To) != 1 || got.To[0] != "alice@example.com" {
		t.Errorf("To = %v", got.To)
	}
	if got.Subject != "Qualified lead: Jane <Doe>" {
		t.Errorf("Subject = %q", got.Subject)
	}
	if !strings.Contains(got.HTML, "<h2>") {
		t.Errorf("HTML = %q", got.HTML)
	}
}

func TestEmail_NotifyErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusForbidden)
	}))
	defer srv.Close()

	e, _ := NewEmail(EmailOpts{Endpoint: srv.URL, APIKey: "bad", To: "a@b.c"})
	err := e.Notify(context.Background(), testAlert)
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Errorf("err = %v, want 403", err)
	}
}

func TestNewEmail_Validation(t *testing.T) {
	tests := []struct {
		name string
		opts EmailOpts
		want string
	}{
		{"no recipient", EmailOpts{APIKey: "k", Endpoint: "http://x"}, "recipient"},
		{"no key", EmailOpts{To: "a@b.c", Endpoint: "http://x"}, "API key"},
		{"no endpoint", EmailOpts{To: "a@b.c", APIKey: "k"}, "endpoint"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEmail(tt.opts)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}
}
