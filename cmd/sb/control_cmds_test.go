package main

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/switchboard/internal/autopilot"
	"github.com/zulandar/switchboard/internal/control"
)

type fakeController struct {
	mu   sync.Mutex
	last autopilot.Command
}

func (f *fakeController) Dispatch(ctx context.Context, cmd autopilot.Command) autopilot.Reply {
	f.mu.Lock()
	f.last = cmd
	f.mu.Unlock()
	switch cmd.Type {
	case autopilot.PingTest:
		return autopilot.Reply{Status: autopilot.StatusOK, Message: autopilot.PingAck}
	case autopilot.GetStatus:
		running := true
		start := time.Now().Add(-90 * time.Second)
		return autopilot.Reply{
			Status:  autopilot.StatusOK,
			Running: &running,
			Stats:   &autopilot.Stats{RepliesSent: 4, TokensUsed: 12345, StartTime: &start, Provider: "openai", CurrentModel: "gpt-4o-mini"},
			Logs:    []autopilot.LogEntry{{Time: time.Now(), Type: autopilot.LogSuccess, Actor: autopilot.ActorBot, Message: "Replied to Jane Doe"}},
		}
	case autopilot.StartBot:
		return autopilot.Reply{Status: autopilot.StatusOK}
	case autopilot.StopBot:
		return autopilot.Reply{Status: autopilot.StatusStopped}
	case autopilot.CheckUnread:
		n := 6
		return autopilot.Reply{Status: autopilot.StatusChecked, Unread: &n}
	}
	return autopilot.Reply{Status: autopilot.StatusError, Error: "unknown"}
}

func (f *fakeController) Subscribe() (<-chan autopilot.Event, func()) {
	ch := make(chan autopilot.Event)
	return ch, func() {}
}

func (f *fakeController) lastCmd() autopilot.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

func setupControl(t *testing.T) (*fakeController, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctrl := &fakeController{}
	srv := httptest.NewServer(control.NewRouter(ctrl))
	t.Cleanup(srv.Close)
	return ctrl, srv.URL
}

func TestPingCmd(t *testing.T) {
	_, url := setupControl(t)
	out, err := runCmd(t, "", "ping", "--addr", url)
	if err != nil {
		t.Fatalf("ping: %v", err)
	}
	if !strings.HasPrefix(out, "pong") {
		t.Errorf("output = %q", out)
	}
}

func TestStartCmd_SendsOverrides(t *testing.T) {
	ctrl, url := setupControl(t)
	out, err := runCmd(t, "", "start", "--addr", url, "-n", "15", "--strict", "--groq-model", "llama-3.3-70b-versatile")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !strings.Contains(out, "Session started") {
		t.Errorf("output = %q", out)
	}
	cmd := ctrl.lastCmd()
	if cmd.Type != autopilot.StartBot || cmd.N != 15 {
		t.Fatalf("cmd = %+v", cmd)
	}
	c := cmd.Config
	if c == nil || c.StrictHours == nil || !*c.StrictHours || c.UseGroq == nil || !*c.UseGroq || c.GroqModel != "llama-3.3-70b-versatile" {
		t.Errorf("config = %+v", c)
	}
}

func TestStartCmd_NoOverrides(t *testing.T) {
	ctrl, url := setupControl(t)
	if _, err := runCmd(t, "", "start", "--addr", url); err != nil {
		t.Fatalf("start: %v", err)
	}
	if ctrl.lastCmd().Config != nil {
		t.Errorf("config should be omitted, got %+v", ctrl.lastCmd().Config)
	}
}

func TestStopCmd(t *testing.T) {
	ctrl, url := setupControl(t)
	out, err := runCmd(t, "", "stop", "--addr", url)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !strings.Contains(out, "Stopped") || ctrl.lastCmd().Type != autopilot.StopBot {
		t.Errorf("output = %q, cmd = %+v", out, ctrl.lastCmd())
	}
}

func TestCheckUnreadCmd(t *testing.T) {
	_, url := setupControl(t)
	out, err := runCmd(t, "", "check-unread", "--addr", url)
	if err != nil {
		t.Fatalf("check-unread: %v", err)
	}
	if strings.TrimSpace(out) != "6 unread" {
		t.Errorf("output = %q", out)
	}
}

func TestStatusCmd(t *testing.T) {
	_, url := setupControl(t)
	out, err := runCmd(t, "", "status", "--addr", url)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"running", "12,345", "openai/gpt-4o-mini", "Replied to Jane Doe"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}
}

func TestPingCmd_ServerDown(t *testing.T) {
	_, err := runCmd(t, "", "ping", "--addr", "127.0.0.1:1")
	if err == nil {
		t.Fatal("expected connection error")
	}
}

func TestBaseURL(t *testing.T) {
	tests := map[string]string{
		"127.0.0.1:7420":        "http://127.0.0.1:7420",
		"http://localhost:9000": "http://localhost:9000",
		"https://sb.example":    "https://sb.example",
	}
	for in, want := range tests {
		if got := baseURL(in); got != want {
			t.Errorf("baseURL(%q) = %q, want %q", in, got, want)
		}
	}
}
