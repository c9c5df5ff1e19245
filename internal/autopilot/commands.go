package autopilot

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// CommandType names a control command.
type CommandType string

// Command types understood by Dispatch. PauseBot and ResumeBot are reserved
// and always answered with an error.
const (
	PingTest    CommandType = "PING_TEST"
	GetStatus   CommandType = "GET_STATUS"
	StartBot    CommandType = "START_BOT"
	StopBot     CommandType = "STOP_BOT"
	CheckUnread CommandType = "CHECK_UNREAD"
	PauseBot    CommandType = "PAUSE_BOT"
	ResumeBot   CommandType = "RESUME_BOT"
)

// Reply statuses.
const (
	StatusOK      = "ok"
	StatusError   = "error"
	StatusStopped = "stopped"
	StatusChecked = "checked"
)

// PingAck is the fixed acknowledgement to PING_TEST.
const PingAck = "pong"

// StartConfig is the optional per-session override sent with START_BOT.
type StartConfig struct {
	StrictHours *bool  `json:"strictHours,omitempty"`
	UseGroq     *bool  `json:"useGroq,omitempty"`
	GroqModel   string `json:"groqModel,omitempty"`
}

// Command is the typed request envelope.
type Command struct {
	Type   CommandType  `json:"type"`
	N      int          `json:"n,omitempty"`
	Config *StartConfig `json:"config,omitempty"`
}

// Reply is the structured answer to a Command.
type Reply struct {
	Status  string     `json:"status"`
	Error   string     `json:"error,omitempty"`
	Message string     `json:"message,omitempty"`
	Running *bool      `json:"running,omitempty"`
	Stats   *Stats     `json:"stats,omitempty"`
	Logs    []LogEntry `json:"logs,omitempty"`
	Unread  *int       `json:"unread,omitempty"`
	NextRun *time.Time `json:"nextRun,omitempty"`
}

// StartRequest converts the command's payload to engine options.
func (c Command) StartRequest() StartRequest {
	req := StartRequest{BatchSize: c.N}
	if c.Config != nil {
		req.StrictHours = c.Config.StrictHours
		req.UseGroq = c.Config.UseGroq
		req.GroqModel = c.Config.GroqModel
	}
	return req
}

// Dispatch executes cmd against the engine. It never panics on bad input;
// unknown and reserved types produce an error reply.
func (e *Engine) Dispatch(ctx context.Context, cmd Command) Reply {
	switch cmd.Type {
	case PingTest:
		return Reply{Status: StatusOK, Message: PingAck}

	case GetStatus:
		st := e.Status()
		return Reply{Status: StatusOK, Running: &st.Running, Stats: &st.Stats, Logs: st.Logs, NextRun: st.NextRun}

	case StartBot:
		if err := e.Start(cmd.StartRequest()); err != nil {
			msg := err.Error()
			if errors.Is(err, ErrAlreadyRunning) {
				msg = "already running"
			}
			return Reply{Status: StatusError, Error: msg}
		}
		return Reply{Status: StatusOK}

	case StopBot:
		e.Stop()
		return Reply{Status: StatusStopped}

	case CheckUnread:
		n, err := e.CheckUnread(ctx)
		if err != nil {
			return Reply{Status: StatusError, Error: err.Error()}
		}
		return Reply{Status: StatusChecked, Unread: &n}

	case PauseBot, ResumeBot:
		return Reply{Status: StatusError, Error: fmt.Sprintf("unsupported command: %s", cmd.Type)}

	case "":
		return Reply{Status: StatusError, Error: "missing command type"}

	default:
		return Reply{Status: StatusError, Error: fmt.Sprintf("unknown command: %s", cmd.Type)}
	}
}
