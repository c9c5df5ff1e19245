package autopilot

import (
	"context"

	"github.com/zulandar/switchboard/internal/models"
)

// Thread is one entry in the inbox list.
type Thread struct {
	ID     string `json:"id"`
	Index  int    `json:"index"`
	Unread bool   `json:"unread"`
}

// Header is what the open thread shows about its counterpart and the most
// recent message.
type Header struct {
	LeadName    string
	LeadID      string
	LastSender  string
	LastMessage string
}

// Page drives the messaging UI. A nil Header, nil profile or empty
// transcript means the data could not be resolved; the engine treats those as
// skips, not errors.
type Page interface {
	ScrollInbox(ctx context.Context, offsets []int) error
	ListThreads(ctx context.Context) ([]Thread, error)
	ScrollToThread(ctx context.Context, t Thread) error
	OpenThread(ctx context.Context, t Thread) error
	WaitThreadLoaded(ctx context.Context) error
	ReadHeader(ctx context.Context) (*Header, error)
	ReadTranscript(ctx context.Context) ([]models.ConversationMessage, error)
	ReadProfile(ctx context.Context, leadID string) (*models.LeadProfile, error)
	Type(ctx context.Context, text string) error
	SendEnabled(ctx context.Context) (bool, error)
	ClickSend(ctx context.Context) error
	InputText(ctx context.Context) (string, error)
	UnreadCount(ctx context.Context) (int, error)
}
