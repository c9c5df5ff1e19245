package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zulandar/switchboard/internal/config"
	"github.com/zulandar/switchboard/internal/db"
	"github.com/zulandar/switchboard/internal/history"
	"github.com/zulandar/switchboard/internal/models"
)

// writeConfig creates a config pointing at a fresh SQLite file and returns
// its path together with a store on the same database.
func writeConfig(t *testing.T) (string, *history.Store) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sb.db")
	cfgPath := filepath.Join(dir, "switchboard.yaml")
	yaml := fmt.Sprintf("owner: Sam Seller\ndatabase:\n  driver: sqlite\n  path: %s\n", dbPath)
	if err := os.WriteFile(cfgPath, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}
	gormDB, err := db.Open(config.DatabaseConfig{Driver: "sqlite", Path: dbPath})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return cfgPath, history.New(gormDB)
}

func seedConversation(t *testing.T, st *history.Store) {
	t.Helper()
	_, err := st.SaveConversation("jane-doe", "Jane Doe", []models.ConversationMessage{
		{Speaker: "Sam Seller", Message: "Hi Jane"},
		{Speaker: "Jane Doe", Message: "What does it cost?"},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestDBMigrateCmd(t *testing.T) {
	cfgPath, _ := writeConfig(t)
	out, err := runCmd(t, "", "db", "migrate", "-c", cfgPath)
	if err != nil {
		t.Fatalf("db migrate: %v", err)
	}
	if !strings.Contains(out, "Migrated 4 tables") {
		t.Errorf("output = %q", out)
	}
}

func TestHistoryList(t *testing.T) {
	cfgPath, st := writeConfig(t)
	seedConversation(t, st)

	out, err := runCmd(t, "", "history", "list", "-c", cfgPath)
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	if !strings.Contains(out, "jane-doe") || !strings.Contains(out, "Jane Doe: What does it cost?") {
		t.Errorf("output = %q", out)
	}
}

func TestHistoryList_Empty(t *testing.T) {
	cfgPath, _ := writeConfig(t)
	out, err := runCmd(t, "", "history", "list", "-c", cfgPath)
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	if !strings.Contains(out, "No conversations stored.") {
		t.Errorf("output = %q", out)
	}
}

func TestHistoryShow(t *testing.T) {
	cfgPath, st := writeConfig(t)
	seedConversation(t, st)

	out, err := runCmd(t, "", "history", "show", "jane-doe", "-c", cfgPath)
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	if !strings.Contains(out, "2 messages") || !strings.Contains(out, "What does it cost?") {
		t.Errorf("output = %q", out)
	}
}

func TestHistoryShow_NotFound(t *testing.T) {
	cfgPath, _ := writeConfig(t)
	_, err := runCmd(t, "", "history", "show", "nobody", "-c", cfgPath)
	if err == nil || !strings.Contains(err.Error(), "no conversation stored") {
		t.Errorf("err = %v", err)
	}
}

func TestHistoryDelete_Confirmed(t *testing.T) {
	cfgPath, st := writeConfig(t)
	seedConversation(t, st)

	out, err := runCmd(t, "y\n", "history", "delete", "jane-doe", "-c", cfgPath)
	if err != nil {
		t.Fatalf("history delete: %v", err)
	}
	if !strings.Contains(out, "Deleted conversation jane-doe") {
		t.Errorf("output = %q", out)
	}
	if _, err := st.GetConversation("jane-doe"); err != history.ErrNotFound {
		t.Errorf("conversation still present, err = %v", err)
	}
}

func TestHistoryDelete_Aborted(t *testing.T) {
	cfgPath, st := writeConfig(t)
	seedConversation(t, st)

	out, err := runCmd(t, "n\n", "history", "delete", "jane-doe", "-c", cfgPath)
	if err != nil {
		t.Fatalf("history delete: %v", err)
	}
	if !strings.Contains(out, "Aborted.") {
		t.Errorf("output = %q", out)
	}
	if _, err := st.GetConversation("jane-doe"); err != nil {
		t.Errorf("conversation should survive, err = %v", err)
	}
}

func TestProfileShow(t *testing.T) {
	cfgPath, st := writeConfig(t)
	if err := st.SaveLeadProfile(&models.LeadProfile{
		LeadID:      "jane-doe",
		Headline:    "Head of Growth at Acme",
		Company:     "Acme",
		LastScraped: time.Now().Add(-48 * time.Hour),
	}); err != nil {
		t.Fatal(err)
	}

	out, err := runCmd(t, "", "profile", "show", "jane-doe", "-c", cfgPath)
	if err != nil {
		t.Fatalf("profile show: %v", err)
	}
	if !strings.Contains(out, "Head of Growth at Acme") || !strings.Contains(out, "stale") {
		t.Errorf("output = %q", out)
	}
}

func TestStatusCmd_History(t *testing.T) {
	cfgPath, st := writeConfig(t)
	start := time.Now().Add(-time.Hour)
	stop := start.Add(30 * time.Minute)
	if err := st.SaveSession(&models.Session{
		ID: "s1", StartedAt: start, StoppedAt: &stop, RepliesSent: 3, TokensUsed: 4200, Provider: "groq", Model: "llama-3.1-8b-instant",
	}); err != nil {
		t.Fatal(err)
	}

	out, err := runCmd(t, "", "status", "--history", "-c", cfgPath)
	if err != nil {
		t.Fatalf("status --history: %v", err)
	}
	if !strings.Contains(out, "30m00s") || !strings.Contains(out, "4,200") || !strings.Contains(out, "groq/llama-3.1-8b-instant") {
		t.Errorf("output = %q", out)
	}
}
