package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/zulandar/switchboard/internal/autopilot"
	"github.com/zulandar/switchboard/internal/models"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	runningStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00C853"))
	idleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))

	logTypeStyles = map[autopilot.LogType]lipgloss.Style{
		autopilot.LogInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("#00BFFF")),
		autopilot.LogAction:  lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")),
		autopilot.LogSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("#00C853")),
		autopilot.LogWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB300")),
		autopilot.LogError:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5252")),
	}
)

// renderStatus prints the engine state, counters and up to logs entries.
func renderStatus(out io.Writer, r autopilot.Reply, logs int, now time.Time) {
	running := r.Running != nil && *r.Running
	state := idleStyle.Render("idle")
	if running {
		state = runningStyle.Render("running")
	}
	fmt.Fprintf(out, "%s %s\n", headerStyle.Render("Switchboard"), state)

	if s := r.Stats; s != nil {
		if s.StartTime != nil {
			label := "Started"
			if running {
				label = "Uptime"
				fmt.Fprintf(out, "  %-10s %s\n", label, formatDuration(now.Sub(*s.StartTime)))
			} else {
				fmt.Fprintf(out, "  %-10s %s\n", label, s.StartTime.Local().Format("Jan 2 15:04"))
			}
		}
		if s.Provider != "" {
			fmt.Fprintf(out, "  %-10s %s/%s\n", "Model", s.Provider, s.CurrentModel)
		}
		fmt.Fprintf(out, "  %-10s %d\n", "Chats", s.ChatsProcessed)
		fmt.Fprintf(out, "  %-10s %d\n", "Replies", s.RepliesSent)
		fmt.Fprintf(out, "  %-10s %d\n", "Leads", s.LeadsFound)
		fmt.Fprintf(out, "  %-10s %s\n", "Tokens", formatTokenCount(int64(s.TokensUsed)))
	}
	if running && r.NextRun != nil {
		if d := r.NextRun.Sub(now); d > 0 {
			fmt.Fprintf(out, "  %-10s in %s\n", "Next run", formatDuration(d))
		}
	}

	if len(r.Logs) == 0 || logs <= 0 {
		return
	}
	fmt.Fprintln(out)
	entries := r.Logs
	if len(entries) > logs {
		entries = entries[:logs]
	}
	for _, e := range entries {
		fmt.Fprintf(out, "%s %s %s %s\n",
			dimStyle.Render(e.Time.Local().Format("15:04:05")),
			styleLogType(e.Type),
			dimStyle.Render(fmt.Sprintf("%-6s", e.Actor)),
			e.Message)
	}
}

func styleLogType(t autopilot.LogType) string {
	label := fmt.Sprintf("%-7s", t)
	if st, ok := logTypeStyles[t]; ok {
		return st.Render(label)
	}
	return label
}

// renderSessions prints one line per stored session, newest first.
func renderSessions(out io.Writer, rows []models.Session) {
	if len(rows) == 0 {
		fmt.Fprintln(out, "No sessions recorded.")
		return
	}
	fmt.Fprintf(out, "%-17s %-9s %6s %7s %5s %8s  %s\n", "STARTED", "DURATION", "CHATS", "REPLIES", "LEADS", "TOKENS", "MODEL")
	for _, s := range rows {
		dur := "-"
		if s.StoppedAt != nil {
			dur = formatDuration(s.StoppedAt.Sub(s.StartedAt))
		}
		fmt.Fprintf(out, "%-17s %-9s %6d %7d %5d %8s  %s/%s\n",
			s.StartedAt.Local().Format("2006-01-02 15:04"), dur,
			s.ChatsProcessed, s.RepliesSent, s.LeadsFound,
			formatTokenCount(int64(s.TokensUsed)), s.Provider, s.Model)
	}
}

// formatTokenCount formats an integer with comma separators (e.g. 45230 -> "45,230").
func formatTokenCount(n int64) string {
	if n < 0 {
		return "-" + formatTokenCount(-n)
	}
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	var b strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		b.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// formatDuration renders d as "1h05m", "4m12s" or "38s".
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	switch {
	case h > 0:
		return fmt.Sprintf("%dh%02dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm%02ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// truncateText shortens s to n runes, adding an ellipsis when cut.
func truncateText(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
