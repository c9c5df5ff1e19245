package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zulandar/switchboard/internal/history"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect stored conversations",
	}
	cmd.AddCommand(newHistoryListCmd())
	cmd.AddCommand(newHistoryShowCmd())
	cmd.AddCommand(newHistoryDeleteCmd())
	return cmd
}

func newHistoryListCmd() *cobra.Command {
	var (
		configPath string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List conversations, most recently synced first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryList(cmd, configPath, limit)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Switchboard config file")
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "maximum conversations to show")
	return cmd
}

func runHistoryList(cmd *cobra.Command, configPath string, limit int) error {
	out := cmd.OutOrStdout()
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	rows, err := history.New(gormDB).ListConversations(limit)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(out, "No conversations stored.")
		return nil
	}
	fmt.Fprintf(out, "%-28s %-24s %5s  %-16s  %s\n", "LEAD ID", "NAME", "MSGS", "SYNCED", "LAST MESSAGE")
	for _, h := range rows {
		last := ""
		if n := len(h.Messages); n > 0 {
			last = h.Messages[n-1].Speaker + ": " + h.Messages[n-1].Message
		}
		fmt.Fprintf(out, "%-28s %-24s %5d  %-16s  %s\n",
			truncateText(h.LeadID, 28), truncateText(h.LeadName, 24), len(h.Messages),
			h.LastSyncedAt.Local().Format("2006-01-02 15:04"), truncateText(last, 60))
	}
	return nil
}

func newHistoryShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <lead-id>",
		Short: "Print a stored conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryShow(cmd, configPath, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Switchboard config file")
	return cmd
}

func runHistoryShow(cmd *cobra.Command, configPath, leadID string) error {
	out := cmd.OutOrStdout()
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	h, err := history.New(gormDB).GetConversation(leadID)
	if errors.Is(err, history.ErrNotFound) {
		return fmt.Errorf("no conversation stored for %q", leadID)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s (%s), %d messages, synced %s\n\n",
		headerStyle.Render(h.LeadName), h.LeadID, len(h.Messages), h.LastSyncedAt.Local().Format("2006-01-02 15:04"))
	for _, m := range h.Messages {
		fmt.Fprintf(out, "%s: %s\n", dimStyle.Render(m.Speaker), m.Message)
	}
	return nil
}

func newHistoryDeleteCmd() *cobra.Command {
	var (
		configPath string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "delete <lead-id>",
		Short: "Delete a stored conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryDelete(cmd, configPath, args[0], yes)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Switchboard config file")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation prompt")
	return cmd
}

func runHistoryDelete(cmd *cobra.Command, configPath, leadID string, skipConfirm bool) error {
	out := cmd.OutOrStdout()
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	if !skipConfirm && !confirm(cmd, fmt.Sprintf("Delete the stored conversation with %q?", leadID)) {
		fmt.Fprintln(out, "Aborted.")
		return nil
	}
	err = history.New(gormDB).DeleteConversation(leadID)
	if errors.Is(err, history.ErrNotFound) {
		return fmt.Errorf("no conversation stored for %q", leadID)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Deleted conversation %s\n", leadID)
	return nil
}

// confirm asks a yes/no question on the command's input.
func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", question)
	answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
