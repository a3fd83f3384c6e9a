package main

import (
	"encoding/json"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/healthqa-cli/internal/model"
	"github.com/sells-group/healthqa-cli/internal/store"
)

var findingsCmd = &cobra.Command{
	Use:   "findings",
	Short: "Inspect and resolve audit log findings",
}

var (
	listSeverity  string
	listStatus    string
	listCheckType string
	listTable     string
	listRunID     string
	listLimit     int
	listOffset    int
)

var findingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List findings from the audit log",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		findings, err := st.ListFindings(ctx, store.FindingFilter{
			Severity:  model.Severity(listSeverity),
			Status:    model.FindingStatus(listStatus),
			CheckType: model.CheckType(listCheckType),
			TableName: listTable,
			RunID:     listRunID,
			Limit:     listLimit,
			Offset:    listOffset,
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(findings)
	},
}

var (
	resolveNotes  string
	resolveAssign string
	resolveAck    bool
)

var findingsResolveCmd = &cobra.Command{
	Use:   "resolve <finding-id>",
	Short: "Mark a finding resolved (or acknowledged with --ack)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		status := model.FindingStatusResolved
		var resolvedAt *time.Time
		if resolveAck {
			status = model.FindingStatusAcknowledged
		} else {
			now := time.Now().UTC()
			resolvedAt = &now
		}

		var notes, assignedTo *string
		if resolveNotes != "" {
			notes = &resolveNotes
		}
		if resolveAssign != "" {
			assignedTo = &resolveAssign
		}

		if err := st.UpdateFindingStatus(ctx, args[0], status, assignedTo, notes, resolvedAt); err != nil {
			return err
		}

		cmd.Printf("finding %s -> %s\n", args[0], status)
		return nil
	},
}

func init() {
	findingsListCmd.Flags().StringVar(&listSeverity, "severity", "", "filter by severity (LOW|MEDIUM|HIGH|CRITICAL)")
	findingsListCmd.Flags().StringVar(&listStatus, "status", "", "filter by status (OPEN|IN_PROGRESS|RESOLVED|ACKNOWLEDGED)")
	findingsListCmd.Flags().StringVar(&listCheckType, "check-type", "", "filter by check type")
	findingsListCmd.Flags().StringVar(&listTable, "table", "", "filter by source table")
	findingsListCmd.Flags().StringVar(&listRunID, "run-id", "", "filter by run")
	findingsListCmd.Flags().IntVar(&listLimit, "limit", 100, "maximum rows")
	findingsListCmd.Flags().IntVar(&listOffset, "offset", 0, "rows to skip")

	findingsResolveCmd.Flags().StringVar(&resolveNotes, "notes", "", "resolution notes")
	findingsResolveCmd.Flags().StringVar(&resolveAssign, "assign", "", "assignee")
	findingsResolveCmd.Flags().BoolVar(&resolveAck, "ack", false, "acknowledge instead of resolve")

	findingsCmd.AddCommand(findingsListCmd)
	findingsCmd.AddCommand(findingsResolveCmd)
	rootCmd.AddCommand(findingsCmd)
}
