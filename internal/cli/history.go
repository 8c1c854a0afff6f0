package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type callRow struct {
	ID         int64  `json:"id"`
	SessionID  string `json:"session_id,omitempty"`
	Tool       string `json:"tool"`
	Success    bool   `json:"success"`
	ErrorKind  string `json:"error_kind,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
	CalledAt   string `json:"called_at"`
}

type cacheRow struct {
	Path        string `json:"path"`
	Kind        string `json:"kind"`
	ResourceKey string `json:"resource_key"`
	SizeBytes   int64  `json:"size_bytes"`
	CreatedAt   string `json:"created_at"`
}

func (a *app) newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent tool calls from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig(cmd, nil, false)
			if err != nil {
				return err
			}
			journal, err := requireJournal(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeJournal(journal, zap.NewNop())

			calls, err := journal.RecentCalls(cmd.Context(), limit)
			if err != nil {
				return withExitCode(ExitJournalFailure, fmt.Errorf("read journal: %w", err))
			}
			out := cmd.OutOrStdout()
			if a.flags.JSON {
				rows := make([]callRow, 0, len(calls))
				for _, c := range calls {
					rows = append(rows, callRow{
						ID:         c.ID,
						SessionID:  c.SessionID,
						Tool:       c.Tool,
						Success:    c.Success,
						ErrorKind:  string(c.ErrorKind),
						Error:      c.Error,
						DurationMS: c.DurationMS,
						CalledAt:   c.CalledAt.UTC().Format(time.RFC3339),
					})
				}
				return writeJSON(out, rows)
			}
			if len(calls) == 0 {
				fmt.Fprintln(out, "no tool calls recorded")
				return nil
			}
			t := newTheme(out, false)
			table := newTable(out, "ID", "When", "Tool", "Status", "Duration", "Session")
			for _, c := range calls {
				table.Append([]string{
					strconv.FormatInt(c.ID, 10),
					humanize.Time(c.CalledAt),
					c.Tool,
					t.callStatus(c.Success, c.ErrorKind),
					fmt.Sprintf("%dms", c.DurationMS),
					c.SessionID,
				})
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of calls to show")
	return cmd
}

func (a *app) newCacheCmd() *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect cached Figma responses",
	}
	var limit int
	lsCmd := &cobra.Command{
		Use:   "ls",
		Short: "List cache files recorded in the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig(cmd, nil, false)
			if err != nil {
				return err
			}
			journal, err := requireJournal(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeJournal(journal, zap.NewNop())

			entries, err := journal.CacheEntries(cmd.Context(), limit)
			if err != nil {
				return withExitCode(ExitJournalFailure, fmt.Errorf("read journal: %w", err))
			}
			out := cmd.OutOrStdout()
			if a.flags.JSON {
				rows := make([]cacheRow, 0, len(entries))
				for _, e := range entries {
					rows = append(rows, cacheRow{
						Path:        e.Path,
						Kind:        e.Kind,
						ResourceKey: e.ResourceKey,
						SizeBytes:   e.SizeBytes,
						CreatedAt:   e.CreatedAt.UTC().Format(time.RFC3339),
					})
				}
				return writeJSON(out, rows)
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "cache is empty:", cfg.CacheDir)
				return nil
			}
			t := newTheme(out, false)
			table := newTable(out, "Kind", "Key", "Size", "Created", "Path")
			var total uint64
			for _, e := range entries {
				total += uint64(e.SizeBytes)
				table.Append([]string{
					e.Kind,
					e.ResourceKey,
					t.cacheSize(e.SizeBytes),
					humanize.Time(e.CreatedAt),
					e.Path,
				})
			}
			table.Render()
			if !a.flags.Quiet {
				fmt.Fprintf(out, "%d files, %s\n", len(entries), humanize.Bytes(total))
			}
			return nil
		},
	}
	lsCmd.Flags().IntVar(&limit, "limit", 50, "number of entries to show")
	cacheCmd.AddCommand(lsCmd)
	return cacheCmd
}
