package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/store"
)

func newJobsCommand(configFlag *string) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect generation jobs",
	}
	jobsCmd.AddCommand(newJobsListCommand(configFlag))
	jobsCmd.AddCommand(newJobsStatsCommand(configFlag))
	return jobsCmd
}

func newJobsListCommand(configFlag *string) *cobra.Command {
	var statusFlags []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configFlag)
			if err != nil {
				return err
			}
			st, err := store.Open(cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			var statuses []store.Status
			for _, value := range statusFlags {
				status, err := store.ParseStatus(value)
				if err != nil {
					return err
				}
				statuses = append(statuses, status)
			}

			jobs, err := st.ListJobs(cmd.Context(), statuses...)
			if err != nil {
				return err
			}

			columns := []tableColumn{
				{name: "ID", numeric: true},
				{name: "KIND"},
				{name: "STATUS"},
				{name: "TRIGGER"},
				{name: "CATEGORY", numeric: true},
				{name: "ITEMS", numeric: true},
				{name: "UPDATED"},
				{name: "ERROR"},
			}
			rows := make([][]string, 0, len(jobs))
			for _, job := range jobs {
				rows = append(rows, []string{
					strconv.FormatInt(job.ID, 10),
					string(job.Kind),
					string(job.Status),
					string(job.Trigger),
					strconv.FormatInt(job.CategoryID, 10),
					fmt.Sprintf("%d/%d", job.CompletedItems, job.TotalItems),
					job.UpdatedAt.Format("2006-01-02 15:04:05"),
					job.ErrorMessage,
				})
			}

			if isTerminal() {
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(columns, rows))
				return nil
			}
			// Tab-separated for pipes and scripts.
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(columnNames(columns), "\t"))
			for _, row := range rows {
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(row, "\t"))
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&statusFlags, "status", nil, "Filter by status (queued, processing, completed, failed)")
	return cmd
}

func newJobsStatsCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show job counts by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configFlag)
			if err != nil {
				return err
			}
			st, err := store.Open(cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			stats, err := st.Stats(cmd.Context())
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(stats.ByStatus)+1)
			for _, status := range []store.Status{store.StatusQueued, store.StatusProcessing, store.StatusCompleted, store.StatusFailed} {
				rows = append(rows, []string{string(status), strconv.FormatInt(stats.ByStatus[status], 10)})
			}
			rows = append(rows, []string{"total", strconv.FormatInt(stats.Total, 10)})
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]tableColumn{{name: "STATUS"}, {name: "JOBS", numeric: true}}, rows))
			return nil
		},
	}
}

func isTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
