// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"database/sql"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-triage/internal/session"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect past pipeline sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded sessions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openRegistry()
		if err != nil {
			return err
		}
		defer reg.Close()

		records, err := reg.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("no sessions recorded")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CHAT ID\tCREATED\tPAPERS\tDOWNLOADED\tQUERY")
		for _, rec := range records {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
				rec.ChatID, rec.CreatedAt.Format("2006-01-02 15:04"),
				rec.TotalPapers, rec.Downloaded, rec.Query)
		}
		return tw.Flush()
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <chat-id>",
	Short: "Show one session's record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openRegistry()
		if err != nil {
			return err
		}
		defer reg.Close()

		rec, err := reg.Lookup(cmd.Context(), args[0])
		if err == sql.ErrNoRows {
			return fmt.Errorf("no session %q", args[0])
		}
		if err != nil {
			return err
		}

		fmt.Printf("chat_id:     %s\n", rec.ChatID)
		fmt.Printf("query:       %s\n", rec.Query)
		fmt.Printf("created_at:  %s\n", rec.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("papers:      %d found, %d evaluated, %d downloaded\n",
			rec.TotalPapers, rec.Evaluated, rec.Downloaded)
		return nil
	},
}

var sessionsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all session records as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openRegistry()
		if err != nil {
			return err
		}
		defer reg.Close()

		return reg.ExportYAML(cmd.Context(), os.Stdout)
	},
}

func openRegistry() (*session.Registry, error) {
	cfg, err := buildConfig()
	if err != nil {
		return nil, err
	}
	return session.OpenRegistry(cfg.Session.BaseDir)
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsExportCmd)
	rootCmd.AddCommand(sessionsCmd)
}
