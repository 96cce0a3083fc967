package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"medassist/apps/backend/internal/db"
)

func newHistoryCmd(root *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history <session-id>",
		Short: "Show archived turns of a session",
		Long:  `Read the turns of one session from the consultation archive (requires DATABASE_URL).`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.ArchiveEnabled() {
				return errors.New("DATABASE_URL is not set; the consultation archive is disabled")
			}
			root.logger(cmd.ErrOrStderr(), cfg).Debug("reading archive", "session_id", args[0], "limit", limit)

			pool, err := db.Connect(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect archive: %w", err)
			}
			defer pool.Close()

			turns, err := db.NewArchive(pool).SessionTurns(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(turns) == 0 {
				fmt.Fprintf(out, "No archived turns for session %s\n", args[0])
				return nil
			}
			for i, turn := range turns {
				if i > 0 {
					fmt.Fprintln(out)
				}
				renderArchivedTurn(out, turn)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "Maximum number of turns to show")
	return cmd
}
