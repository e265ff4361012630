package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tallyloom/internal/classify"
	"github.com/KaramelBytes/tallyloom/internal/session"
	"github.com/KaramelBytes/tallyloom/internal/utils"
)

var (
	sessShowType string
	sessClearYes bool
)

var sessionsCmd = &cobra.Command{
	Use:     "sessions",
	Aliases: []string{"session"},
	Short:   "List, inspect and remove stored sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions, oldest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		metas, err := st.List(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(metas) == 0 {
			fmt.Fprintln(out, "(no sessions)")
			return nil
		}
		for _, m := range metas {
			fmt.Fprintf(out, "- %s: %s [%s] %d financeiro, %d organizacional (%s)\n",
				m.ID, m.Name, m.Format, m.Financial, m.Organizational, m.CreatedAt.Local().Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print a session's records as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		s, err := st.Load(cmd.Context(), args[0])
		if err != nil {
			return sessionErr(args[0], err)
		}
		var v any = s
		if sessShowType != "" {
			kind, err := classify.ParseKind(sessShowType)
			if err != nil {
				return err
			}
			v = s.Bucket(kind)
		}
		b, err := utils.PrettyJSON(v)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete one session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Delete(cmd.Context(), args[0]); err != nil {
			return sessionErr(args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted session %s\n", args[0])
		return nil
	},
}

var sessionsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !sessClearYes {
			return fmt.Errorf("refusing to clear sessions without --yes")
		}
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Clear(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Cleared sessions")
		return nil
	},
}

func sessionErr(id string, err error) error {
	if errors.Is(err, session.ErrNotFound) {
		return fmt.Errorf("session %s not found", id)
	}
	return err
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	sessionsCmd.AddCommand(sessionsClearCmd)

	sessionsShowCmd.Flags().StringVarP(&sessShowType, "type", "t", "", "only print one bucket: financial|organizational")
	sessionsClearCmd.Flags().BoolVarP(&sessClearYes, "yes", "y", false, "confirm deleting every session")
}
