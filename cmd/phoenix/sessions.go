package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ChamsBouzaiene/phoenix/internal/session"
)

func newSessionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List saved sessions for the current user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(false); err != nil {
				return err
			}

			metas, err := session.NewStore(a.settings.DataDir).List(a.settings.UserID)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if len(metas) == 0 {
				fmt.Fprintln(w, metaStyle.Render("no saved sessions for "+a.settings.UserID))
				return nil
			}
			for _, m := range metas {
				fmt.Fprintf(w, "%s  %s  score %d  concepts %d  %s\n",
					m.ID, m.SkillLevel, m.ProgressScore, m.Concepts,
					metaStyle.Render("updated "+m.UpdatedAt.Format("2006-01-02 15:04")))
			}
			return nil
		},
	}
	return cmd
}
