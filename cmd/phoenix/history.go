package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ChamsBouzaiene/phoenix/internal/observability"
)

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Search and inspect past interactions",
	}
	cmd.AddCommand(newHistorySearchCmd(a), newHistoryShowCmd(a))
	return cmd
}

func newHistorySearchCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <terms>",
		Short: "Full-text search over past questions and answers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(false); err != nil {
				return err
			}
			if err := ensureDir(a.settings.DataDir); err != nil {
				return err
			}

			index, err := observability.NewSearchIndex(a.settings.SearchIndexPath(), a.logger.Named("search"))
			if err != nil {
				return err
			}
			defer index.Close()

			hits, err := index.Search(cmd.Context(), strings.Join(args, " "), limit)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if len(hits) == 0 {
				fmt.Fprintln(w, metaStyle.Render("no matching interactions"))
				return nil
			}
			for _, h := range hits {
				fmt.Fprintf(w, "%s  %s  %s\n  %s\n",
					metaStyle.Render(h.ID),
					metaStyle.Render(h.Timestamp.Format("2006-01-02 15:04")),
					agentLabelStyle.Render(strings.Join(h.Agents, ", ")),
					h.Query)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of results")
	return cmd
}

func newHistoryShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <interaction-id>",
		Short: "Show one stored interaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(false); err != nil {
				return err
			}
			if err := ensureDir(a.settings.DataDir); err != nil {
				return err
			}

			history, err := observability.NewSQLiteSink(cmd.Context(), a.settings.HistoryDBPath())
			if err != nil {
				return err
			}
			defer history.Close()

			rec, err := history.Get(cmd.Context(), args[0])
			if errors.Is(err, observability.ErrRecordNotFound) {
				return fmt.Errorf("no interaction with id %s", args[0])
			}
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, headerStyle.Render(rec.Query))
			fmt.Fprintln(w, metaStyle.Render(rec.Timestamp.Format("2006-01-02 15:04:05")))
			for _, ar := range rec.AgentResponses {
				fmt.Fprintln(w, agentLabelStyle.Render("["+ar.Agent+"]"))
				fmt.Fprintln(w, answerStyle.Render(ar.Response))
			}
			fmt.Fprintln(w, agentLabelStyle.Render("[final]"))
			fmt.Fprintln(w, answerStyle.Render(rec.FinalResponse))
			return nil
		},
	}
}
