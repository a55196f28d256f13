package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ChamsBouzaiene/phoenix/internal/factory"
)

const chatHelp = `Commands:
  /code      paste code, finish with /end; it is sent with your next question
  /details   toggle showing each agent's answer before the merged one
  /session   show learning progress
  /report    show recent interactions and agent usage
  /quit      exit
`

func newChatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat with the tutor in the terminal (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, a)
		},
	}
}

func runChat(cmd *cobra.Command, a *app) error {
	if err := a.setup(true); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tutor, err := a.buildTutor(ctx)
	if err != nil {
		return err
	}
	defer tutor.Close()

	g, gctx := errgroup.WithContext(ctx)
	watchCtx, stopWatch := context.WithCancel(gctx)
	g.Go(func() error {
		// a broken watcher should not end the conversation
		if err := tutor.WatchPersonas(watchCtx); err != nil {
			a.logger.Warn("persona watcher stopped", zap.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		defer stopWatch()
		return chatLoop(gctx, cmd.InOrStdin(), cmd.OutOrStdout(), tutor)
	})
	return g.Wait()
}

// chatLoop reads questions until EOF or /quit.
func chatLoop(ctx context.Context, in io.Reader, out io.Writer, tutor *factory.Tutor) error {
	renderHeader(out, tutor.Sessions.Context(), tutor.Model)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		code      strings.Builder
		capturing bool
		pending   string
		details   bool
	)

	for {
		if capturing {
			fmt.Fprint(out, promptStyle.Render("code> "))
		} else {
			fmt.Fprint(out, promptStyle.Render("you> "))
		}
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}
		line := scanner.Text()

		if capturing {
			if strings.TrimSpace(line) == "/end" {
				capturing = false
				pending = code.String()
				code.Reset()
				fmt.Fprintln(out, metaStyle.Render(fmt.Sprintf("code attached (%d lines)", strings.Count(pending, "\n")+1)))
				continue
			}
			if code.Len() > 0 {
				code.WriteByte('\n')
			}
			code.WriteString(line)
			continue
		}

		switch strings.TrimSpace(line) {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/help":
			fmt.Fprint(out, chatHelp)
			continue
		case "/code":
			capturing = true
			continue
		case "/details":
			details = !details
			fmt.Fprintln(out, metaStyle.Render(fmt.Sprintf("details %v", details)))
			continue
		case "/session":
			renderSession(out, tutor.Sessions.Context())
			continue
		case "/report":
			report := tutor.Interactions.Report()
			renderReport(out, report.TotalInteractions, report.Recent, tutor.Interactions.UsageStats())
			continue
		}

		outcome := tutor.Orchestrator.ProcessQuery(ctx, line, pending)
		pending = ""
		renderOutcome(out, outcome, details)
		if ctx.Err() != nil {
			return nil
		}
	}
}
