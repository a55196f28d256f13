package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ChamsBouzaiene/phoenix/internal/agents"
	"github.com/ChamsBouzaiene/phoenix/internal/observability"
	"github.com/ChamsBouzaiene/phoenix/internal/orchestrator"
	"github.com/ChamsBouzaiene/phoenix/internal/session"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("208")).
			Padding(0, 1)

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	agentLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Bold(true)

	errorLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	answerStyle = lipgloss.NewStyle().
			Padding(0, 2).
			MarginBottom(1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)
)

func renderHeader(w io.Writer, s session.Session, model string) {
	fmt.Fprintln(w, headerStyle.Render("Phoenix tutor"))
	fmt.Fprintln(w, metaStyle.Render(fmt.Sprintf("session %s | %s | model %s", s.ID, s.SkillLevel, model)))
	fmt.Fprintln(w, metaStyle.Render("Type /help for commands."))
	fmt.Fprintln(w)
}

// renderOutcome prints the consulted agents and the final answer. With
// details, each agent's own answer is printed first.
func renderOutcome(w io.Writer, out orchestrator.Outcome, details bool) {
	labels := make([]string, len(out.AgentsConsulted))
	for i, c := range out.AgentsConsulted {
		style := agentLabelStyle
		if i < len(out.Results) && out.Results[i].Failed() {
			style = errorLabelStyle
		}
		labels[i] = style.Render(string(c))
	}
	fmt.Fprintln(w, metaStyle.Render("agents:")+" "+strings.Join(labels, metaStyle.Render(", ")))

	if details && out.Synthesized {
		for _, r := range out.Responses() {
			fmt.Fprintln(w, agentLabelStyle.Render("["+string(r.Category)+"]"))
			fmt.Fprintln(w, answerStyle.Render(r.Text))
		}
		fmt.Fprintln(w, agentLabelStyle.Render("["+agents.OrchestratorPersona+"]"))
	}
	fmt.Fprintln(w, answerStyle.Render(out.FinalResponse))
}

func renderSession(w io.Writer, s session.Session) {
	fmt.Fprintln(w, headerStyle.Render("Session"))
	fmt.Fprintf(w, "  id:        %s\n", s.ID)
	fmt.Fprintf(w, "  user:      %s (%s)\n", s.UserID, s.SkillLevel)
	fmt.Fprintf(w, "  progress:  %d\n", s.ProgressScore)
	fmt.Fprintf(w, "  concepts:  %s\n", joinOrNone(s.ConceptsCovered))
	fmt.Fprintf(w, "  exercises: %d\n", len(s.ExercisesCompleted))
	fmt.Fprintf(w, "  reviews:   %d\n", len(s.CodeReviews))
	fmt.Fprintln(w)
}

func renderReport(w io.Writer, total int, recent []observability.Record, usage map[string]int) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Interactions: %d", total)))
	for _, rec := range recent {
		fmt.Fprintf(w, "  %s  %s  %s\n",
			metaStyle.Render(rec.Timestamp.Format("2006-01-02 15:04:05")),
			rec.Query,
			agentLabelStyle.Render(strings.Join(rec.Agents(), ", ")))
	}
	if len(usage) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, headerStyle.Render("Agent usage"))
		for _, c := range agents.Categories() {
			if n, ok := usage[string(c)]; ok {
				fmt.Fprintf(w, "  %-18s %d\n", c, n)
			}
		}
	}
	fmt.Fprintln(w)
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none yet"
	}
	return strings.Join(items, ", ")
}
