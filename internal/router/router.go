// Package router classifies a query into the agent categories that should
// answer it.
package router

import (
	"strings"
	"unicode"

	"github.com/ChamsBouzaiene/phoenix/internal/agents"
)

// generalChatPhrases trigger the general-chat guard anywhere in the query.
var generalChatPhrases = []string{
	"hello", "hi", "hey", "how are you", "what's up", "whats up",
	"good morning", "good evening", "good night", "good afternoon",
	"who are you", "what can you do", "how's it going", "hows it going",
	"tell me a joke", "how do you feel", "what do you think about",
	"thanks", "thank you", "appreciate it", "bye", "goodbye", "see you",
	"how old are you", "where are you from", "what's your name", "whats your name",
	"nice to meet you", "pleasure to meet you", "how have you been",
	"what's new", "whats new", "how's your day", "hows your day",
}

// shortChatTokens trigger the guard only in queries of at most shortQueryTokens tokens.
var shortChatTokens = []string{"hi", "hello", "hey", "bye", "thanks"}

const (
	shortQueryTokens  = 3
	defaultChatTokens = 2
)

// rule is one row of the decision table.
type rule struct {
	category agents.Category
	cues     []string
	onCode   bool
}

// table is evaluated in order; every matching row contributes its category.
var table = []rule{
	{
		category: agents.ConceptExplainer,
		cues:     []string{"explain", "what is", "why", "how does", "define", "meaning of", "tell me about"},
	},
	{
		category: agents.CodeReviewer,
		cues:     []string{"review", "optimize", "refactor", "improve code", "code quality", "check my code"},
		onCode:   true,
	},
	{
		category: agents.Debugger,
		cues:     []string{"error", "bug", "traceback", "exception", "fix", "not working", "broken", "debug"},
	},
	{
		category: agents.PracticeGenerator,
		cues:     []string{"exercise", "practice", "problem", "quiz", "challenge", "task", "question"},
	},
	{
		category: agents.CodeGenerator,
		cues:     []string{"generate", "create", "write", "full program", "complete code", "code snippet", "make a", "give me"},
	},
}

// Classify returns the ordered categories that should answer query. The
// result is never empty, and GeneralChat is never combined with another
// category.
func Classify(query string, hasCode bool) []agents.Category {
	q := strings.ToLower(strings.TrimSpace(query))
	tokens := strings.Fields(q)

	if isGeneralChat(q, tokens) {
		return []agents.Category{agents.GeneralChat}
	}

	var out []agents.Category
	for _, row := range table {
		if (row.onCode && hasCode) || containsAny(q, row.cues) {
			out = append(out, row.category)
		}
	}
	if len(out) > 0 {
		return out
	}

	if len(tokens) > defaultChatTokens {
		return []agents.Category{agents.ConceptExplainer}
	}
	return []agents.Category{agents.GeneralChat}
}

// isGeneralChat matches phrases on word boundaries, so "this" does not
// count as "hi".
func isGeneralChat(q string, tokens []string) bool {
	words := " " + strings.Join(splitWords(q), " ") + " "
	for _, phrase := range generalChatPhrases {
		if strings.Contains(words, " "+strings.Join(splitWords(phrase), " ")+" ") {
			return true
		}
	}

	if len(tokens) > shortQueryTokens {
		return false
	}
	for _, w := range splitWords(q) {
		for _, t := range shortChatTokens {
			if w == t {
				return true
			}
		}
	}
	return false
}

// splitWords splits on anything that is not a letter, digit or apostrophe.
func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' && r != '’'
	})
}

func containsAny(s string, cues []string) bool {
	for _, c := range cues {
		if strings.Contains(s, c) {
			return true
		}
	}
	return false
}
