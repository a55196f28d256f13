// Package agents defines the tutor's specialized responders: one fixed persona
// per category, each backed by a text generator.
package agents

// Category names one response specialization.
type Category string

const (
	GeneralChat       Category = "GeneralChat"
	ConceptExplainer  Category = "ConceptExplainer"
	CodeReviewer      Category = "CodeReviewer"
	Debugger          Category = "Debugger"
	PracticeGenerator Category = "PracticeGenerator"
	CodeGenerator     Category = "CodeGenerator"
)

// OrchestratorPersona is the persona used for synthesis. It is never routed to.
const OrchestratorPersona = "Orchestrator"

// Categories lists every routable category in decision-table order.
func Categories() []Category {
	return []Category{
		GeneralChat,
		ConceptExplainer,
		CodeReviewer,
		Debugger,
		PracticeGenerator,
		CodeGenerator,
	}
}

// AnalyzesCode reports whether the category receives the user's code with the query.
func (c Category) AnalyzesCode() bool {
	return c == CodeReviewer || c == Debugger
}
