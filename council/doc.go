// Package council implements the consultation orchestrator: a question is
// fanned out in parallel to every registered persona, their answers are
// gathered in roster order regardless of completion timing or individual
// failures, and a lead persona synthesizes the set into one response.
//
// The two phases run under different output policies. Phase 1 gives each
// persona an advisory length target inside its instruction text; Phase 2
// runs under a hard enforced ceiling large enough that council perspectives
// are never truncated out of the synthesis input.
package council
