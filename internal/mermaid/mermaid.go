// Package mermaid gates diagram text before persistence. It is a shallow
// structural check for a recognized grammar keyword, not a parser; anything
// it accepts is still only rendered (or rejected) client-side.
package mermaid

import "strings"

var grammars = []string{
	"flowchart",
	"graph",
	"sequenceDiagram",
	"classDiagram",
	"gantt",
	"erDiagram",
	"stateDiagram-v2",
	"stateDiagram",
	"pie",
	"journey",
	"mindmap",
}

// Valid reports whether text opens with a recognized Mermaid grammar
// declaration. It returns false for blank input and never panics.
func Valid(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	for _, grammar := range grammars {
		if !strings.HasPrefix(trimmed, grammar) {
			continue
		}
		// The keyword must stand alone: "flowchart TD" is a declaration,
		// "flowcharting" is not.
		rest := trimmed[len(grammar):]
		if rest == "" {
			return true
		}
		switch rest[0] {
		case ' ', '\t', '\n', '\r', ';':
			return true
		}
	}
	return false
}
