package mermaid

import "testing"

func TestValidAcceptsKnownGrammars(t *testing.T) {
	cases := []string{
		"flowchart TD\nA-->B",
		"graph LR\nA---B",
		"sequenceDiagram\nAlice->>Bob: hi",
		"classDiagram\nAnimal <|-- Duck",
		"gantt\ntitle Timeline",
		"erDiagram\nCUSTOMER ||--o{ ORDER : places",
		"stateDiagram-v2\n[*] --> Idle",
		"pie\n\"A\": 40",
		"  flowchart TD\nA-->B",
	}
	for _, syntax := range cases {
		if !Valid(syntax) {
			t.Fatalf("Valid(%q) = false, want true", syntax)
		}
	}
}

func TestValidRejectsBlankAndUnknownInput(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"\n\t",
		"xx",
		"flowcharting is fun",
		"diagram TD\nA-->B",
		"<svg>not mermaid</svg>",
	}
	for _, syntax := range cases {
		if Valid(syntax) {
			t.Fatalf("Valid(%q) = true, want false", syntax)
		}
	}
}
