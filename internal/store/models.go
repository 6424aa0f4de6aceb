package store

import (
	"encoding/json"
	"time"
)

type User struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Documentation is a template-backed document. Content is the structured
// JSON body; it is shaped by the template at creation time but not strictly
// validated against it afterwards. Version is set once at creation.
type Documentation struct {
	ID         string
	TemplateID string
	Title      string
	Content    json.RawMessage
	Status     string // draft, review, approved
	Version    int
	CreatedBy  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Diagram struct {
	ID              string
	DocumentationID string
	Type            string // flowchart, sequence, class, gantt, er, state, pie
	MermaidSyntax   string
	Title           string
	Description     string
	CreatedBy       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type SrsDocument struct {
	ID              string
	UserID          string
	Title           string
	Description     string
	ProjectOverview string
	Scope           string
	Constraints     string
	Assumptions     string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type SrsRequirement struct {
	ID               string
	SrsDocumentID    string
	RequirementID    string // globally unique, user-facing (e.g. FR-001)
	Title            string
	Description      string
	Priority         string // low, medium, high, critical
	UXConsiderations []string
	Order            int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type SddDocument struct {
	ID                   string
	UserID               string
	Title                string
	Description          string
	DesignOverview       string
	ArchitectureOverview string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

type SddComponent struct {
	ID             string
	SddDocumentID  string
	ComponentName  string
	Description    string
	Responsibility string
	Interfaces     string
	DiagramData    json.RawMessage
	DiagramType    string // mermaid or custom
	Order          int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type SddDiagram struct {
	ID              string
	SddDocumentID   string
	DiagramName     string
	DiagramType     string // free-form: class, sequence, flowchart, state, ...
	DiagramContent  string
	TextDescription string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
