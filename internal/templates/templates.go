// Package templates is the fixed catalog of documentation templates. The
// catalog is seeded once at package init and is read-only; the authoring
// surface never creates, updates, or deletes templates.
package templates

// Section is one entry of a template's ordered section schema.
type Section struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Required    bool      `json:"required"`
	Subsections []Section `json:"subsections,omitempty"`
}

// Structure is the section/field schema a template declares. FieldSets
// lists the expected columns of repeating arrays (functional requirements,
// components, user stories) keyed by array name.
type Structure struct {
	Sections  []Section           `json:"sections"`
	FieldSets map[string][]string `json:"fieldSets,omitempty"`
}

type Template struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"` // srs, sdd, generic
	Description string    `json:"description,omitempty"`
	Structure   Structure `json:"structure"`
	IsActive    bool      `json:"isActive"`
}

// ListActive returns the active templates in catalog order. The returned
// slice is a copy; entries share the immutable seed data.
func ListActive() []Template {
	items := make([]Template, 0, len(catalog))
	for _, tpl := range catalog {
		if tpl.IsActive {
			items = append(items, tpl)
		}
	}
	return items
}

// ByID resolves a template id against the catalog.
func ByID(id string) (Template, bool) {
	for _, tpl := range catalog {
		if tpl.ID == id {
			return tpl, true
		}
	}
	return Template{}, false
}

var catalog = []Template{
	{
		ID:       "tpl_ieee_srs",
		Name:     "IEEE SRS Template",
		Type:     "srs",
		IsActive: true,
		Structure: Structure{
			Sections: []Section{
				{
					ID: "intro", Title: "1. Introduction", Required: true,
					Subsections: []Section{
						{ID: "purpose", Title: "1.1 Purpose", Required: true},
						{ID: "scope", Title: "1.2 Scope", Required: true},
						{ID: "definitions", Title: "1.3 Definitions, Acronyms, and Abbreviations"},
						{ID: "references", Title: "1.4 References"},
						{ID: "overview", Title: "1.5 Overview"},
					},
				},
				{
					ID: "overall_description", Title: "2. Overall Description", Required: true,
					Subsections: []Section{
						{ID: "product_perspective", Title: "2.1 Product Perspective", Required: true},
						{ID: "product_functions", Title: "2.2 Product Functions", Required: true},
						{ID: "user_characteristics", Title: "2.3 User Characteristics", Required: true},
						{ID: "constraints", Title: "2.4 Constraints"},
						{ID: "assumptions_dependencies", Title: "2.5 Assumptions and Dependencies"},
					},
				},
				{
					ID: "requirements", Title: "3. Requirements", Required: true,
					Subsections: []Section{
						{ID: "functional_requirements", Title: "3.1 Functional Requirements", Required: true},
						{ID: "non_functional_requirements", Title: "3.2 Non-functional Requirements", Required: true},
					},
				},
				{ID: "verification", Title: "4. Verification", Required: true},
				{ID: "appendices", Title: "5. Appendices"},
			},
			FieldSets: map[string][]string{
				"functional":     {"id", "description", "input", "processing", "output", "priority", "notes"},
				"non_functional": {"type", "criteria", "measurement", "priority", "notes"},
			},
		},
	},
	{
		ID:       "tpl_ieee_sdd",
		Name:     "IEEE SDD Template",
		Type:     "sdd",
		IsActive: true,
		Structure: Structure{
			Sections: []Section{
				{
					ID: "intro", Title: "1. Introduction", Required: true,
					Subsections: []Section{
						{ID: "purpose", Title: "1.1 Purpose", Required: true},
						{ID: "scope", Title: "1.2 Scope", Required: true},
						{ID: "design_overview", Title: "1.3 Design Overview", Required: true},
					},
				},
				{
					ID: "system_architecture", Title: "2. System Architecture", Required: true,
					Subsections: []Section{
						{ID: "architectural_overview", Title: "2.1 Architectural Overview", Required: true},
						{ID: "database_design", Title: "2.2 Database Design", Required: true},
						{ID: "user_interface", Title: "2.3 User Interface Design"},
					},
				},
				{
					ID: "detailed_design", Title: "3. Detailed Design", Required: true,
					Subsections: []Section{
						{ID: "module_design", Title: "3.1 Module Design", Required: true},
						{ID: "component_design", Title: "3.2 Component Design", Required: true},
						{ID: "interface_design", Title: "3.3 Interface Design", Required: true},
					},
				},
				{ID: "data_design", Title: "4. Data Design", Required: true},
				{ID: "implementation", Title: "5. Implementation"},
				{ID: "appendices", Title: "6. Appendices"},
			},
			FieldSets: map[string][]string{
				"components": {"name", "type", "description", "interfaces", "responsibilities"},
			},
		},
	},
	{
		ID:       "tpl_agile_stories",
		Name:     "Agile User Stories Template",
		Type:     "srs",
		IsActive: true,
		Structure: Structure{
			Sections: []Section{
				{ID: "vision", Title: "Product Vision", Required: true},
				{ID: "user_stories", Title: "User Stories", Required: true},
				{ID: "acceptance_criteria", Title: "Acceptance Criteria", Required: true},
			},
			FieldSets: map[string][]string{
				"user_stories": {"title", "description", "acceptance_criteria", "priority", "story_points", "epic"},
			},
		},
	},
}
