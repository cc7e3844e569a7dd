package response

import (
	"github.com/mcoot/draftroom/internal/catalog"
	"github.com/mcoot/draftroom/internal/model"
)

// Template represents a draft template in API responses
type Template struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Actions     []model.DraftAction `json:"actions"`
}

// TemplateFromCatalog converts a catalog.Template
func TemplateFromCatalog(t catalog.Template) Template {
	return Template{
		Name:        t.Name,
		Description: t.Description,
		Actions:     t.Actions(),
	}
}

// TemplateList is the response for listing templates
type TemplateList struct {
	Templates []Template `json:"templates"`
}

// ActionResponse is the response for a submitted action, with server-assigned lock flags
type ActionResponse struct {
	Action model.DraftAction `json:"action"`
}

// Health is the response for the health endpoint
type Health struct {
	Status       string `json:"status"`
	LiveSessions int    `json:"live_sessions"`
}
