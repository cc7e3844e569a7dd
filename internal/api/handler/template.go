package handler

import (
	"net/http"

	"github.com/mcoot/draftroom/internal/api/response"
	"github.com/mcoot/draftroom/internal/catalog"
)

// ListTemplates handles GET /api/v1/templates
func ListTemplates(w http.ResponseWriter, _ *http.Request) {
	templates := catalog.All()
	out := make([]response.Template, 0, len(templates))
	for _, t := range templates {
		out = append(out, response.TemplateFromCatalog(t))
	}
	response.JSON(w, http.StatusOK, response.TemplateList{Templates: out})
}
