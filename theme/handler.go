package theme

import (
	"encoding/json"
	"errors"
	"net/http"

	"themeplane/emit"
	"themeplane/vars"
)

// Handler handles read-only theme HTTP requests.
type Handler struct {
	registry *Registry
}

// NewHandler creates a new theme handler.
func NewHandler(registry *Registry) *Handler {
	return &Handler{
		registry: registry,
	}
}

type warningResponse struct {
	ID      string `json:"id"`
	Error   string `json:"error"`
	Skipped bool   `json:"skipped"`
}

type themesResponse struct {
	Themes   []Theme           `json:"themes"`
	Warnings []warningResponse `json:"warnings,omitempty"`
}

type variableResponse struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// HandleThemes lists the themes currently on disk.
func (h *Handler) HandleThemes(w http.ResponseWriter, r *http.Request) {
	themes, warnings, err := h.registry.List()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	resp := themesResponse{Themes: themes}
	if resp.Themes == nil {
		resp.Themes = []Theme{}
	}
	for _, warning := range warnings {
		resp.Warnings = append(resp.Warnings, warningResponse{
			ID:      warning.ID,
			Error:   warning.Err.Error(),
			Skipped: warning.Skipped,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleVariables returns the resolved variables of one theme. With
// format=scss or format=hypr the emitted file content is returned instead.
func (h *Handler) HandleVariables(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("theme")
	if id == "" {
		http.Error(w, "theme parameter required", http.StatusBadRequest)
		return
	}

	t, err := h.registry.Get(id)
	if err != nil {
		var unavailable *RegistryUnavailableError
		switch {
		case errors.As(err, &unavailable):
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
		default:
			http.Error(w, err.Error(), http.StatusNotFound)
		}
		return
	}

	set, err := h.registry.Check(t)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	switch r.URL.Query().Get("format") {
	case "scss":
		writeText(w, emit.StatusBar(set))
		return
	case "hypr":
		writeText(w, emit.WindowManager(set))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"theme":     t,
		"variables": variableList(set),
	})
}

func variableList(set *vars.Set) []variableResponse {
	out := make([]variableResponse, 0, set.Len())
	set.Each(func(name, value string) {
		out = append(out, variableResponse{Name: name, Value: value})
	})
	return out
}

func writeText(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
