package theme

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleThemes(t *testing.T) {
	root := t.TempDir()
	makeTheme(t, root, "nord", "$fg: #eceff4;\n")
	makeTheme(t, root, "broken", "")
	h := NewHandler(NewRegistry(root, nil))

	rec := httptest.NewRecorder()
	h.HandleThemes(rec, httptest.NewRequest(http.MethodGet, "/api/themes", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp themesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Themes, 1)
	assert.Equal(t, "nord", resp.Themes[0].ID)
	require.Len(t, resp.Warnings, 1)
	assert.Equal(t, "broken", resp.Warnings[0].ID)
}

func TestHandleThemesUnavailableRoot(t *testing.T) {
	h := NewHandler(NewRegistry(filepath.Join(t.TempDir(), "absent"), nil))

	rec := httptest.NewRecorder()
	h.HandleThemes(rec, httptest.NewRequest(http.MethodGet, "/api/themes", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleVariables(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "base.scss"), []byte("$borderColor: A;\n$foregroundColor: B;\n"), 0o644))
	makeTheme(t, root, "nord", "@use \"../base\";\n$foregroundColor: C;\n")
	makeTheme(t, root, "bad", "$broken\n")
	h := NewHandler(NewRegistry(root, nil))

	tests := []struct {
		name   string
		target string
		status int
		body   string
	}{
		{name: "json", target: "/api/themes/variables?theme=nord", status: http.StatusOK, body: `"value":"C"`},
		{name: "scss", target: "/api/themes/variables?theme=nord&format=scss", status: http.StatusOK, body: "$foregroundColor: C;"},
		{name: "hypr", target: "/api/themes/variables?theme=nord&format=hypr", status: http.StatusOK, body: "$foregroundColor = C"},
		{name: "missing param", target: "/api/themes/variables", status: http.StatusBadRequest},
		{name: "unknown theme", target: "/api/themes/variables?theme=nope", status: http.StatusNotFound},
		{name: "parse error", target: "/api/themes/variables?theme=bad", status: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.HandleVariables(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))

			assert.Equal(t, tt.status, rec.Code)
			if tt.body != "" {
				assert.Contains(t, rec.Body.String(), tt.body)
			}
		})
	}
}
