package http

import (
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

type preferencesResponse struct {
	Preferences        core.UserPreferences `json:"preferences"`
	Currencies         []string             `json:"currencies"`
	RowsPerPageOptions []int                `json:"rows_per_page_options"`
}

func newPreferencesResponse(p core.UserPreferences) preferencesResponse {
	return preferencesResponse{
		Preferences:        p,
		Currencies:         core.Currencies,
		RowsPerPageOptions: core.RowsPerPageOptions,
	}
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := s.deps.Preferences.Get(r.Context(), currentUser(r).ID)
	if err != nil {
		s.writeError(w, r, "Get preferences", err)
		return
	}
	NewJSONResponse().JSON(newPreferencesResponse(prefs)).Write(w)
}

func (s *Server) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var in services.PreferencesInput
	if resp := DecodeJSON(w, r, &in); resp != nil {
		resp.Write(w)
		return
	}
	prefs, err := s.deps.Preferences.Update(r.Context(), currentUser(r).ID, in)
	if err != nil {
		s.writeError(w, r, "Update preferences", err)
		return
	}
	NewJSONResponse().JSON(newPreferencesResponse(prefs)).Write(w)
}
