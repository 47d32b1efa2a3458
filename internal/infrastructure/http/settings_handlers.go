package httpserver

import (
	"net/http"
)

func (s *Server) GetSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.settings.GetSettings())
}

type settingRequest struct {
	Value any `json:"value"`
}

func (s *Server) UpdateSetting(w http.ResponseWriter, r *http.Request) {
	var body settingRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	st, err := s.settings.UpdateSetting(r.Context(), pathParam(r, "key"), body.Value)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) ResetSettings(w http.ResponseWriter, r *http.Request) {
	st, err := s.settings.ResetToDefaults(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
