package server

import (
	"encoding/json"
	"net/http"
)

type healthStatus struct {
	Status   string `json:"status"`
	Link     string `json:"link"`
	Serial   bool   `json:"serial"`
	Sessions int    `json:"sessions"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	state := s.manager.LinkState()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(&healthStatus{
		Status:   "ok",
		Link:     state.String(),
		Serial:   state.DevicePresent(),
		Sessions: s.manager.Count(),
	})
}
