package rest

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/kriyahq/kriya/model"
)

type sendEventRequest struct {
	Event                    string         `json:"event"`
	Data                     map[string]any `json:"data,omitempty"`
	IgnoreInvalidTransitions bool           `json:"ignoreInvalidTransitions,omitempty"`
}

func (s *Server) HandleSendEvent(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req sendEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	res, err := s.engine.SendEvent(vars["project"], vars["id"], req.Event, req.Data,
		model.SendOptions{IgnoreInvalidTransitions: req.IgnoreInvalidTransitions})
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, res)
}

func (s *Server) HandleGetChoices(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	choices, err := s.engine.Choices(vars["project"], vars["id"])
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, choices)
}

type respondRequest struct {
	Event string `json:"event"`
	Note  string `json:"note,omitempty"`
}

func (s *Server) HandleRespond(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req respondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	res, err := s.engine.Respond(vars["project"], vars["id"], nil, req.Event, req.Note)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, res)
}
