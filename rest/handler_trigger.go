package rest

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/kriyahq/kriya/trigger"
)

func (s *Server) HandleRegisterTrigger(w http.ResponseWriter, r *http.Request) {
	project := mux.Vars(r)["project"]
	var req trigger.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	rule, err := s.triggers.Register(project, req)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, rule)
}

func (s *Server) HandleListTriggers(w http.ResponseWriter, r *http.Request) {
	project := mux.Vars(r)["project"]
	rules, err := s.triggers.List(project, r.URL.Query().Get("workflowId"))
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, rules)
}

// HandleUnregisterTrigger deletes one rule by id, or every rule bound to a
// workflow when ?workflowId= is used with ruleId "-".
func (s *Server) HandleUnregisterTrigger(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	project := vars["project"]
	if workflowID := r.URL.Query().Get("workflowId"); vars["ruleId"] == "-" && workflowID != "" {
		count, err := s.triggers.UnregisterWorkflow(project, workflowID)
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]int{"deleted": count})
		return
	}
	if err := s.triggers.Unregister(project, vars["ruleId"]); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]int{"deleted": 1})
}

// HandleFireTrigger is the notification entry point for the external
// condition matcher: the matched rule fires with the triggering event's
// payload.
func (s *Server) HandleFireTrigger(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var payload map[string]any
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&payload)
		defer r.Body.Close()
	}
	if err := s.triggers.OnConditionMatched(vars["project"], vars["ruleId"], payload); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusAccepted, map[string]bool{"accepted": true})
}
