package rest

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/kriyahq/kriya/model"
)

type createWorkflowRequest struct {
	Name        string                   `json:"name"`
	Description string                   `json:"description,omitempty"`
	Definition  model.WorkflowDefinition `json:"definition"`
	Tags        []string                 `json:"tags,omitempty"`
}

func (s *Server) HandleCreateWorkflow(w http.ResponseWriter, r *http.Request) {
	project := mux.Vars(r)["project"]
	var req createWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	wf, err := s.engine.Create(project, req.Name, req.Description, req.Definition, req.Tags)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, wf)
}

func (s *Server) HandleListWorkflows(w http.ResponseWriter, r *http.Request) {
	project := mux.Vars(r)["project"]
	summaries, err := s.engine.List(project, r.URL.Query().Get("tag"), r.URL.Query().Get("state"))
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, summaries)
}

func (s *Server) HandleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	wf, err := s.engine.GetDefinition(vars["project"], vars["id"])
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, wf)
}

func (s *Server) HandleDeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.engine.Delete(vars["project"], vars["id"]); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	status, err := s.engine.GetStatus(vars["project"], vars["id"])
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, status)
}

func (s *Server) HandleGetGraph(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	graph, err := s.engine.GetGraph(vars["project"], vars["id"])
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, graph)
}
