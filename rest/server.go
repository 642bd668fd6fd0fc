package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/kriyahq/kriya/engine"
	"github.com/kriyahq/kriya/logger"
	"github.com/kriyahq/kriya/model"
	"github.com/kriyahq/kriya/trigger"
	"go.uber.org/zap"
)

type Server struct {
	http.Server
	Port     int
	engine   *engine.Service
	triggers *trigger.Registry
}

func NewServer(httpPort int, eng *engine.Service, triggers *trigger.Registry) (*Server, error) {
	s := &Server{
		Server: http.Server{
			Addr:        fmt.Sprintf(":%d", httpPort),
			IdleTimeout: 2 * time.Second,
		},
		engine:   eng,
		triggers: triggers,
		Port:     httpPort,
	}

	router := mux.NewRouter()
	router.HandleFunc("/workflow/{project}", s.HandleCreateWorkflow).Methods(http.MethodPost)
	router.HandleFunc("/workflow/{project}", s.HandleListWorkflows).Methods(http.MethodGet)
	router.HandleFunc("/workflow/{project}/{id}", s.HandleGetWorkflow).Methods(http.MethodGet)
	router.HandleFunc("/workflow/{project}/{id}", s.HandleDeleteWorkflow).Methods(http.MethodDelete)
	router.HandleFunc("/workflow/{project}/{id}/status", s.HandleGetStatus).Methods(http.MethodGet)
	router.HandleFunc("/workflow/{project}/{id}/graph", s.HandleGetGraph).Methods(http.MethodGet)

	router.HandleFunc("/workflow/{project}/{id}/event", s.HandleSendEvent).Methods(http.MethodPost)
	router.HandleFunc("/workflow/{project}/{id}/choices", s.HandleGetChoices).Methods(http.MethodGet)
	router.HandleFunc("/workflow/{project}/{id}/respond", s.HandleRespond).Methods(http.MethodPost)

	router.HandleFunc("/trigger/{project}", s.HandleRegisterTrigger).Methods(http.MethodPost)
	router.HandleFunc("/trigger/{project}", s.HandleListTriggers).Methods(http.MethodGet)
	router.HandleFunc("/trigger/{project}/{ruleId}", s.HandleUnregisterTrigger).Methods(http.MethodDelete)
	router.HandleFunc("/trigger/{project}/{ruleId}/fire", s.HandleFireTrigger).Methods(http.MethodPost)

	router.Use(loggingMiddleware)
	s.Handler = router
	return s, nil
}

func (s *Server) Start() error {
	logger.Info("starting http server", zap.Int("port", s.Port))
	if err := s.ListenAndServe(); err != nil {
		return err
	}
	return nil
}

func (s *Server) Stop() error {
	logger.Info("stopping http server")
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		logger.Error("error shutting down http server", zap.Error(err))
	}
	return nil
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Info(r.RequestURI)
		next.ServeHTTP(w, r)
	})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	var notFound model.NotFoundError
	var duplicate model.DuplicateError
	var validation model.ValidationError
	var invalid model.InvalidTransitionError
	switch {
	case errors.As(err, &notFound):
		code = http.StatusNotFound
	case errors.As(err, &duplicate):
		code = http.StatusConflict
	case errors.As(err, &validation):
		code = http.StatusBadRequest
	case errors.As(err, &invalid):
		code = http.StatusUnprocessableEntity
	}
	respondWithJSON(w, code, map[string]string{"error": err.Error()})
}
