package api

import (
	"errors"
	"os"
	"strings"
)

func (s *Server) registerRoutes() error {
	if s == nil || s.router == nil {
		return nil
	}

	api := s.router.Group("/api")
	apiKey := strings.TrimSpace(os.Getenv("COTBENCH_API_KEY"))
	if apiKey != "" {
		api.Use(apiKeyAuthMiddleware(apiKey))
	} else if strings.EqualFold(strings.TrimSpace(os.Getenv("COTBENCH_DISABLE_AUTH")), "true") {
		// Explicitly allow unauthenticated access.
	} else {
		return errors.New("api: missing auth configuration: set COTBENCH_API_KEY or set COTBENCH_DISABLE_AUTH=true")
	}

	api.GET("/health", s.handleHealth)
	api.GET("/evaluations", s.handleListEvaluations)
	api.POST("/evaluations", s.handleRunEvaluation)

	return nil
}
