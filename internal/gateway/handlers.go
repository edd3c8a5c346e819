package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/haasonsaas/conductor/internal/agent/transport"
	"github.com/haasonsaas/conductor/internal/auth"
	"github.com/haasonsaas/conductor/internal/observability"
)

type queryRequest struct {
	UserInput string `json:"user_input"`
}

type queryResponse struct {
	Response string `json:"response"`
}

// handleQuery runs the agent loop for one user input. Transport faults map
// to 429 (rate limited) or 502; an empty final output is also a 502 because
// the caller got nothing usable.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserInput == "" {
		s.jsonError(w, "user_input is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	result, err := s.runner.Run(ctx, req.UserInput, auth.AuthContextFrom(ctx), s.cfg.Agent.SystemPrompt)
	if err != nil {
		observability.AgentRunCounter.WithLabelValues("fault").Inc()
		s.logger.ErrorContext(ctx, "agent.query_failed", "error", err)
		if transport.IsRateLimited(err) {
			s.jsonError(w, "Model rate limited", http.StatusTooManyRequests)
			return
		}
		s.jsonError(w, "Model request failed", http.StatusBadGateway)
		return
	}

	if result.Output == "" {
		observability.AgentRunCounter.WithLabelValues("exhausted").Inc()
		s.jsonError(w, "Model response empty", http.StatusBadGateway)
		return
	}

	observability.AgentRunCounter.WithLabelValues("ok").Inc()
	s.writeJSON(w, http.StatusOK, queryResponse{Response: result.Output})
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"message": "pong",
		"service": s.cfg.Server.ServiceName,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.jsonError(w, "Not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("http response encode failed", "error", err)
	}
}

func (s *Server) jsonError(w http.ResponseWriter, message string, code int) {
	s.writeJSON(w, code, map[string]string{"error": message})
}
