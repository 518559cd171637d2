// internal/api/server.go
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"scoring-api/internal/common/logger"
	"scoring-api/internal/common/metrics"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the HTTP transport: it frames JSON bodies, tracks a request id,
// maps panics to 500 and writes the response envelope. All method semantics
// live in the Dispatcher.
type Server struct {
	dispatcher *Dispatcher
	logger     logger.Logger
}

func NewServer(d *Dispatcher, log logger.Logger) *Server {
	return &Server{dispatcher: d, logger: log}
}

// Routes returns the HTTP route table.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /method", s.handleMethod)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

func (s *Server) handleMethod(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = fmt.Sprintf("%x", [16]byte(uuid.New()))
	}
	log := s.logger.WithFields(map[string]interface{}{"request_id": requestID})
	reqCtx := map[string]interface{}{"request_id": requestID}

	var (
		response   interface{}
		code       = StatusOK
		methodName = "unknown"
	)

	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body == nil {
		code = StatusBadRequest
	} else {
		if name, ok := body["method"].(string); ok && name != "" {
			methodName = name
		}
		log.Info("request received", map[string]interface{}{
			"path":   r.URL.Path,
			"method": methodName,
		})
		response, code = s.safeHandle(r.Context(), body, reqCtx)
	}

	s.writeResponse(w, log, response, code)

	metrics.RequestsTotal.WithLabelValues(methodName, strconv.Itoa(code)).Inc()
	metrics.RequestDuration.WithLabelValues(methodName).Observe(time.Since(start).Seconds())
}

// safeHandle maps any panic escaping the dispatcher to an internal error so
// a single bad request can never take the process down.
func (s *Server) safeHandle(ctx context.Context, body, reqCtx map[string]interface{}) (response interface{}, code int) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("unexpected error handling request", map[string]interface{}{"panic": rec})
			response, code = nil, StatusInternalError
		}
	}()
	return s.dispatcher.Handle(ctx, body, reqCtx)
}

func (s *Server) writeResponse(w http.ResponseWriter, log logger.Logger, response interface{}, code int) {
	envelope := make(map[string]interface{}, 2)
	if _, failed := statusText[code]; failed {
		body := response
		if body == nil {
			body = statusText[code]
		}
		envelope["error"] = body
	} else {
		envelope["response"] = response
	}
	envelope["code"] = code

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(envelope); err != nil {
		log.WithError(err).Error("failed to write response", nil)
		return
	}
	log.Info("response sent", map[string]interface{}{"code": code})
}
