// internal/api/handler.go
package api

import (
	"context"
	"strconv"
	"time"

	"scoring-api/internal/common/apperrors"
	"scoring-api/internal/common/logger"
	"scoring-api/internal/scoring"
)

// Dispatcher routes a validated envelope to its method implementation:
// parse envelope, validate, authenticate, resolve method, validate inner
// request, execute, respond. It holds no per-request state.
type Dispatcher struct {
	auth     *Authenticator
	store    scoring.Store
	cacheTTL time.Duration
	logger   logger.Logger
}

func NewDispatcher(auth *Authenticator, store scoring.Store, cacheTTL time.Duration, log logger.Logger) *Dispatcher {
	if cacheTTL <= 0 {
		cacheTTL = scoring.DefaultCacheTTL
	}
	return &Dispatcher{
		auth:     auth,
		store:    store,
		cacheTTL: cacheTTL,
		logger:   log,
	}
}

// Handle runs the method pipeline for one envelope body and returns the
// result (or error detail) with an HTTP-style status code. Validation and
// auth failures are values, not errors.
func (d *Dispatcher) Handle(ctx context.Context, body map[string]interface{}, reqCtx map[string]interface{}) (interface{}, int) {
	req, errs := parseMethodRequest(body)
	if errs != nil {
		return errs, StatusInvalidRequest
	}

	if !d.auth.CheckAuth(req) {
		d.logger.Warn("authentication failed", map[string]interface{}{"login": req.Login})
		return apperrors.NewAuthenticationError(req.Login).Message, StatusForbidden
	}

	switch req.Method {
	case "online_score":
		return d.onlineScore(ctx, req, reqCtx)
	case "clients_interests":
		return d.clientsInterests(ctx, req, reqCtx)
	default:
		return apperrors.NewMethodNotFoundError(req.Method).Message, StatusNotFound
	}
}

func (d *Dispatcher) onlineScore(ctx context.Context, req *MethodRequest, reqCtx map[string]interface{}) (interface{}, int) {
	res := validateOnlineScore(req.Arguments)
	if !res.Valid() {
		return res.Errors, StatusInvalidRequest
	}

	has := make([]string, 0, len(onlineScoreSchema.Names()))
	for _, name := range onlineScoreSchema.Names() {
		if res.Has(name) {
			has = append(has, name)
		}
	}
	reqCtx["has"] = has

	// Admin always scores the fixed sentinel and never touches the store.
	if req.IsAdmin() {
		return map[string]interface{}{"score": float64(adminScore)}, StatusOK
	}

	score := scoring.Score(ctx, d.store, d.cacheTTL, scoreParams(res))
	return map[string]interface{}{"score": score}, StatusOK
}

func (d *Dispatcher) clientsInterests(ctx context.Context, req *MethodRequest, reqCtx map[string]interface{}) (interface{}, int) {
	res := clientsInterestsSchema.Validate(req.Arguments)
	if !res.Valid() {
		return res.Errors, StatusInvalidRequest
	}

	ids := clientIDs(res.Values["client_ids"])
	reqCtx["nclients"] = len(ids)

	result := make(map[string]interface{}, len(ids))
	for _, id := range ids {
		interests, err := scoring.Interests(ctx, d.store, id)
		if err != nil {
			// Backend detail stays in the log; the caller gets the
			// default status text.
			d.logger.WithError(err).Error("interests lookup failed", map[string]interface{}{"clientId": id})
			return nil, StatusInternalError
		}
		result[strconv.FormatInt(id, 10)] = interests
	}
	return result, StatusOK
}
