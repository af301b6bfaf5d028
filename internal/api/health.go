// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/taibuivan/minitube/internal/platform/constants"
	"github.com/taibuivan/minitube/internal/platform/respond"
)

// HealthDependencies holds the injectable dependency checkers for the /ready endpoint.
//
// A nil checker is skipped.
type HealthDependencies struct {
	// CheckDatabase pings the PostgreSQL pool holding the users schema.
	CheckDatabase func(context.Context) error

	// CheckCache pings the Redis client backing the throttles.
	CheckCache func(context.Context) error
}

const (
	statusOK       = "ok"
	statusReady    = "ready"
	statusDegraded = "degraded"
)

type dependencyCheck struct {
	Name  string `json:"name"`
	IsOK  bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type healthHandler struct {
	checks map[string]func(context.Context) error
	order  []string
	logger *slog.Logger
}

// NewHealthHandlers creates the /health and /ready http.HandlerFuncs.
func NewHealthHandlers(deps HealthDependencies, logger *slog.Logger) (liveness, readiness http.HandlerFunc) {
	handler := &healthHandler{checks: map[string]func(context.Context) error{}, logger: logger}
	handler.register("postgres", deps.CheckDatabase)
	handler.register("redis", deps.CheckCache)
	return handler.liveness, handler.readiness
}

func (handler *healthHandler) register(name string, check func(context.Context) error) {
	if check == nil {
		return
	}
	handler.checks[name] = check
	handler.order = append(handler.order, name)
}

// liveness handles GET /health. It never touches a dependency.
func (handler *healthHandler) liveness(writer http.ResponseWriter, _ *http.Request) {
	respond.OK(writer, map[string]string{
		constants.FieldStatus: statusOK,
		constants.FieldApp:    constants.AppName,
	})
}

// readiness handles GET /ready. Any failing dependency turns the response into a 503.
func (handler *healthHandler) readiness(writer http.ResponseWriter, request *http.Request) {
	context := request.Context()

	results := make([]dependencyCheck, 0, len(handler.order))
	status, httpStatus := statusReady, http.StatusOK

	for _, name := range handler.order {
		result := dependencyCheck{Name: name, IsOK: true}
		if err := handler.checks[name](context); err != nil {
			result.IsOK, result.Error = false, err.Error()
			status, httpStatus = statusDegraded, http.StatusServiceUnavailable
			handler.logger.ErrorContext(context, "readiness_check_failed",
				slog.String("dependency", name),
				slog.Any("error", err),
			)
		}
		results = append(results, result)
	}

	respond.JSON(writer, httpStatus, respond.SuccessEnvelope{Data: map[string]any{
		constants.FieldStatus:  status,
		constants.FieldVersion: constants.AppVersion,
		constants.FieldChecks:  results,
	}})
}
