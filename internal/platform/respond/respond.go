// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package respond writes JSON responses.
//
// The user API answers with flat bodies that always carry statusCode and
// statusMessage. Infrastructure health checks wrap their payload in {"data": ...}.
package respond

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/taibuivan/minitube/internal/platform/apperr"
	"github.com/taibuivan/minitube/internal/platform/constants"
)

// SuccessEnvelope is the JSON envelope of the health checks.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// FailureBody is the body written for errors raised outside the gateway.
type FailureBody struct {
	StatusCode    int    `json:"statusCode"`
	StatusMessage string `json:"statusMessage"`
	Code          string `json:"code"`
	Reason        string `json:"reason,omitempty"`
}

// JSON writes a JSON response with the given status code.
func JSON(writer http.ResponseWriter, statusCode int, payload any) {
	writer.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	writer.WriteHeader(statusCode)
	_ = json.NewEncoder(writer).Encode(payload)
}

// OK writes a 200 OK response with data wrapped in the [SuccessEnvelope].
func OK(writer http.ResponseWriter, data any) {
	JSON(writer, http.StatusOK, SuccessEnvelope{Data: data})
}

// Failure writes appError as a [FailureBody], with Retry-After when it is rate limited.
// The cause is never written.
func Failure(writer http.ResponseWriter, appError *apperr.AppError) {
	if appError.RetryAfter > 0 {
		writer.Header().Set(constants.HeaderRetryAfter, strconv.Itoa(appError.RetryAfter))
	}

	JSON(writer, appError.HTTPStatus, FailureBody{
		StatusCode:    appError.HTTPStatus,
		StatusMessage: appError.Message,
		Code:          appError.Code,
		Reason:        appError.Reason,
	})
}
