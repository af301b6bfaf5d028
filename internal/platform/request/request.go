// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package request provides utilities for extracting data from HTTP requests.

It abstracts away the underlying router's parameter extraction and common
body decoding patterns, ensuring consistent error handling and type safety.
*/
package requestutil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/minitube/internal/platform/ctxutil"
	"github.com/taibuivan/minitube/internal/platform/middleware"
	"github.com/taibuivan/minitube/internal/platform/validate"
)

// maxBodyBytes caps the size of a decoded JSON body.
const maxBodyBytes = 1 << 20

/*
DecodeJSON reads the request body and decodes it into the target structure.

An empty body leaves target untouched so that missing fields are reported by
the validator rather than as a JSON error.

Parameters:
  - request: *http.Request
  - target: any (Pointer to the destination struct)

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(request *http.Request, target any) error {
	if request.Body == nil {
		return nil
	}

	err := json.NewDecoder(io.LimitReader(request.Body, maxBodyBytes)).Decode(target)
	if err != nil && !errors.Is(err, io.EOF) {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
Param retrieves a named URL parameter from the request.
*/
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

/*
Query retrieves a named query-string parameter from the request.
*/
func Query(request *http.Request, name string) string {
	return request.URL.Query().Get(name)
}

/*
BearerToken returns the raw token extracted by [middleware.BearerToken].

Returns an empty string if the request is anonymous.
*/
func BearerToken(request *http.Request) string {
	return ctxutil.GetBearerToken(request.Context())
}

/*
ClientIP returns the caller address, respecting common proxy headers.
*/
func ClientIP(request *http.Request) string {
	return middleware.RealIP(request)
}

/*
Headers flattens the request headers into a single-valued map, as recorded
in login audit entries. The Authorization header is never included.
*/
func Headers(request *http.Request) map[string]string {
	headers := make(map[string]string, len(request.Header))
	for name, values := range request.Header {
		if strings.EqualFold(name, "Authorization") || strings.EqualFold(name, "Cookie") {
			continue
		}
		headers[strings.ToLower(name)] = strings.Join(values, ", ")
	}
	return headers
}
