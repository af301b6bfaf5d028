// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"net/http"
	"strings"

	"github.com/taibuivan/minitube/internal/platform/constants"
	"github.com/taibuivan/minitube/internal/platform/ctxutil"
)

// # Bearer Extraction

// BearerToken extracts the raw token from an 'Authorization: Bearer <token>'
// header and stores it in the request context.
//
// # Flow
//  1. If the header is absent or not a Bearer credential, the request proceeds as anonymous.
//  2. Otherwise the token is injected via [ctxutil.WithBearerToken].
//
// Tokens are not decoded here. The gateway decodes them per operation so that
// every failure produces the same result shape.
func BearerToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		token, ok := ParseBearer(request.Header.Get(constants.HeaderAuthorization))
		if !ok {
			next.ServeHTTP(writer, request)
			return
		}

		ctx := ctxutil.WithBearerToken(request.Context(), token)
		next.ServeHTTP(writer, request.WithContext(ctx))
	})
}

// ParseBearer returns the token of a 'Bearer <token>' header value.
// The scheme is matched case-insensitively.
func ParseBearer(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, constants.BearerScheme) {
		return "", false
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}
