// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/minitube/internal/platform/constants"
	"github.com/taibuivan/minitube/internal/platform/limiter"
	"github.com/taibuivan/minitube/internal/platform/middleware"
	"github.com/taibuivan/minitube/internal/users/auth"
)

func newRouter(f *fixture) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.BearerToken)
	router.Mount("/api/v1/user", auth.NewHandler(f.gateway).Routes())
	return router
}

// do sends body (raw when it is a string) and decodes the JSON response.
func do(t *testing.T, router http.Handler, method, target string, body any, bearer string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var payload []byte
	switch value := body.(type) {
	case nil:
	case string:
		payload = []byte(value)
	default:
		encoded, err := json.Marshal(value)
		require.NoError(t, err)
		payload = encoded
	}

	request := httptest.NewRequest(method, target, bytes.NewReader(payload))
	request.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		request.Header.Set(constants.HeaderAuthorization, "Bearer "+bearer)
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &decoded), recorder.Body.String())
	return recorder, decoded
}

func credentials(fields map[string]any) map[string]any {
	return map[string]any{"credentials": fields}
}

func TestHandler_NewUserAcceptsNumericPhone(t *testing.T) {
	router := newRouter(newFixture(t, auth.Throttles{}))

	recorder, body := do(t, router, http.MethodPost, "/api/v1/user/new-user", credentials(map[string]any{
		"firstName": "Ann",
		"emailId":   "ann@x.com",
		"phone":     5551234567,
		"password":  "Aa1!aaaa",
	}), "")

	assert.Equal(t, http.StatusCreated, recorder.Code)
	assert.Equal(t, constants.PoweredBy, recorder.Header().Get(constants.HeaderXPoweredBy))
	assert.EqualValues(t, http.StatusCreated, body["statusCode"])
	assert.Equal(t, auth.MessageAccountCreated, body["statusMessage"])
	assert.NotEmpty(t, body[auth.FieldAccountID])

	recorder, body = do(t, router, http.MethodPost, "/api/v1/user/check-availability",
		credentials(map[string]any{"phone": "5551234567"}), "")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, false, body[auth.FieldAvailable])
}

func TestHandler_MalformedBody(t *testing.T) {
	router := newRouter(newFixture(t, auth.Throttles{}))

	recorder, body := do(t, router, http.MethodPost, "/api/v1/user/login", "{not json", "")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, auth.MessageInvalidInput, body["statusMessage"])
	assert.Equal(t, constants.PoweredBy, recorder.Header().Get(constants.HeaderXPoweredBy))
}

func TestHandler_SessionFlow(t *testing.T) {
	f := newFixture(t, auth.Throttles{})
	router := newRouter(f)
	emailToken, otp := f.register(t)

	query := url.Values{"email": {"ann@x.com"}, "token": {emailToken}}
	recorder, body := do(t, router, http.MethodPost, "/api/v1/user/verify-email?"+query.Encode(), nil, "")
	require.Equal(t, http.StatusOK, recorder.Code, body)

	recorder, body = do(t, router, http.MethodPost, "/api/v1/user/verify-otp",
		credentials(map[string]any{"phone": 5551234567, "OTP": otp}), "")
	require.Equal(t, http.StatusOK, recorder.Code, body)

	recorder, body = do(t, router, http.MethodPost, "/api/v1/user/login",
		credentials(map[string]any{"emailId": "ann@x.com", "password": "Aa1!aaaa"}), "")
	require.Equal(t, http.StatusOK, recorder.Code, body)
	token := body[auth.FieldAuthToken].(string)

	recorder, body = do(t, router, http.MethodGet, "/api/v1/user/?fields=firstName,emailId", nil, token)
	require.Equal(t, http.StatusOK, recorder.Code, body)
	details := body[auth.FieldDetails].(map[string]any)
	assert.Len(t, details, 2)
	assert.Equal(t, "Ann", details["firstName"])

	recorder, body = do(t, router, http.MethodGet, "/api/v1/user/", map[string]any{"fields": []string{"phone"}}, token)
	require.Equal(t, http.StatusOK, recorder.Code, body)
	assert.Equal(t, map[string]any{"phone": "5551234567"}, body[auth.FieldDetails])

	recorder, _ = do(t, router, http.MethodGet, "/api/v1/user/", nil, "")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder, body = do(t, router, http.MethodPost, "/api/v1/user/", map[string]any{"requestedAuthority": "administrator"}, token)
	assert.Equal(t, http.StatusCreated, recorder.Code, body)

	recorder, body = do(t, router, http.MethodPost, "/api/v1/user/refresh-token", nil, token)
	assert.Equal(t, http.StatusOK, recorder.Code, body)
	assert.NotEmpty(t, body[auth.FieldAuthToken])
}

func TestHandler_PasswordReset(t *testing.T) {
	f := newFixture(t, auth.Throttles{})
	router := newRouter(f)
	f.login(t)

	recorder, body := do(t, router, http.MethodPost, "/api/v1/user/forget-password",
		credentials(map[string]any{"emailId": "ann@x.com"}), "")
	require.Equal(t, http.StatusOK, recorder.Code, body)

	recorder, body = do(t, router, http.MethodGet, body[auth.FieldResetLink].(string), nil, "")
	require.Equal(t, http.StatusOK, recorder.Code, body)
	resetLink := body[auth.FieldResetLink].(string)
	assert.True(t, strings.HasPrefix(resetLink, "/api/v1/user/reset-password?resId="))

	reset := map[string]any{"data": map[string]any{"password": "Bb2@bbbb"}}
	recorder, body = do(t, router, http.MethodPost, resetLink, reset, "")
	assert.Equal(t, http.StatusOK, recorder.Code, body)

	recorder, body = do(t, router, http.MethodPost, resetLink, reset, "")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "ALREADY_USED", body["reason"])

	recorder, _ = do(t, router, http.MethodGet, "/api/v1/user/request-reset-password/unknown", nil, "")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestHandler_ThrottleSetsRetryAfter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := newFixture(t, auth.Throttles{
		ForgotPassword: limiter.NewRedis(client, limiter.Config{
			Prefix:      constants.RedisPrefixForgotPassword,
			Window:      30 * time.Second,
			MaxAttempts: 1,
		}),
	})
	router := newRouter(f)
	f.register(t)

	forgot := credentials(map[string]any{"emailId": "ann@x.com"})
	recorder, _ := do(t, router, http.MethodPost, "/api/v1/user/forget-password", forgot, "")
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder, body := do(t, router, http.MethodPost, "/api/v1/user/forget-password", forgot, "")
	assert.Equal(t, http.StatusTooManyRequests, recorder.Code)
	assert.Equal(t, "30", recorder.Header().Get(constants.HeaderRetryAfter))
	assert.EqualValues(t, http.StatusTooManyRequests, body["statusCode"])
}

func TestHandler_ReissueReadsQueryString(t *testing.T) {
	f := newFixture(t, auth.Throttles{})
	router := newRouter(f)
	f.register(t)

	recorder, body := do(t, router, http.MethodGet, "/api/v1/user/new-otp?phone=5551234567", nil, "")
	assert.Equal(t, http.StatusOK, recorder.Code, body)
	assert.Regexp(t, `^[0-9]{6}$`, body[auth.FieldOTP])

	recorder, body = do(t, router, http.MethodPost, "/api/v1/user/new-email-token",
		credentials(map[string]any{"emailId": "ann@x.com"}), "")
	assert.Equal(t, http.StatusOK, recorder.Code, body)
	assert.NotEmpty(t, body[auth.FieldEmailToken])
}
