// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/minitube/internal/platform/constants"
	requestutil "github.com/taibuivan/minitube/internal/platform/request"
	"github.com/taibuivan/minitube/internal/platform/respond"
)

// # Definitions & Constructors

// Handler exposes the [Gateway] over HTTP.
//
// Every response body is the flattened [Result], whatever the status.
type Handler struct {
	gateway *Gateway
}

// NewHandler constructs a new [Handler] around gateway.
func NewHandler(gateway *Gateway) *Handler {
	return &Handler{gateway: gateway}
}

// Routes returns a [chi.Router] with the user endpoints.
//
// # Endpoints
//   - GET  /                                      : Details of the bearer's account.
//   - POST /                                      : Request an authority upgrade.
//   - POST /check-availability                    : Check email or phone availability.
//   - POST /new-user                              : Register an account.
//   - POST /login                                 : Authenticate and return a token.
//   - GET  /new-email-token, /new-otp             : Re-issue a verification secret.
//   - POST /verify-email, /verify-otp             : Confirm a verification secret.
//   - POST /refresh-token                         : Exchange a token for a fresh one.
//   - POST /forget-password                       : Start a password reset.
//   - GET  /request-reset-password/{requestToken} : Exchange the forgot token for a reset link.
//   - POST /reset-password                        : Store the new password.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(poweredBy)

	router.Get("/", handler.userDetails)
	router.Post("/", handler.requestAuthorityUpgrade)
	router.Post("/check-availability", handler.checkAvailability)
	router.Post("/new-user", handler.createAccount)
	router.Post("/login", handler.login)

	router.Get("/new-email-token", handler.requestEmailToken)
	router.Post("/new-email-token", handler.requestEmailToken)
	router.Get("/new-otp", handler.requestOTP)
	router.Post("/new-otp", handler.requestOTP)
	router.Get("/verify-email", handler.verifyEmail)
	router.Post("/verify-email", handler.verifyEmail)
	router.Post("/verify-otp", handler.verifyOTP)

	router.Post("/refresh-token", handler.refreshToken)
	router.Post("/forget-password", handler.forgotPassword)
	router.Get("/request-reset-password/{requestToken}", handler.beginReset)
	router.Post("/reset-password", handler.completeReset)

	return router
}

func poweredBy(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set(constants.HeaderXPoweredBy, constants.PoweredBy)
		next.ServeHTTP(writer, request)
	})
}

// # Request Payloads

// flexString accepts both a JSON string and a JSON number.
type flexString string

func (value *flexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}

	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*value = flexString(text)
		return nil
	}

	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return err
	}
	*value = flexString(number.String())
	return nil
}

type credentials struct {
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	Email       string     `json:"emailId"`
	CountryCode string     `json:"countryCode"`
	Phone       flexString `json:"phone"`
	Password    string     `json:"password"`
	OTP         flexString `json:"OTP"`
}

type credentialsRequest struct {
	Credentials credentials `json:"credentials"`
}

type fieldsRequest struct {
	Fields []string `json:"fields"`
}

type upgradeRequest struct {
	RequestedAuthority string `json:"requestedAuthority"`
}

type resetPasswordRequest struct {
	Data struct {
		Password string `json:"password"`
	} `json:"data"`
}

// # Response Mapping

var httpStatuses = map[int]int{
	http.StatusOK:                  http.StatusOK,
	http.StatusCreated:             http.StatusCreated,
	http.StatusBadRequest:          http.StatusBadRequest,
	http.StatusUnauthorized:        http.StatusUnauthorized,
	http.StatusNotFound:            http.StatusNotFound,
	http.StatusConflict:            http.StatusConflict,
	http.StatusTooManyRequests:     http.StatusTooManyRequests,
	http.StatusInternalServerError: http.StatusInternalServerError,
	http.StatusNotImplemented:      http.StatusNotImplemented,
}

// write maps result onto the response. Unknown result codes become 500.
func write(writer http.ResponseWriter, result Result) {
	status, ok := httpStatuses[result.StatusCode]
	if !ok {
		status = http.StatusInternalServerError
	}

	if result.RetryAfter > 0 {
		writer.Header().Set(constants.HeaderRetryAfter, strconv.Itoa(result.RetryAfter))
	}

	respond.JSON(writer, status, result)
}

// decode reads the body into target and writes a 400 result on failure.
func decode(writer http.ResponseWriter, request *http.Request, target any) bool {
	if err := requestutil.DecodeJSON(request, target); err != nil {
		write(writer, invalid(MessageInvalidInput))
		return false
	}
	return true
}

// # Registration & Login

func (handler *Handler) checkAvailability(writer http.ResponseWriter, request *http.Request) {
	var input credentialsRequest
	if !decode(writer, request, &input) {
		return
	}

	write(writer, handler.gateway.CheckAvailability(request.Context(), AvailabilityInput{
		Email: input.Credentials.Email,
		Phone: string(input.Credentials.Phone),
	}))
}

/*
createAccount registers a new account.

POST /api/v1/user/new-user

Request:
  - Body: {"credentials": {firstName, lastName, emailId, countryCode, phone, password}}

Response:
  - 201: AccountId and the verification secrets
  - 400: Invalid input or identifier already registered
*/
func (handler *Handler) createAccount(writer http.ResponseWriter, request *http.Request) {
	var input credentialsRequest
	if !decode(writer, request, &input) {
		return
	}

	credentials := input.Credentials
	write(writer, handler.gateway.CreateAccount(request.Context(), CreateAccountInput{
		FirstName:   credentials.FirstName,
		LastName:    credentials.LastName,
		Email:       credentials.Email,
		CountryCode: credentials.CountryCode,
		Phone:       string(credentials.Phone),
		Password:    credentials.Password,
	}))
}

/*
login authenticates with email or phone and a password.

POST /api/v1/user/login

Request:
  - Body: {"credentials": {emailId | phone, password}}

Response:
  - 200: authToken
  - 400: Missing credentials or unverified channel
  - 404: Unknown account or wrong password
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input credentialsRequest
	if !decode(writer, request, &input) {
		return
	}

	write(writer, handler.gateway.Login(request.Context(), LoginInput{
		Email:    strings.TrimSpace(input.Credentials.Email),
		Phone:    strings.TrimSpace(string(input.Credentials.Phone)),
		Password: input.Credentials.Password,
		Headers:  requestutil.Headers(request),
		IP:       requestutil.ClientIP(request),
	}))
}

// # Verification

// addressOf takes the address from the body credentials, falling back to the query string.
func addressOf(writer http.ResponseWriter, request *http.Request, field string) (credentials, bool) {
	var input credentialsRequest
	if !decode(writer, request, &input) {
		return credentials{}, false
	}

	if field == FieldEmail && input.Credentials.Email == "" {
		input.Credentials.Email = requestutil.Query(request, FieldEmail)
	}
	if field == FieldPhone && input.Credentials.Phone == "" {
		input.Credentials.Phone = flexString(requestutil.Query(request, FieldPhone))
	}
	return input.Credentials, true
}

func (handler *Handler) requestEmailToken(writer http.ResponseWriter, request *http.Request) {
	input, ok := addressOf(writer, request, FieldEmail)
	if !ok {
		return
	}
	write(writer, handler.gateway.RequestEmailToken(request.Context(), input.Email))
}

func (handler *Handler) requestOTP(writer http.ResponseWriter, request *http.Request) {
	input, ok := addressOf(writer, request, FieldPhone)
	if !ok {
		return
	}
	write(writer, handler.gateway.RequestOTP(request.Context(), string(input.Phone)))
}

/*
verifyEmail confirms an email verification token.

POST /api/v1/user/verify-email?email=<address>&token=<token>

Response:
  - 200: Email verified
  - 400: Invalid, expired or already used token
  - 404: Unknown email
*/
func (handler *Handler) verifyEmail(writer http.ResponseWriter, request *http.Request) {
	write(writer, handler.gateway.VerifyEmail(request.Context(),
		requestutil.Query(request, "email"),
		requestutil.Query(request, "token"),
	))
}

func (handler *Handler) verifyOTP(writer http.ResponseWriter, request *http.Request) {
	var input credentialsRequest
	if !decode(writer, request, &input) {
		return
	}
	write(writer, handler.gateway.VerifyOTP(request.Context(), string(input.Credentials.Phone), string(input.Credentials.OTP)))
}

// # Session-bound Operations

/*
userDetails returns the requested fields of the bearer's account.

GET /api/v1/user/?fields=firstName,emailId

Request:
  - Header: Authorization: Bearer <token>
  - Query or Body: fields (optional, defaults apply when absent)
*/
func (handler *Handler) userDetails(writer http.ResponseWriter, request *http.Request) {
	var input fieldsRequest
	if !decode(writer, request, &input) {
		return
	}

	fields := input.Fields
	for _, value := range request.URL.Query()[FieldFields] {
		for _, field := range strings.Split(value, ",") {
			if field = strings.TrimSpace(field); field != "" {
				fields = append(fields, field)
			}
		}
	}

	write(writer, handler.gateway.UserDetails(request.Context(), requestutil.BearerToken(request), fields))
}

func (handler *Handler) requestAuthorityUpgrade(writer http.ResponseWriter, request *http.Request) {
	var input upgradeRequest
	if !decode(writer, request, &input) {
		return
	}
	write(writer, handler.gateway.RequestAuthorityUpgrade(request.Context(), requestutil.BearerToken(request), input.RequestedAuthority))
}

func (handler *Handler) refreshToken(writer http.ResponseWriter, request *http.Request) {
	write(writer, handler.gateway.RefreshToken(request.Context(), requestutil.BearerToken(request)))
}

// # Password Reset

func (handler *Handler) forgotPassword(writer http.ResponseWriter, request *http.Request) {
	var input credentialsRequest
	if !decode(writer, request, &input) {
		return
	}
	write(writer, handler.gateway.ForgotPassword(request.Context(), input.Credentials.Email))
}

func (handler *Handler) beginReset(writer http.ResponseWriter, request *http.Request) {
	write(writer, handler.gateway.BeginReset(request.Context(), requestutil.Param(request, "requestToken")))
}

/*
completeReset stores a new password against a reset token.

POST /api/v1/user/reset-password?resId=<token>

Request:
  - Body: {"data": {"password": "<new password>"}}

Response:
  - 200: Password updated
  - 400: Token already used or weak password
  - 404: Unknown token
*/
func (handler *Handler) completeReset(writer http.ResponseWriter, request *http.Request) {
	var input resetPasswordRequest
	if !decode(writer, request, &input) {
		return
	}
	write(writer, handler.gateway.CompleteReset(request.Context(), requestutil.Query(request, "resId"), input.Data.Password))
}
