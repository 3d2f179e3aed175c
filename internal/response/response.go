// Package response defines the API's uniform response envelope and the
// status taxonomy shared by handlers and the authentication middleware.
package response

import (
	"encoding/json"
	"net/http"
)

// Status enumerates every outcome the API reports to clients.
type Status string

const (
	StatusSuccess Status = "SUCCESS"

	// common
	StatusUnknownError Status = "UNKNOWN_ERROR"
	StatusInvalidInput Status = "INVALID_INPUT"

	// auth
	StatusAuthFailed        Status = "AUTH_FAILED"
	StatusInvalidToken      Status = "INVALID_TOKEN"
	StatusAuthTokenExpired  Status = "AUTH_TOKEN_EXPIRED"
	StatusIncorrectPassword Status = "INCORRECT_PASSWORD"

	// permission
	StatusNotPermission Status = "NOT_PERMISSION"

	// user
	StatusUserNotExists     Status = "USER_NOT_EXISTS"
	StatusUserAlreadyExists Status = "USER_ALREADY_EXISTS"
)

// messages maps each status to its client-facing message. INVALID_TOKEN
// deliberately reads the same as AUTH_FAILED so the wire does not reveal
// which check rejected the credential.
var messages = map[Status]string{
	StatusSuccess:           "",
	StatusUnknownError:      "Unknown error",
	StatusInvalidInput:      "Invalid input",
	StatusAuthFailed:        "Authentication failed",
	StatusInvalidToken:      "Authentication failed",
	StatusAuthTokenExpired:  "Authentication token expired",
	StatusIncorrectPassword: "Incorrect password",
	StatusNotPermission:     "Not permission",
	StatusUserNotExists:     "User not exists",
	StatusUserAlreadyExists: "User already exists",
}

// httpCodes maps statuses to HTTP status codes at the transport boundary.
var httpCodes = map[Status]int{
	StatusSuccess:           http.StatusOK,
	StatusUnknownError:      http.StatusInternalServerError,
	StatusInvalidInput:      http.StatusBadRequest,
	StatusAuthFailed:        http.StatusUnauthorized,
	StatusInvalidToken:      http.StatusUnauthorized,
	StatusAuthTokenExpired:  http.StatusUnauthorized,
	StatusIncorrectPassword: http.StatusUnauthorized,
	StatusNotPermission:     http.StatusForbidden,
	StatusUserNotExists:     http.StatusNotFound,
	StatusUserAlreadyExists: http.StatusConflict,
}

// Envelope is the body of every API response.
type Envelope struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// Message returns the client-facing message for a status.
func Message(s Status) string {
	if m, ok := messages[s]; ok {
		return m
	}
	return messages[StatusUnknownError]
}

// HTTPCode returns the HTTP status code for a status.
func HTTPCode(s Status) int {
	if c, ok := httpCodes[s]; ok {
		return c
	}
	return http.StatusInternalServerError
}

// Write serializes an envelope for the given status and data onto w.
func Write(w http.ResponseWriter, s Status, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(HTTPCode(s))
	_ = json.NewEncoder(w).Encode(Envelope{
		Status:  s,
		Message: Message(s),
		Data:    data,
	})
}

// WriteSuccess serializes a SUCCESS envelope with the given data onto w.
func WriteSuccess(w http.ResponseWriter, data any) {
	Write(w, StatusSuccess, data)
}
