package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	gut "github.com/panyam/goutils/utils"
)

// StatusCoder is implemented by errors that know which HTTP status they
// should be reported as.
type StatusCoder interface {
	HTTPStatus() int
}

// SendJsonResponse writes a JSON response to the http.ResponseWriter.
// If err is nil, resp is marshaled to JSON and written with status 200 OK.
// If err is non-nil, the status comes from ErrorToHttpCode and an error
// object is returned in the response body.
func SendJsonResponse(writer http.ResponseWriter, resp any, err error) {
	output := resp
	httpCode := ErrorToHttpCode(err)
	if err != nil {
		output = gut.StrMap{
			"error": err.Error(),
		}
	}
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(httpCode)
	jsonResp, err := json.Marshal(output)
	if err != nil {
		slog.Error("error happened in JSON marshal", slog.String("error", err.Error()))
	}
	writer.Write(jsonResp)
}

// ErrorToHttpCode converts a Go error to an appropriate HTTP status code.
// If err is nil, returns http.StatusOK (200).
// If err (or anything it wraps) implements StatusCoder, that status is used.
// Other errors map to 500 Internal Server Error.
func ErrorToHttpCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// NormalizeWsUrl converts an HTTP(S) URL to its WebSocket equivalent.
// It performs the following transformations:
//   - Removes trailing slashes
//   - Converts "http:" to "ws:"
//   - Converts "https:" to "wss:"
//
// URLs that are already WebSocket URLs (ws: or wss:) are returned unchanged
// after removing any trailing slash.
//
// Example:
//
//	NormalizeWsUrl("https://example.com/ws/") // "wss://example.com/ws"
func NormalizeWsUrl(httpOrWsUrl string) string {
	if strings.HasSuffix(httpOrWsUrl, "/") {
		httpOrWsUrl = (httpOrWsUrl)[:len(httpOrWsUrl)-1]
	}
	if strings.HasPrefix(httpOrWsUrl, "http:") {
		httpOrWsUrl = "ws:" + (httpOrWsUrl)[len("http:"):]
	}
	if strings.HasPrefix(httpOrWsUrl, "https:") {
		httpOrWsUrl = "wss:" + (httpOrWsUrl)[len("https:"):]
	}
	return httpOrWsUrl
}
