package http

import (
	"bytes"
	"encoding/json"
	"net/http"

	ierr "invoicedash/internal/errors"
	"invoicedash/internal/log"
)

const contentTypeJSON = "application/json; charset=utf-8"

// ErrorBody is the payload of every failure response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type errorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// JSONResponseBuilder assembles a JSON response. The body is encoded before
// any header is written so an encoding failure can still become a 500.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
}

func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

func (b *JSONResponseBuilder) Write(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(b.body); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to encode response", log.FieldError, err)
		buf.Reset()
		b.statusCode = http.StatusInternalServerError
		_ = json.NewEncoder(&buf).Encode(errorEnvelope{Error: ErrorBody{
			Code:    ierr.ErrCodeSystem,
			Message: "Failed to encode response",
		}})
	}

	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(buf.Bytes())
}

// ErrorResponse maps err onto a status and error envelope. Upstream failures
// relay the collaborator's status and body.
func ErrorResponse(err error) *JSONResponseBuilder {
	body := ErrorBody{
		Code:    ierr.Code(err),
		Message: ierr.DisplayMessage(err, "Internal server error"),
	}

	var upstream *ierr.UpstreamError
	if ierr.IsUpstream(err) && ierr.As(err, &upstream) {
		body.Details = upstreamDetails(upstream.Body)
	} else if details := ierr.ReportableDetails(err); len(details) > 0 {
		body.Details = details
	}

	return NewJSONResponse().
		Status(ierr.HTTPStatusFromErr(err)).
		Body(errorEnvelope{Error: body})
}

// upstreamDetails embeds a JSON body as-is and anything else as a string.
func upstreamDetails(body string) any {
	if body == "" {
		return nil
	}
	if json.Valid([]byte(body)) {
		return json.RawMessage(body)
	}
	return body
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	NewJSONResponse().Body(v).Write(w, r)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := ierr.HTTPStatusFromErr(err)
	logger := log.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		fields := log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", "")
		fields[log.FieldErrorCode] = ierr.Code(err)
		log.NewStructuredLogger(logger).LogError(r.Context(), "Request failed", err, r.Pattern, fields)
	} else {
		logger.WarnContext(r.Context(), "Request rejected",
			log.FieldError, err,
			log.FieldErrorCode, ierr.Code(err),
			log.FieldPath, r.URL.Path)
	}
	ErrorResponse(err).Write(w, r)
}
