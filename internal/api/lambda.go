package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog/log"
)

// LambdaHandler serves API Gateway proxy events through an ordinary http.Handler.
type LambdaHandler struct {
	handler http.Handler
}

func NewLambdaHandler(handler http.Handler) *LambdaHandler {
	return &LambdaHandler{handler: handler}
}

func (h *LambdaHandler) HandleRequest(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	req, err := newRequest(ctx, event)
	if err != nil {
		log.Error().Err(err).Str("path", event.Path).Msg("Failed to create request")
		return errorResponse("Failed to create request", http.StatusBadRequest), nil
	}

	w := &responseWriter{
		headers: make(http.Header),
		body:    &bytes.Buffer{},
		code:    http.StatusOK,
	}
	h.handler.ServeHTTP(w, req)

	return events.APIGatewayProxyResponse{
		StatusCode:        w.code,
		Headers:           singleValueHeaders(w.headers),
		MultiValueHeaders: w.headers,
		Body:              w.body.String(),
	}, nil
}

func newRequest(ctx context.Context, event events.APIGatewayProxyRequest) (*http.Request, error) {
	method := event.HTTPMethod
	if method == "" {
		method = http.MethodGet
	}
	path := event.Path
	if path == "" {
		path = "/"
	}

	body := []byte(event.Body)
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			return nil, err
		}
		body = decoded
	}

	target := url.URL{Path: path, RawQuery: queryString(event).Encode()}
	req, err := http.NewRequestWithContext(ctx, method, "http://localhost"+target.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	for key, values := range event.MultiValueHeaders {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	for key, value := range event.Headers {
		if req.Header.Get(key) == "" {
			req.Header.Set(key, value)
		}
	}
	if req.Header.Get("Content-Type") == "" && len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	if event.RequestContext.RequestID != "" && req.Header.Get(requestIDHeader) == "" {
		req.Header.Set(requestIDHeader, event.RequestContext.RequestID)
	}
	return req, nil
}

func queryString(event events.APIGatewayProxyRequest) url.Values {
	values := url.Values{}
	for key, vs := range event.MultiValueQueryStringParameters {
		for _, v := range vs {
			values.Add(key, v)
		}
	}
	for key, v := range event.QueryStringParameters {
		if _, ok := values[key]; !ok {
			values.Set(key, v)
		}
	}
	return values
}

func singleValueHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for key, values := range headers {
		if len(values) > 0 {
			out[key] = values[0]
		}
	}
	return out
}

func errorResponse(message string, statusCode int) events.APIGatewayProxyResponse {
	body, _ := json.Marshal(ErrorResponse{Error: message})
	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers: map[string]string{
			"Content-Type":                "application/json",
			"Access-Control-Allow-Origin": "*",
		},
		Body: string(body),
	}
}

// responseWriter captures a handler's output for the proxy response.
type responseWriter struct {
	headers     http.Header
	body        *bytes.Buffer
	code        int
	wroteHeader bool
}

func (w *responseWriter) Header() http.Header {
	return w.headers
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.body.Write(b)
}

func (w *responseWriter) WriteHeader(statusCode int) {
	if w.wroteHeader {
		return
	}
	w.code = statusCode
	w.wroteHeader = true
}
