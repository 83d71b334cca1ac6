package api

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLambdaHandlerRoundTrip(t *testing.T) {
	ts := newTestServer(t)
	h := NewLambdaHandler(ts.router)

	resp, err := h.HandleRequest(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       "/api/data",
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       `{"name":"Reuss","description":"Luzern"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Contains(t, resp.Body, `"name":"Reuss"`)
	assert.Equal(t, "application/json; charset=utf-8", resp.Headers["Content-Type"])

	resp, err = h.HandleRequest(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodGet,
		Path:       "/api/data/999",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Item not found"}`, resp.Body)
}

func TestLambdaRequestTranslation(t *testing.T) {
	var got *http.Request
	var gotBody string
	h := NewLambdaHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Header().Add("X-Multi", "a")
		w.Header().Add("X-Multi", "b")
		w.WriteHeader(http.StatusAccepted)
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("ok"))
	}))

	resp, err := h.HandleRequest(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:                      http.MethodPut,
		Path:                            "/api/data/5",
		QueryStringParameters:           map[string]string{"single": "1"},
		MultiValueQueryStringParameters: map[string][]string{"tag": {"x", "y"}},
		Body:                            base64.StdEncoding.EncodeToString([]byte(`{"name":"n"}`)),
		IsBase64Encoded:                 true,
		RequestContext:                  events.APIGatewayProxyRequestContext{RequestID: "req-1"},
	})
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, http.MethodPut, got.Method)
	assert.Equal(t, "/api/data/5", got.URL.Path)
	assert.Equal(t, "1", got.URL.Query().Get("single"))
	assert.Equal(t, []string{"x", "y"}, got.URL.Query()["tag"])
	assert.Equal(t, `{"name":"n"}`, gotBody)
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
	assert.Equal(t, "req-1", got.Header.Get("X-Request-ID"))

	assert.Equal(t, http.StatusAccepted, resp.StatusCode, "first WriteHeader wins")
	assert.Equal(t, "ok", resp.Body)
	assert.Equal(t, "a", resp.Headers["X-Multi"])
	assert.Equal(t, []string{"a", "b"}, resp.MultiValueHeaders["X-Multi"])
}

func TestLambdaRejectsBadBase64(t *testing.T) {
	h := NewLambdaHandler(http.NotFoundHandler())

	resp, err := h.HandleRequest(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:      http.MethodPost,
		Path:            "/api/data",
		Body:            "!!!",
		IsBase64Encoded: true,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Failed to create request"}`, resp.Body)
}
