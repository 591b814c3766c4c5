package model

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ghosttab/types"
)

func decodeRequest(t *testing.T, r *http.Request) completionRequest {
	t.Helper()
	require.Equal(t, "br", r.Header.Get("Content-Encoding"))
	body, err := io.ReadAll(brotli.NewReader(r.Body))
	require.NoError(t, err)
	var req completionRequest
	require.NoError(t, json.Unmarshal(body, &req))
	return req
}

func testParams() *types.CompletionParams {
	return &types.CompletionParams{
		Model: "test-model",
		Messages: []types.Message{
			{Speaker: types.SpeakerHuman, Text: "complete this"},
			{Speaker: types.SpeakerAssistant, Text: "partial"},
		},
		StopSequences: []string{"\n\nHuman:"},
		MaxTokens:     50,
		Temperature:   0.2,
		TopK:          5,
	}
}

func TestComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		assert.Equal(t, "test-model", req.Model)
		assert.Equal(t, 50, req.MaxTokens)
		assert.Equal(t, 0.2, req.Temperature)
		assert.Equal(t, 5, req.TopK)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "Human", req.Messages[0].Speaker)
		assert.Equal(t, "Assistant", req.Messages[1].Speaker)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(completionResponse{Completion: "done()", StopReason: "stop_sequence"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret", 1000)
	resp, err := client.Complete(context.Background(), testParams())
	require.NoError(t, err)
	assert.Equal(t, "done()", resp.Completion)
	assert.Equal(t, "stop_sequence", resp.StopReason)
}

func TestComplete_BrotliResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, err := json.Marshal(completionResponse{Completion: "compressed()"})
		require.NoError(t, err)

		var buf bytes.Buffer
		bw := brotli.NewWriterLevel(&buf, 1)
		_, err = bw.Write(payload)
		require.NoError(t, err)
		require.NoError(t, bw.Close())

		w.Header().Set("Content-Encoding", "br")
		w.Write(buf.Bytes())
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 1000)
	resp, err := client.Complete(context.Background(), testParams())
	require.NoError(t, err)
	assert.Equal(t, "compressed()", resp.Completion)
}

func TestComplete_NoAuthHeaderWithoutToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(completionResponse{Completion: "x"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 1000)
	_, err := client.Complete(context.Background(), testParams())
	require.NoError(t, err)
}

func TestComplete_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 1000)
	_, err := client.Complete(context.Background(), testParams())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestComplete_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(completionResponse{Completion: "x"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 0)
	_, err := client.Complete(ctx, testParams())
	assert.Error(t, err)
}
