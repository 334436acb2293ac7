package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FloodMonitorAPI/internal/models"
)

const testToken = "123456:secret-token"

type capturedRequest struct {
	Path string
	Body map[string]interface{}
}

// fakeBotAPI records requests and answers each with the next queued response.
type fakeBotAPI struct {
	mu        sync.Mutex
	requests  []capturedRequest
	status    int
	responses []string
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var decoded map[string]interface{}
	_ = json.Unmarshal(body, &decoded)

	f.mu.Lock()
	f.requests = append(f.requests, capturedRequest{Path: r.URL.Path, Body: decoded})
	response := `{"ok":true,"result":true}`
	if len(f.responses) > 0 {
		response = f.responses[0]
		f.responses = f.responses[1:]
	}
	status := f.status
	f.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(response))
}

func newTestClient(t *testing.T, api *fakeBotAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL + "/", Token: testToken, HTTPTimeout: time.Second})
}

func TestSendMessage(t *testing.T) {
	api := &fakeBotAPI{}
	client := newTestClient(t, api)

	err := client.SendMessage(context.Background(), "42", "hello", "Markdown")

	require.NoError(t, err)
	require.Len(t, api.requests, 1)
	assert.Equal(t, "/bot"+testToken+"/sendMessage", api.requests[0].Path)
	assert.Equal(t, "42", api.requests[0].Body["chat_id"])
	assert.Equal(t, "hello", api.requests[0].Body["text"])
	assert.Equal(t, "Markdown", api.requests[0].Body["parse_mode"])
}

func TestSendMessagePlainOmitsParseMode(t *testing.T) {
	api := &fakeBotAPI{}
	client := newTestClient(t, api)

	require.NoError(t, client.SendMessage(context.Background(), "42", "hello", ""))

	_, ok := api.requests[0].Body["parse_mode"]
	assert.False(t, ok)
}

func TestAPIErrorResponse(t *testing.T) {
	api := &fakeBotAPI{
		status:    http.StatusBadRequest,
		responses: []string{`{"ok":false,"description":"Bad Request: chat not found"}`},
	}
	client := newTestClient(t, api)

	err := client.SendMessage(context.Background(), "42", "hello", "")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Error(), "chat not found")
}

func TestTransportErrorDoesNotLeakToken(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	client := NewClient(Config{BaseURL: srv.URL, Token: testToken, HTTPTimeout: time.Second})

	err := client.SendMessage(context.Background(), "42", "hello", "")

	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret-token")
}

func TestNotifierWrapsDeliveryError(t *testing.T) {
	api := &fakeBotAPI{status: http.StatusForbidden, responses: []string{`{"ok":false,"description":"Forbidden"}`}}
	n := NewNotifier(newTestClient(t, api), "42", "Markdown")

	err := n.Send(context.Background(), "alert")

	var deliveryErr *models.DeliveryError
	require.True(t, errors.As(err, &deliveryErr))
	assert.Equal(t, "telegram", deliveryErr.Channel)
	assert.Equal(t, http.StatusForbidden, deliveryErr.StatusCode)
	assert.Equal(t, "42", n.ChatID())
}

func TestUpdateSourceAdvancesOffset(t *testing.T) {
	api := &fakeBotAPI{responses: []string{
		`{"ok":true,"result":[
			{"update_id":10,"message":{"message_id":1,"chat":{"id":42},"text":"/status"}},
			{"update_id":11,"message":{"message_id":2,"chat":{"id":42}}},
			{"update_id":12}
		]}`,
		`{"ok":true,"result":[]}`,
	}}
	source := NewUpdateSource(newTestClient(t, api), 25*time.Second)

	commands, err := source.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, commands, 1)
	assert.Equal(t, models.Command{UpdateID: 10, ChatID: "42", Text: "/status"}, commands[0])
	assert.Equal(t, int64(13), source.Offset())

	commands, err = source.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, commands)
	assert.Equal(t, int64(13), source.Offset())

	require.Len(t, api.requests, 2)
	_, hasOffset := api.requests[0].Body["offset"]
	assert.False(t, hasOffset)
	assert.Equal(t, float64(13), api.requests[1].Body["offset"])
	assert.Equal(t, float64(25), api.requests[1].Body["timeout"])
}

func TestUpdateSourceWrapsFailures(t *testing.T) {
	api := &fakeBotAPI{status: http.StatusBadGateway, responses: []string{`bad gateway`}}
	source := NewUpdateSource(newTestClient(t, api), time.Second)

	_, err := source.Fetch(context.Background())

	var sourceErr *models.CommandSourceError
	require.True(t, errors.As(err, &sourceErr))
	assert.Equal(t, int64(0), source.Offset())
}
