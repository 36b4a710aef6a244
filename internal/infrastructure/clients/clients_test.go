package clients

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOpenAIChat(t *testing.T) {
	var auth string
	var req chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		auth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &req)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  hello there \n"}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(srv.URL, "sk-test", "", zap.NewNop())
	out, err := c.Chat(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "hello there", out)
	assert.Equal(t, "Bearer sk-test", auth)
	assert.Equal(t, "gpt-4o-mini", req.Model)
	require.Len(t, req.Messages, 1)
}

func TestOpenAINotConfigured(t *testing.T) {
	c := NewOpenAIClient("", "", "", zap.NewNop())
	assert.False(t, c.Configured())
	_, err := c.Chat(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestOpenAIErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"bad model"}}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIClient(srv.URL, "k", "m", zap.NewNop()).Chat(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad model")
}

func TestTuyaSignIsStable(t *testing.T) {
	c := NewTuyaClient("", "id", "secret", zap.NewNop())
	a := c.sign("", "1700000000000", "n", "GET", tuyaTokenPath, nil)
	b := c.sign("", "1700000000000", "n", "GET", tuyaTokenPath, nil)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, c.sign("tok", "1700000000000", "n", "GET", tuyaTokenPath, nil))
}

func TestTuyaTokenCachedAndCommandsSent(t *testing.T) {
	var tokenCalls int32
	var commandToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "id", r.Header.Get("client_id"))
		assert.NotEmpty(t, r.Header.Get("sign"))
		switch r.URL.Path {
		case "/v1.0/token":
			atomic.AddInt32(&tokenCalls, 1)
			w.Write([]byte(`{"success":true,"result":{"access_token":"at-1","expire_time":7200}}`))
		case "/v1.0/iot-03/devices/d1/commands":
			commandToken = r.Header.Get("access_token")
			w.Write([]byte(`{"success":true,"result":true}`))
		case "/v1.0/iot-03/devices/d1/status":
			w.Write([]byte(`{"success":true,"result":[{"code":"switch_1","value":true}]}`))
		default:
			w.Write([]byte(`{"success":false,"code":1108,"msg":"uri path invalid"}`))
		}
	}))
	defer srv.Close()

	c := NewTuyaClient(srv.URL, "id", "secret", zap.NewNop())
	c.now = func() time.Time { return time.Unix(1700000000, 0) }

	body := map[string]interface{}{"commands": []map[string]interface{}{{"code": "switch_1", "value": true}}}
	require.NoError(t, c.SendCommands(context.Background(), "/v1.0/iot-03/devices/d1/commands", body))
	raw, err := c.DeviceStatus(context.Background(), "d1")
	require.NoError(t, err)

	assert.Equal(t, "at-1", commandToken)
	assert.EqualValues(t, 1, atomic.LoadInt32(&tokenCalls))
	assert.Contains(t, string(raw), "switch_1")

	err = c.SendCommands(context.Background(), "/nope", body)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "uri path invalid")
}

func TestTuyaNotConfigured(t *testing.T) {
	_, err := NewTuyaClient("", "", "", zap.NewNop()).DeviceStatus(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
