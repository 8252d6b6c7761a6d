package handlers_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dom/chatrelay/internal/testutil"
	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wsResult struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

func dialChat(t *testing.T, ts *testutil.TestServer, token string) *ws.Conn {
	t.Helper()

	conn, _, err := ws.DefaultDialer.Dial(ts.WebSocketURL(token), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readResult(t *testing.T, conn *ws.Conn) wsResult {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var res wsResult
	require.NoError(t, json.Unmarshal(data, &res))
	return res
}

func TestChatWebSocket_RequiresToken(t *testing.T) {
	ts := testutil.NewTestServer(t, nil)

	_, resp, err := ws.DefaultDialer.Dial(ts.WebSocketURL(""), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestChatWebSocket_AnswersQuery(t *testing.T) {
	ts := testutil.NewTestServer(t, testutil.StubGemini(t, "hello there"))
	token := registerAndLogin(t, ts)

	conn := dialChat(t, ts, token)
	require.NoError(t, conn.WriteJSON(map[string]string{"query": "hi"}))

	res := readResult(t, conn)
	assert.Equal(t, "hello there", res.Response)
	assert.Empty(t, res.Error)
}

func TestChatWebSocket_RedactsUpstreamFailureDetail(t *testing.T) {
	// An upstream that refuses connections produces a transport error
	// whose text must never reach the client: it names the dial target,
	// and the request URL behind it carries the API key.
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	upstream.Close()

	ts := testutil.NewTestServer(t, upstream)
	token := registerAndLogin(t, ts)

	conn := dialChat(t, ts, token)
	require.NoError(t, conn.WriteJSON(map[string]string{"query": "hi"}))

	res := readResult(t, conn)
	assert.Equal(t, "Internal server error", res.Error)
	assert.NotContains(t, res.Error, ts.Config.GeminiAPIKey)
	assert.Empty(t, res.Response)
}

func TestChatWebSocket_EmptyQueryErrorIsInformative(t *testing.T) {
	ts := testutil.NewTestServer(t, nil)
	token := registerAndLogin(t, ts)

	conn := dialChat(t, ts, token)
	require.NoError(t, conn.WriteJSON(map[string]string{"query": "   "}))

	res := readResult(t, conn)
	assert.Equal(t, "query must be a non-empty string", res.Error)
}

func TestChatWebSocket_ShutdownClosesSessions(t *testing.T) {
	ts := testutil.NewTestServer(t, nil)
	token := registerAndLogin(t, ts)

	conn := dialChat(t, ts, token)

	// Confirm the session is live before shutting down.
	require.NoError(t, conn.WriteJSON(map[string]string{"query": "hi"}))
	res := readResult(t, conn)
	require.Equal(t, "stub answer", res.Response)

	ts.Sessions.Shutdown()

	// The peer receives a going-away close frame rather than an abrupt
	// connection reset.
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	var closeErr *ws.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, ws.CloseGoingAway, closeErr.Code)

	// Sessions arriving after shutdown are refused.
	c2, _, err := ws.DefaultDialer.Dial(ts.WebSocketURL(token), nil)
	if err == nil {
		c2.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, _, readErr := c2.ReadMessage()
		assert.Error(t, readErr)
		c2.Close()
	}
}

func TestChatWebSocket_NewerQuerySupersedesInFlight(t *testing.T) {
	// The stub answers "slow" only after a delay; "fast" immediately. The
	// session must cancel the slow call and deliver only the fast answer.
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		json.Unmarshal(body, &req)

		query := ""
		if len(req.Contents) > 0 && len(req.Contents[0].Parts) > 0 {
			query = req.Contents[0].Parts[0].Text
		}

		if query == "slow" {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(2 * time.Second):
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"parts": []map[string]any{{"text": query + " answer"}},
				},
			}},
		})
	}))
	t.Cleanup(upstream.Close)

	ts := testutil.NewTestServer(t, upstream)
	token := registerAndLogin(t, ts)

	conn := dialChat(t, ts, token)
	require.NoError(t, conn.WriteJSON(map[string]string{"query": "slow"}))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, conn.WriteJSON(map[string]string{"query": "fast"}))

	res := readResult(t, conn)
	assert.Equal(t, "fast answer", res.Response)

	// No stale second frame arrives for the superseded query.
	conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
