// AngelaMos | 2026
// hub_test.go

package console

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/reseller-console/internal/middleware"
)

type wireMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func readMessage(t *testing.T, conn *websocket.Conn) wireMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg wireMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestRenderStream(t *testing.T) {
	store := newMemStore()
	l := newTestLoop(t, store, 0)
	require.NoError(t, l.Mount(t.Context()))

	hub := NewHub(l, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	h := NewHandler(HandlerConfig{Loop: l, Hub: hub})

	r := chi.NewRouter()
	h.RegisterRoutes(r, func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(
				middleware.WithPrincipal(r.Context(), adminPrincipal()),
			))
		})
	})

	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/console/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	assert.Equal(t, EventConnected, readMessage(t, conn).Type)

	first := readMessage(t, conn)
	require.Equal(t, EventRender, first.Type)
	var snap Snapshot
	require.NoError(t, json.Unmarshal(first.Data, &snap))
	assert.Equal(t, uint64(1), snap.Generation)

	require.Eventually(t, func() bool {
		return hub.TotalClients() == 1
	}, time.Second, 5*time.Millisecond)

	_, err = l.SetMembership(t.Context(), "u1", "premium")
	require.NoError(t, err)

	next := readMessage(t, conn)
	require.Equal(t, EventRender, next.Type)
	require.NoError(t, json.Unmarshal(next.Data, &snap))
	assert.Equal(t, uint64(2), snap.Generation)
	assert.Equal(t, "premium", snap.Users[0].MembershipType)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	assert.Equal(t, EventPong, readMessage(t, conn).Type)

	cancel()
	require.Eventually(t, func() bool {
		return hub.TotalClients() == 0
	}, time.Second, 5*time.Millisecond)
}
