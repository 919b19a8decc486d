package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/metapool/metapool/internal/store"
	wsHub "github.com/metapool/metapool/internal/ws"
	"github.com/metapool/metapool/pkg/types"
)

// --- helpers ----------------------------------------------------------------

func newStore(t *testing.T, runs ...types.Run) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	for _, run := range runs {
		if err := st.Put(run); err != nil {
			t.Fatalf("put run %s: %v", run.ID, err)
		}
	}
	return st
}

func run(id string, createdAt time.Time) types.Run {
	return types.Run{
		ID:        id,
		Label:     "trial batch",
		Dataset:   "studies.csv",
		CreatedAt: createdAt,
		Effects: []types.Effect{
			{Study: types.Study{Author: "Franks", Year: 2007, NTx: 32, NCont: 30}, G: 0.274, Variance: 0.0652},
		},
		Summary: types.Summary{Effect: 0.274, SE: 0.255, Level: 0.95, K: 1, Degenerate: true},
	}
}

// startHub starts a test HTTP server with the hub as its handler.
// The hub's Run loop is started with a cancellable context.
// Returns the ws:// URL, the hub, and a cleanup function.
func startHub(t *testing.T, st *store.Store) (wsURL string, hub *wsHub.Hub, cancel func()) {
	t.Helper()

	hub = wsHub.New(st)
	ctx, cancelFn := context.WithCancel(context.Background())

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	go hub.Run(ctx)

	t.Cleanup(func() {
		cancelFn()
		srv.Close()
	})

	wsURL = "ws" + strings.TrimPrefix(srv.URL, "http")
	return wsURL, hub, cancelFn
}

// dial connects a WebSocket client to wsURL and returns the connection.
func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readMessage reads one text message from conn with a short deadline.
func readMessage(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	return msg
}

// --- tests ------------------------------------------------------------------

func TestHub_Connect_ReceivesLatestRun(t *testing.T) {
	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	st := newStore(t, run("run-1", at), run("run-2", at.Add(time.Minute)))
	wsURL, _, _ := startHub(t, st)

	conn := dial(t, wsURL)
	msg := readMessage(t, conn)

	var m map[string]interface{}
	if err := json.Unmarshal(msg, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["event"] != "run" {
		t.Errorf("event: got %v, want run", m["event"])
	}
	data, ok := m["data"].(map[string]interface{})
	if !ok {
		t.Fatal("data: missing or wrong type")
	}
	if data["id"] != "run-2" {
		t.Errorf("id: got %v, want run-2 (latest)", data["id"])
	}
}

func TestHub_Broadcast_AllClientsReceive(t *testing.T) {
	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	wsURL, hub, _ := startHub(t, newStore(t, run("run-1", at)))

	conns := make([]*websocket.Conn, 3)
	for i := 0; i < 3; i++ {
		conns[i] = dial(t, wsURL)
		readMessage(t, conns[i]) // consume latest-on-connect message
	}
	time.Sleep(10 * time.Millisecond) // let the hub register all clients

	hub.Broadcast(run("run-2", at.Add(time.Minute)))

	for i, conn := range conns {
		msg := readMessage(t, conn)
		var m map[string]interface{}
		if err := json.Unmarshal(msg, &m); err != nil {
			t.Errorf("client %d: unmarshal: %v", i, err)
			continue
		}
		data := m["data"].(map[string]interface{})
		if data["id"] != "run-2" {
			t.Errorf("client %d: id: got %v, want run-2", i, data["id"])
		}
	}
}

func TestHub_EmptyStore_NoMessageOnConnect(t *testing.T) {
	wsURL, hub, _ := startHub(t, newStore(t))

	conn := dial(t, wsURL)
	time.Sleep(10 * time.Millisecond)

	// Nothing stored yet — the first frame arrives with the first Broadcast.
	hub.Broadcast(run("run-1", time.Now().UTC()))
	msg := readMessage(t, conn)

	var m map[string]interface{}
	json.Unmarshal(msg, &m) //nolint:errcheck
	data := m["data"].(map[string]interface{})
	if data["id"] != "run-1" {
		t.Errorf("id: got %v, want run-1", data["id"])
	}
}

func TestHub_MessageCarriesSummary(t *testing.T) {
	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	wsURL, _, _ := startHub(t, newStore(t, run("run-1", at)))

	conn := dial(t, wsURL)
	msg := readMessage(t, conn)

	var m wsHub.Message
	if err := json.Unmarshal(msg, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.Data.Summary.Effect != 0.274 {
		t.Errorf("summary effect: got %v, want 0.274", m.Data.Summary.Effect)
	}
	if !m.Data.Summary.Degenerate {
		t.Error("degenerate flag lost in transit")
	}
}

func TestHub_CountClients_SingleClient(t *testing.T) {
	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	wsURL, hub, _ := startHub(t, newStore(t, run("run-1", at)))

	conn := dial(t, wsURL)
	readMessage(t, conn) // consume initial message

	// Give the hub a moment to register the client.
	time.Sleep(10 * time.Millisecond)
	if n := hub.Count(); n != 1 {
		t.Errorf("Count: got %d, want 1", n)
	}
}

func TestHub_CountClients_DecreasesOnDisconnect(t *testing.T) {
	wsURL, hub, _ := startHub(t, newStore(t))

	conn := dial(t, wsURL)
	time.Sleep(10 * time.Millisecond)

	if n := hub.Count(); n != 1 {
		t.Errorf("Count before disconnect: got %d, want 1", n)
	}

	conn.Close()
	time.Sleep(50 * time.Millisecond) // let readPump detect the close

	if n := hub.Count(); n != 0 {
		t.Errorf("Count after disconnect: got %d, want 0", n)
	}
}

func TestHub_CancelContextClosesConnections(t *testing.T) {
	wsURL, hub, cancel := startHub(t, newStore(t))

	dial(t, wsURL)
	time.Sleep(10 * time.Millisecond)

	cancel() // signal shutdown

	// After cancel, hub should close all clients.
	time.Sleep(50 * time.Millisecond)
	if n := hub.Count(); n != 0 {
		t.Errorf("Count after cancel: got %d, want 0", n)
	}
}

func TestHub_NonWebSocketRequest_Returns400(t *testing.T) {
	hub := wsHub.New(newStore(t))
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	defer srv.Close()

	// Plain HTTP GET without WebSocket upgrade headers → 400
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", resp.StatusCode)
	}
}
