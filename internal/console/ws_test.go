package console

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"fleet-console/internal/common/logger"
	"fleet-console/internal/domain"
)

func TestWSSendsCurrentViewOnConnect(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{view: boardView()})

	wsURL := strings.Replace(srv.URL, "http://", "ws://", 1) + "/api/v1/board/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var view domain.MergedView
	if err := conn.ReadJSON(&view); err != nil {
		t.Fatalf("read initial view: %v", err)
	}
	if len(view.Orders) != 3 {
		t.Errorf("initial view orders = %d, want 3", len(view.Orders))
	}
}

// Broadcasts from the reconcile goroutine and the initial frame of a newly
// opened connection target the same conn; gorilla allows one writer at a
// time, so the two must be serialized. Connect repeatedly under a broadcast
// storm and check every received frame is intact.
func TestWSInitialFrameSerializedWithBroadcast(t *testing.T) {
	engine := &fakeEngine{view: boardView()}
	lg := logger.New("console-test")
	h := NewHandler(engine, lg)
	hub := NewHub(engine, lg)
	hub.Run()
	t.Cleanup(hub.Close)

	srv := httptest.NewServer(Router(h, hub))
	t.Cleanup(srv.Close)
	wsURL := strings.Replace(srv.URL, "http://", "ws://", 1) + "/api/v1/board/ws"

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
				hub.broadcast(boardView())
			}
		}
	}()

	for i := 0; i < 20; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			t.Fatalf("dial %d: %v", i, err)
		}
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		for j := 0; j < 3; j++ {
			var view domain.MergedView
			if err := conn.ReadJSON(&view); err != nil {
				t.Fatalf("client %d frame %d: %v", i, j, err)
			}
			if len(view.Orders) != 3 {
				t.Fatalf("client %d frame %d corrupted: %d orders", i, j, len(view.Orders))
			}
		}
		_ = conn.Close()
	}

	close(stop)
	<-done
}

func TestWSBroadcastReachesClient(t *testing.T) {
	engine := &fakeEngine{view: boardView()}
	lg := logger.New("console-test")
	h := NewHandler(engine, lg)
	hub := NewHub(engine, lg)
	hub.Run()
	t.Cleanup(hub.Close)

	srv := httptest.NewServer(Router(h, hub))
	t.Cleanup(srv.Close)
	wsURL := strings.Replace(srv.URL, "http://", "ws://", 1) + "/api/v1/board/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var view domain.MergedView
	if err := conn.ReadJSON(&view); err != nil {
		t.Fatalf("read initial view: %v", err)
	}

	updated := boardView()
	updated.Orders = updated.Orders[:1]
	hub.broadcast(updated)

	if err := conn.ReadJSON(&view); err != nil {
		t.Fatalf("read broadcast: %v", err)
	}
	if len(view.Orders) != 1 {
		t.Errorf("broadcast orders = %d, want 1", len(view.Orders))
	}
}
