package handlers_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialNovel(t *testing.T, server *httptest.Server, novelID uint, token string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + fmt.Sprintf("/api/novela/%d/ws", novelID)

	header := http.Header{}
	header.Set("auth-token", token)
	header.Set("Origin", "http://localhost:3000")

	conn, _, err := websocket.DefaultDialer.Dial(url, header)

	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}

	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestChapterBroadcastReachesSubscriber(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin("validnick", "a@b.com", "secret1")
	id := env.createNovelID(token, "Novela retransmitida")

	server := httptest.NewServer(env.router)
	defer server.Close()

	conn := dialNovel(t, server, id, token)

	// Let the handler register the subscriber before publishing.
	time.Sleep(50 * time.Millisecond)

	if rec := env.addChapter(token, id, "Capítulo emitido", "contenido"); rec.Code != http.StatusOK {
		t.Fatalf("failed to publish chapter: %d %s", rec.Code, rec.Body.String())
	}

	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("failed to set read deadline: %v", err)
	}

	var event map[string]interface{}

	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("no broadcast received: %v", err)
	}

	if event["type"] != "nuevo_capitulo" {
		t.Errorf("unexpected event type %v", event["type"])
	}

	if event["novela"] != "Novela retransmitida" || event["numero"].(float64) != 1 {
		t.Errorf("unexpected event payload: %v", event)
	}
}

// A subscriber that only pongs must stay connected and keep receiving
// broadcasts: the hub pings on a period shorter than the read deadline.
func TestSubscriberSurvivesIdlePeriods(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin("validnick", "a@b.com", "secret1")
	id := env.createNovelID(token, "Novela de lectores pacientes")

	server := httptest.NewServer(env.router)
	defer server.Close()

	conn := dialNovel(t, server, id, token)

	time.Sleep(50 * time.Millisecond)

	// Idle beyond several write cycles, then publish; the subscriber must
	// still be registered.
	time.Sleep(200 * time.Millisecond)

	if rec := env.addChapter(token, id, "Capítulo tardío", "contenido"); rec.Code != http.StatusOK {
		t.Fatalf("failed to publish chapter: %d %s", rec.Code, rec.Body.String())
	}

	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("failed to set read deadline: %v", err)
	}

	var event map[string]interface{}

	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("idle subscriber was dropped: %v", err)
	}

	if event["titulo"] != "Capítulo tardío" {
		t.Errorf("unexpected event payload: %v", event)
	}
}
