package handlers

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/librenovela/librenovela/internal/apperrors"
	"github.com/librenovela/librenovela/internal/models"
	"github.com/librenovela/librenovela/internal/utils"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// NovelHub tracks websocket readers subscribed per novel and pushes a
// message whenever a new chapter is published.
type NovelHub struct {
	origins []string

	mu      sync.RWMutex
	readers map[uint]map[*websocket.Conn]bool
}

func NewNovelHub(origins []string) *NovelHub {
	return &NovelHub{
		origins: origins,
		readers: make(map[uint]map[*websocket.Conn]bool),
	}
}

// BroadcastChapter notifies every reader subscribed to the novel.
func (h *NovelHub) BroadcastChapter(novel *models.Novel, chapter *models.Chapter) {
	h.mu.RLock()
	conns, exists := h.readers[novel.ID]
	if !exists || len(conns) == 0 {
		h.mu.RUnlock()
		return
	}

	// Copy so the lock is not held while writing to sockets.
	connsCopy := make([]*websocket.Conn, 0, len(conns))
	for conn := range conns {
		connsCopy = append(connsCopy, conn)
	}
	h.mu.RUnlock()

	for _, conn := range connsCopy {
		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			log.Printf("Failed to set write deadline for broadcast: %v", err)
			continue
		}

		err := conn.WriteJSON(map[string]interface{}{
			"type":   "nuevo_capitulo",
			"novela": novel.Title,
			"numero": chapter.Number,
			"titulo": chapter.Title,
		})

		if err != nil {
			log.Printf("Failed to broadcast chapter to reader: %v", err)
			h.remove(novel.ID, conn)
			conn.Close()
		}
	}
}

// Subscribe upgrades the request and keeps the connection registered until
// the reader goes away.
func (h *NovelHub) Subscribe(ctx *gin.Context) {
	id, err := parseID(ctx.Param("id"))

	if err != nil {
		utils.Fail(ctx, err)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			for _, allowed := range h.origins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)

	if err != nil {
		utils.Fail(ctx, apperrors.Validation("No se pudo abrir la conexión"))
		return
	}

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Printf("Failed to set initial read deadline: %v", err)
		conn.Close()
		return
	}
	conn.SetPongHandler(func(string) error {
		if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			log.Printf("Failed to set read deadline in pong handler: %v", err)
		}
		return nil
	})

	h.mu.Lock()
	if h.readers[id] == nil {
		h.readers[id] = make(map[*websocket.Conn]bool)
	}
	h.readers[id][conn] = true
	h.mu.Unlock()

	defer func() {
		h.remove(id, conn)
		conn.Close()
	}()

	// Ping on a period shorter than pongWait so idle readers stay alive;
	// the pong handler above pushes the read deadline forward.
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	go func() {
		for range ticker.C {
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}()

	// Drain frames until the peer disconnects. Any inbound frame also
	// refreshes the deadline.
	for {
		if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			return
		}
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *NovelHub) remove(novelID uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, exists := h.readers[novelID]; exists {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.readers, novelID)
		}
	}
}
