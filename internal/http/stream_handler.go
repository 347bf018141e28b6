package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"persona-board/internal/domain"
	"persona-board/internal/feed"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// FeedStreamHandler expone el feed sincronizado por websocket. Cada conexion
// corre su propio Synchronizer: snapshot inicial, eventos en vivo y refresh
// a pedido.
//
// Mensajes servidor->cliente: snapshot, insert, update, delete, new_post,
// error. Mensajes cliente->servidor: self_post (tras crear un post por REST,
// para suprimir su banner) y refresh (pull-to-refresh).
type FeedStreamHandler struct {
	logger     *zap.Logger
	store      feed.Lister
	subscriber feed.Subscriber
}

func NewFeedStreamHandler(logger *zap.Logger, store feed.Lister, subscriber feed.Subscriber) *FeedStreamHandler {
	return &FeedStreamHandler{
		logger:     logger,
		store:      store,
		subscriber: subscriber,
	}
}

type streamMessage struct {
	Type   string        `json:"type"`
	Posts  []domain.Post `json:"posts,omitempty"`
	Post   *domain.Post  `json:"post,omitempty"`
	PostID string        `json:"post_id,omitempty"`
	Error  string        `json:"error,omitempty"`
}

type clientMessage struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
}

// Stream maneja GET /feed/stream.
func (h *FeedStreamHandler) Stream(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Suscribir antes del fetch inicial para no perder eventos en el medio.
	events, unsubscribe, err := h.subscriber.Subscribe(ctx)
	if err != nil {
		h.logger.Error("feed subscribe failed", zap.Error(err))
		h.send(ws, streamMessage{Type: "error", Error: "feed unavailable"})
		return
	}
	defer unsubscribe()

	sync := feed.NewSynchronizer(h.logger, h.store, claims.UserID)
	if err := sync.Start(ctx); err != nil {
		h.logger.Error("feed initial fetch failed", zap.Error(err))
		h.send(ws, streamMessage{Type: "error", Error: "could not load feed"})
		return
	}
	if err := h.send(ws, streamMessage{Type: "snapshot", Posts: sync.Posts()}); err != nil {
		return
	}

	incoming := make(chan clientMessage)
	go func() {
		defer cancel()
		for {
			var msg clientMessage
			if err := ws.ReadJSON(&msg); err != nil {
				return
			}
			select {
			case incoming <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, open := <-events:
			if !open {
				return
			}
			changed, banner := sync.Apply(ev)
			if changed {
				if err := h.send(ws, eventMessage(ev)); err != nil {
					return
				}
			}
			if banner {
				post := ev.Post
				if err := h.send(ws, streamMessage{Type: "new_post", Post: &post}); err != nil {
					return
				}
			}

		case msg := <-incoming:
			switch msg.Type {
			case "self_post":
				sync.MarkSelfPost(msg.ID)
			case "refresh":
				if err := sync.Refresh(ctx); err != nil {
					// La vista previa sigue intacta; solo se reporta la falla.
					if err := h.send(ws, streamMessage{Type: "error", Error: "refresh failed"}); err != nil {
						return
					}
					continue
				}
				if err := h.send(ws, streamMessage{Type: "snapshot", Posts: sync.Posts()}); err != nil {
					return
				}
			default:
				h.logger.Warn("unknown stream client message", zap.String("type", msg.Type))
			}
		}
	}
}

func eventMessage(ev feed.Event) streamMessage {
	if ev.Type == feed.EventDelete {
		return streamMessage{Type: string(ev.Type), PostID: ev.Post.ID}
	}
	post := ev.Post
	return streamMessage{Type: string(ev.Type), Post: &post}
}

func (h *FeedStreamHandler) send(ws *websocket.Conn, msg streamMessage) error {
	if err := ws.WriteJSON(msg); err != nil {
		h.logger.Info("websocket client gone", zap.Error(err))
		return err
	}
	return nil
}
