package feed

import (
	"context"

	"persona-board/internal/domain"
)

// EventType identifica el tipo de cambio sobre la tabla de posts.
type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
	EventDelete EventType = "delete"
)

// Event es una notificacion de cambio entregada a los clientes suscritos.
// Para deletes solo el ID del post viene garantizado.
type Event struct {
	Type EventType   `json:"type"`
	Post domain.Post `json:"post"`
}

// Publisher emite eventos de cambio del feed.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Subscriber entrega el stream de eventos en vivo. El canal se cierra al
// cancelar el contexto o al llamar la funcion de unsubscribe.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan Event, func(), error)
}

// Broker combina publicacion y suscripcion de eventos del feed.
type Broker interface {
	Publisher
	Subscriber
}

// Lister es la capacidad de bulk-fetch del feed (newest-first).
type Lister interface {
	List(ctx context.Context) ([]domain.Post, error)
}
