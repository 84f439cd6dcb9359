package flows

import (
	"context"

	"cambiobot/internal/domain"
	"cambiobot/internal/session"
)

// Message is the transport-independent shape of an incoming update.
// PhotoID is set when the user sent a photo, Text carries the caption then.
type Message struct {
	Text      string
	PhotoID   string
	Username  string
	FirstName string
	LastName  string
}

// Sender delivers outgoing messages. A nil keyboard keeps the current one,
// an empty keyboard is not a thing in this bot, flows always swap keyboards
// explicitly.
type Sender interface {
	Send(ctx context.Context, userID int64, text string, keyboard [][]string) error
}

// Downloader fetches a Telegram photo to a local temp file and returns its path.
type Downloader interface {
	Download(ctx context.Context, photoID string) (string, error)
}

// UserStore is the slice of user persistence the flows need.
type UserStore interface {
	Exists(ctx context.Context, telegramID int64) (bool, error)
	Create(ctx context.Context, u *domain.User) (*domain.User, error)
}

// MethodStore is the slice of payment method persistence the flows need.
type MethodStore interface {
	Create(ctx context.Context, m *domain.PaymentMethod) (*domain.PaymentMethod, error)
	ByUser(ctx context.Context, telegramID int64) ([]domain.PaymentMethod, error)
	ByUserAndTypes(ctx context.Context, telegramID int64, types []domain.MethodType) ([]domain.PaymentMethod, error)
}

// TxStore records settled transactions.
type TxStore interface {
	Create(ctx context.Context, t *domain.Transaction) (*domain.Transaction, error)
}

// Handler is one conversational flow. Start puts the session at the first
// step, Handle advances it using the incoming message.
type Handler interface {
	Name() session.Flow
	Start(ctx context.Context, s *session.Session, msg Message) error
	Handle(ctx context.Context, s *session.Session, msg Message) error
}

// Keyboards shown outside of flows.
var (
	MainKeyboard = [][]string{
		{"💹 Realizar Cambio", "📜 Mi Historial"},
		{"💳 Mis Métodos de Pago", "ℹ️ Ayuda"},
	}
	UnregisteredKeyboard = [][]string{
		{"👤 Registrarme"},
	}
)
