package flows

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cambiobot/internal/domain"
	"cambiobot/internal/session"
	"cambiobot/internal/storage"
)

// MethodsFlow registers a new payout destination: rail, nickname, details.
type MethodsFlow struct {
	methods MethodStore
	sender  Sender
}

// NewMethodsFlow builds the payment methods flow.
func NewMethodsFlow(methods MethodStore, sender Sender) *MethodsFlow {
	return &MethodsFlow{methods: methods, sender: sender}
}

func (f *MethodsFlow) Name() session.Flow { return session.FlowMethods }

func (f *MethodsFlow) Start(ctx context.Context, s *session.Session, _ Message) error {
	existing, err := f.methods.ByUser(ctx, s.UserID)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		var b strings.Builder
		b.WriteString("💳 Tus métodos de pago:\n")
		for _, m := range existing {
			fmt.Fprintf(&b, "\n• %s (%s)", m.Nickname, m.Type)
		}
		if err := f.sender.Send(ctx, s.UserID, b.String(), nil); err != nil {
			return err
		}
	}

	s.Begin(session.FlowMethods, session.StepMethodType)
	return f.sender.Send(ctx, s.UserID,
		"💳 ¡Vamos a registrar un método de pago! ¿Qué tipo de cuenta deseas agregar?",
		[][]string{
			{string(domain.MethodPayPal), string(domain.MethodZinli)},
			{string(domain.MethodPagoMovil)},
		},
	)
}

func (f *MethodsFlow) Handle(ctx context.Context, s *session.Session, msg Message) error {
	switch s.Step {
	case session.StepMethodType:
		choice := domain.MethodType(strings.TrimSpace(msg.Text))
		switch choice {
		case domain.MethodPayPal, domain.MethodZinli, domain.MethodPagoMovil:
		default:
			return f.sender.Send(ctx, s.UserID, "Por favor, selecciona un tipo de cuenta del teclado.", nil)
		}
		s.MethodType = string(choice)
		s.Step = session.StepMethodNickname
		return f.sender.Send(ctx, s.UserID,
			"✏️ Dale un apodo a esta cuenta para reconocerla después (ej: \"Mi Zinli personal\"):", nil)

	case session.StepMethodNickname:
		nickname := strings.TrimSpace(msg.Text)
		if nickname == "" {
			return f.sender.Send(ctx, s.UserID, "❌ El apodo no puede estar vacío. Inténtalo de nuevo.", nil)
		}
		s.MethodNickname = nickname
		s.Step = session.StepMethodDetails
		return f.sender.Send(ctx, s.UserID, f.detailsPrompt(domain.MethodType(s.MethodType)), nil)

	case session.StepMethodDetails:
		details := strings.TrimSpace(msg.Text)
		if details == "" {
			return f.sender.Send(ctx, s.UserID, "❌ Los datos de la cuenta no pueden estar vacíos. Inténtalo de nuevo.", nil)
		}

		method := &domain.PaymentMethod{
			UserTelegramID: s.UserID,
			Type:           domain.MethodType(s.MethodType),
			Nickname:       s.MethodNickname,
			Details:        details,
		}
		if _, err := f.methods.Create(ctx, method); err != nil {
			if errors.Is(err, storage.ErrNicknameTaken) {
				s.Step = session.StepMethodNickname
				return f.sender.Send(ctx, s.UserID,
					"⚠️ Ya tienes una cuenta con ese apodo. Elige otro:", nil)
			}
			s.EndFlow()
			sendErr := f.sender.Send(ctx, s.UserID,
				"❌ No pude guardar tu método de pago. Inténtalo de nuevo más tarde.", MainKeyboard)
			if sendErr != nil {
				return sendErr
			}
			return err
		}

		s.EndFlow()
		return f.sender.Send(ctx, s.UserID,
			"✅ ¡Método de pago guardado! Ya puedes usarlo en tus operaciones de cambio.", MainKeyboard)

	default:
		return nil
	}
}

func (f *MethodsFlow) detailsPrompt(t domain.MethodType) string {
	switch t {
	case domain.MethodPagoMovil:
		return "🏦 Ahora escribe los datos de tu PagoMovil (teléfono, cédula y banco):"
	default:
		return "📧 Ahora escribe el correo asociado a la cuenta:"
	}
}
