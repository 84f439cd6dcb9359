package flows

import (
	"context"
	"regexp"
	"strings"

	"cambiobot/internal/domain"
	"cambiobot/internal/session"
)

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe = regexp.MustCompile(`^(0412|0414|0424)\d{7}$`)
)

// RegisterFlow collects name, email, and phone, then creates the user.
type RegisterFlow struct {
	users  UserStore
	sender Sender
}

// NewRegisterFlow builds the registration flow.
func NewRegisterFlow(users UserStore, sender Sender) *RegisterFlow {
	return &RegisterFlow{users: users, sender: sender}
}

func (f *RegisterFlow) Name() session.Flow { return session.FlowRegister }

func (f *RegisterFlow) Start(ctx context.Context, s *session.Session, _ Message) error {
	s.Begin(session.FlowRegister, session.StepRegisterName)
	return f.sender.Send(ctx, s.UserID, "👋 ¡Hola! Por favor, escribe tu nombre completo:", nil)
}

func (f *RegisterFlow) Handle(ctx context.Context, s *session.Session, msg Message) error {
	switch s.Step {
	case session.StepRegisterName:
		name := strings.TrimSpace(msg.Text)
		if name == "" {
			return f.sender.Send(ctx, s.UserID, "❌ Por favor, escribe tu nombre completo.", nil)
		}
		s.FullName = name
		s.Step = session.StepRegisterEmail
		return f.sender.Send(ctx, s.UserID, "📧 ¡Excelente! Ahora, ingresa tu correo electrónico.", nil)

	case session.StepRegisterEmail:
		email := strings.TrimSpace(msg.Text)
		if !emailRe.MatchString(email) {
			return f.sender.Send(ctx, s.UserID, "❌ Por favor, ingresa un correo electrónico válido (ej: usuario@correo.com).", nil)
		}
		s.Email = email
		s.Step = session.StepRegisterPhone
		return f.sender.Send(ctx, s.UserID, "📱 ¡Ya casi terminamos! Ingresa tu número de teléfono.", nil)

	case session.StepRegisterPhone:
		phone := strings.TrimSpace(msg.Text)
		if !phoneRe.MatchString(phone) {
			return f.sender.Send(ctx, s.UserID, "❌ Por favor, ingresa un número de teléfono válido (por ejemplo: 04141234567).", nil)
		}

		user := &domain.User{
			TelegramID: s.UserID,
			Username:   orNA(msg.Username),
			FirstName:  orNA(msg.FirstName),
			LastName:   orNA(msg.LastName),
			Email:      s.Email,
			Phone:      phone,
		}
		if _, err := f.users.Create(ctx, user); err != nil {
			s.EndFlow()
			sendErr := f.sender.Send(ctx, s.UserID, "❌ No pude completar tu registro. Inténtalo de nuevo más tarde.", UnregisteredKeyboard)
			if sendErr != nil {
				return sendErr
			}
			return err
		}

		s.EndFlow()
		return f.sender.Send(ctx, s.UserID, "✅ ¡Registro completado! 🎉 Gracias por unirte.", MainKeyboard)

	default:
		return nil
	}
}

func orNA(v string) string {
	if strings.TrimSpace(v) == "" {
		return "N/A"
	}
	return v
}
