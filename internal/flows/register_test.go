package flows

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cambiobot/internal/session"
)

type registerEnv struct {
	engine *Engine
	store  session.Store
	sender *fakeSender
	users  *fakeUsers
}

func newRegisterEnv(t *testing.T) *registerEnv {
	t.Helper()
	env := &registerEnv{
		store:  session.NewMemoryStore(),
		sender: &fakeSender{},
		users:  &fakeUsers{},
	}
	env.engine = NewEngine(env.store)
	env.engine.Register(NewRegisterFlow(env.users, env.sender))
	return env
}

func (env *registerEnv) say(t *testing.T, msg Message) {
	t.Helper()
	handled, err := env.engine.Handle(context.Background(), userID, msg)
	require.NoError(t, err)
	require.True(t, handled)
}

func TestRegisterHappyPath(t *testing.T) {
	env := newRegisterEnv(t)
	require.NoError(t, env.engine.StartFlow(context.Background(), userID, session.FlowRegister, Message{}))

	env.say(t, Message{Text: "Juan Pérez"})
	env.say(t, Message{Text: "juan@correo.com"})
	env.say(t, Message{
		Text:      "04141234567",
		Username:  "juanp",
		FirstName: "Juan",
		LastName:  "Pérez",
	})

	require.Len(t, env.users.created, 1)
	u := env.users.created[0]
	assert.Equal(t, userID, u.TelegramID)
	assert.Equal(t, "juanp", u.Username)
	assert.Equal(t, "juan@correo.com", u.Email)
	assert.Equal(t, "04141234567", u.Phone)

	assert.True(t, env.sender.sawText("¡Registro completado!"))
	s := mustSession(t, env.store, userID)
	assert.False(t, s.InFlow())
}

func TestRegisterFillsMissingProfileFields(t *testing.T) {
	env := newRegisterEnv(t)
	require.NoError(t, env.engine.StartFlow(context.Background(), userID, session.FlowRegister, Message{}))

	env.say(t, Message{Text: "Ana"})
	env.say(t, Message{Text: "ana@correo.com"})
	env.say(t, Message{Text: "04241234567", FirstName: "Ana"})

	require.Len(t, env.users.created, 1)
	u := env.users.created[0]
	assert.Equal(t, "N/A", u.Username)
	assert.Equal(t, "N/A", u.LastName)
}

func TestRegisterValidatesEmail(t *testing.T) {
	env := newRegisterEnv(t)
	require.NoError(t, env.engine.StartFlow(context.Background(), userID, session.FlowRegister, Message{}))

	env.say(t, Message{Text: "Juan"})
	env.say(t, Message{Text: "no-es-un-correo"})

	s := mustSession(t, env.store, userID)
	assert.Equal(t, session.StepRegisterEmail, s.Step, "invalid email does not advance")
	assert.True(t, env.sender.sawText("correo electrónico válido"))
}

func TestRegisterValidatesPhonePrefix(t *testing.T) {
	env := newRegisterEnv(t)
	require.NoError(t, env.engine.StartFlow(context.Background(), userID, session.FlowRegister, Message{}))

	env.say(t, Message{Text: "Juan"})
	env.say(t, Message{Text: "juan@correo.com"})

	for _, bad := range []string{"04161234567", "0414123", "441412345678", "texto"} {
		env.say(t, Message{Text: bad})
		s := mustSession(t, env.store, userID)
		assert.Equal(t, session.StepRegisterPhone, s.Step, "phone %q should be rejected", bad)
	}
	assert.Empty(t, env.users.created)
}

func TestRegisterStoreFailureEndsFlow(t *testing.T) {
	env := newRegisterEnv(t)
	env.users.createErr = errors.New("db down")
	require.NoError(t, env.engine.StartFlow(context.Background(), userID, session.FlowRegister, Message{}))

	env.say(t, Message{Text: "Juan"})
	env.say(t, Message{Text: "juan@correo.com"})

	handled, err := env.engine.Handle(context.Background(), userID, Message{Text: "04121234567"})
	require.True(t, handled)
	assert.Error(t, err)

	s := mustSession(t, env.store, userID)
	assert.False(t, s.InFlow(), "failed registration does not trap the user")
}
