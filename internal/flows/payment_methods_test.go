package flows

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cambiobot/internal/domain"
	"cambiobot/internal/session"
)

type methodsEnv struct {
	engine  *Engine
	store   session.Store
	sender  *fakeSender
	methods *fakeMethods
}

func newMethodsEnv(t *testing.T) *methodsEnv {
	t.Helper()
	env := &methodsEnv{
		store:   session.NewMemoryStore(),
		sender:  &fakeSender{},
		methods: &fakeMethods{},
	}
	env.engine = NewEngine(env.store)
	env.engine.Register(NewMethodsFlow(env.methods, env.sender))
	return env
}

func (env *methodsEnv) say(t *testing.T, text string) {
	t.Helper()
	handled, err := env.engine.Handle(context.Background(), userID, Message{Text: text})
	require.NoError(t, err)
	require.True(t, handled)
}

func TestMethodsHappyPath(t *testing.T) {
	env := newMethodsEnv(t)
	require.NoError(t, env.engine.StartFlow(context.Background(), userID, session.FlowMethods, Message{}))

	env.say(t, "Zinli")
	env.say(t, "Mi Zinli personal")
	env.say(t, "zinli@correo.com")

	require.Len(t, env.methods.created, 1)
	m := env.methods.created[0]
	assert.Equal(t, userID, m.UserTelegramID)
	assert.Equal(t, domain.MethodZinli, m.Type)
	assert.Equal(t, "Mi Zinli personal", m.Nickname)
	assert.Equal(t, "zinli@correo.com", m.Details)

	s := mustSession(t, env.store, userID)
	assert.False(t, s.InFlow())
	assert.True(t, env.sender.sawText("¡Método de pago guardado!"))
}

func TestMethodsRejectsUnknownType(t *testing.T) {
	env := newMethodsEnv(t)
	require.NoError(t, env.engine.StartFlow(context.Background(), userID, session.FlowMethods, Message{}))

	env.say(t, "Bitcoin")

	s := mustSession(t, env.store, userID)
	assert.Equal(t, session.StepMethodType, s.Step)
	assert.True(t, env.sender.sawText("selecciona un tipo de cuenta"))
}

func TestMethodsNicknameConflictRetries(t *testing.T) {
	env := newMethodsEnv(t)
	env.methods.nicknameTaken = true
	require.NoError(t, env.engine.StartFlow(context.Background(), userID, session.FlowMethods, Message{}))

	env.say(t, "PagoMovil")
	env.say(t, "Mi Banco")
	env.say(t, "0414, 12345678, BNC")

	s := mustSession(t, env.store, userID)
	assert.Equal(t, session.StepMethodNickname, s.Step, "conflict sends the user back to pick a nickname")
	assert.True(t, env.sender.sawText("Ya tienes una cuenta con ese apodo"))

	env.say(t, "Mi Banco 2")
	env.say(t, "0414, 12345678, BNC")

	require.Len(t, env.methods.created, 1)
	assert.Equal(t, "Mi Banco 2", env.methods.created[0].Nickname)

	s = mustSession(t, env.store, userID)
	assert.False(t, s.InFlow())
}

func TestMethodsPromptDependsOnType(t *testing.T) {
	env := newMethodsEnv(t)
	require.NoError(t, env.engine.StartFlow(context.Background(), userID, session.FlowMethods, Message{}))

	env.say(t, "PagoMovil")
	env.say(t, "Banco")

	assert.True(t, env.sender.sawText("teléfono, cédula y banco"))
}

func TestMethodsStartListsExistingMethods(t *testing.T) {
	env := newMethodsEnv(t)
	env.methods.list = []domain.PaymentMethod{
		{ID: 1, UserTelegramID: userID, Type: domain.MethodZinli, Nickname: "Mi Zinli"},
		{ID: 2, UserTelegramID: userID, Type: domain.MethodPagoMovil, Nickname: "Mi Banco"},
	}

	require.NoError(t, env.engine.StartFlow(context.Background(), userID, session.FlowMethods, Message{}))

	assert.True(t, env.sender.sawText("Tus métodos de pago"))
	assert.True(t, env.sender.sawText("Mi Zinli (Zinli)"))
	assert.True(t, env.sender.sawText("Mi Banco (PagoMovil)"))
	assert.Equal(t, "💳 ¡Vamos a registrar un método de pago! ¿Qué tipo de cuenta deseas agregar?",
		env.sender.last(t).text, "the type prompt still closes the start message")
}
