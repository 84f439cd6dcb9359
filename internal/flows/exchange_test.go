package flows

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cambiobot/internal/domain"
	"cambiobot/internal/proof"
	"cambiobot/internal/session"
)

const userID = int64(777)

type exchangeEnv struct {
	engine     *Engine
	store      session.Store
	sender     *fakeSender
	rates      *fakeRates
	resolver   *fakeResolver
	downloader *fakeDownloader
	methods    *fakeMethods
	txs        *fakeTx
}

func newExchangeEnv(t *testing.T) *exchangeEnv {
	t.Helper()
	env := &exchangeEnv{
		store:      session.NewMemoryStore(),
		sender:     &fakeSender{},
		rates:      &fakeRates{rate: decimal.RequireFromString("40")},
		resolver:   &fakeResolver{result: proof.Result{Success: true, ReferenceID: "12345678"}},
		downloader: &fakeDownloader{dir: t.TempDir()},
		methods: &fakeMethods{list: []domain.PaymentMethod{
			{ID: 5, UserTelegramID: userID, Type: domain.MethodZinli, Nickname: "Mi Zinli"},
			{ID: 6, UserTelegramID: userID, Type: domain.MethodPagoMovil, Nickname: "Mi Banco"},
		}},
		txs: &fakeTx{},
	}
	env.engine = NewEngine(env.store)
	env.engine.Register(NewExchangeFlow(
		env.rates, env.resolver, env.downloader, env.methods, env.txs, env.sender,
		PaymentInstructions{PagoMovil: "Telefono: 0424", Wallet: "Correo: pagos@x.com", WhatsApp: "+58412"},
	))
	return env
}

func (env *exchangeEnv) start(t *testing.T) {
	t.Helper()
	require.NoError(t, env.engine.StartFlow(context.Background(), userID, session.FlowExchange, Message{}))
}

func (env *exchangeEnv) say(t *testing.T, text string) {
	t.Helper()
	handled, err := env.engine.Handle(context.Background(), userID, Message{Text: text})
	require.NoError(t, err)
	require.True(t, handled)
}

func (env *exchangeEnv) sendPhoto(t *testing.T, photoID string) {
	t.Helper()
	handled, err := env.engine.Handle(context.Background(), userID, Message{PhotoID: photoID})
	require.NoError(t, err)
	require.True(t, handled)
}

func TestExchangeBuyHappyPath(t *testing.T) {
	env := newExchangeEnv(t)
	env.start(t)

	s := mustSession(t, env.store, userID)
	assert.Equal(t, session.StepSelectDirection, s.Step)

	env.say(t, "📈 Comprar")
	env.say(t, "$20")

	assert.True(t, env.sender.sawText("Resumen de tu Operación"))
	assert.True(t, env.sender.sawText("$21.50"), "buy total adds the commission")
	assert.True(t, env.sender.sawText("860.00"), "Bs total uses the session rate")

	env.say(t, "👍 Sí, confirmar")
	last := env.sender.last(t)
	assert.Equal(t, [][]string{{"Mi Zinli"}}, last.kb, "buyers only see dollar wallets")

	env.say(t, "Mi Zinli")
	assert.True(t, env.sender.sawText("PagoMovil"), "buyers pay into the house PagoMovil")

	env.sendPhoto(t, "photo1")

	require.Len(t, env.txs.created, 1)
	tx := env.txs.created[0]
	assert.Equal(t, domain.DirectionBuy, tx.Direction)
	assert.True(t, tx.AmountUSD.Equal(decimal.RequireFromString("20")))
	assert.True(t, tx.CommissionUSD.Equal(decimal.RequireFromString("1.5")))
	assert.True(t, tx.TotalUSD.Equal(decimal.RequireFromString("21.5")))
	assert.True(t, tx.TotalBs.Equal(decimal.RequireFromString("860")))
	assert.Equal(t, int64(5), tx.MethodID)
	assert.Equal(t, "12345678", tx.Reference)
	assert.Equal(t, domain.StatusPending, tx.Status)

	s = mustSession(t, env.store, userID)
	assert.False(t, s.InFlow(), "flow ends after settlement")

	_, err := os.Stat(env.downloader.lastPath)
	assert.True(t, os.IsNotExist(err), "temp proof image is removed")
}

func TestExchangeSellUsesPagoMovilMethods(t *testing.T) {
	env := newExchangeEnv(t)
	env.start(t)

	env.say(t, "📉 Vender")
	env.say(t, "$20")
	assert.True(t, env.sender.sawText("$19.00"), "sell total deducts the commission")

	env.say(t, "👍 Sí, confirmar")
	last := env.sender.last(t)
	assert.Equal(t, [][]string{{"Mi Banco"}}, last.kb, "sellers receive bolivars")

	env.say(t, "Mi Banco")
	assert.True(t, env.sender.sawText("Cuenta"), "sellers pay into the house wallet")
}

func TestExchangeOtherAmount(t *testing.T) {
	env := newExchangeEnv(t)
	env.start(t)

	env.say(t, "📈 Comprar")
	env.say(t, "Otro monto")

	s := mustSession(t, env.store, userID)
	assert.Equal(t, session.StepCustomAmount, s.Step)

	env.say(t, "no es un numero")
	s = mustSession(t, env.store, userID)
	assert.Equal(t, session.StepCustomAmount, s.Step, "invalid amount does not advance")

	env.say(t, "42")
	s = mustSession(t, env.store, userID)
	assert.Equal(t, session.StepConfirmQuote, s.Step)
	assert.True(t, s.AmountUSD.Equal(decimal.RequireFromString("42")))
}

func TestExchangeCancelAtConfirmation(t *testing.T) {
	env := newExchangeEnv(t)
	env.start(t)

	env.say(t, "📈 Comprar")
	env.say(t, "$5")
	env.say(t, "👎 No, cancelar")

	assert.True(t, env.sender.sawText("Operación cancelada"))
	s := mustSession(t, env.store, userID)
	assert.False(t, s.InFlow())
	assert.Empty(t, env.txs.created)
}

func TestExchangeAbortsWithoutPayoutMethod(t *testing.T) {
	env := newExchangeEnv(t)
	env.methods.list = nil
	env.start(t)

	env.say(t, "📈 Comprar")
	env.say(t, "$5")
	env.say(t, "👍 Sí, confirmar")

	assert.True(t, env.sender.sawText("Mis Métodos de Pago"))
	s := mustSession(t, env.store, userID)
	assert.False(t, s.InFlow())
}

func TestExchangeRateFailureEndsFlow(t *testing.T) {
	env := newExchangeEnv(t)
	env.rates.err = errors.New("feed down")

	env.start(t)

	assert.True(t, env.sender.sawText("tasa del dólar"))
	assert.True(t, env.sender.sawText("+58412"), "fallback mentions the WhatsApp contact")
	s := mustSession(t, env.store, userID)
	assert.False(t, s.InFlow())
}

func TestExchangeProofFallsBackToManualReference(t *testing.T) {
	env := newExchangeEnv(t)
	env.resolver.result = proof.Result{}

	env.start(t)
	env.say(t, "📈 Comprar")
	env.say(t, "$20")
	env.say(t, "👍 Sí, confirmar")
	env.say(t, "Mi Zinli")
	env.sendPhoto(t, "photo2")

	s := mustSession(t, env.store, userID)
	assert.Equal(t, session.FlowExchange, s.Flow, "flow survives the OCR miss")
	assert.Equal(t, session.StepManualReference, s.Step)
	assert.Empty(t, env.txs.created)

	_, err := os.Stat(env.downloader.lastPath)
	assert.True(t, os.IsNotExist(err), "temp image is removed even on the fallback path")

	env.say(t, "ref con letras 123")
	s = mustSession(t, env.store, userID)
	assert.Equal(t, session.StepManualReference, s.Step, "non-numeric reference is rejected")

	env.say(t, "987654321")
	require.Len(t, env.txs.created, 1)
	assert.Equal(t, "987654321", env.txs.created[0].Reference)

	s = mustSession(t, env.store, userID)
	assert.False(t, s.InFlow())
}

func TestExchangeDownloadFailureFallsBackToManualReference(t *testing.T) {
	env := newExchangeEnv(t)
	env.downloader.err = errors.New("telegram unreachable")

	env.start(t)
	env.say(t, "📈 Comprar")
	env.say(t, "$20")
	env.say(t, "👍 Sí, confirmar")
	env.say(t, "Mi Zinli")
	env.sendPhoto(t, "photo3")

	s := mustSession(t, env.store, userID)
	assert.Equal(t, session.StepManualReference, s.Step)
}

func TestExchangeProofStepRequiresPhoto(t *testing.T) {
	env := newExchangeEnv(t)

	env.start(t)
	env.say(t, "📈 Comprar")
	env.say(t, "$20")
	env.say(t, "👍 Sí, confirmar")
	env.say(t, "Mi Zinli")
	env.say(t, "hola")

	assert.True(t, env.sender.sawText("envíame una imagen"))
	s := mustSession(t, env.store, userID)
	assert.Equal(t, session.StepAwaitProof, s.Step)
}

func TestEngineIgnoresUsersOutsideFlows(t *testing.T) {
	env := newExchangeEnv(t)

	handled, err := env.engine.Handle(context.Background(), userID, Message{Text: "hola"})
	require.NoError(t, err)
	assert.False(t, handled)
	assert.False(t, env.engine.InProgress(context.Background(), userID))
}

func TestEngineUnknownStepLeavesSessionUntouched(t *testing.T) {
	env := newExchangeEnv(t)
	ctx := context.Background()

	s := mustSession(t, env.store, userID)
	s.Begin(session.FlowExchange, session.Step("paso_viejo"))
	s.AmountUSD = decimal.RequireFromString("20")
	require.NoError(t, env.store.Save(ctx, s))

	handled, err := env.engine.Handle(ctx, userID, Message{Text: "hola"})
	require.NoError(t, err)
	assert.True(t, handled)

	after := mustSession(t, env.store, userID)
	assert.Equal(t, session.FlowExchange, after.Flow)
	assert.Equal(t, session.Step("paso_viejo"), after.Step)
	assert.True(t, after.AmountUSD.Equal(decimal.RequireFromString("20")))
	assert.Empty(t, env.sender.msgs)
}

func TestEngineResetsOrphanedFlow(t *testing.T) {
	env := newExchangeEnv(t)
	ctx := context.Background()

	s := mustSession(t, env.store, userID)
	s.Begin(session.Flow("flujo_retirado"), session.Step("alguno"))
	require.NoError(t, env.store.Save(ctx, s))

	handled, err := env.engine.Handle(ctx, userID, Message{Text: "hola"})
	require.NoError(t, err)
	assert.False(t, handled)

	after := mustSession(t, env.store, userID)
	assert.False(t, after.InFlow(), "a flow with no registered handler is dropped")
}
