package flows

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"log/slog"

	"github.com/shopspring/decimal"

	"cambiobot/core/logger"
	"cambiobot/internal/domain"
	"cambiobot/internal/exchange"
	"cambiobot/internal/proof"
	"cambiobot/internal/rates"
	"cambiobot/internal/session"
)

var manualRefRe = regexp.MustCompile(`^\d+$`)

// PaymentInstructions are the house accounts shown to the user after they
// confirm a quote. Buyers pay bolivars into the PagoMovil account, sellers
// send balance to the wallet account.
type PaymentInstructions struct {
	PagoMovil string
	Wallet    string
	WhatsApp  string
}

// ExchangeFlow drives a buy or sell operation end to end: direction,
// amount, quote confirmation, payout method, and payment proof.
type ExchangeFlow struct {
	rates        rates.Provider
	resolver     proof.Resolver
	downloader   Downloader
	methods      MethodStore
	transactions TxStore
	sender       Sender
	instructions PaymentInstructions
}

// NewExchangeFlow wires the exchange flow dependencies.
func NewExchangeFlow(
	rateProvider rates.Provider,
	resolver proof.Resolver,
	downloader Downloader,
	methods MethodStore,
	transactions TxStore,
	sender Sender,
	instructions PaymentInstructions,
) *ExchangeFlow {
	return &ExchangeFlow{
		rates:        rateProvider,
		resolver:     resolver,
		downloader:   downloader,
		methods:      methods,
		transactions: transactions,
		sender:       sender,
		instructions: instructions,
	}
}

func (f *ExchangeFlow) Name() session.Flow { return session.FlowExchange }

func (f *ExchangeFlow) Start(ctx context.Context, s *session.Session, _ Message) error {
	rate, err := f.rates.Rate(ctx)
	if err != nil {
		logger.Warn(ctx, "flow.exchange", "rate.unavailable",
			slog.Int64("user_id", s.UserID),
			slog.String("err", err.Error()),
		)
		s.EndFlow()
		text := "❌ Error obteniendo la tasa del dólar. Intenta de nuevo en unos segundos"
		if f.instructions.WhatsApp != "" {
			text += ", si no deseas esperar guarda nuestro contacto y realiza la operación mediante nuestro WhatsApp " + f.instructions.WhatsApp
		}
		return f.sender.Send(ctx, s.UserID, text, MainKeyboard)
	}

	s.Begin(session.FlowExchange, session.StepSelectDirection)
	s.RateBs = rate
	return f.sender.Send(ctx, s.UserID,
		"🏦 ¡Bienvenido al módulo de cambio! ¿Qué operación deseas realizar hoy?",
		[][]string{{"📈 Comprar", "📉 Vender"}},
	)
}

func (f *ExchangeFlow) Handle(ctx context.Context, s *session.Session, msg Message) error {
	switch s.Step {
	case session.StepSelectDirection:
		return f.handleDirection(ctx, s, msg)
	case session.StepEnterAmount:
		return f.handleAmount(ctx, s, msg)
	case session.StepCustomAmount:
		return f.handleCustomAmount(ctx, s, msg)
	case session.StepConfirmQuote:
		return f.handleConfirm(ctx, s, msg)
	case session.StepSelectMethod:
		return f.handleSelectMethod(ctx, s, msg)
	case session.StepAwaitProof:
		return f.handleProof(ctx, s, msg)
	case session.StepManualReference:
		return f.handleManualReference(ctx, s, msg)
	default:
		return nil
	}
}

func (f *ExchangeFlow) handleDirection(ctx context.Context, s *session.Session, msg Message) error {
	if strings.Contains(msg.Text, "Comprar") {
		s.Direction = string(domain.DirectionBuy)
	} else {
		s.Direction = string(domain.DirectionSell)
	}
	s.Step = session.StepEnterAmount
	prompt := fmt.Sprintf("Perfecto. ¿Qué cantidad de saldo deseas %s?", strings.ToLower(s.Direction))
	return f.sender.Send(ctx, s.UserID, prompt, [][]string{
		{"$1", "$5", "$10"},
		{"$20", "$50", "$100"},
		{"Otro monto"},
	})
}

func (f *ExchangeFlow) handleAmount(ctx context.Context, s *session.Session, msg Message) error {
	if msg.Text == "Otro monto" {
		s.Step = session.StepCustomAmount
		return f.sender.Send(ctx, s.UserID, "Por favor, ingresa el monto en USD que deseas cambiar:", nil)
	}

	amount, err := parseAmount(msg.Text)
	if err != nil {
		return f.sender.Send(ctx, s.UserID, "Por favor, selecciona un monto válido del teclado.", nil)
	}
	s.AmountUSD = amount
	s.Step = session.StepConfirmQuote
	return f.sendQuote(ctx, s)
}

func (f *ExchangeFlow) handleCustomAmount(ctx context.Context, s *session.Session, msg Message) error {
	amount, err := parseAmount(msg.Text)
	if err != nil {
		return f.sender.Send(ctx, s.UserID, "Monto inválido. Por favor, ingresa un número mayor a cero.", nil)
	}
	s.AmountUSD = amount
	s.Step = session.StepConfirmQuote
	return f.sendQuote(ctx, s)
}

// sendQuote settles the quote, keeps it in the session, and asks the user
// to confirm.
func (f *ExchangeFlow) sendQuote(ctx context.Context, s *session.Session) error {
	quote, err := exchange.Settle(domain.Direction(s.Direction), s.AmountUSD, s.RateBs)
	if err != nil {
		s.EndFlow()
		sendErr := f.sender.Send(ctx, s.UserID, "❌ No pude calcular tu operación. Inténtalo de nuevo.", MainKeyboard)
		if sendErr != nil {
			return sendErr
		}
		return err
	}

	s.CommissionUSD = quote.CommissionUSD
	s.TotalUSD = quote.TotalUSD
	s.TotalBs = quote.TotalBs

	totalLabel := "a Pagar"
	if quote.Direction == domain.DirectionSell {
		totalLabel = "a Recibir"
	}

	summary := fmt.Sprintf(
		"🧾 Resumen de tu Operación 🧾\n\n"+
			"Acción: %s\n\n"+
			"💰 Monto: $%s USD\n"+
			"➖ Comisión: $%s USD\n\n"+
			"-------------------------------------\n"+
			"💵 Total %s (USD): $%s\n"+
			"🇻🇪 Total en Bs.: %s\n"+
			"-------------------------------------\n\n"+
			"¿Confirmas que los datos son correctos?",
		s.Direction,
		quote.AmountUSD.StringFixed(2),
		quote.CommissionUSD.StringFixed(2),
		totalLabel,
		quote.TotalUSD.StringFixed(2),
		quote.TotalBs.StringFixed(2),
	)

	return f.sender.Send(ctx, s.UserID, summary, [][]string{
		{"👍 Sí, confirmar", "👎 No, cancelar"},
	})
}

func (f *ExchangeFlow) handleConfirm(ctx context.Context, s *session.Session, msg Message) error {
	if !strings.Contains(msg.Text, "Sí") {
		s.EndFlow()
		return f.sender.Send(ctx, s.UserID,
			"❌ Operación cancelada. Si cambias de opinión, aquí estaré para ayudarte.", MainKeyboard)
	}

	required := domain.RequiredMethodType(domain.Direction(s.Direction))
	methods, err := f.methods.ByUserAndTypes(ctx, s.UserID, required)
	if err != nil {
		s.EndFlow()
		sendErr := f.sender.Send(ctx, s.UserID, "❌ No pude consultar tus métodos de pago. Inténtalo de nuevo.", MainKeyboard)
		if sendErr != nil {
			return sendErr
		}
		return err
	}
	if len(methods) == 0 {
		s.EndFlow()
		names := make([]string, len(required))
		for i, t := range required {
			names[i] = string(t)
		}
		return f.sender.Send(ctx, s.UserID, fmt.Sprintf(
			"⚠️ No tienes métodos de pago registrados para recibir fondos (%s).\n\nUsa 💳 Mis Métodos de Pago para agregar uno y vuelve a intentarlo.",
			strings.Join(names, " o ")), MainKeyboard)
	}

	s.Step = session.StepSelectMethod
	rows := make([][]string, len(methods))
	for i, m := range methods {
		rows[i] = []string{m.Nickname}
	}
	return f.sender.Send(ctx, s.UserID, "💳 ¿En cuál de tus métodos de pago deseas recibir los fondos?", rows)
}

func (f *ExchangeFlow) handleSelectMethod(ctx context.Context, s *session.Session, msg Message) error {
	required := domain.RequiredMethodType(domain.Direction(s.Direction))
	methods, err := f.methods.ByUserAndTypes(ctx, s.UserID, required)
	if err != nil {
		return f.sender.Send(ctx, s.UserID, "❌ No pude consultar tus métodos de pago. Inténtalo de nuevo.", nil)
	}

	choice := strings.TrimSpace(msg.Text)
	for _, m := range methods {
		if m.Nickname == choice {
			s.MethodID = m.ID
			s.Step = session.StepAwaitProof
			if err := f.sendHouseAccount(ctx, s); err != nil {
				return err
			}
			return f.sender.Send(ctx, s.UserID,
				"💸 ¡Genial! Para continuar, por favor, realiza el pago y envíame una captura de pantalla del comprobante.", nil)
		}
	}

	return f.sender.Send(ctx, s.UserID, "Por favor, selecciona uno de tus métodos de pago del teclado.", nil)
}

// sendHouseAccount tells the user where to pay. Buyers pay bolivars via
// PagoMovil, sellers transfer balance to the house wallet.
func (f *ExchangeFlow) sendHouseAccount(ctx context.Context, s *session.Session) error {
	if domain.Direction(s.Direction) == domain.DirectionBuy {
		if f.instructions.PagoMovil == "" {
			return nil
		}
		return f.sender.Send(ctx, s.UserID, "🧾 PagoMovil 🧾\n\n"+f.instructions.PagoMovil, nil)
	}
	if f.instructions.Wallet == "" {
		return nil
	}
	return f.sender.Send(ctx, s.UserID, "🧾 Cuenta 🧾\n\n"+f.instructions.Wallet, nil)
}

func (f *ExchangeFlow) handleProof(ctx context.Context, s *session.Session, msg Message) error {
	if msg.PhotoID == "" {
		return f.sender.Send(ctx, s.UserID, "Por favor, envíame una imagen del comprobante de pago.", nil)
	}

	if err := f.sender.Send(ctx, s.UserID, "🤖 Analizando tu comprobante... Esto puede tardar unos segundos.", nil); err != nil {
		return err
	}

	result, err := f.resolveProof(ctx, msg.PhotoID)
	if err != nil {
		logger.Warn(ctx, "flow.exchange", "proof.failed",
			slog.Int64("user_id", s.UserID),
			slog.String("err", err.Error()),
		)
		s.Step = session.StepManualReference
		return f.sender.Send(ctx, s.UserID,
			"⚠️ Hubo un problema al procesar el comprobante.\n"+
				"Pero no te preocupes, aún podemos continuar.\n\n"+
				"Por favor, escribe solo el número de referencia del pago.\n\n"+
				"Ejemplo: 1234567890", nil)
	}
	if !result.Success {
		s.Step = session.StepManualReference
		return f.sender.Send(ctx, s.UserID,
			"⚠️ No pude detectar automáticamente el número de referencia del comprobante.\n\n"+
				"Por favor, escribe solo el número de referencia tal como aparece en tu comprobante.\n\n"+
				"Ejemplo: 1234567890", nil)
	}

	return f.record(ctx, s, result.ReferenceID)
}

// resolveProof downloads the photo, runs the resolver, and always removes
// the temp file afterwards.
func (f *ExchangeFlow) resolveProof(ctx context.Context, photoID string) (proof.Result, error) {
	path, err := f.downloader.Download(ctx, photoID)
	if err != nil {
		return proof.Result{}, fmt.Errorf("download proof: %w", err)
	}
	defer os.Remove(path)

	return f.resolver.Resolve(ctx, path)
}

func (f *ExchangeFlow) handleManualReference(ctx context.Context, s *session.Session, msg Message) error {
	ref := strings.TrimSpace(msg.Text)
	if !manualRefRe.MatchString(ref) {
		return f.sender.Send(ctx, s.UserID, "❌ La referencia debe contener solo números. Inténtalo nuevamente.", nil)
	}
	return f.record(ctx, s, ref)
}

// record settles the operation once more from session state, persists the
// transaction, and closes the flow.
func (f *ExchangeFlow) record(ctx context.Context, s *session.Session, reference string) error {
	quote, err := exchange.Settle(domain.Direction(s.Direction), s.AmountUSD, s.RateBs)
	if err != nil {
		s.EndFlow()
		sendErr := f.sender.Send(ctx, s.UserID, "❌ Hubo un problema al registrar tu orden. Inténtalo de nuevo.", MainKeyboard)
		if sendErr != nil {
			return sendErr
		}
		return err
	}

	tx := &domain.Transaction{
		UserTelegramID: s.UserID,
		Direction:      quote.Direction,
		AmountUSD:      quote.AmountUSD,
		CommissionUSD:  quote.CommissionUSD,
		TotalUSD:       quote.TotalUSD,
		RateBs:         quote.RateBs,
		TotalBs:        quote.TotalBs,
		MethodID:       s.MethodID,
		Reference:      reference,
		Status:         domain.StatusPending,
	}
	stored, err := f.transactions.Create(ctx, tx)
	if err != nil {
		s.EndFlow()
		sendErr := f.sender.Send(ctx, s.UserID, "❌ Hubo un problema al registrar tu orden. Inténtalo de nuevo.", MainKeyboard)
		if sendErr != nil {
			return sendErr
		}
		return err
	}

	logger.Info(ctx, "flow.exchange", "transaction.created",
		slog.Int64("user_id", s.UserID),
		slog.Int64("tx_id", stored.ID),
		slog.String("direction", string(stored.Direction)),
		slog.String("amount_usd", stored.AmountUSD.StringFixed(2)),
		slog.String("reference", stored.Reference),
	)

	s.EndFlow()
	return f.sender.Send(ctx, s.UserID, fmt.Sprintf(
		"✅ ¡Pago recibido! Tu orden ha sido creada con la referencia #%s y está en estado \"pendiente\". Te notificaremos pronto.",
		reference), MainKeyboard)
}

// parseAmount accepts "$20", "20", or "20.50" and requires a positive value.
func parseAmount(text string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), "$"))
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("flows: invalid amount %q", text)
	}
	if amount.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("flows: non-positive amount %q", text)
	}
	return amount, nil
}
