package app

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"

	coretelegram "cambiobot/core/telegram"
	"cambiobot/core/telegram/commands"
	tghelpers "cambiobot/core/telegram/helpers"
	"cambiobot/core/telegram/keyboard"
	"cambiobot/internal/domain"
	"cambiobot/internal/flows"
	"cambiobot/internal/session"
)

func (a *App) registerCommands(reg *coretelegram.Registry) {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     a.startCommand,
		Description: "Iniciar el bot",
	})
	reg.RegisterCommand("/help", commands.Command{
		Handler:     a.helpCommand,
		Description: "Cómo usar el bot",
		Aliases:     []string{"ℹ️ Ayuda"},
	})
	reg.RegisterCommand("/registrarme", commands.Command{
		Handler:     a.registerMeCommand,
		Description: "Crear tu cuenta",
		Aliases:     []string{"👤 Registrarme"},
	})
	reg.RegisterCommand("/cambiar", commands.Command{
		Handler:     a.exchangeCommand,
		Description: "Comprar o vender saldo",
		Aliases:     []string{"💹 Realizar Cambio"},
	})
	reg.RegisterCommand("/metodos", commands.Command{
		Handler:     a.methodsCommand,
		Description: "Registrar un método de pago",
		Aliases:     []string{"💳 Mis Métodos de Pago"},
	})
	reg.RegisterCommand("/historial", commands.Command{
		Handler:     a.historyCommand,
		Description: "Ver tus últimas operaciones",
		Aliases:     []string{"📜 Mi Historial"},
	})
	reg.RegisterCommand("/cancelar", commands.Command{
		Handler:     a.cancelCommand,
		Description: "Cancelar la operación en curso",
		Hidden:      true,
	})

	reg.RegisterCommand("/broadcast", commands.Command{
		Handler:     a.broadcastCommand,
		Description: "Enviar un mensaje a todos los usuarios",
		AdminOnly:   true,
		Hidden:      true,
	})
	reg.RegisterCommand("/sendbroadcast", commands.Command{
		Handler:     a.stageBroadcastCommand,
		Description: "Preparar un broadcast con imagen",
		AdminOnly:   true,
		Hidden:      true,
	})
	reg.RegisterCommand("/cancelbroadcast", commands.Command{
		Handler:     a.cancelBroadcastCommand,
		Description: "Descartar el broadcast preparado",
		AdminOnly:   true,
		Hidden:      true,
	})

	reg.SetPhotoFallback(a.photoFallback)
}

func (a *App) startCommand(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	registered, err := a.users.Exists(ctx, c.Sender().ID)
	if err != nil {
		return err
	}
	if registered {
		return c.Send(fmt.Sprintf("¡Hola de nuevo, %s! 👋", c.Sender().FirstName),
			keyboard.ReplyButtons(flows.MainKeyboard...))
	}
	return c.Send("¡Hola! 👋 Soy tu asistente de exchange. Para comenzar, por favor, regístrate.",
		keyboard.ReplyButtons(flows.UnregisteredKeyboard...))
}

func (a *App) helpCommand(c tele.Context) error {
	return c.Send("Usa los botones del menú para interactuar.")
}

func (a *App) registerMeCommand(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	registered, err := a.users.Exists(ctx, c.Sender().ID)
	if err != nil {
		return err
	}
	if registered {
		return c.Send("Ya estás registrado. 🎉", keyboard.ReplyButtons(flows.MainKeyboard...))
	}
	return a.engine.StartFlow(ctx, c.Sender().ID, session.FlowRegister, messageFrom(c))
}

func (a *App) exchangeCommand(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	registered, err := a.users.Exists(ctx, c.Sender().ID)
	if err != nil {
		return err
	}
	if !registered {
		return c.Send("Debes registrarte primero.", keyboard.ReplyButtons(flows.UnregisteredKeyboard...))
	}
	return a.engine.StartFlow(ctx, c.Sender().ID, session.FlowExchange, messageFrom(c))
}

func (a *App) methodsCommand(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	registered, err := a.users.Exists(ctx, c.Sender().ID)
	if err != nil {
		return err
	}
	if !registered {
		return c.Send("Debes registrarte primero.", keyboard.ReplyButtons(flows.UnregisteredKeyboard...))
	}
	return a.engine.StartFlow(ctx, c.Sender().ID, session.FlowMethods, messageFrom(c))
}

func (a *App) historyCommand(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	list, err := a.transactions.History(ctx, c.Sender().ID, a.cfg.Exchange.HistoryLimit)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return c.Send("📜 Aún no tienes operaciones registradas.")
	}

	var b strings.Builder
	b.WriteString("📜 Tus últimas operaciones:\n")
	for _, tx := range list {
		icon := "📈"
		if tx.Direction == domain.DirectionSell {
			icon = "📉"
		}
		fmt.Fprintf(&b, "\n%s %s $%s USD → %s Bs. | %s | Ref: %s | %s\n",
			icon,
			tx.Direction,
			tx.AmountUSD.StringFixed(2),
			tx.TotalBs.StringFixed(2),
			tx.Status,
			tx.Reference,
			tx.CreatedAt.Format("02/01/2006"),
		)
	}
	return c.Send(b.String())
}

func (a *App) cancelCommand(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	if err := a.engine.Cancel(ctx, c.Sender().ID); err != nil {
		return err
	}
	return c.Send("❌ Operación cancelada.", keyboard.ReplyButtons(flows.MainKeyboard...))
}

func (a *App) broadcastCommand(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	text := strings.TrimSpace(c.Message().Payload)
	if text == "" {
		return c.Send("Por favor, escribe el mensaje. Ejemplo: `/broadcast ¡Hola a todos!`",
			&tele.SendOptions{ParseMode: tele.ModeMarkdown})
	}

	if err := c.Send("🚀 Iniciando el envío masivo de texto..."); err != nil {
		return err
	}
	report, err := a.controller.BroadcastText(ctx, c.Sender().ID, text)
	if err != nil {
		return err
	}
	return c.Send(fmt.Sprintf("✅ Envío completado.\n\nExitosos: %d\nErrores: %d",
		report.Sent, report.Failed))
}

func (a *App) stageBroadcastCommand(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	text := strings.TrimSpace(c.Message().Payload)
	if text == "" {
		return c.Send("Por favor, escribe el texto del broadcast. Ejemplo: `/sendbroadcast ¡Nueva tasa disponible!`",
			&tele.SendOptions{ParseMode: tele.ModeMarkdown})
	}
	if err := a.controller.Stage(ctx, c.Sender().ID, text); err != nil {
		return err
	}
	return c.Send("📎 Texto guardado. Ahora envíame la imagen del broadcast, o usa /cancelbroadcast para descartarlo.")
}

func (a *App) cancelBroadcastCommand(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	if err := a.controller.Cancel(ctx, c.Sender().ID); err != nil {
		return err
	}
	return c.Send("🗑️ Broadcast descartado.")
}
