package app

import (
	"context"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"

	tghelpers "cambiobot/core/telegram/helpers"
	"cambiobot/core/telegram/router"
	"cambiobot/internal/flows"
)

// flowAdapter bridges the transport-free flow engine into the message router.
type flowAdapter struct {
	a *App
}

func (f flowAdapter) InProgress(userID int64) bool {
	return f.a.engine.InProgress(context.Background(), userID)
}

func (f flowAdapter) HandleText(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	_, err := f.a.engine.Handle(ctx, c.Sender().ID, messageFrom(c))
	return err
}

func (f flowAdapter) HandlePhoto(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	_, err := f.a.engine.Handle(ctx, c.Sender().ID, messageFrom(c))
	return err
}

func (a *App) flowRouter() router.FlowRouter {
	return flowAdapter{a: a}
}

func messageFrom(c tele.Context) flows.Message {
	msg := flows.Message{Text: c.Text()}
	if u := c.Sender(); u != nil {
		msg.Username = u.Username
		msg.FirstName = u.FirstName
		msg.LastName = u.LastName
	}
	if m := c.Message(); m != nil && m.Photo != nil {
		msg.PhotoID = m.Photo.FileID
	}
	return msg
}

// interceptBroadcastPhoto completes a staged photo broadcast when the admin
// sends an image. Any other photo passes through to the flows.
func (a *App) interceptBroadcastPhoto(c tele.Context) (bool, error) {
	userID := c.Sender().ID
	if !a.controller.IsAdmin(userID) {
		return false, nil
	}

	ctx := tghelpers.BuildContext(c)
	pending, err := a.controller.Pending(ctx, userID)
	if err != nil {
		return false, err
	}
	if pending == "" {
		return false, nil
	}

	msg := messageFrom(c)
	if msg.PhotoID == "" {
		return false, nil
	}

	if err := c.Send("🚀 Iniciando el envío masivo de imagen y texto..."); err != nil {
		return true, err
	}
	report, err := a.controller.SendWithPhoto(ctx, userID, msg.PhotoID)
	if err != nil {
		return true, err
	}
	return true, c.Send(fmt.Sprintf("✅ Envío completado.\n\nExitosos: %d\nErrores: %d",
		report.Sent, report.Failed))
}

// interceptBroadcastText nudges the admin sitting on a staged broadcast.
// It runs before flow dispatch, so a pending broadcast takes priority over
// whatever flow the admin has open.
func (a *App) interceptBroadcastText(c tele.Context) (bool, error) {
	userID := c.Sender().ID
	if !a.controller.IsAdmin(userID) || strings.HasPrefix(c.Text(), "/") {
		return false, nil
	}
	ctx := tghelpers.BuildContext(c)
	pending, err := a.controller.Pending(ctx, userID)
	if err != nil {
		return false, err
	}
	if pending == "" {
		return false, nil
	}
	return true, c.Send("Estoy esperando una imagen para tu broadcast. Si cambiaste de opinión, usa /cancelbroadcast.")
}

// photoFallback answers photos that arrive outside any flow.
func (a *App) photoFallback(c tele.Context) error {
	return c.Send("🖼️ He recibido una imagen, pero no estoy seguro de qué hacer con ella en este momento.")
}

func (a *App) adminReject(c tele.Context) error {
	return c.Send("❌ No tienes permiso para usar este comando.")
}
