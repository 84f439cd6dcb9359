package router

import (
	"time"

	tg "cambiobot/core/telegram"
	"cambiobot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// FlowRouter is the minimal interface for a conversational flow engine.
type FlowRouter interface {
	InProgress(userID int64) bool
	HandleText(c tele.Context) error
	HandlePhoto(c tele.Context) error
}

// MessageOptions controls interception and fallback behaviour for message updates.
type MessageOptions struct {
	// AdminID gates admin-only commands reached through text aliases.
	// Zero disables the gate, mirroring middleware.AdminOnlyMiddleware.
	AdminID       int64
	OnAdminReject tele.HandlerFunc

	// InterceptText runs after command lookup and before flow dispatch.
	// Returning true consumes the update.
	InterceptText func(c tele.Context) (bool, error)

	// InterceptPhoto runs before flow dispatch. Returning true consumes the update.
	InterceptPhoto func(c tele.Context) (bool, error)

	UnknownText tele.HandlerFunc
}

// MessageRoutes builds handlers for text and photo routing.
// Text is matched against command names and button-label aliases first,
// then the intercept hook, then flows in progress, then the registry
// text fallback.
func MessageRoutes(flows FlowRouter, reg *tg.Registry, opts MessageOptions) []tg.Route {
	textHandler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil {
				name := normalizeHandlerName(key)
				if cmd.AdminOnly && opts.AdminID != 0 && c.Sender().ID != opts.AdminID {
					return handleWithSummary(c, name, start, "", "denied", func() error {
						if opts.OnAdminReject != nil {
							return opts.OnAdminReject(c)
						}
						return nil
					})
				}
				return handleWithSummary(c, name, start, "", "", func() error {
					return cmd.Handler(c)
				})
			}
		}

		if opts.InterceptText != nil {
			consumed, err := opts.InterceptText(c)
			if consumed || err != nil {
				logHandlerSummary(c, "text_intercept", start, "", "", err)
				return err
			}
		}

		if flows != nil && flows.InProgress(c.Sender().ID) {
			return handleWithSummary(c, "flow", start, "", "", func() error {
				return flows.HandleText(c)
			})
		}

		if reg != nil {
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", start, "", "", func() error {
					return fb(c)
				})
			}
		}

		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, "", "", func() error {
				return opts.UnknownText(c)
			})
		}

		logHandlerSummary(c, "unknown_text", start, "skip", "ok", nil)
		return nil
	}

	photoHandler := func(c tele.Context) error {
		start := time.Now()

		if opts.InterceptPhoto != nil {
			consumed, err := opts.InterceptPhoto(c)
			if consumed || err != nil {
				logHandlerSummary(c, "photo_intercept", start, "", "", err)
				return err
			}
		}

		if flows != nil && flows.InProgress(c.Sender().ID) {
			return handleWithSummary(c, "flow_photo", start, "", "", func() error {
				return flows.HandlePhoto(c)
			})
		}

		if reg != nil {
			if fb := reg.PhotoFallback(); fb != nil {
				return handleWithSummary(c, "unexpected_photo", start, "", "", func() error {
					return fb(c)
				})
			}
		}

		logHandlerSummary(c, "unexpected_photo", start, "skip", "ok", nil)
		return nil
	}

	return []tg.Route{
		{
			Endpoint: tele.OnText,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(textHandler)),
		},
		{
			Endpoint: tele.OnPhoto,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(photoHandler)),
		},
	}
}
