package router

import (
	"testing"

	tg "cambiobot/core/telegram"
	"cambiobot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

// stubContext implements the slice of tele.Context the text router touches.
type stubContext struct {
	tele.Context
	user  *tele.User
	text  string
	store map[string]interface{}
	sent  []string
}

func newStubContext(userID int64, text string) *stubContext {
	return &stubContext{
		user:  &tele.User{ID: userID},
		text:  text,
		store: make(map[string]interface{}),
	}
}

func (s *stubContext) Update() tele.Update {
	return tele.Update{ID: 1, Message: &tele.Message{Text: s.text, Sender: s.user}}
}

func (s *stubContext) Message() *tele.Message {
	return &tele.Message{Text: s.text, Sender: s.user}
}

func (s *stubContext) Sender() *tele.User { return s.user }
func (s *stubContext) Chat() *tele.Chat   { return &tele.Chat{ID: s.user.ID} }
func (s *stubContext) Text() string       { return s.text }

func (s *stubContext) Set(key string, val interface{}) { s.store[key] = val }
func (s *stubContext) Get(key string) interface{}      { return s.store[key] }

func (s *stubContext) Send(what interface{}, _ ...interface{}) error {
	if text, ok := what.(string); ok {
		s.sent = append(s.sent, text)
	}
	return nil
}

type stubFlows struct {
	inProgress bool
	textCalls  int
	photoCalls int
}

func (f *stubFlows) InProgress(int64) bool { return f.inProgress }

func (f *stubFlows) HandleText(tele.Context) error {
	f.textCalls++
	return nil
}

func (f *stubFlows) HandlePhoto(tele.Context) error {
	f.photoCalls++
	return nil
}

func textRoute(t *testing.T, routes []tg.Route) tele.HandlerFunc {
	t.Helper()
	for _, r := range routes {
		if r.Endpoint == tele.OnText {
			return r.Handler
		}
	}
	t.Fatal("no OnText route")
	return nil
}

func adminRegistry(calls *int) *tg.Registry {
	reg := tg.NewRegistry()
	reg.RegisterCommand("/purge", commands.Command{
		Handler: func(tele.Context) error {
			*calls++
			return nil
		},
		AdminOnly: true,
		Hidden:    true,
	})
	return reg
}

func TestTextRouterGatesAdminCommands(t *testing.T) {
	for _, text := range []string{"/purge", "purge"} {
		calls := 0
		rejected := 0
		handler := textRoute(t, MessageRoutes(nil, adminRegistry(&calls), MessageOptions{
			AdminID: 99,
			OnAdminReject: func(c tele.Context) error {
				rejected++
				return c.Send("sin permiso")
			},
		}))

		c := newStubContext(7, text)
		if err := handler(c); err != nil {
			t.Fatalf("handler(%q): %v", text, err)
		}
		if calls != 0 {
			t.Fatalf("non-admin reached the handler via %q", text)
		}
		if rejected != 1 {
			t.Fatalf("reject handler calls for %q = %d, want 1", text, rejected)
		}
		if len(c.sent) != 1 || c.sent[0] != "sin permiso" {
			t.Fatalf("sent = %v, want the rejection message", c.sent)
		}
	}
}

func TestTextRouterAdminPassesGate(t *testing.T) {
	calls := 0
	handler := textRoute(t, MessageRoutes(nil, adminRegistry(&calls), MessageOptions{
		AdminID: 99,
	}))

	if err := handler(newStubContext(99, "purge")); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if calls != 1 {
		t.Fatalf("handler calls = %d, want 1", calls)
	}
}

func TestTextInterceptRunsBeforeFlows(t *testing.T) {
	flows := &stubFlows{inProgress: true}
	handler := textRoute(t, MessageRoutes(flows, nil, MessageOptions{
		InterceptText: func(c tele.Context) (bool, error) {
			return true, c.Send("espero una imagen")
		},
	}))

	c := newStubContext(7, "hola")
	if err := handler(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if flows.textCalls != 0 {
		t.Fatal("flow dispatched despite a consuming intercept")
	}
	if len(c.sent) != 1 {
		t.Fatalf("sent = %v, want the intercept reply", c.sent)
	}
}

func TestTextInterceptPassesThrough(t *testing.T) {
	flows := &stubFlows{inProgress: true}
	handler := textRoute(t, MessageRoutes(flows, nil, MessageOptions{
		InterceptText: func(tele.Context) (bool, error) {
			return false, nil
		},
	}))

	if err := handler(newStubContext(7, "hola")); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if flows.textCalls != 1 {
		t.Fatalf("flow text calls = %d, want 1", flows.textCalls)
	}
}

func TestTextCommandWinsOverFlow(t *testing.T) {
	calls := 0
	reg := tg.NewRegistry()
	reg.RegisterCommand("/cancelar", commands.Command{
		Handler: func(tele.Context) error {
			calls++
			return nil
		},
		Hidden: true,
	})

	flows := &stubFlows{inProgress: true}
	handler := textRoute(t, MessageRoutes(flows, reg, MessageOptions{}))

	if err := handler(newStubContext(7, "/cancelar")); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if calls != 1 || flows.textCalls != 0 {
		t.Fatalf("command calls = %d, flow calls = %d; command must win", calls, flows.textCalls)
	}
}
