package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	tele "gopkg.in/telebot.v4"

	"cambiobot/core/telegram/keyboard"
)

// botGateway adapts the live telebot instance to the narrow send and
// download interfaces the domain packages depend on. The bot is attached
// once the runtime is up, before any update is processed.
type botGateway struct {
	mu          sync.RWMutex
	bot         *tele.Bot
	downloadDir string
}

func newBotGateway(downloadDir string) *botGateway {
	return &botGateway{downloadDir: downloadDir}
}

func (g *botGateway) attach(bot *tele.Bot) {
	g.mu.Lock()
	g.bot = bot
	g.mu.Unlock()
}

func (g *botGateway) current() (*tele.Bot, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.bot == nil {
		return nil, fmt.Errorf("app: bot not attached")
	}
	return g.bot, nil
}

// Send delivers a flow message. Sends are synchronous on purpose, flow
// prompts must arrive in order.
func (g *botGateway) Send(_ context.Context, userID int64, text string, kb [][]string) error {
	bot, err := g.current()
	if err != nil {
		return err
	}
	to := &tele.User{ID: userID}
	if kb == nil {
		_, err = bot.Send(to, text)
		return err
	}
	_, err = bot.Send(to, text, keyboard.ReplyButtons(kb...))
	return err
}

// SendText delivers a broadcast text message with Markdown formatting.
func (g *botGateway) SendText(_ context.Context, userID int64, text string) error {
	bot, err := g.current()
	if err != nil {
		return err
	}
	_, err = bot.Send(&tele.User{ID: userID}, text, &tele.SendOptions{ParseMode: tele.ModeMarkdown})
	return err
}

// SendPhoto delivers a broadcast photo with a Markdown caption.
func (g *botGateway) SendPhoto(_ context.Context, userID int64, photoID, caption string) error {
	bot, err := g.current()
	if err != nil {
		return err
	}
	photo := &tele.Photo{File: tele.File{FileID: photoID}, Caption: caption}
	_, err = bot.Send(&tele.User{ID: userID}, photo, &tele.SendOptions{ParseMode: tele.ModeMarkdown})
	return err
}

// Download fetches a photo into the downloads directory and returns the
// local path. The caller removes the file when done with it.
func (g *botGateway) Download(_ context.Context, photoID string) (string, error) {
	bot, err := g.current()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(g.downloadDir, 0o755); err != nil {
		return "", fmt.Errorf("app: create download dir: %w", err)
	}

	src, err := bot.File(&tele.File{FileID: photoID})
	if err != nil {
		return "", fmt.Errorf("app: fetch photo: %w", err)
	}
	defer src.Close()

	path := filepath.Join(g.downloadDir, photoID+".jpg")
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("app: create temp file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", fmt.Errorf("app: write temp file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("app: close temp file: %w", err)
	}
	return path, nil
}
