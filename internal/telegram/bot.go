// Package telegram adapts Telegram long polling to the chat router: one
// update in, one reply out. It knows nothing about the ledger; it only
// renders Reply values as messages and keyboards.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ledgerbot/internal/chat"
)

const failureMessage = "❌ Algo deu errado. Tente novamente."

var commands = []tgbotapi.BotCommand{
	{Command: "comprarapida", Description: "Registrar uma saída rápida"},
	{Command: "add", Description: "Adicionar entrada ou saída"},
	{Command: "carteira", Description: "Quanto posso gastar hoje"},
	{Command: "meusdados", Description: "Ver e editar contas, cartões e dívidas"},
	{Command: "resumo", Description: "Resumo do mês"},
	{Command: "listacategorias", Description: "Listar e criar categorias"},
	{Command: "cancelar", Description: "Cancelar uma transação recente"},
	{Command: "start", Description: "Criar seu perfil"},
	{Command: "exit", Description: "Sair do fluxo atual"},
}

type Bot struct {
	api     *tgbotapi.BotAPI
	router  *chat.Router
	timeout time.Duration
	logger  *slog.Logger
}

func New(token string, pollTimeout time.Duration, router *chat.Router, logger *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	if _, err := api.Request(tgbotapi.NewSetMyCommands(commands...)); err != nil {
		logger.Warn("Failed to register bot commands", "error", err)
	}
	logger.Info("Telegram bot authorized", "username", api.Self.UserName)
	return &Bot{api: api, router: router, timeout: pollTimeout, logger: logger}, nil
}

// Run polls for updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = int(b.timeout.Seconds())
	updates := b.api.GetUpdatesChan(cfg)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Handler panicked", "chat_id", chatID, "panic", r)
			b.send(chatID, chat.Reply{Text: failureMessage, RemoveKeyboard: true})
		}
	}()

	userName := ""
	if msg.From != nil {
		userName = msg.From.FirstName
	}

	reply := b.router.Handle(ctx, chatID, userName, msg.Text)
	b.send(chatID, reply)
}

func (b *Bot) send(chatID int64, reply chat.Reply) {
	if reply.Text == "" {
		return
	}
	out := tgbotapi.NewMessage(chatID, reply.Text)
	switch {
	case len(reply.Choices) > 0:
		out.ReplyMarkup = keyboard(reply.Choices)
	case reply.RemoveKeyboard:
		out.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
	}
	if _, err := b.api.Send(out); err != nil {
		b.logger.Error("Failed to send message", "chat_id", chatID, "error", err)
	}
}

func keyboard(choices [][]string) tgbotapi.ReplyKeyboardMarkup {
	rows := make([][]tgbotapi.KeyboardButton, 0, len(choices))
	for _, row := range choices {
		buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, label := range row {
			buttons = append(buttons, tgbotapi.NewKeyboardButton(label))
		}
		rows = append(rows, buttons)
	}
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.OneTimeKeyboard = true
	return kb
}
