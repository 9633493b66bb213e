// Package bot implements the Telegram admin front end.
//
// Architecture overview:
//   - tgbot.go    : TgBot struct, lifecycle (Start/Stop), Core interface
//   - commands.go : admin commands: /stats, /usage, /newcode, /code, /extend, /revoke, /enable, /disable, /delete
//   - callbacks.go: inline keyboards under /code and /delete and their callback handlers
//   - format.go   : MarkdownV2 rendering of codes, sessions and stats
//   - menus.go    : command menus via Telegram's BotCommandScope API
//   - messaging.go: log notifications to admins: errors immediately, the rest through the digest
//   - digest.go   : DigestBuffer for batched notification delivery
//   - helpers.go  : shared utilities: Sanitize, plainResponse, notifyAdmins, reportError
//
// Admins are the chat ids listed in configuration; every other chat only gets
// its own id back from /start so it can be added to the list.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers/filters/callbackquery"

	"codegate/entity"
	"codegate/lib/clock"
	"codegate/lib/sl"
)

// Core is the part of the service the bot drives.
type Core interface {
	CreateCode(ctx context.Context, req *entity.CreateCodeRequest) (*entity.CreateResult, error)
	ExtendCode(ctx context.Context, req *entity.ExtendRequest) (*entity.ExtendResult, error)
	RevokeDevice(ctx context.Context, req *entity.RevokeRequest) (*entity.RevokeResult, error)
	ToggleCode(ctx context.Context, req *entity.ToggleRequest) (*entity.ActionResult, error)
	DeleteCode(ctx context.Context, req *entity.DeleteCodeRequest) (*entity.ActionResult, error)
	CodeDetail(ctx context.Context, code string) (*entity.CodeDetail, error)
	Stats(ctx context.Context) (*entity.Stats, error)
	UsageOverview(ctx context.Context) (*entity.UsageOverview, error)
}

type TgBot struct {
	log     *slog.Logger
	api     *tgbotapi.Bot
	core    Core
	clock   clock.Clock
	admins  map[int64]bool
	updater *ext.Updater
	digest  *DigestBuffer
	// digestInterval of zero sends every notification immediately
	digestInterval time.Duration
}

func NewTgBot(apiKey string, admins []int64, log *slog.Logger) (*TgBot, error) {
	tgBot := newTgBot(admins, log)

	api, err := tgbotapi.NewBot(apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating api instance: %v", err)
	}
	tgBot.api = api

	return tgBot, nil
}

func newTgBot(admins []int64, log *slog.Logger) *TgBot {
	t := &TgBot{
		log:    log.With(sl.Module("tgbot")),
		clock:  clock.System{},
		admins: make(map[int64]bool, len(admins)),
	}
	for _, id := range admins {
		t.admins[id] = true
	}
	return t
}

func (t *TgBot) SetCore(core Core) {
	t.core = core
}

func (t *TgBot) SetDigestInterval(interval time.Duration) {
	t.digestInterval = interval
}

func (t *TgBot) Start() error {
	if t.digestInterval > 0 {
		t.digest = NewDigestBuffer(t.plainResponse, t.digestInterval)
		t.digest.StartTicker()
	}

	dispatcher := ext.NewDispatcher(&ext.DispatcherOpts{
		Error: func(b *tgbotapi.Bot, ctx *ext.Context, err error) ext.DispatcherAction {
			t.log.Error("handling update:", sl.Err(err))
			return ext.DispatcherActionNoop
		},
		MaxRoutines: ext.DefaultMaxRoutines,
	})
	t.updater = ext.NewUpdater(dispatcher, nil)

	dispatcher.AddHandler(handlers.NewCommand("start", t.start))
	dispatcher.AddHandler(handlers.NewCommand("help", t.help))

	dispatcher.AddHandler(handlers.NewCommand("stats", t.adminCommand("stats", t.statsCmd)))
	dispatcher.AddHandler(handlers.NewCommand("usage", t.adminCommand("usage", t.usageCmd)))
	dispatcher.AddHandler(handlers.NewCommand("newcode", t.adminCommand("newcode", t.newCodeCmd)))
	dispatcher.AddHandler(handlers.NewCommand("code", t.codeCmd))
	dispatcher.AddHandler(handlers.NewCommand("extend", t.adminCommand("extend", t.extendCmd)))
	dispatcher.AddHandler(handlers.NewCommand("revoke", t.adminCommand("revoke", t.revokeCmd)))
	dispatcher.AddHandler(handlers.NewCommand("enable", t.adminCommand("enable", t.toggleCmd(true))))
	dispatcher.AddHandler(handlers.NewCommand("disable", t.adminCommand("disable", t.toggleCmd(false))))
	dispatcher.AddHandler(handlers.NewCommand("delete", t.deleteCmd))

	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix(cbEnable), t.onToggleCallback))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix(cbDisable), t.onToggleCallback))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix(cbDeleteAsk), t.onDeleteAskCallback))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix(cbDeleteYes), t.onDeleteCallback))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix(cbDeleteNo), t.onDeleteCancelCallback))

	t.setDefaultCommands()
	t.syncAdminMenus()

	err := t.updater.StartPolling(t.api, &ext.PollingOpts{
		DropPendingUpdates: true,
		GetUpdatesOpts: &tgbotapi.GetUpdatesOpts{
			Timeout: 9,
			RequestOpts: &tgbotapi.RequestOpts{
				Timeout: time.Second * 10,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to start polling: %w", err)
	}
	t.log.With(slog.Int("admins", len(t.admins))).Info("telegram bot started")

	t.updater.Idle()
	return nil
}

func (t *TgBot) Stop() {
	if t.digest != nil {
		t.digest.Stop()
	}
	if t.updater != nil {
		t.log.Info("stopping telegram bot")
		_ = t.updater.Stop()
	}
}

func (t *TgBot) isAdmin(chatId int64) bool {
	return t.admins[chatId]
}
