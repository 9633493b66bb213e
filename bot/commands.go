package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"

	"codegate/entity"
	"codegate/impl/activation"
	"codegate/impl/codegen"
)

const (
	commandTimeout = 15 * time.Second

	msgNotAdmin = "Admin access required\\."

	usageNewCode = "Usage: `/newcode <max_devices> [days|lifetime] [note]`"
	usageCode    = "Usage: `/code <CODE>`"
	usageExtend  = "Usage: `/extend <CODE> <days>`"
	usageRevoke  = "Usage: `/revoke <device_id> [CODE]`"
	usageToggle  = "Usage: `/%s <CODE>`"
	usageDelete  = "Usage: `/delete <CODE>`"
)

// command computes the reply for an admin command; an error means a service fault.
type command func(ctx context.Context, args []string) (string, error)

func (t *TgBot) adminCommand(name string, run command) handlers.Response {
	return func(_ *tgbotapi.Bot, ctx *ext.Context) error {
		chatId := ctx.EffectiveUser.Id
		if !t.isAdmin(chatId) {
			t.plainResponse(chatId, msgNotAdmin)
			return nil
		}
		reply, err := t.execute(run, commandArgs(ctx.EffectiveMessage.Text))
		if err != nil {
			t.reportError(chatId, "/"+name, err)
			return nil
		}
		for _, part := range splitMessage(reply, maxTelegramMessageLen) {
			t.plainResponse(chatId, part)
		}
		return nil
	}
}

// execute runs a command with a timeout; rejected input becomes the reply.
func (t *TgBot) execute(run command, args []string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	reply, err := run(ctx, args)
	if errors.Is(err, activation.ErrInvalidInput) {
		return Sanitize(err.Error()), nil
	}
	return reply, err
}

func (t *TgBot) start(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id
	t.plainResponse(chatId, startReply(chatId, t.isAdmin(chatId)))
	return nil
}

func startReply(chatId int64, admin bool) string {
	if admin {
		return "Welcome back\\. Use /help to see the admin commands\\."
	}
	return fmt.Sprintf("This bot is for administrators only\\. Your chat id is `%d`\\.", chatId)
}

func (t *TgBot) help(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id
	t.plainResponse(chatId, helpText(t.isAdmin(chatId)))
	return nil
}

func helpText(admin bool) string {
	var sb strings.Builder
	sb.WriteString("*Commands*\n")
	commands := commandsAnonymous
	if admin {
		commands = commandsAdmin
	}
	for _, c := range commands {
		sb.WriteString(fmt.Sprintf("/%s \\- %s\n", c.Command, Sanitize(c.Description)))
	}
	return sb.String()
}

func (t *TgBot) statsCmd(ctx context.Context, _ []string) (string, error) {
	stats, err := t.core.Stats(ctx)
	if err != nil {
		return "", err
	}
	return formatStats(stats), nil
}

func (t *TgBot) usageCmd(ctx context.Context, _ []string) (string, error) {
	overview, err := t.core.UsageOverview(ctx)
	if err != nil {
		return "", err
	}
	return formatUsage(overview, 5), nil
}

func (t *TgBot) newCodeCmd(ctx context.Context, args []string) (string, error) {
	req, ok := parseNewCode(args)
	if !ok {
		return usageNewCode, nil
	}
	res, err := t.core.CreateCode(ctx, req)
	if err != nil {
		return "", err
	}
	return formatCreated(res), nil
}

// parseNewCode reads "<max_devices> [days|lifetime] [note...]". A note that
// starts with a number needs an explicit term before it.
func parseNewCode(args []string) (*entity.CreateCodeRequest, bool) {
	if len(args) < 1 {
		return nil, false
	}
	maxDevices, err := strconv.Atoi(args[0])
	if err != nil {
		return nil, false
	}
	req := &entity.CreateCodeRequest{MaxDevices: maxDevices}
	rest := args[1:]
	if len(rest) > 0 {
		if strings.EqualFold(rest[0], "lifetime") {
			rest = rest[1:]
		} else if days, err := strconv.Atoi(rest[0]); err == nil {
			req.DurationDays = &days
			rest = rest[1:]
		}
	}
	req.Note = strings.Join(rest, " ")
	return req, true
}

// codeCmd shows a code with buttons to toggle or delete it.
func (t *TgBot) codeCmd(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id
	if !t.isAdmin(chatId) {
		t.plainResponse(chatId, msgNotAdmin)
		return nil
	}
	var detail *entity.CodeDetail
	reply, err := t.execute(func(ctx context.Context, args []string) (string, error) {
		text, d, err := t.describeCode(ctx, args)
		detail = d
		return text, err
	}, commandArgs(ctx.EffectiveMessage.Text))
	if err != nil {
		t.reportError(chatId, "/code", err)
		return nil
	}
	if detail == nil {
		t.plainResponse(chatId, reply)
		return nil
	}
	t.sendWithKeyboard(chatId, reply, buildCodeKeyboard(detail.Code))
	return nil
}

func (t *TgBot) describeCode(ctx context.Context, args []string) (string, *entity.CodeDetail, error) {
	if len(args) != 1 {
		return usageCode, nil, nil
	}
	detail, err := t.core.CodeDetail(ctx, args[0])
	if err != nil {
		return "", nil, err
	}
	if detail == nil {
		return Sanitize(activation.MsgCodeNotFound), nil, nil
	}
	return formatCodeDetail(detail, t.clock.Now()), detail, nil
}

func (t *TgBot) extendCmd(ctx context.Context, args []string) (string, error) {
	if len(args) != 2 {
		return usageExtend, nil
	}
	days, err := strconv.Atoi(args[1])
	if err != nil {
		return usageExtend, nil
	}
	res, err := t.core.ExtendCode(ctx, &entity.ExtendRequest{Code: args[0], AdditionalDays: days})
	if err != nil {
		return "", err
	}
	return Sanitize(res.Message), nil
}

func (t *TgBot) revokeCmd(ctx context.Context, args []string) (string, error) {
	if len(args) < 1 || len(args) > 2 {
		return usageRevoke, nil
	}
	req := &entity.RevokeRequest{DeviceId: args[0]}
	if len(args) == 2 {
		req.Code = args[1]
	}
	res, err := t.core.RevokeDevice(ctx, req)
	if err != nil {
		return "", err
	}
	return Sanitize(res.Message), nil
}

func (t *TgBot) toggleCmd(active bool) command {
	name := "disable"
	if active {
		name = "enable"
	}
	return func(ctx context.Context, args []string) (string, error) {
		if len(args) != 1 {
			return fmt.Sprintf(usageToggle, name), nil
		}
		res, err := t.core.ToggleCode(ctx, &entity.ToggleRequest{Code: args[0], IsActive: &active})
		if err != nil {
			return "", err
		}
		return Sanitize(res.Message), nil
	}
}

// deleteCmd asks for confirmation; the callback does the deletion.
func (t *TgBot) deleteCmd(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id
	if !t.isAdmin(chatId) {
		t.plainResponse(chatId, msgNotAdmin)
		return nil
	}
	args := commandArgs(ctx.EffectiveMessage.Text)
	if len(args) != 1 {
		t.plainResponse(chatId, usageDelete)
		return nil
	}
	code := codegen.Normalize(args[0])
	t.sendWithKeyboard(chatId,
		fmt.Sprintf("Delete code `%s` and all its device sessions?", Sanitize(code)),
		buildDeleteConfirmKeyboard(code))
	return nil
}
