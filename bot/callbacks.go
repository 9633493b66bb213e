package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"

	"codegate/entity"
)

// Callback data prefixes for inline keyboard buttons.
// Telegram limits callback data to 64 bytes, so prefixes are kept short.
// Format: prefix + code (e.g., "en:AB12CD34EF56").
const (
	cbEnable    = "en:"
	cbDisable   = "di:"
	cbDeleteAsk = "da:"
	cbDeleteYes = "dy:"
	cbDeleteNo  = "dn:"
)

// --- Keyboard builders ---

// buildCodeKeyboard offers the toggle matching the code's state and a delete button.
func buildCodeKeyboard(c *entity.ActivationCode) tgbotapi.InlineKeyboardMarkup {
	toggle := tgbotapi.InlineKeyboardButton{Text: "Disable", CallbackData: cbDisable + c.Code}
	if !c.IsActive {
		toggle = tgbotapi.InlineKeyboardButton{Text: "Enable", CallbackData: cbEnable + c.Code}
	}
	return tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{
			{toggle, {Text: "Delete", CallbackData: cbDeleteAsk + c.Code}},
		},
	}
}

func buildDeleteConfirmKeyboard(code string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{
			{
				{Text: "Delete ✗", CallbackData: cbDeleteYes + code},
				{Text: "Cancel", CallbackData: cbDeleteNo + code},
			},
		},
	}
}

// parseCallback splits callback data into its prefix and code.
func parseCallback(data string) (string, string, bool) {
	for _, prefix := range []string{cbEnable, cbDisable, cbDeleteAsk, cbDeleteYes, cbDeleteNo} {
		if strings.HasPrefix(data, prefix) {
			code := strings.TrimPrefix(data, prefix)
			return prefix, code, code != ""
		}
	}
	return "", "", false
}

// --- Callback handlers ---
// All callback handlers follow the same pattern:
//  1. Verify the caller is an admin
//  2. Parse callback data
//  3. Call the core
//  4. Edit the message in place
//  5. Answer the callback query (removes loading spinner)

func (t *TgBot) onToggleCallback(_ *tgbotapi.Bot, ctx *ext.Context) error {
	cq := ctx.CallbackQuery
	chatId := cq.From.Id
	if !t.isAdmin(chatId) {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Not authorized", ShowAlert: true})
		return nil
	}
	prefix, code, ok := parseCallback(cq.Data)
	if !ok {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Invalid action"})
		return nil
	}

	c, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	active := prefix == cbEnable
	res, err := t.core.ToggleCode(c, &entity.ToggleRequest{Code: code, IsActive: &active})
	if err != nil {
		t.reportError(chatId, "toggle:"+code, err)
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Error occurred"})
		return nil
	}

	if res.Success {
		text, detail, err := t.describeCode(c, []string{code})
		if err == nil && detail != nil {
			t.editMessage(cq, text, buildCodeKeyboard(detail.Code))
		}
	}

	_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: res.Message})
	return nil
}

func (t *TgBot) onDeleteAskCallback(_ *tgbotapi.Bot, ctx *ext.Context) error {
	cq := ctx.CallbackQuery
	chatId := cq.From.Id
	if !t.isAdmin(chatId) {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Not authorized", ShowAlert: true})
		return nil
	}
	_, code, ok := parseCallback(cq.Data)
	if !ok {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Invalid action"})
		return nil
	}

	if msg := cq.Message; msg != nil {
		if im, ok := msg.(tgbotapi.Message); ok {
			_, _, _ = t.api.EditMessageReplyMarkup(&tgbotapi.EditMessageReplyMarkupOpts{
				ChatId:      chatId,
				MessageId:   im.MessageId,
				ReplyMarkup: buildDeleteConfirmKeyboard(code),
			})
		}
	}

	_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Confirm deletion"})
	return nil
}

func (t *TgBot) onDeleteCallback(_ *tgbotapi.Bot, ctx *ext.Context) error {
	cq := ctx.CallbackQuery
	chatId := cq.From.Id
	if !t.isAdmin(chatId) {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Not authorized", ShowAlert: true})
		return nil
	}
	_, code, ok := parseCallback(cq.Data)
	if !ok {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Invalid action"})
		return nil
	}

	c, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	res, err := t.core.DeleteCode(c, &entity.DeleteCodeRequest{Code: code})
	if err != nil {
		t.reportError(chatId, "delete:"+code, err)
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Error occurred"})
		return nil
	}

	t.editMessage(cq, Sanitize(res.Message), tgbotapi.InlineKeyboardMarkup{})
	_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: res.Message})
	return nil
}

func (t *TgBot) onDeleteCancelCallback(_ *tgbotapi.Bot, ctx *ext.Context) error {
	cq := ctx.CallbackQuery
	if !t.isAdmin(cq.From.Id) {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Not authorized", ShowAlert: true})
		return nil
	}
	t.editMessage(cq, "Deletion cancelled\\.", tgbotapi.InlineKeyboardMarkup{})
	_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Cancelled"})
	return nil
}

// editMessage replaces the text and keyboard of the message the button belongs to.
func (t *TgBot) editMessage(cq *tgbotapi.CallbackQuery, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	msg := cq.Message
	if msg == nil {
		return
	}
	im, ok := msg.(tgbotapi.Message)
	if !ok {
		return
	}
	_, _, err := t.api.EditMessageText(text, &tgbotapi.EditMessageTextOpts{
		ChatId:      cq.From.Id,
		MessageId:   im.MessageId,
		ParseMode:   "MarkdownV2",
		ReplyMarkup: keyboard,
	})
	if err != nil {
		t.log.Warn("editing message", "chat_id", cq.From.Id, "error", err)
	}
}
