package bot

import (
	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
)

// Command lists for Telegram's menu button (the "/" icon in the chat input).
// Admin chats get commandsAdmin through BotCommandScopeChat, everyone else the default.

var commandsAnonymous = []tgbotapi.BotCommand{
	{Command: "start", Description: "Show your chat id"},
	{Command: "help", Description: "Show available commands"},
}

var commandsAdmin = []tgbotapi.BotCommand{
	{Command: "stats", Description: "Code and session totals"},
	{Command: "usage", Description: "Client activity of the last 7 days"},
	{Command: "newcode", Description: "Create a code: <max_devices> [days|lifetime] [note]"},
	{Command: "code", Description: "Show a code and its devices"},
	{Command: "extend", Description: "Extend a code: <CODE> <days>"},
	{Command: "revoke", Description: "Revoke a device: <device_id> [CODE]"},
	{Command: "enable", Description: "Enable a code"},
	{Command: "disable", Description: "Disable a code"},
	{Command: "delete", Description: "Delete a code and its sessions"},
	{Command: "help", Description: "Show available commands"},
}

// setDefaultCommands sets the default bot menu for unknown users.
func (t *TgBot) setDefaultCommands() {
	_, err := t.api.SetMyCommands(commandsAnonymous, &tgbotapi.SetMyCommandsOpts{
		Scope: tgbotapi.BotCommandScopeDefault{},
	})
	if err != nil {
		t.log.Warn("setting default commands", "error", err)
	}
}

// syncAdminMenus sets the admin command menu in every configured admin chat.
func (t *TgBot) syncAdminMenus() {
	for chatId := range t.admins {
		_, err := t.api.SetMyCommands(commandsAdmin, &tgbotapi.SetMyCommandsOpts{
			Scope: tgbotapi.BotCommandScopeChat{ChatId: chatId},
		})
		if err != nil {
			t.log.Warn("setting admin commands", "chat_id", chatId, "error", err)
		}
	}
}
