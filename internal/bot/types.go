package bot

// Minimal slice of the Telegram Bot API types the bot consumes.

type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message"`
	CallbackQuery *CallbackQuery `json:"callback_query"`
}

type Message struct {
	MessageID int    `json:"message_id"`
	From      *Actor `json:"from"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
}

type Chat struct {
	ID int64 `json:"id"`
}

type Actor struct {
	ID           int64  `json:"id"`
	LanguageCode string `json:"language_code"`
}

type CallbackQuery struct {
	ID      string   `json:"id"`
	From    Actor    `json:"from"`
	Message *Message `json:"message"`
	Data    string   `json:"data"`
}

// MessageRef identifies a sent message for later edits or deletion.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

type InlineKeyboard struct {
	InlineKeyboard [][]InlineButton `json:"inline_keyboard"`
}

type InlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}
