package bot

import (
	"fmt"
	"strconv"
	"strings"
)

// Request is the discriminated form of one incoming update. The opaque
// Telegram payload is decoded exactly once, here; handlers match over the
// known variants and never re-parse strings.
type Request interface {
	isRequest()
}

type StartCommand struct {
	ChatID   int64
	Language string
}

type HelpCommand struct {
	ChatID int64
}

type GoalCommand struct {
	ChatID   int64
	Language string
	// Liters is set when the command carried an argument ("/goal 2.5");
	// HasAmount is false for a bare "/goal", which answers with a keyboard.
	Liters    float64
	HasAmount bool
}

type ToggleCommand struct {
	ChatID int64
}

type StatsCommand struct {
	ChatID int64
}

type ResetCommand struct {
	ChatID int64
}

type LogIntakePress struct {
	ChatID       int64
	CallbackID   string
	AmountLiters float64
	Category     string
}

type GoalPress struct {
	ChatID     int64
	CallbackID string
	Language   string
	Liters     float64
}

type UnknownRequest struct {
	ChatID int64
}

func (StartCommand) isRequest()   {}
func (HelpCommand) isRequest()    {}
func (GoalCommand) isRequest()    {}
func (ToggleCommand) isRequest()  {}
func (StatsCommand) isRequest()   {}
func (ResetCommand) isRequest()   {}
func (LogIntakePress) isRequest() {}
func (GoalPress) isRequest()      {}
func (UnknownRequest) isRequest() {}

// Callback data layout, produced only by keyboards.go:
//
//	intake|<liters>|<category>
//	goal|<liters>
const (
	callbackIntake = "intake"
	callbackGoal   = "goal"
)

// DecodeUpdate turns a raw Telegram update into a typed request. Updates
// the bot cannot interpret decode to UnknownRequest rather than an error,
// so one garbled payload never fails the webhook.
func DecodeUpdate(update Update) (Request, error) {
	switch {
	case update.CallbackQuery != nil:
		return decodeCallback(*update.CallbackQuery)
	case update.Message != nil:
		return decodeMessage(*update.Message), nil
	default:
		return nil, fmt.Errorf("update %d carries neither message nor callback", update.UpdateID)
	}
}

func decodeMessage(message Message) Request {
	chatID := message.Chat.ID
	language := ""
	if message.From != nil {
		language = message.From.LanguageCode
	}

	fields := strings.Fields(strings.TrimSpace(message.Text))
	if len(fields) == 0 {
		return UnknownRequest{ChatID: chatID}
	}

	command := strings.ToLower(fields[0])
	if at := strings.Index(command, "@"); at > 0 {
		command = command[:at]
	}

	switch command {
	case "/start":
		return StartCommand{ChatID: chatID, Language: language}
	case "/help":
		return HelpCommand{ChatID: chatID}
	case "/goal":
		request := GoalCommand{ChatID: chatID, Language: language}
		if len(fields) > 1 {
			liters, err := strconv.ParseFloat(strings.ReplaceAll(fields[1], ",", "."), 64)
			if err != nil {
				return request
			}
			request.Liters = liters
			request.HasAmount = true
		}
		return request
	case "/toggle":
		return ToggleCommand{ChatID: chatID}
	case "/stats":
		return StatsCommand{ChatID: chatID}
	case "/reset":
		return ResetCommand{ChatID: chatID}
	default:
		return UnknownRequest{ChatID: chatID}
	}
}

func decodeCallback(callback CallbackQuery) (Request, error) {
	if callback.Message == nil {
		return nil, fmt.Errorf("callback %s has no originating message", callback.ID)
	}
	chatID := callback.Message.Chat.ID

	parts := strings.Split(callback.Data, "|")
	switch parts[0] {
	case callbackIntake:
		if len(parts) != 3 {
			return nil, fmt.Errorf("malformed intake callback %q", callback.Data)
		}
		liters, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("malformed intake amount %q: %w", parts[1], err)
		}
		return LogIntakePress{
			ChatID:       chatID,
			CallbackID:   callback.ID,
			AmountLiters: liters,
			Category:     parts[2],
		}, nil
	case callbackGoal:
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed goal callback %q", callback.Data)
		}
		liters, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("malformed goal amount %q: %w", parts[1], err)
		}
		return GoalPress{
			ChatID:     chatID,
			CallbackID: callback.ID,
			Language:   callback.From.LanguageCode,
			Liters:     liters,
		}, nil
	default:
		return nil, fmt.Errorf("unknown callback variant %q", callback.Data)
	}
}
