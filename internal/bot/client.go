package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/terraincognita07/sipwell/internal/services"
	"golang.org/x/time/rate"
)

const defaultAPIBase = "https://api.telegram.org"

// Client talks to the Telegram Bot API. Calls are rate limited globally
// to stay under the platform's send ceiling.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	apiBase    string
	token      string
}

func NewClient(token string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 8 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(25), 5),
		apiBase:    defaultAPIBase,
		token:      token,
	}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
}

type sentMessage struct {
	MessageID int `json:"message_id"`
}

// SendMessage delivers text (and an optional inline keyboard) to a chat.
func (client *Client) SendMessage(ctx context.Context, chatID int64, text string, keyboard *InlineKeyboard) (MessageRef, error) {
	form := url.Values{}
	form.Set("chat_id", strconv.FormatInt(chatID, 10))
	form.Set("text", text)
	if keyboard != nil {
		markup, err := json.Marshal(keyboard)
		if err != nil {
			return MessageRef{}, fmt.Errorf("marshal keyboard: %w", err)
		}
		form.Set("reply_markup", string(markup))
	}

	result, err := client.call(ctx, "sendMessage", form)
	if err != nil {
		return MessageRef{}, err
	}

	var sent sentMessage
	if err := json.Unmarshal(result, &sent); err != nil {
		return MessageRef{}, fmt.Errorf("parse sendMessage result: %w", err)
	}
	return MessageRef{ChatID: chatID, MessageID: sent.MessageID}, nil
}

// DeleteMessage removes a previously sent message.
func (client *Client) DeleteMessage(ctx context.Context, ref MessageRef) error {
	form := url.Values{}
	form.Set("chat_id", strconv.FormatInt(ref.ChatID, 10))
	form.Set("message_id", strconv.Itoa(ref.MessageID))
	_, err := client.call(ctx, "deleteMessage", form)
	return err
}

// EditReplyMarkup replaces (or clears, with a nil keyboard) the inline
// keyboard of a sent message.
func (client *Client) EditReplyMarkup(ctx context.Context, ref MessageRef, keyboard *InlineKeyboard) error {
	form := url.Values{}
	form.Set("chat_id", strconv.FormatInt(ref.ChatID, 10))
	form.Set("message_id", strconv.Itoa(ref.MessageID))
	if keyboard != nil {
		markup, err := json.Marshal(keyboard)
		if err != nil {
			return fmt.Errorf("marshal keyboard: %w", err)
		}
		form.Set("reply_markup", string(markup))
	}
	_, err := client.call(ctx, "editMessageReplyMarkup", form)
	return err
}

// AnswerCallback acknowledges a button press so the client stops showing
// a progress spinner.
func (client *Client) AnswerCallback(ctx context.Context, callbackID string, text string) error {
	form := url.Values{}
	form.Set("callback_query_id", callbackID)
	if text != "" {
		form.Set("text", text)
	}
	_, err := client.call(ctx, "answerCallbackQuery", form)
	return err
}

func (client *Client) call(ctx context.Context, method string, form url.Values) (json.RawMessage, error) {
	if err := client.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/%s", client.apiBase, client.token, method)
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", method, err)
	}
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", method, err)
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse %s response (status %d): %w", method, response.StatusCode, err)
	}
	if !parsed.OK {
		if unreachableResponse(parsed) {
			return nil, fmt.Errorf("%s: %s: %w", method, parsed.Description, services.ErrRecipientUnreachable)
		}
		return nil, fmt.Errorf("%s failed: %d %s", method, parsed.ErrorCode, parsed.Description)
	}
	return parsed.Result, nil
}

// unreachableResponse recognizes the permanent "this recipient is gone"
// answers: blocked bot, deactivated account, missing chat.
func unreachableResponse(parsed apiResponse) bool {
	if parsed.ErrorCode == http.StatusForbidden {
		return true
	}
	description := strings.ToLower(parsed.Description)
	return strings.Contains(description, "bot was blocked") ||
		strings.Contains(description, "user is deactivated") ||
		strings.Contains(description, "chat not found")
}
