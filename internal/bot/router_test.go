package bot

import (
	"testing"
)

func messageUpdate(text string, language string) Update {
	return Update{
		UpdateID: 7,
		Message: &Message{
			MessageID: 100,
			From:      &Actor{ID: 42, LanguageCode: language},
			Chat:      Chat{ID: 42},
			Text:      text,
		},
	}
}

func callbackUpdate(data string) Update {
	return Update{
		UpdateID: 8,
		CallbackQuery: &CallbackQuery{
			ID:      "cb-1",
			From:    Actor{ID: 42, LanguageCode: "ru"},
			Message: &Message{MessageID: 101, Chat: Chat{ID: 42}},
			Data:    data,
		},
	}
}

func TestDecodeCommands(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		text string
		want Request
	}{
		{name: "start", text: "/start", want: StartCommand{ChatID: 42, Language: "en"}},
		{name: "start with bot suffix", text: "/start@sipwell_bot", want: StartCommand{ChatID: 42, Language: "en"}},
		{name: "help", text: "/help", want: HelpCommand{ChatID: 42}},
		{name: "bare goal", text: "/goal", want: GoalCommand{ChatID: 42, Language: "en"}},
		{name: "goal with amount", text: "/goal 2.5", want: GoalCommand{ChatID: 42, Language: "en", Liters: 2.5, HasAmount: true}},
		{name: "goal with comma decimal", text: "/goal 2,5", want: GoalCommand{ChatID: 42, Language: "en", Liters: 2.5, HasAmount: true}},
		{name: "goal with garbage amount", text: "/goal lots", want: GoalCommand{ChatID: 42, Language: "en"}},
		{name: "toggle", text: "/toggle", want: ToggleCommand{ChatID: 42}},
		{name: "stats", text: "/stats", want: StatsCommand{ChatID: 42}},
		{name: "reset", text: "/reset", want: ResetCommand{ChatID: 42}},
		{name: "free text", text: "hello there", want: UnknownRequest{ChatID: 42}},
		{name: "empty text", text: "   ", want: UnknownRequest{ChatID: 42}},
	}

	for _, testCase := range cases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			got, err := DecodeUpdate(messageUpdate(testCase.text, "en"))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got != testCase.want {
				t.Fatalf("expected %#v, got %#v", testCase.want, got)
			}
		})
	}
}

func TestDecodeCallbacks(t *testing.T) {
	t.Parallel()

	got, err := DecodeUpdate(callbackUpdate("intake|0.25|water"))
	if err != nil {
		t.Fatalf("decode intake: %v", err)
	}
	intake, ok := got.(LogIntakePress)
	if !ok {
		t.Fatalf("expected LogIntakePress, got %#v", got)
	}
	if intake.ChatID != 42 || intake.AmountLiters != 0.25 || intake.Category != "water" || intake.CallbackID != "cb-1" {
		t.Fatalf("unexpected intake press %#v", intake)
	}

	got, err = DecodeUpdate(callbackUpdate("goal|2"))
	if err != nil {
		t.Fatalf("decode goal: %v", err)
	}
	goal, ok := got.(GoalPress)
	if !ok {
		t.Fatalf("expected GoalPress, got %#v", got)
	}
	if goal.Liters != 2 || goal.Language != "ru" {
		t.Fatalf("unexpected goal press %#v", goal)
	}
}

func TestDecodeRejectsMalformedPayloads(t *testing.T) {
	t.Parallel()

	cases := []string{
		"intake|water",
		"intake|abc|water",
		"goal|",
		"goal|abc",
		"mystery|1",
	}
	for _, data := range cases {
		if _, err := DecodeUpdate(callbackUpdate(data)); err == nil {
			t.Fatalf("expected decode error for %q", data)
		}
	}

	if _, err := DecodeUpdate(Update{UpdateID: 9}); err == nil {
		t.Fatal("expected decode error for an empty update")
	}
}

func TestKeyboardCallbacksRoundTrip(t *testing.T) {
	t.Parallel()

	messages := map[string]string{"button_other_drink": "Other"}
	for _, row := range IntakeKeyboard(messages).InlineKeyboard {
		for _, button := range row {
			update := callbackUpdate(button.CallbackData)
			request, err := DecodeUpdate(update)
			if err != nil {
				t.Fatalf("button %q does not decode: %v", button.CallbackData, err)
			}
			if _, ok := request.(LogIntakePress); !ok {
				t.Fatalf("button %q decoded to %#v", button.CallbackData, request)
			}
		}
	}

	for _, row := range GoalKeyboard().InlineKeyboard {
		for _, button := range row {
			request, err := DecodeUpdate(callbackUpdate(button.CallbackData))
			if err != nil {
				t.Fatalf("button %q does not decode: %v", button.CallbackData, err)
			}
			if _, ok := request.(GoalPress); !ok {
				t.Fatalf("button %q decoded to %#v", button.CallbackData, request)
			}
		}
	}
}
