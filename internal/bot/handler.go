package bot

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/terraincognita07/sipwell/internal/i18n"
	"github.com/terraincognita07/sipwell/internal/metrics"
	"github.com/terraincognita07/sipwell/internal/models"
	"github.com/terraincognita07/sipwell/internal/services"
)

// Transport is the outbound slice of the Telegram client the handler
// needs. Tests substitute a fake.
type Transport interface {
	SendMessage(ctx context.Context, chatID int64, text string, keyboard *InlineKeyboard) (MessageRef, error)
	AnswerCallback(ctx context.Context, callbackID string, text string) error
}

// Handler reacts to decoded requests and composes replies. It also
// implements services.ReminderNotifier for the scheduler.
type Handler struct {
	transport Transport
	profiles  *services.ProfileService
	intakes   *services.IntakeService
	i18n      *i18n.Manager
	recorder  *metrics.Recorder
	bounds    services.GoalBounds
	maxAmount float64
}

func NewHandler(
	transport Transport,
	profiles *services.ProfileService,
	intakes *services.IntakeService,
	i18nManager *i18n.Manager,
	recorder *metrics.Recorder,
	bounds services.GoalBounds,
	maxAmountLiters float64,
) *Handler {
	return &Handler{
		transport: transport,
		profiles:  profiles,
		intakes:   intakes,
		i18n:      i18nManager,
		recorder:  recorder,
		bounds:    bounds,
		maxAmount: maxAmountLiters,
	}
}

// HandleUpdate decodes and answers one incoming update.
func (handler *Handler) HandleUpdate(ctx context.Context, update Update) error {
	request, err := DecodeUpdate(update)
	if err != nil {
		// Garbled payloads are logged, never retried.
		log.Printf("bot: undecodable update %d: %v", update.UpdateID, err)
		return nil
	}

	switch request := request.(type) {
	case StartCommand:
		return handler.handleStart(ctx, request)
	case HelpCommand:
		return handler.reply(ctx, request.ChatID, handler.language(request.ChatID, ""), "help", nil)
	case GoalCommand:
		return handler.handleGoalCommand(ctx, request)
	case GoalPress:
		return handler.handleGoalPress(ctx, request)
	case ToggleCommand:
		return handler.handleToggle(ctx, request)
	case StatsCommand:
		return handler.handleStats(ctx, request)
	case ResetCommand:
		return handler.handleReset(ctx, request)
	case LogIntakePress:
		return handler.handleIntakePress(ctx, request)
	case UnknownRequest:
		return handler.reply(ctx, request.ChatID, handler.language(request.ChatID, ""), "unknown", nil)
	default:
		return fmt.Errorf("unhandled request variant %T", request)
	}
}

// NotifyReminder sends the scheduler's reminder with the quick-log
// keyboard attached.
func (handler *Handler) NotifyReminder(ctx context.Context, user models.User, remainingLiters float64) error {
	language := handler.i18n.NormalizeLanguage(user.Language)
	text := fmt.Sprintf(handler.i18n.T(language, "reminder"), remainingLiters)
	_, err := handler.transport.SendMessage(ctx, user.ChatID, text, IntakeKeyboard(handler.i18n.Messages(language)))
	return err
}

func (handler *Handler) handleStart(ctx context.Context, request StartCommand) error {
	language := handler.language(request.ChatID, request.Language)
	text := handler.i18n.T(language, "start")
	_, err := handler.transport.SendMessage(ctx, request.ChatID, text, GoalKeyboard())
	return err
}

func (handler *Handler) handleGoalCommand(ctx context.Context, request GoalCommand) error {
	language := handler.language(request.ChatID, request.Language)
	if !request.HasAmount {
		text := handler.i18n.T(language, "goal_prompt")
		_, err := handler.transport.SendMessage(ctx, request.ChatID, text, GoalKeyboard())
		return err
	}
	return handler.setGoal(ctx, request.ChatID, language, request.Liters)
}

func (handler *Handler) handleGoalPress(ctx context.Context, request GoalPress) error {
	language := handler.language(request.ChatID, request.Language)
	if err := handler.transport.AnswerCallback(ctx, request.CallbackID, ""); err != nil {
		log.Printf("bot: answer goal callback: %v", err)
	}
	return handler.setGoal(ctx, request.ChatID, language, request.Liters)
}

func (handler *Handler) setGoal(ctx context.Context, chatID int64, language string, liters float64) error {
	user, err := handler.profiles.SetGoal(chatID, liters, language)
	if errors.Is(err, services.ErrGoalOutOfRange) {
		text := fmt.Sprintf(handler.i18n.T(language, "goal_invalid"), handler.bounds.MinLiters, handler.bounds.MaxLiters)
		_, sendErr := handler.transport.SendMessage(ctx, chatID, text, nil)
		return sendErr
	}
	if err != nil {
		return err
	}

	text := fmt.Sprintf(handler.i18n.T(language, "goal_set"), user.DailyGoalLiters)
	_, err = handler.transport.SendMessage(ctx, chatID, text, IntakeKeyboard(handler.i18n.Messages(language)))
	return err
}

func (handler *Handler) handleToggle(ctx context.Context, request ToggleCommand) error {
	language := handler.language(request.ChatID, "")
	user, err := handler.profiles.Get(request.ChatID)
	if errors.Is(err, services.ErrUnknownUser) {
		return handler.reply(ctx, request.ChatID, language, "register_first", nil)
	}
	if err != nil {
		return err
	}

	updated, err := handler.profiles.SetNotificationsEnabled(request.ChatID, !user.NotificationsEnabled)
	if err != nil {
		return err
	}

	key := "toggle_off"
	if updated.NotificationsEnabled {
		key = "toggle_on"
	}
	return handler.reply(ctx, request.ChatID, language, key, nil)
}

func (handler *Handler) handleStats(ctx context.Context, request StatsCommand) error {
	language := handler.language(request.ChatID, "")
	user, err := handler.profiles.Get(request.ChatID)
	if errors.Is(err, services.ErrUnknownUser) {
		return handler.reply(ctx, request.ChatID, language, "register_first", nil)
	}
	if err != nil {
		return err
	}

	aggregate, err := handler.intakes.TodayAggregate(user.ID)
	if err != nil {
		return err
	}
	if aggregate.GrandTotal() == 0 {
		return handler.reply(ctx, request.ChatID, language, "stats_empty", IntakeKeyboard(handler.i18n.Messages(language)))
	}

	percent := aggregate.GrandTotal() / user.DailyGoalLiters * 100
	text := fmt.Sprintf(handler.i18n.T(language, "stats"),
		aggregate.WaterLiters, aggregate.OtherLiters, percent, user.DailyGoalLiters)
	_, err = handler.transport.SendMessage(ctx, request.ChatID, text, nil)
	return err
}

func (handler *Handler) handleReset(ctx context.Context, request ResetCommand) error {
	language := handler.language(request.ChatID, "")
	err := handler.profiles.Delete(request.ChatID)
	if errors.Is(err, services.ErrUnknownUser) {
		return handler.reply(ctx, request.ChatID, language, "register_first", nil)
	}
	if err != nil {
		return err
	}
	return handler.reply(ctx, request.ChatID, language, "reset_done", nil)
}

func (handler *Handler) handleIntakePress(ctx context.Context, request LogIntakePress) error {
	language := handler.language(request.ChatID, "")

	record, err := handler.intakes.Record(request.ChatID, request.AmountLiters, request.Category)
	switch {
	case errors.Is(err, services.ErrUnknownUser):
		if answerErr := handler.transport.AnswerCallback(ctx, request.CallbackID, ""); answerErr != nil {
			log.Printf("bot: answer intake callback: %v", answerErr)
		}
		return handler.reply(ctx, request.ChatID, language, "register_first", nil)
	case errors.Is(err, services.ErrAmountOutOfRange), errors.Is(err, services.ErrInvalidCategory):
		text := fmt.Sprintf(handler.i18n.T(language, "amount_invalid"), handler.maxAmount)
		_, sendErr := handler.transport.SendMessage(ctx, request.ChatID, text, nil)
		return sendErr
	case err != nil:
		return err
	}

	handler.recorder.IntakeLogged()

	ack := fmt.Sprintf(handler.i18n.T(language, "intake_ack"), record.AmountLiters)
	if err := handler.transport.AnswerCallback(ctx, request.CallbackID, ack); err != nil {
		log.Printf("bot: answer intake callback: %v", err)
	}

	user, err := handler.profiles.Get(request.ChatID)
	if err != nil {
		return err
	}
	aggregate, err := handler.intakes.TodayAggregate(user.ID)
	if err != nil {
		return err
	}

	text := fmt.Sprintf(handler.i18n.T(language, "intake_logged"),
		record.AmountLiters, aggregate.GrandTotal(), user.DailyGoalLiters)
	_, err = handler.transport.SendMessage(ctx, request.ChatID, text, nil)
	return err
}

func (handler *Handler) reply(ctx context.Context, chatID int64, language string, key string, keyboard *InlineKeyboard) error {
	_, err := handler.transport.SendMessage(ctx, chatID, handler.i18n.T(language, key), keyboard)
	return err
}

// language prefers the stored profile language and falls back to the
// update's code (new users) or the default.
func (handler *Handler) language(chatID int64, updateLanguage string) string {
	if user, err := handler.profiles.Get(chatID); err == nil {
		return handler.i18n.NormalizeLanguage(user.Language)
	}
	return handler.i18n.NormalizeLanguage(updateLanguage)
}
