package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/terraincognita07/sipwell/internal/bot"
	"github.com/terraincognita07/sipwell/internal/db"
	"github.com/terraincognita07/sipwell/internal/services"
	"golang.org/x/crypto/bcrypt"
)

const adminTokenTTL = 12 * time.Hour

// Handler exposes the webhook, health, metrics and admin endpoints.
type Handler struct {
	botHandler        *bot.Handler
	profiles          *services.ProfileService
	users             *db.UserRepository
	webhookSecret     string
	secretKey         []byte
	adminPasswordHash string
	metricsHandler    fiber.Handler
}

type adminClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

type loginInput struct {
	Password string `json:"password"`
}

func NewHandler(
	botHandler *bot.Handler,
	profiles *services.ProfileService,
	users *db.UserRepository,
	webhookSecret string,
	secretKey string,
	adminPasswordHash string,
	gatherer prometheus.Gatherer,
) (*Handler, error) {
	if strings.TrimSpace(webhookSecret) == "" {
		return nil, errors.New("webhook secret is required")
	}
	if adminPasswordHash != "" && len(secretKey) < 32 {
		return nil, errors.New("SECRET_KEY must be at least 32 characters when the admin API is enabled")
	}

	return &Handler{
		botHandler:        botHandler,
		profiles:          profiles,
		users:             users,
		webhookSecret:     webhookSecret,
		secretKey:         []byte(secretKey),
		adminPasswordHash: adminPasswordHash,
		metricsHandler: adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})),
	}, nil
}

func RegisterRoutes(app *fiber.App, handler *Handler) {
	app.Get("/healthz", handler.Health)
	app.Get("/metrics", handler.Metrics)
	app.Post("/webhook/:secret", handler.Webhook)

	admin := app.Group("/admin")
	admin.Post("/login", handler.AdminLogin)
	admin.Get("/users", handler.RequireAdmin, handler.AdminListUsers)
	admin.Delete("/users/:chatID", handler.RequireAdmin, handler.AdminDeleteUser)
}

func (handler *Handler) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{"status": "ok"})
}

func (handler *Handler) Metrics(ctx *fiber.Ctx) error {
	return handler.metricsHandler(ctx)
}

// Webhook receives one Telegram update. It always answers 200 for
// decodable payloads; Telegram retries anything else and duplicate
// processing is worse than a dropped nudge.
func (handler *Handler) Webhook(ctx *fiber.Ctx) error {
	secret := ctx.Params("secret")
	if subtle.ConstantTimeCompare([]byte(secret), []byte(handler.webhookSecret)) != 1 {
		return ctx.SendStatus(fiber.StatusUnauthorized)
	}

	var update bot.Update
	if err := json.Unmarshal(ctx.Body(), &update); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed update"})
	}

	if err := handler.botHandler.HandleUpdate(ctx.UserContext(), update); err != nil {
		log.Printf("webhook: update %d failed: %v", update.UpdateID, err)
	}
	return ctx.SendStatus(fiber.StatusOK)
}

func (handler *Handler) AdminLogin(ctx *fiber.Ctx) error {
	if handler.adminPasswordHash == "" {
		return ctx.SendStatus(fiber.StatusNotFound)
	}

	var input loginInput
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed body"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(handler.adminPasswordHash), []byte(input.Password)); err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid credentials"})
	}

	now := time.Now()
	claims := adminClaims{
		Purpose: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin",
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(adminTokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(handler.secretKey)
	if err != nil {
		return fmt.Errorf("sign admin token: %w", err)
	}

	return ctx.JSON(fiber.Map{"token": token})
}

// RequireAdmin guards the admin group with a bearer token check.
func (handler *Handler) RequireAdmin(ctx *fiber.Ctx) error {
	if handler.adminPasswordHash == "" {
		return ctx.SendStatus(fiber.StatusNotFound)
	}

	authorization := ctx.Get(fiber.HeaderAuthorization)
	rawToken, found := strings.CutPrefix(authorization, "Bearer ")
	if !found {
		return ctx.SendStatus(fiber.StatusUnauthorized)
	}

	claims := &adminClaims{}
	token, err := jwt.ParseWithClaims(rawToken, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return handler.secretKey, nil
	})
	if err != nil || !token.Valid || claims.Purpose != "admin" {
		return ctx.SendStatus(fiber.StatusUnauthorized)
	}

	return ctx.Next()
}

type adminUserView struct {
	ChatID               int64      `json:"chat_id"`
	Language             string     `json:"language"`
	DailyGoalLiters      float64    `json:"daily_goal_liters"`
	NotificationsEnabled bool       `json:"notifications_enabled"`
	LastNotificationAt   *time.Time `json:"last_notification_at"`
}

func (handler *Handler) AdminListUsers(ctx *fiber.Ctx) error {
	users, err := handler.users.ListAll()
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	views := make([]adminUserView, 0, len(users))
	for _, user := range users {
		views = append(views, adminUserView{
			ChatID:               user.ChatID,
			Language:             user.Language,
			DailyGoalLiters:      user.DailyGoalLiters,
			NotificationsEnabled: user.NotificationsEnabled,
			LastNotificationAt:   user.LastNotificationAt,
		})
	}
	return ctx.JSON(views)
}

func (handler *Handler) AdminDeleteUser(ctx *fiber.Ctx) error {
	chatID, err := ctx.ParamsInt("chatID")
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid chat id"})
	}

	err = handler.profiles.Delete(int64(chatID))
	if errors.Is(err, services.ErrUnknownUser) {
		return ctx.SendStatus(fiber.StatusNotFound)
	}
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}
