package main

import (
	"fmt"
	"log"
	"os"

	"linkup-server/routes"
	"linkup-server/services"
	"linkup-server/storage"
	"linkup-server/utils"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

func main() {
	// Only load .env in development
	if os.Getenv("RENDER") == "" {
		godotenv.Load()
	}

	// Initialize services
	storage.InitializeDB()
	storage.InitializeRedis()

	app := iris.New()
	app.Validator = validator.New()

	// CORS configuration
	app.AllowMethods(iris.MethodOptions)
	app.UseRouter(func(ctx iris.Context) {
		ctx.Header("Access-Control-Allow-Origin", ctx.GetHeader("Origin"))
		ctx.Header("Vary", "Origin")
		ctx.Header("Access-Control-Allow-Credentials", "true")
		ctx.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With")
		ctx.Header("Access-Control-Allow-Methods", "GET,POST,PATCH,PUT,DELETE,OPTIONS")
		if ctx.Method() == iris.MethodOptions {
			ctx.StatusCode(iris.StatusNoContent)
			return
		}
		ctx.Next()
	})

	// Minimal middleware - compression only
	app.Use(iris.Compression)

	// JWT Verifiers
	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifier.WithDefaultBlocklist()
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	refreshTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("REFRESH_TOKEN_SECRET")))
	refreshTokenVerifier.WithDefaultBlocklist()
	refreshTokenVerifierMiddleware := refreshTokenVerifier.Verify(func() interface{} {
		return new(jwt.Claims)
	})

	refreshTokenVerifier.Extractors = append(refreshTokenVerifier.Extractors, func(ctx iris.Context) string {
		var tokenInput utils.RefreshTokenInput
		err := ctx.ReadJSON(&tokenInput)
		if err != nil {
			return ""
		}
		return tokenInput.RefreshToken
	})

	// Health check endpoint - CRITICAL for Render
	app.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"status": "ok"})
	})

	// Service wiring
	directory := services.NewUserDirectory(storage.DB)
	conversations := services.NewConversationService(storage.DB)
	messages := services.NewMessageService(storage.DB)
	requests := services.NewMessageRequestService(storage.DB, directory)
	typing := services.NewTypingTracker(storage.Redis, storage.DB)
	realtime := services.NewRealtime(services.LoadRealtimeConfig())
	notifier := services.NewNotificationService(storage.DB)
	handler := routes.NewHandler(conversations, messages, requests, typing, realtime, notifier, directory, storage.LoadUploadConfig())

	// Routes
	user := app.Party("/api/user")
	{
		user.Post("/register", handler.Register)
		user.Post("/login", handler.Login)
		user.Get("/settings", accessTokenVerifierMiddleware, handler.GetSettings)
		user.Put("/settings", accessTokenVerifierMiddleware, handler.UpdateSettings)
	}

	conversation := app.Party("/api/conversation", accessTokenVerifierMiddleware)
	{
		conversation.Post("/", handler.CreateConversation)
		conversation.Get("/", handler.ListConversations)
		conversation.Post("/{id:uint}/pin", handler.PinConversation)
		conversation.Post("/{id:uint}/unpin", handler.UnpinConversation)
		conversation.Post("/{id:uint}/mute", handler.MuteConversation)
		conversation.Post("/{id:uint}/unmute", handler.UnmuteConversation)
		conversation.Get("/{id:uint}/messages", handler.ListMessages)
		conversation.Post("/{id:uint}/messages", handler.SendMessage)
		conversation.Post("/{id:uint}/media", handler.SendMedia)
		conversation.Post("/{id:uint}/typing", handler.RecordTyping)
		conversation.Get("/{id:uint}/typing", handler.TypingState)
	}

	messageRequests := app.Party("/api/message-requests", accessTokenVerifierMiddleware)
	{
		messageRequests.Get("/", handler.ListMessageRequests)
		messageRequests.Post("/{id:uint}/accept", handler.AcceptMessageRequest)
		messageRequests.Post("/{id:uint}/deny", handler.DenyMessageRequest)
	}

	message := app.Party("/api/messages", accessTokenVerifierMiddleware)
	{
		message.Post("/{id:uint}/read", handler.MarkRead)
		message.Patch("/{id:uint}", handler.EditMessage)
		message.Delete("/{id:uint}", handler.DeleteMessage)
		message.Post("/{id:uint}/react", handler.ReactToMessage)
		message.Get("/{id:uint}/edits", handler.ListMessageEdits)
	}

	app.Post("/api/realtime/auth", accessTokenVerifierMiddleware, handler.RealtimeAuth)

	notifications := app.Party("/api/notifications", accessTokenVerifierMiddleware)
	{
		notifications.Get("/", handler.ListNotifications)
		notifications.Post("/{id:uint}/read", handler.MarkNotificationRead)
	}

	app.Post("/api/refresh", refreshTokenVerifierMiddleware, utils.RefreshToken)

	// Get port from environment
	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}
	addr := "0.0.0.0:" + port

	fmt.Printf("🚀 Server starting on %s\n", addr)

	// Start server
	if err := app.Listen(addr); err != nil {
		log.Fatalf("❌ Server failed: %v", err)
	}
}
