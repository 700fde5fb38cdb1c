package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/taskapp/backend/internal/client"
	"github.com/taskapp/backend/internal/config"
	"github.com/taskapp/backend/internal/db"
	"github.com/taskapp/backend/internal/handler"
	"github.com/taskapp/backend/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg := config.Load()
	ctx := context.Background()

	pool, err := db.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		slog.Error("postgres connection failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	store := &db.Postgres{Pool: pool}
	if err := store.EnsureSchema(ctx); err != nil {
		slog.Error("schema setup failed", "err", err)
		os.Exit(1)
	}

	authSvc, err := service.NewAuthService(store, store, cfg.Auth)
	if err != nil {
		slog.Error("auth service setup failed", "err", err)
		os.Exit(1)
	}

	mailer := client.NewEmailClient(cfg.Email)
	if !mailer.IsConfigured() {
		slog.Warn("EMAIL_API_KEY not set, transactional email disabled")
	}

	userSvc := service.NewUserService(store, store, authSvc, mailer)
	taskSvc := service.NewTaskService(store)

	userHandler := handler.NewUserHandler(userSvc)
	taskHandler := handler.NewTaskHandler(taskSvc)

	router := gin.Default()
	if len(cfg.CORS.AllowedOrigins) > 0 {
		router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins))
	}

	router.GET("/ping", handler.Ping)

	users := router.Group("/users")
	{
		users.POST("", userHandler.Register)
		users.POST("/login", userHandler.Login)
		users.GET("/:id/avatar", userHandler.GetAvatar)

		authed := users.Group("", handler.AuthMiddleware(authSvc))
		{
			authed.POST("/logout", userHandler.Logout)
			authed.POST("/logoutAll", userHandler.LogoutAll)
			authed.GET("/me", userHandler.Me)
			authed.PATCH("/me", userHandler.UpdateMe)
			authed.DELETE("/me", userHandler.DeleteMe)
			authed.POST("/me/avatar", userHandler.UploadAvatar)
			authed.DELETE("/me/avatar", userHandler.DeleteAvatar)
		}
	}

	tasks := router.Group("/tasks", handler.AuthMiddleware(authSvc))
	{
		tasks.POST("", taskHandler.CreateTask)
		tasks.GET("", taskHandler.ListTasks)
		tasks.GET("/:id", taskHandler.GetTask)
		tasks.PATCH("/:id", taskHandler.UpdateTask)
		tasks.DELETE("/:id", taskHandler.DeleteTask)
	}

	addr := ":" + cfg.Server.Port
	slog.Info("starting server", "addr", addr)
	if err := router.Run(addr); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
