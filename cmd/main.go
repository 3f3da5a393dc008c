package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"account_service/internal/auth"
	"account_service/internal/config"
	"account_service/internal/http_server/handlers/deleteuser"
	"account_service/internal/http_server/handlers/forgotpassword"
	"account_service/internal/http_server/handlers/getuser"
	"account_service/internal/http_server/handlers/refresh"
	"account_service/internal/http_server/handlers/resendverify"
	"account_service/internal/http_server/handlers/resetpassword"
	"account_service/internal/http_server/handlers/revoke"
	"account_service/internal/http_server/handlers/signin"
	"account_service/internal/http_server/handlers/signup"
	"account_service/internal/http_server/handlers/updateuser"
	"account_service/internal/http_server/handlers/verifyuser"
	"account_service/internal/lib/token"
	"account_service/internal/mail"
	amqpMail "account_service/internal/mail/amqp"
	smtpMail "account_service/internal/mail/smtp"
	rateLimit "account_service/internal/middleware/ratelimit"
	"account_service/internal/session"
	"account_service/internal/storage"
	mongoStorage "account_service/internal/storage/mongo"
	"account_service/internal/storage/postgres"
	"account_service/internal/users"
	"account_service/internal/verification"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator/v10"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad("./config/config.yaml")

	log := setupLogger(cfg.Env)

	log.Info("starting account service", slog.String("env", cfg.Env))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("Shutdown signal received")
		cancel()
	}()

	var accounts storage.AccountRepository

	switch cfg.Storage.Backend {
	case "mongo":
		st, err := mongoStorage.New(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			log.Error("failed to connect mongo", slog.String("err", err.Error()))
			os.Exit(1)
		}
		defer st.Close(context.Background())
		accounts = st
	default:
		st, err := postgres.New(ctx, cfg)
		if err != nil {
			log.Error("failed to connect postgres", slog.String("err", err.Error()))
			os.Exit(1)
		}
		defer st.Close()
		accounts = st
	}

	sessions, err := session.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Error("failed to connect redis", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer sessions.Close()

	var dispatcher mail.Dispatcher

	switch cfg.Mailer.Backend {
	case "smtp":
		dispatcher = smtpMail.New(
			cfg.SMTP.Host,
			cfg.SMTP.Port,
			cfg.SMTP.Username,
			cfg.SMTP.Password,
			cfg.SMTP.From,
		)
	default:
		client, err := amqpMail.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
		if err != nil {
			log.Error("failed to connect rabbitmq", slog.String("err", err.Error()))
			os.Exit(1)
		}
		defer client.Close()
		dispatcher = client
	}

	accessCodec := token.NewCodec(cfg.Tokens.Issuer, cfg.Tokens.AccessTokenSecret, cfg.Tokens.AccessTokenTTL)
	refreshCodec := token.NewCodec(cfg.Tokens.Issuer, cfg.Tokens.RefreshTokenSecret, cfg.Tokens.RefreshTokenTTL)
	refresher := session.NewVerifier(refreshCodec, sessions)

	verificationService := verification.New(log, accounts, dispatcher, cfg.Tokens.VerifyTokenTTL, cfg.Tokens.ResetTokenTTL)
	authService := auth.New(log, accounts, sessions, refresher, verificationService, accessCodec, refreshCodec, cfg.Tokens.RefreshTokenTTL)
	usersService := users.New(log, accounts, sessions, verificationService, dispatcher, accessCodec)

	router := setupRouter(log, authService, usersService, verificationService)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server is running")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed", slog.String("err", err.Error()))
			cancel()
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", slog.String("err", err.Error()))
	} else {
		log.Info("Server stopped gracefully")
	}

	log.Info("Main service stopped")
}

func setupRouter(
	log *slog.Logger,
	authService *auth.Auth,
	usersService *users.Users,
	verificationService *verification.Service,
) *chi.Mux {
	validate := validator.New()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.With(rateLimit.Signup()).Post("/signup",
		signup.New(log, validate, authService),
	)
	r.With(rateLimit.Signin()).Post("/signin",
		signin.New(log, validate, authService),
	)
	r.With(rateLimit.Refresh()).Post("/refresh",
		refresh.New(log, validate, authService),
	)
	r.With(rateLimit.Revoke()).Post("/revoke",
		revoke.New(log, validate, authService),
	)

	r.Route("/users", func(r chi.Router) {
		r.Use(rateLimit.Account())
		r.Get("/{id}", getUser.New(log, usersService))
		r.Patch("/{id}", updateUser.New(log, usersService))
		r.Delete("/{id}", deleteUser.New(log, usersService))
	})

	r.Route("/account-management", func(r chi.Router) {
		r.With(rateLimit.VerifyUser()).Post("/verify-user",
			verifyUser.New(log, validate, verificationService),
		)
		r.With(rateLimit.ResendVerify()).Post("/resend-verify",
			resendVerify.New(log, validate, verificationService),
		)
		r.With(rateLimit.ForgotPassword()).Post("/forgot-password",
			forgotPassword.New(log, validate, verificationService),
		)
		r.With(rateLimit.ResetPassword()).Post("/reset-password",
			resetPassword.New(log, validate, verificationService),
		)
	})

	return r
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
