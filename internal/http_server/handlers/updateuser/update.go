package updateUser

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	req "account_service/internal/lib/api/request"
	resp "account_service/internal/lib/api/response"
	sl "account_service/internal/lib/logger"
	"account_service/internal/storage"
	"account_service/internal/users"
	"account_service/internal/verification"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Request struct {
	Firstname       string `json:"firstname"`
	Lastname        string `json:"lastname"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type Response struct {
	resp.Response
	ID          string     `json:"id"`
	Firstname   string     `json:"firstname"`
	Lastname    string     `json:"lastname"`
	Email       string     `json:"email"`
	IsActive    bool       `json:"is_active"`
	IsVerified  bool       `json:"is_verified"`
	Permissions []string   `json:"permissions"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
}

func New(
	log *slog.Logger,
	usersService *users.Users,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.updateUser.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id := chi.URLParam(r, "id")

		accessToken, ok := req.BearerToken(r)
		if !ok {
			log.Warn("missing bearer token")

			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, resp.Error("Access denied"))

			return
		}

		var body Request

		err := render.DecodeJSON(r.Body, &body)
		if err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		log.Info("Request body decoded")

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		account, err := usersService.Update(ctx, id, accessToken, users.UpdateData{
			Firstname:       body.Firstname,
			Lastname:        body.Lastname,
			Email:           body.Email,
			Password:        body.Password,
			CurrentPassword: body.CurrentPassword,
			NewPassword:     body.NewPassword,
		})
		if err != nil {
			switch {
			case errors.Is(err, users.ErrAccessDenied):
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, resp.Error("Access denied"))
			case errors.Is(err, users.ErrInvalidPassword):
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Invalid password"))
			case errors.Is(err, users.ErrInvalidUpdate):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("Invalid update request"))
			case errors.Is(err, storage.ErrAccountNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("Account not found"))
			case errors.Is(err, verification.ErrMailDelivery):
				log.Error("failed to deliver verification mail")

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("Internal error"))
			default:
				log.Error("failed to update account", sl.Err(err))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("Internal error"))
			}

			return
		}

		log.Info("Account updated", slog.String("id", id))

		render.JSON(w, r, Response{
			Response:    resp.OK(),
			ID:          account.ID,
			Firstname:   account.Firstname,
			Lastname:    account.Lastname,
			Email:       account.Email,
			IsActive:    account.IsActive,
			IsVerified:  account.IsVerified,
			Permissions: account.Permissions,
			LastLogin:   account.LastLogin,
		})
	}
}
