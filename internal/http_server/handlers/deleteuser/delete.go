package deleteUser

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

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
}

func New(
	log *slog.Logger,
	usersService *users.Users,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.deleteUser.New"

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

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := usersService.Delete(ctx, id, accessToken); err != nil {
			if errors.Is(err, users.ErrAccessDenied) {
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, resp.Error("Access denied"))

				return
			}
			if errors.Is(err, storage.ErrAccountNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("Account not found"))

				return
			}

			log.Error("failed to delete account", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("Account deleted", slog.String("id", id))

		render.JSON(w, r, Response{
			Response: resp.OK(),
		})
	}
}
