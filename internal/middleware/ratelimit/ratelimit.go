package rateLimit

import (
	"net/http"
	"time"

	httprate "github.com/go-chi/httprate"
)

func Signup() func(http.Handler) http.Handler {
	return limitByIP(5, time.Hour)
}

func Signin() func(http.Handler) http.Handler {
	return limitByIP(10, 5*time.Minute)
}

func Refresh() func(http.Handler) http.Handler {
	return limitByIP(30, 10*time.Minute)
}

func Revoke() func(http.Handler) http.Handler {
	return limitByIP(20, 10*time.Minute)
}

func Account() func(http.Handler) http.Handler {
	return limitByIP(60, time.Minute)
}

func VerifyUser() func(http.Handler) http.Handler {
	return limitByIP(10, 10*time.Minute)
}

func ResendVerify() func(http.Handler) http.Handler {
	return limitByIP(3, time.Hour)
}

func ForgotPassword() func(http.Handler) http.Handler {
	return limitByIP(3, time.Hour)
}

func ResetPassword() func(http.Handler) http.Handler {
	return limitByIP(5, time.Hour)
}

func limitByIP(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(limit, window)
}
