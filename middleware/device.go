package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	DeviceContextKey contextKey = "device"

	// DeviceCookie identifies the browser holding a session.
	DeviceCookie = "device_id"
)

// Device makes sure every request carries a device id, issuing a cookie the
// first time a browser is seen.
func Device(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if cookie, err := r.Cookie(DeviceCookie); err == nil {
			if _, err := uuid.Parse(cookie.Value); err == nil {
				id = cookie.Value
			}
		}
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     DeviceCookie,
				Value:    id,
				Path:     "/",
				MaxAge:   int((365 * 24 * time.Hour).Seconds()),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), DeviceContextKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func DeviceFromContext(ctx context.Context) string {
	id, _ := ctx.Value(DeviceContextKey).(string)
	return id
}
