package web

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// Cookie names of the admin session and of one-time notices.
const (
	SessionCookie = "messdiener_session"
	FlashCookie   = "messdiener_flash"
)

// Kind classifies the presentation of a Notice.
type Kind string

const (
	KindSuccess Kind = "success"
	KindInfo    Kind = "info"
	KindError   Kind = "error"
)

// Notice is a one-time message shown on the next rendered page, carried
// across a redirect by FlashCookie.
type Notice struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"msg"`
}

func writeFlash(w http.ResponseWriter, r *http.Request, kind Kind, message string) {
	var payload, err = json.Marshal(Notice{Kind: kind, Message: message})
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(payload),
		Path:     "/",
		HttpOnly: true,
		Secure:   isHTTPS(r),
		SameSite: http.SameSiteLaxMode,
	})
}

// readFlash returns and clears the pending Notice, if any.
func readFlash(w http.ResponseWriter, r *http.Request) *Notice {
	var cookie, err = r.Cookie(FlashCookie)
	if err != nil {
		return nil
	}
	clearCookie(w, r, FlashCookie)

	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(cookie.Value))
	if err != nil {
		return nil
	}
	var notice Notice
	if err = json.Unmarshal(decoded, &notice); err != nil || notice.Message == "" {
		return nil
	}
	switch notice.Kind {
	case KindSuccess, KindInfo, KindError:
		return &notice
	default:
		return nil
	}
}

func writeSession(w http.ResponseWriter, r *http.Request, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   isHTTPS(r),
		SameSite: http.SameSiteLaxMode,
	})
}

func readSession(r *http.Request) string {
	var cookie, err = r.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}

func clearCookie(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   isHTTPS(r),
		SameSite: http.SameSiteLaxMode,
	})
}

// isHTTPS returns whether the request arrived over TLS, directly or by way
// of a terminating proxy.
func isHTTPS(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
