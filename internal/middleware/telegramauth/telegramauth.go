// Package telegramauth verifies the initData string Telegram passes to a
// Mini App and exposes the authenticated user to handlers.
package telegramauth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	applog "matchday/internal/log"
)

const (
	// HeaderInitData carries the raw initData query string.
	HeaderInitData = "X-Telegram-Init-Data"
	// AuthScheme is accepted as "Authorization: tma <initData>".
	AuthScheme = "tma"
)

var (
	ErrMissing   = errors.New("init data missing")
	ErrNoHash    = errors.New("init data has no hash")
	ErrSignature = errors.New("init data signature mismatch")
	ErrExpired   = errors.New("init data expired")
	ErrNoUser    = errors.New("init data has no user")
)

// User is the Telegram user embedded in initData.
type User struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
}

// InitData is the verified content of initData.
type InitData struct {
	User     User
	AuthDate time.Time
	QueryID  string
}

// Validate checks the signature of raw against botToken and, when maxAge is
// positive, that auth_date is not older than maxAge relative to now.
func Validate(raw, botToken string, maxAge time.Duration, now time.Time) (InitData, error) {
	if raw == "" {
		return InitData{}, ErrMissing
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return InitData{}, fmt.Errorf("parse init data: %w", err)
	}

	hash := values.Get("hash")
	if hash == "" {
		return InitData{}, ErrNoHash
	}
	want, err := hex.DecodeString(hash)
	if err != nil {
		return InitData{}, ErrSignature
	}
	if !hmac.Equal(sign(dataCheckString(values), botToken), want) {
		return InitData{}, ErrSignature
	}

	var data InitData
	data.QueryID = values.Get("query_id")

	if ts, err := strconv.ParseInt(values.Get("auth_date"), 10, 64); err == nil {
		data.AuthDate = time.Unix(ts, 0)
	}
	if maxAge > 0 && (data.AuthDate.IsZero() || now.Sub(data.AuthDate) > maxAge) {
		return InitData{}, ErrExpired
	}

	rawUser := values.Get("user")
	if rawUser == "" {
		return InitData{}, ErrNoUser
	}
	if err := json.Unmarshal([]byte(rawUser), &data.User); err != nil || data.User.ID == 0 {
		return InitData{}, ErrNoUser
	}

	return data, nil
}

// Sign returns the hex hash Telegram would attach to values. It is exported
// for tests and local tooling that need to mint init data.
func Sign(values url.Values, botToken string) string {
	return hex.EncodeToString(sign(dataCheckString(values), botToken))
}

func dataCheckString(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+values.Get(k))
	}
	return strings.Join(lines, "\n")
}

func sign(data, botToken string) []byte {
	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(data))
	return mac.Sum(nil)
}

type contextKey struct{}

// FromContext returns the verified init data stored by Middleware.
func FromContext(ctx context.Context) (InitData, bool) {
	data, ok := ctx.Value(contextKey{}).(InitData)
	return data, ok
}

// Middleware rejects requests without valid initData with 401.
type Middleware struct {
	botToken string
	maxAge   time.Duration
	allowed  func(int64) bool
	now      func() time.Time
	logger   *applog.Logger
}

// NewMiddleware creates the verifier. allowed may be nil to admit every user.
func NewMiddleware(botToken string, maxAge time.Duration, allowed func(int64) bool, logger *applog.Logger) *Middleware {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &Middleware{
		botToken: botToken,
		maxAge:   maxAge,
		allowed:  allowed,
		now:      time.Now,
		logger:   logger.WithComponent(applog.ComponentSecurity),
	}
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := Validate(extract(r), m.botToken, m.maxAge, m.now())
		if err != nil {
			m.logger.WarnContext(r.Context(), "Telegram init data rejected",
				applog.FieldPath, r.URL.Path,
				applog.FieldError, err)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if m.allowed != nil && !m.allowed(data.User.ID) {
			m.logger.WarnContext(r.Context(), "Telegram user not allowed",
				applog.FieldUserID, data.User.ID)
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}

		ctx := context.WithValue(r.Context(), contextKey{}, data)
		ctx = applog.With(ctx, applog.FieldUserID, data.User.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extract(r *http.Request) string {
	if v := r.Header.Get(HeaderInitData); v != "" {
		return v
	}
	if scheme, rest, ok := strings.Cut(r.Header.Get("Authorization"), " "); ok && strings.EqualFold(scheme, AuthScheme) {
		return strings.TrimSpace(rest)
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
