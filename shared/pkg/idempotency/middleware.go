package idempotency

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mes-platform/production/shared/pkg/errors"
	"github.com/mes-platform/production/shared/pkg/metrics"
	"github.com/mes-platform/production/shared/pkg/middleware"
)

// HeaderReplayed marks a response served from the store
const HeaderReplayed = "Idempotent-Replayed"

// CodeKeyReused is returned when a key comes back with a different request
const CodeKeyReused = "IDEMPOTENCY_KEY_REUSED"

// Config holds configuration for the idempotency middleware
type Config struct {
	Service         string
	Store           Store
	Logger          *slog.Logger
	Metrics         *metrics.Metrics
	LockTimeout     time.Duration
	Retention       time.Duration
	MaxResponseSize int
}

// DefaultConfig returns a configuration with a 24h retention
func DefaultConfig(service string, store Store, logger *slog.Logger, m *metrics.Metrics) *Config {
	return &Config{
		Service:         service,
		Store:           store,
		Logger:          logger,
		Metrics:         m,
		LockTimeout:     2 * time.Minute,
		Retention:       24 * time.Hour,
		MaxResponseSize: 1 << 20,
	}
}

type capturingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *capturingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Middleware replays completed commands and rejects concurrent duplicates.
// Requests without the header pass through.
func Middleware(cfg *Config) gin.HandlerFunc {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return func(c *gin.Context) {
		if !isMutating(c.Request.Method) {
			c.Next()
			return
		}

		key := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
		if key == "" {
			c.Next()
			return
		}
		if err := ValidateKey(key); err != nil {
			middleware.AbortWithError(c, err)
			return
		}

		var body []byte
		if c.Request.Body != nil {
			body, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}

		now := time.Now().UTC()
		entry := &Entry{
			ID:          EntryID(cfg.Service, key),
			Key:         key,
			Service:     cfg.Service,
			Method:      c.Request.Method,
			Path:        c.Request.URL.Path,
			Fingerprint: Fingerprint(c.Request.Method, c.Request.URL.Path, middleware.GetOperator(c), body),
			LockedAt:    now,
			ExpiresAt:   now.Add(cfg.Retention),
		}
		log := cfg.Logger.With("idempotencyKey", key, "path", entry.Path)

		stored, acquired, err := cfg.Store.Acquire(c.Request.Context(), entry, cfg.LockTimeout)
		if err != nil {
			log.Error("Idempotency store unavailable", "error", err)
			cfg.Metrics.RecordIdempotentRequest("error")
			middleware.AbortWithAppError(c, errors.ErrServiceUnavailable("idempotency store").Wrap(err))
			return
		}

		if !acquired {
			switch {
			case stored.Fingerprint != entry.Fingerprint:
				log.Warn("Idempotency key reused for a different request")
				cfg.Metrics.RecordIdempotentRequest("mismatch")
				middleware.AbortWithAppError(c, errors.NewAppError(CodeKeyReused,
					"idempotency key was already used for a different request", http.StatusUnprocessableEntity))
			case stored.Completed():
				log.Info("Replaying stored response", "statusCode", stored.StatusCode)
				cfg.Metrics.RecordIdempotentRequest("replayed")
				c.Header(HeaderReplayed, "true")
				contentType := stored.ContentType
				if contentType == "" {
					contentType = "application/json; charset=utf-8"
				}
				c.Data(stored.StatusCode, contentType, stored.Body)
				c.Abort()
			default:
				cfg.Metrics.RecordIdempotentRequest("in_flight")
				middleware.AbortWithAppError(c, errors.ErrConflict("a request with this idempotency key is still being processed"))
			}
			return
		}

		cfg.Metrics.RecordIdempotentRequest("new")
		writer := &capturingWriter{ResponseWriter: c.Writer}
		c.Writer = writer

		c.Next()

		// The response is already sent; bookkeeping must outlive the request
		ctx := context.WithoutCancel(c.Request.Context())
		status := writer.Status()

		if retryable(status) || writer.body.Len() > cfg.MaxResponseSize {
			if err := cfg.Store.Release(ctx, entry); err != nil {
				log.Error("Failed to release idempotency key", "error", err)
			}
			return
		}

		completedAt := time.Now().UTC()
		entry.StatusCode = status
		entry.Body = writer.body.Bytes()
		entry.ContentType = writer.Header().Get("Content-Type")
		entry.CompletedAt = &completedAt
		if err := cfg.Store.Complete(ctx, entry); err != nil {
			log.Error("Failed to store idempotent response", "error", err)
		}
	}
}

// retryable responses are forgotten so the same key can be sent again
func retryable(status int) bool {
	return status >= http.StatusInternalServerError || status == http.StatusConflict
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
