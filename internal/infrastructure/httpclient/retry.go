package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// StatusError - ответ внешнего сервиса с кодом >= 400
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

// Retryable - стоит ли повторять запрос с таким кодом
func (e *StatusError) Retryable() bool {
	switch e.Code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Doer выполняет HTTP-запросы с повторами на сетевых ошибках, 429 и 5xx
type Doer struct {
	client      *http.Client
	maxAttempts int
	baseWait    time.Duration
	logger      *zap.Logger
}

// NewDoer создает Doer с таймаутом на попытку и не более maxAttempts попытками
func NewDoer(timeout time.Duration, maxAttempts int, baseWait time.Duration, logger *zap.Logger) *Doer {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Doer{
		client:      &http.Client{Timeout: timeout},
		maxAttempts: maxAttempts,
		baseWait:    baseWait,
		logger:      logger,
	}
}

func (d *Doer) do(req *http.Request) (*http.Response, error) {
	resp, err := d.client.Do(req)
	if err != nil {
		// текст *url.Error содержит полный URL вместе с ключом API
		var ue *url.Error
		if errors.As(err, &ue) {
			ue.URL = SafeURL(req.URL)
		}
		return nil, err
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &StatusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(b)),
		}
	}
	return resp, nil
}

// DoWithRetry повторяет makeReq с экспоненциальной задержкой, пока ошибка временная
// и контекст не отменён. makeReq вызывается заново на каждую попытку, чтобы тело
// запроса читалось с начала.
func (d *Doer) DoWithRetry(ctx context.Context, makeReq func() (*http.Request, error)) (*http.Response, error) {
	backoff := d.baseWait
	var lastErr error

	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := makeReq()
		if err != nil {
			return nil, fmt.Errorf("make request: %w", err)
		}

		resp, err := d.do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !isRetryable(err) || attempt == d.maxAttempts {
			return nil, lastErr
		}

		d.logger.Warn("Request failed, retrying",
			zap.String("url", SafeURL(req.URL)),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err))

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		backoff *= 2
	}

	return nil, lastErr
}

func isRetryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// SafeURL - адрес без query и userinfo: в query лежат ключи API
func SafeURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	safe := url.URL{Scheme: u.Scheme, Host: u.Host, Path: u.Path}
	return safe.String()
}
