package expedition

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/rerouting-service/internal/config"
	"github.com/rerouting-service/internal/domain"
	"github.com/rerouting-service/internal/domain/repository"
	"github.com/rerouting-service/internal/infrastructure/httpclient"
)

const expeditionsPath = "/api/v1/expeditions"

type client struct {
	doer    *httpclient.Doer
	baseURL string
	logger  *zap.Logger
}

// NewExpeditionClient создает клиент сервиса экспедиций
func NewExpeditionClient(cfg *config.ExpeditionConfig, logger *zap.Logger) repository.ExpeditionRepository {
	return &client{
		doer:    httpclient.NewDoer(cfg.Timeout, cfg.MaxRetries, cfg.RetryBaseWait, logger),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		logger:  logger,
	}
}

// Create сохраняет план перемаршрутизации. 409 с телом экспедиции означает,
// что запрос с этим ключом уже был принят, и возвращается сохранённая экспедиция.
func (c *client) Create(ctx context.Context, result *domain.ProcessedResult, idempotencyKey string) (*domain.Expedition, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal expedition request: %w", err)
	}

	endpoint := c.baseURL + expeditionsPath

	resp, err := c.doer.DoWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Idempotency-Key", idempotencyKey)
		return req, nil
	})
	if err != nil {
		var se *httpclient.StatusError
		if errors.As(err, &se) && se.Code == http.StatusConflict {
			if exp, ok := parseExpedition([]byte(se.Body)); ok {
				c.logger.Info("Expedition already exists for idempotency key",
					zap.Int64("service_id", result.ServiceID),
					zap.String("expedition_id", exp.ID))
				return exp, nil
			}
		}
		c.logger.Error("Expedition request failed",
			zap.Int64("service_id", result.ServiceID),
			zap.Error(err))
		return nil, fmt.Errorf("expedition request failed: %w", err)
	}
	defer resp.Body.Close()

	var exp domain.Expedition
	if err := json.NewDecoder(resp.Body).Decode(&exp); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidResponseFormat, err)
	}
	if exp.ID == "" {
		return nil, fmt.Errorf("%w: expedition id is empty", domain.ErrInvalidResponseFormat)
	}
	if exp.ServiceID == 0 {
		exp.ServiceID = result.ServiceID
	}

	return &exp, nil
}

func parseExpedition(body []byte) (*domain.Expedition, bool) {
	var exp domain.Expedition
	if err := json.Unmarshal(body, &exp); err != nil || exp.ID == "" {
		return nil, false
	}
	return &exp, true
}
