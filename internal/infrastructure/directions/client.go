package directions

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/rerouting-service/internal/config"
	"github.com/rerouting-service/internal/domain"
	"github.com/rerouting-service/internal/domain/repository"
	"github.com/rerouting-service/internal/infrastructure/httpclient"
	"github.com/rerouting-service/internal/pkg/polyline"
)

const directionsPath = "/maps/api/directions/json"

type client struct {
	doer     *httpclient.Doer
	baseURL  string
	apiKey   string
	maxStops int
	logger   *zap.Logger
}

// NewDirectionsClient создает клиент Directions-совместимого движка маршрутизации
func NewDirectionsClient(cfg *config.RoutingConfig, logger *zap.Logger) repository.RoutingRepository {
	maxStops := cfg.MaxRouteStops
	if maxStops < 2 {
		maxStops = 2
	}
	return &client{
		doer:     httpclient.NewDoer(cfg.Timeout, cfg.MaxRetries, cfg.RetryBaseWait, logger),
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		maxStops: maxStops,
		logger:   logger,
	}
}

type textValue struct {
	Value int `json:"value"`
}

type apiLeg struct {
	Duration textValue `json:"duration"`
	Distance textValue `json:"distance"`
}

type apiRoute struct {
	Legs             []apiLeg `json:"legs"`
	OverviewPolyline struct {
		Points string `json:"points"`
	} `json:"overview_polyline"`
}

type apiResponse struct {
	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message"`
	Routes       []apiRoute `json:"routes"`
}

// GetRoute возвращает маршрут. Если точек больше лимита движка, маршрут
// запрашивается кусками, соседние куски делят граничную точку.
func (c *client) GetRoute(ctx context.Context, req domain.DirectionsRequest) (*domain.DirectionsResult, error) {
	stops := req.Stops()
	if len(stops) < 2 {
		return nil, fmt.Errorf("%w: at least two stops are required", domain.ErrInvalidRequestFormat)
	}

	if len(stops) <= c.maxStops {
		return c.getChunk(ctx, req, stops, req.IdempotencyKey)
	}

	chunks := splitStops(stops, c.maxStops)
	c.logger.Debug("Route exceeds engine stop limit, splitting",
		zap.Int("stops", len(stops)),
		zap.Int("chunks", len(chunks)))

	results := make([]*domain.DirectionsResult, 0, len(chunks))
	for i, chunk := range chunks {
		key := req.IdempotencyKey
		if key != "" {
			key = fmt.Sprintf("%s:%d", key, i)
		}
		res, err := c.getChunk(ctx, req, chunk, key)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}
		if !res.OK() {
			return res, nil
		}
		results = append(results, res)
	}

	return combineResults(results)
}

func (c *client) getChunk(
	ctx context.Context,
	req domain.DirectionsRequest,
	stops []domain.Point,
	idempotencyKey string,
) (*domain.DirectionsResult, error) {
	endpoint := c.buildURL(req, stops)

	c.logger.Debug("Calling Directions API",
		zap.Int("stops_count", len(stops)),
		zap.String("idempotency_key", idempotencyKey))

	resp, err := c.doer.DoWithRetry(ctx, func() (*http.Request, error) {
		r, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		r.Header.Set("Accept", "application/json")
		if idempotencyKey != "" {
			r.Header.Set("X-Idempotency-Key", idempotencyKey)
		}
		return r, nil
	})
	if err != nil {
		c.logger.Error("Directions API request failed", zap.Error(err))
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(raw, &apiResp); err != nil {
		c.logger.Error("Failed to decode response", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidResponseFormat, err)
	}

	result := &domain.DirectionsResult{
		Status:       apiResp.Status,
		ErrorMessage: apiResp.ErrorMessage,
		Raw:          json.RawMessage(raw),
	}

	if apiResp.Status != domain.DirectionsStatusOK {
		c.logger.Warn("Directions API returned non-OK status",
			zap.String("status", apiResp.Status),
			zap.String("error_message", apiResp.ErrorMessage))
		return result, nil
	}

	if len(apiResp.Routes) == 0 {
		return nil, fmt.Errorf("%w: no routes in OK response", domain.ErrInvalidResponseFormat)
	}

	route := apiResp.Routes[0]
	result.OverviewPolyline = route.OverviewPolyline.Points
	result.Legs = make([]domain.RouteLeg, 0, len(route.Legs))
	for _, leg := range route.Legs {
		result.Legs = append(result.Legs, domain.RouteLeg{
			DurationSeconds: leg.Duration.Value,
			DistanceMeters:  leg.Distance.Value,
		})
	}

	c.logger.Debug("Directions API call successful",
		zap.Int("legs", len(result.Legs)))

	return result, nil
}

func (c *client) buildURL(req domain.DirectionsRequest, stops []domain.Point) string {
	q := url.Values{}
	q.Set("origin", formatPoint(stops[0]))
	q.Set("destination", formatPoint(stops[len(stops)-1]))

	mode := req.Mode
	if mode == "" {
		mode = domain.TravelModeDriving
	}
	q.Set("mode", mode)

	if inner := stops[1 : len(stops)-1]; len(inner) > 0 {
		parts := make([]string, 0, len(inner)+1)
		parts = append(parts, "optimize:"+strconv.FormatBool(req.OptimizeWaypoints))
		for _, p := range inner {
			parts = append(parts, formatPoint(p))
		}
		q.Set("waypoints", strings.Join(parts, "|"))
	}

	if !req.DepartureTime.IsZero() {
		q.Set("departure_time", strconv.FormatInt(req.DepartureTime.Unix(), 10))
	}
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}

	return c.baseURL + directionsPath + "?" + q.Encode()
}

func formatPoint(p domain.Point) string {
	return strconv.FormatFloat(p.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(p.Lon, 'f', 6, 64)
}

// splitStops режет последовательность на куски не длиннее size;
// последний элемент куска - первый элемент следующего.
func splitStops(stops []domain.Point, size int) [][]domain.Point {
	var chunks [][]domain.Point
	for start := 0; start < len(stops)-1; start += size - 1 {
		end := start + size
		if end > len(stops) {
			end = len(stops)
		}
		chunks = append(chunks, stops[start:end])
	}
	return chunks
}

// combineResults склеивает участки и полилинии последовательных кусков
func combineResults(results []*domain.DirectionsResult) (*domain.DirectionsResult, error) {
	combined := &domain.DirectionsResult{Status: domain.DirectionsStatusOK}
	raws := make([]json.RawMessage, 0, len(results))
	var points []domain.Point

	for i, res := range results {
		combined.Legs = append(combined.Legs, res.Legs...)
		raws = append(raws, res.Raw)

		decoded, err := polyline.Decode(res.OverviewPolyline)
		if err != nil {
			return nil, fmt.Errorf("%w: chunk %d polyline: %v", domain.ErrInvalidResponseFormat, i, err)
		}
		if i > 0 && len(points) > 0 && len(decoded) > 0 && decoded[0] == points[len(points)-1] {
			decoded = decoded[1:]
		}
		points = append(points, decoded...)
	}

	raw, err := json.Marshal(raws)
	if err != nil {
		return nil, fmt.Errorf("marshal combined response: %w", err)
	}
	combined.Raw = raw
	combined.OverviewPolyline = polyline.Encode(points)

	return combined, nil
}
