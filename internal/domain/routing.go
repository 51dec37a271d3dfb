package domain

import (
	"encoding/json"
	"time"
)

// Статусы ответа движка маршрутизации (совместимы с Directions API)
const (
	DirectionsStatusOK           = "OK"
	DirectionsStatusZeroResults  = "ZERO_RESULTS"
	DirectionsStatusInvalid      = "INVALID_REQUEST"
	DirectionsStatusUnknownError = "UNKNOWN_ERROR"
)

// TravelModeDriving - единственный режим, который использует перемаршрутизация
const TravelModeDriving = "driving"

// RouteLeg - участок между остановками i и i+1
type RouteLeg struct {
	DurationSeconds int `json:"duration_seconds"`
	DistanceMeters  int `json:"distance_meters"`
}

// Duration возвращает длительность участка
func (l RouteLeg) Duration() time.Duration {
	return time.Duration(l.DurationSeconds) * time.Second
}

// DirectionsRequest - запрос маршрута. Порядок Waypoints задаёт вызывающий,
// движок его не переупорядочивает.
type DirectionsRequest struct {
	Mode              string    `json:"mode"`
	Origin            Point     `json:"origin"`
	Destination       Point     `json:"destination"`
	Waypoints         []Point   `json:"waypoints"`
	DepartureTime     time.Time `json:"departure_time"`
	OptimizeWaypoints bool      `json:"optimize_waypoints"`
	IdempotencyKey    string    `json:"-"`
}

// Stops возвращает полную последовательность точек маршрута
func (r DirectionsRequest) Stops() []Point {
	points := make([]Point, 0, len(r.Waypoints)+2)
	points = append(points, r.Origin)
	points = append(points, r.Waypoints...)
	return append(points, r.Destination)
}

// DirectionsResult - разобранный ответ движка маршрутизации
type DirectionsResult struct {
	Status           string          `json:"status"`
	ErrorMessage     string          `json:"error_message,omitempty"`
	Legs             []RouteLeg      `json:"legs"`
	OverviewPolyline string          `json:"overview_polyline"`
	Raw              json.RawMessage `json:"-"`
}

// OK - движок вернул маршрут
func (r *DirectionsResult) OK() bool {
	return r != nil && r.Status == DirectionsStatusOK
}
