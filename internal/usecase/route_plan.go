package usecase

import (
	"fmt"
	"time"

	"github.com/rerouting-service/internal/domain"
	"github.com/rerouting-service/internal/pkg/utils"
)

// RoutePlan - запрос к движку маршрутизации и последовательность остановок,
// по которой потом пересчитываются времена: origin, waypoints..., destination.
type RoutePlan struct {
	Request domain.DirectionsRequest
	Stops   []domain.Stop
}

// BuildRoutePlan раскладывает остановки сервиса по ролям.
//
// В маршрут попадают только waypoint с ненулевой посадкой или высадкой.
// Если на destination никто не выходит, конечной точкой запроса становится
// последний такой waypoint, а сама destination из последовательности выпадает.
// Подсказка отправления = now + departure offset остановки origin.
func BuildRoutePlan(stops []domain.Stop, now time.Time) (*RoutePlan, error) {
	var (
		origin      *domain.Stop
		destination *domain.Stop
		waypoints   []domain.Stop
	)

	for i := range stops {
		switch stops[i].Type {
		case domain.StopTypeOrigin:
			if origin == nil {
				origin = &stops[i]
			}
		case domain.StopTypeWaypoint:
			if stops[i].HasOccupation() {
				waypoints = append(waypoints, stops[i])
			}
		case domain.StopTypeDestination:
			destination = &stops[i]
		}
	}

	if origin == nil {
		return nil, fmt.Errorf("%w: service has no origin stop", domain.ErrInvalidRequestFormat)
	}

	points := make([]domain.Point, 0, len(waypoints))
	for _, wp := range waypoints {
		points = append(points, wp.Point())
	}

	sequence := make([]domain.Stop, 0, len(waypoints)+2)
	sequence = append(sequence, *origin)
	sequence = append(sequence, waypoints...)

	// последний waypoint остаётся в waypoints и дублируется как destination;
	// лишний нулевой leg движка отсекается в PropagateTimes
	var end domain.Point
	switch {
	case destination != nil && destination.OccupationDestination != 0:
		end = destination.Point()
		sequence = append(sequence, *destination)
	case len(waypoints) > 0:
		end = waypoints[len(waypoints)-1].Point()
	case destination != nil:
		end = destination.Point()
		sequence = append(sequence, *destination)
	default:
		return nil, fmt.Errorf("%w: service has no destination stop", domain.ErrInvalidRequestFormat)
	}

	departure := now.UTC()
	if origin.DepartureOffsetMinutes != nil {
		departure = departure.Add(time.Duration(*origin.DepartureOffsetMinutes) * time.Minute)
	}

	req := domain.DirectionsRequest{
		Mode:              domain.TravelModeDriving,
		Origin:            origin.Point(),
		Destination:       end,
		Waypoints:         points,
		DepartureTime:     departure,
		OptimizeWaypoints: false,
	}
	if i := utils.ValidatePoints(req.Stops()); i >= 0 {
		return nil, fmt.Errorf("%w: stop %d has invalid coordinates", domain.ErrInvalidRequestFormat, i)
	}

	return &RoutePlan{Request: req, Stops: sequence}, nil
}
