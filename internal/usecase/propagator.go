package usecase

import (
	"fmt"
	"time"

	"github.com/rerouting-service/internal/domain"
)

// ceilMinute округляет длительность вверх до целой минуты
func ceilMinute(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return (d + time.Minute - 1).Truncate(time.Minute)
}

// DwellTime - стоянка на остановке origin: |departure - arrival|
func DwellTime(origin domain.Stop) (time.Duration, error) {
	d, err := origin.DepartureTime.Sub(origin.ArrivalTime)
	if err != nil {
		return 0, fmt.Errorf("origin %d dwell: %w", origin.ID, err)
	}
	if d < 0 {
		d = -d
	}
	return d, nil
}

// PropagateTimes пересчитывает прибытие и отправление всех остановок после первой
// по длительностям участков. Возвращает копию; исходный срез не меняется.
//
// stops[i+1].arrival   = stops[i].departure + ceil(legs[i])
// stops[i+1].departure = stops[i+1].arrival + ceil(dwell)
//
// Цепочка считается на полных timestamp, в HH:MM переводится только результат.
func PropagateTimes(stops []domain.Stop, legs []domain.RouteLeg, dwell time.Duration) ([]domain.Stop, error) {
	out := make([]domain.Stop, len(stops))
	copy(out, stops)

	n := len(legs)
	if n > len(stops)-1 {
		n = len(stops) - 1
	}
	if n <= 0 {
		return out, nil
	}

	departure, err := out[0].DepartureTime.Time()
	if err != nil {
		return nil, fmt.Errorf("stop %d departure: %w", out[0].ID, err)
	}
	dwellStep := ceilMinute(dwell)

	for i := 0; i < n; i++ {
		arrival := departure.Add(ceilMinute(legs[i].Duration()))
		departure = arrival.Add(dwellStep)

		out[i+1].ArrivalTime = domain.ClockTimeOf(arrival)
		out[i+1].DepartureTime = domain.ClockTimeOf(departure)
	}

	return out, nil
}
