package domain

import (
	"fmt"
	"time"
)

type Point struct {
	Lat float64 `json:"lat" db:"lat"`
	Lon float64 `json:"lon" db:"lon"`
}

// ClockTime - локальное время суток в формате "HH:MM" без даты
type ClockTime string

const (
	clockLayout        = "15:04"
	clockLayoutSeconds = "15:04:05"
)

// clockAnchor - опорная дата для арифметики над ClockTime
var clockAnchor = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// ParseClockTime разбирает "HH:MM" или "HH:MM:SS"
func ParseClockTime(s string) (ClockTime, error) {
	t, err := parseClock(s)
	if err != nil {
		return "", err
	}
	return ClockTimeOf(t), nil
}

// ClockTimeOf возвращает время суток t
func ClockTimeOf(t time.Time) ClockTime {
	return ClockTime(t.Format(clockLayout))
}

// Time возвращает полный timestamp на опорной дате.
// Вся арифметика идёт через него, а не через строки.
func (c ClockTime) Time() (time.Time, error) {
	return parseClock(string(c))
}

// Add сдвигает время на d. Переход через полночь не переносит дату.
func (c ClockTime) Add(d time.Duration) (ClockTime, error) {
	t, err := c.Time()
	if err != nil {
		return "", err
	}
	return ClockTimeOf(t.Add(d)), nil
}

// Sub возвращает c - other
func (c ClockTime) Sub(other ClockTime) (time.Duration, error) {
	a, err := c.Time()
	if err != nil {
		return 0, err
	}
	b, err := other.Time()
	if err != nil {
		return 0, err
	}
	return a.Sub(b), nil
}

func (c ClockTime) String() string {
	return string(c)
}

func parseClock(s string) (time.Time, error) {
	layout := clockLayout
	if len(s) == len(clockLayoutSeconds) {
		layout = clockLayoutSeconds
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	return time.Date(
		clockAnchor.Year(), clockAnchor.Month(), clockAnchor.Day(),
		t.Hour(), t.Minute(), t.Second(), 0, time.UTC,
	), nil
}

// ScheduleStats - агрегированная статистика по расписаниям перемаршрутизации
type ScheduleStats struct {
	Pending     int        `json:"pending" db:"pending"`
	Executed    int        `json:"executed" db:"executed"`
	Rerouted    int        `json:"rerouted" db:"rerouted"`
	NotRerouted int        `json:"not_rerouted" db:"not_rerouted"`
	NextDueAt   *time.Time `json:"next_due_at,omitempty" db:"next_due_at"`
	LastUpdated time.Time  `json:"last_updated"`
}
