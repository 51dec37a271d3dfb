package domain

// StopType - тип остановки в плане маршрута
type StopType int

const (
	StopTypeOrigin      StopType = 1
	StopTypeWaypoint    StopType = 2
	StopTypeDestination StopType = 3
)

func (t StopType) String() string {
	switch t {
	case StopTypeOrigin:
		return "origin"
	case StopTypeWaypoint:
		return "waypoint"
	case StopTypeDestination:
		return "destination"
	}
	return "unknown"
}

// Stop - остановка плана маршрута. Порядок остановок в плане значим.
type Stop struct {
	ID                    int64     `json:"id" db:"stop_id"`
	Type                  StopType  `json:"type" db:"stop_type"`
	Lat                   float64   `json:"lat" db:"lat"`
	Lon                   float64   `json:"lon" db:"lon"`
	ArrivalTime           ClockTime `json:"arrival_time" db:"arrival_time"`
	DepartureTime         ClockTime `json:"departure_time" db:"departure_time"`
	Passengers            int       `json:"passengers" db:"passengers"`
	OccupationOrigin      int       `json:"occupation_origin" db:"occupation_origin"`
	OccupationDestination int       `json:"occupation_destination" db:"occupation_destination"`

	// DepartureOffsetMinutes задаётся только у origin: смещение подсказки
	// времени отправления для движка маршрутизации относительно "сейчас".
	DepartureOffsetMinutes *int `json:"departure_offset_minutes,omitempty" db:"departure_offset_minutes"`
}

// Point возвращает координаты остановки
func (s Stop) Point() Point {
	return Point{Lat: s.Lat, Lon: s.Lon}
}

// HasOccupation - есть ли посадка или высадка на остановке
func (s Stop) HasOccupation() bool {
	return s.OccupationOrigin != 0 || s.OccupationDestination != 0
}
