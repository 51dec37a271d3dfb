package domain

import "fmt"

// PolicyKind - вид политики перемаршрутизации
type PolicyKind string

const (
	// PolicyKindTimeBeforeService - запуск за фиксированное время до отправления
	PolicyKindTimeBeforeService PolicyKind = "time_before_service"
)

// OffsetUnit - единица смещения политики
type OffsetUnit string

const (
	OffsetUnitDays    OffsetUnit = "days"
	OffsetUnitHours   OffsetUnit = "hours"
	OffsetUnitMinutes OffsetUnit = "minutes"
)

// Minutes переводит quantity единиц в минуты.
// Неизвестная единица - ошибка, а не молчаливый ноль.
func (u OffsetUnit) Minutes(quantity int) (int, error) {
	switch u {
	case OffsetUnitDays:
		return quantity * 24 * 60, nil
	case OffsetUnitHours:
		return quantity * 60, nil
	case OffsetUnitMinutes:
		return quantity, nil
	}
	return 0, fmt.Errorf("unknown offset unit %q", string(u))
}

// PolicyOffset - смещение момента запуска относительно отправления
type PolicyOffset struct {
	Quantity *int       `json:"quantity" db:"offset_quantity" validate:"required,gte=0"`
	Unit     OffsetUnit `json:"unit" db:"offset_unit" validate:"required,oneof=days hours minutes"`
}

// RoutePolicy - политика перемаршрутизации маршрута
type RoutePolicy struct {
	RouteID   int64         `json:"route_id" db:"route_id" validate:"required"`
	Activated bool          `json:"activated" db:"activated"`
	Kind      PolicyKind    `json:"kind" db:"kind" validate:"required"`
	Offset    *PolicyOffset `json:"offset" validate:"required"`
}

// MinutesBefore возвращает смещение политики в минутах
func (p *RoutePolicy) MinutesBefore() (int, error) {
	if p.Offset == nil || p.Offset.Quantity == nil {
		return 0, fmt.Errorf("route %d: policy offset is not set", p.RouteID)
	}
	return p.Offset.Unit.Minutes(*p.Offset.Quantity)
}

// AppliesTimeBeforeService - политика активна и имеет вид time_before_service
func (p *RoutePolicy) AppliesTimeBeforeService() bool {
	return p.Activated && p.Kind == PolicyKindTimeBeforeService
}
