package utils

import "github.com/rerouting-service/internal/domain"

// ValidateCoordinates проверяет валидность координат
func ValidateCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// ValidatePoints проверяет все точки; возвращает индекс первой невалидной или -1
func ValidatePoints(points []domain.Point) int {
	for i, p := range points {
		if !ValidateCoordinates(p.Lat, p.Lon) {
			return i
		}
	}
	return -1
}
