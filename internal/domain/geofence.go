package domain

import (
	"fmt"
	"math"
)

// EarthRadiusMeters — радиус сферы, на которой считается расстояние.
const EarthRadiusMeters = 6371000

// Location — координата в градусах.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate проверяет, что координаты конечны и лежат в допустимых диапазонах.
func (l Location) Validate() error {
	if math.IsNaN(l.Latitude) || math.IsInf(l.Latitude, 0) || l.Latitude < -90 || l.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v", ErrInvalidLocation, l.Latitude)
	}
	if math.IsNaN(l.Longitude) || math.IsInf(l.Longitude, 0) || l.Longitude < -180 || l.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v", ErrInvalidLocation, l.Longitude)
	}
	return nil
}

// Target — точка мероприятия и радиус зачёта.
type Target struct {
	Location
	RadiusMeters float64 `json:"radius_meters"`
}

// Validate проверяет центр и радиус.
func (t Target) Validate() error {
	if err := t.Location.Validate(); err != nil {
		return err
	}
	if math.IsNaN(t.RadiusMeters) || math.IsInf(t.RadiusMeters, 0) || t.RadiusMeters <= 0 {
		return fmt.Errorf("%w: radius %v", ErrInvalidLocation, t.RadiusMeters)
	}
	return nil
}

// Distance вычисляет расстояние между точками в метрах по формуле гаверсинусов.
func Distance(a, b Location) float64 {
	phi1 := a.Latitude * math.Pi / 180
	phi2 := b.Latitude * math.Pi / 180
	deltaPhi := (b.Latitude - a.Latitude) * math.Pi / 180
	deltaLambda := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(deltaPhi/2)*math.Sin(deltaPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*
			math.Sin(deltaLambda/2)*math.Sin(deltaLambda/2)
	if h > 1 {
		h = 1
	}
	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h))
}

// WithinRadius сообщает, попадает ли точка в круг мероприятия. Граница включается.
func WithinRadius(p Location, t Target) bool {
	return Distance(p, t.Location) <= t.RadiusMeters
}
