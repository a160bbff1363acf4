// Package proximity считает расстояния от объектов до опорных адресов пользователя
// и бонусы за близость.
package proximity

import (
	"math"
	"sort"

	"home_compare/internal/domain"
)

// EarthRadiusMeters — средний радиус Земли для формулы гаверсинусов.
const EarthRadiusMeters = 6371000.0

// Distance — расстояние по дуге большого круга между двумя точками, в метрах.
func Distance(a, b domain.Coordinates) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	h = math.Min(1, h)

	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// ComputeDistances возвращает расстояния от объекта до каждого адреса с координатами,
// по возрастанию. Без координат объекта результат пустой.
func ComputeDistances(property *domain.Coordinates, addresses []domain.ReferenceAddress) []domain.AddressDistance {
	if property == nil {
		return []domain.AddressDistance{}
	}

	out := make([]domain.AddressDistance, 0, len(addresses))
	for _, addr := range addresses {
		coords := addr.Coordinates()
		if coords == nil {
			continue
		}
		out = append(out, domain.AddressDistance{
			AddressID:      addr.ID,
			Label:          addr.Label,
			CustomLabel:    addr.CustomLabel,
			DistanceMeters: Distance(*property, *coords),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DistanceMeters < out[j].DistanceMeters
	})
	return out
}
