package geo

import "math"

// EarthRadiusKM 地球平均半径（公里）
const EarthRadiusKM = 6371.0

// DistanceKM 计算两点间大圆距离（haversine，公里）
func DistanceKM(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLng := radians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKM * c
}

// WithinRadiusKM 判断两点距离是否在半径内（边界包含）
func WithinRadiusKM(lat1, lng1, lat2, lng2, radiusKM float64) bool {
	return DistanceKM(lat1, lng1, lat2, lng2) <= radiusKM
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
