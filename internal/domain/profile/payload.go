package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ErrInvalidPayload is returned when a cached profile payload cannot be used.
var ErrInvalidPayload = errors.New("invalid elevation profile payload")

// Point is one [distanceKm, elevationM] pair of a cached payload.
type Point [2]float64

// ParsePayload decodes a JSON array of [distanceKm, elevationM] pairs.
func ParsePayload(data []byte) ([]Point, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidPayload)
	}

	var raw [][]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: no points", ErrInvalidPayload)
	}

	points := make([]Point, len(raw))
	for i, p := range raw {
		if len(p) < 2 {
			return nil, fmt.Errorf("%w: point %d has %d values", ErrInvalidPayload, i, len(p))
		}
		if math.IsNaN(p[0]) || math.IsNaN(p[1]) || p[0] < 0 {
			return nil, fmt.Errorf("%w: point %d is not a valid distance/elevation", ErrInvalidPayload, i)
		}
		if i > 0 && p[0] < points[i-1][0] {
			return nil, fmt.Errorf("%w: distance decreases at point %d", ErrInvalidPayload, i)
		}
		points[i] = Point{p[0], p[1]}
	}
	return points, nil
}

// EncodePayload encodes samples as a payload with km rounded to 3 decimals and metres to 1.
func EncodePayload(samples []Sample) ([]byte, error) {
	raw := make([][2]float64, len(samples))
	for i, s := range samples {
		raw[i] = [2]float64{round(s.DistanceKm, 3), round(s.ElevationM, 1)}
	}
	return json.Marshal(raw)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
