package dataset

import (
	"math"

	"github.com/ezoic/tasador/vehicle"
)

// Rules are the quality filters applied before training. Price, horsepower
// and year bounds are inclusive; mileage bounds are exclusive.
type Rules struct {
	MinPrice float64 `yaml:"min_price" json:"min_price"`
	MaxPrice float64 `yaml:"max_price" json:"max_price"`
	MinKm    float64 `yaml:"min_km" json:"min_km"`
	MaxKm    float64 `yaml:"max_km" json:"max_km"`
	MinCV    float64 `yaml:"min_cv" json:"min_cv"`
	MaxCV    float64 `yaml:"max_cv" json:"max_cv"`
	MinYear  float64 `yaml:"min_year" json:"min_year"`
}

// DefaultRules drop broken listings and classics.
func DefaultRules() Rules {
	return Rules{
		MinPrice: 1500,
		MaxPrice: 140000,
		MinKm:    100,
		MaxKm:    400000,
		MinCV:    50,
		MaxCV:    600,
		MinYear:  2000,
	}
}

// Keep reports whether l passes every filter. Any NaN field fails.
func (r Rules) Keep(l Listing, referenceYear int) bool {
	age := vehicle.Age(referenceYear, l.Year)
	return l.Price >= r.MinPrice && l.Price <= r.MaxPrice &&
		l.Kilometros > r.MinKm && l.Kilometros < r.MaxKm &&
		l.ExtCV >= r.MinCV && l.ExtCV <= r.MaxCV &&
		l.Year >= r.MinYear &&
		!math.IsNaN(age)
}

// Sample is a cleaned training row.
type Sample struct {
	Record vehicle.Record
	Price  float64
}

// CleanStats counts what Clean kept.
type CleanStats struct {
	Read int `json:"read"`
	Kept int `json:"kept"`
}

// Clean filters listings and turns the survivors into samples with a
// canonical model name.
func Clean(listings []Listing, rules Rules, referenceYear int) ([]Sample, CleanStats) {
	stats := CleanStats{Read: len(listings)}
	samples := make([]Sample, 0, len(listings))
	for _, l := range listings {
		if !rules.Keep(l, referenceYear) {
			continue
		}
		samples = append(samples, Sample{
			Record: vehicle.Record{
				Kilometros:     l.Kilometros,
				Antiguedad:     vehicle.Age(referenceYear, l.Year),
				ExtCV:          l.ExtCV,
				MarcaBusqueda:  vehicle.NormalizeBrand(l.Brand),
				Motor:          vehicle.NormalizeEngine(l.Engine),
				ModeloAgrupado: vehicle.CanonicalModel(l.Brand, l.Model),
			},
			Price: l.Price,
		})
	}
	stats.Kept = len(samples)
	return samples, stats
}
