package vehicle

import (
	"math"

	"github.com/ezoic/tasador/core/frame"
)

// Feature column names, in pipeline order.
const (
	ColKilometros     = "kilometros"
	ColAntiguedad     = "antiguedad"
	ColExtCV          = "ext_CV"
	ColMarcaBusqueda  = "marca_busqueda"
	ColMotor          = "motor"
	ColModeloAgrupado = "modelo_agrupado"
)

// NumericColumns are median-imputed and robust-scaled.
var NumericColumns = []string{ColKilometros, ColAntiguedad, ColExtCV}

// CategoricalColumns are constant-imputed and one-hot encoded.
var CategoricalColumns = []string{ColMarcaBusqueda, ColMotor, ColModeloAgrupado}

// Record is one row of model input. Missing numerics are NaN and missing
// categoricals are "".
type Record struct {
	Kilometros     float64 `json:"kilometros"`
	Antiguedad     float64 `json:"antiguedad"`
	ExtCV          float64 `json:"ext_CV"`
	MarcaBusqueda  string  `json:"marca_busqueda"`
	Motor          string  `json:"motor"`
	ModeloAgrupado string  `json:"modelo_agrupado"`
}

// Age returns referenceYear - year, or NaN when year is NaN.
func Age(referenceYear int, year float64) float64 {
	if math.IsNaN(year) {
		return math.NaN()
	}
	return float64(referenceYear) - year
}

// NewRecord builds a record from raw attributes, normalizing the brand and
// engine and canonicalizing the model name.
//
// Example:
//
//	r := vehicle.NewRecord("BMW", "BMW Serie 3", "Diésel", 2019, 80000, 150, 2026)
//	// r.ModeloAgrupado == "Serie 3", r.Antiguedad == 7
func NewRecord(brand, model, engine string, year int, km, cv float64, referenceYear int) Record {
	return Record{
		Kilometros:     km,
		Antiguedad:     Age(referenceYear, float64(year)),
		ExtCV:          cv,
		MarcaBusqueda:  NormalizeBrand(brand),
		Motor:          NormalizeEngine(engine),
		ModeloAgrupado: CanonicalModel(brand, model),
	}
}

// Fields renders the record by column name, with missing values as nil.
func (r Record) Fields() map[string]interface{} {
	out := map[string]interface{}{
		ColMarcaBusqueda:  nilIfEmpty(r.MarcaBusqueda),
		ColMotor:          nilIfEmpty(r.Motor),
		ColModeloAgrupado: nilIfEmpty(r.ModeloAgrupado),
	}
	for name, v := range map[string]float64{
		ColKilometros: r.Kilometros,
		ColAntiguedad: r.Antiguedad,
		ColExtCV:      r.ExtCV,
	} {
		if math.IsNaN(v) {
			out[name] = nil
		} else {
			out[name] = v
		}
	}
	return out
}

func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// ToFrame lays records out as a frame with the feature columns in pipeline
// order.
func ToFrame(records []Record) (*frame.Frame, error) {
	n := len(records)
	km := make([]float64, n)
	age := make([]float64, n)
	cv := make([]float64, n)
	brand := make([]string, n)
	engine := make([]string, n)
	model := make([]string, n)
	for i, r := range records {
		km[i], age[i], cv[i] = r.Kilometros, r.Antiguedad, r.ExtCV
		brand[i], engine[i], model[i] = r.MarcaBusqueda, r.Motor, r.ModeloAgrupado
	}

	f := frame.New(n)
	for _, add := range []func() error{
		func() error { return f.AddFloats(ColKilometros, km) },
		func() error { return f.AddFloats(ColAntiguedad, age) },
		func() error { return f.AddFloats(ColExtCV, cv) },
		func() error { return f.AddStrings(ColMarcaBusqueda, brand) },
		func() error { return f.AddStrings(ColMotor, engine) },
		func() error { return f.AddStrings(ColModeloAgrupado, model) },
	} {
		if err := add(); err != nil {
			return nil, err
		}
	}
	return f, nil
}
