package valuation_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/tasador/dataset"
	"github.com/ezoic/tasador/pkg/errors"
	"github.com/ezoic/tasador/preprocessing"
	"github.com/ezoic/tasador/sklearn/compose"
	"github.com/ezoic/tasador/sklearn/pipeline"
	"github.com/ezoic/tasador/sklearn/svm"
	"github.com/ezoic/tasador/valuation"
	"github.com/ezoic/tasador/vehicle"
)

// fittedArtifact trains a small pipeline on synthetic prices.
func fittedArtifact(t *testing.T) *valuation.Artifact {
	t.Helper()
	var records []vehicle.Record
	var prices []float64
	brands := []struct{ brand, model string }{
		{"bmw", "BMW Serie 3"}, {"seat", "Ibiza"}, {"seat", "Leon"}, {"kia", "Ceed"},
	}
	for i := 0; i < 48; i++ {
		b := brands[i%len(brands)]
		year := 2008 + i%14
		km := 20000 + float64(i%10)*15000
		engine := vehicle.EngineTypes[i%2]
		r := vehicle.NewRecord(b.brand, b.model, engine, year, km, 90+float64(i%5)*20, 2026)
		records = append(records, r)
		prices = append(prices, 30000-1200*r.Antiguedad-0.05*km+float64(i%4)*800)
	}

	f, err := vehicle.ToFrame(records)
	require.NoError(t, err)
	y := mat.NewDense(len(prices), 1, nil)
	for i, p := range prices {
		y.Set(i, 0, math.Log1p(p))
	}

	ct, err := compose.New(vehicle.NumericColumns, vehicle.CategoricalColumns, preprocessing.ScalerRobust)
	require.NoError(t, err)
	p := pipeline.New(
		pipeline.Step{Name: "preprocessor", Estimator: ct},
		pipeline.Step{Name: "regressor", Estimator: svm.NewSVR(svm.WithC(10), svm.WithEpsilon(0.05))},
	)
	require.NoError(t, p.Fit(f, y))

	samples := make([]dataset.Sample, len(records))
	models := make([]string, len(records))
	for i, r := range records {
		samples[i] = dataset.Sample{Record: r, Price: prices[i]}
		models[i] = r.ModeloAgrupado
	}
	return &valuation.Artifact{
		Pipeline:      p,
		ReferenceYear: 2026,
		Vocabulary:    dataset.BuildVocabulary(models, dataset.DefaultTopModels),
		Catalog:       dataset.BuildCatalog(samples),
		Summary:       valuation.Summary{ID: "test"},
	}
}

func bmwInput() valuation.Input {
	return valuation.Input{
		Brand:      "BMW",
		Model:      "BMW Serie 3",
		Engine:     vehicle.EngineDiesel,
		Year:       2019,
		Kilometros: 80000,
		ExtCV:      150,
	}
}

func TestEstimate(t *testing.T) {
	a := fittedArtifact(t)
	est := valuation.NewEstimator(a)
	require.True(t, est.Available())

	res, err := est.Estimate(bmwInput())
	require.NoError(t, err)

	assert.Equal(t, "Serie 3", res.Record.ModeloAgrupado)
	assert.Equal(t, 7.0, res.Record.Antiguedad)
	assert.Equal(t, "bmw", res.Record.MarcaBusqueda)

	f, err := vehicle.ToFrame([]vehicle.Record{res.Record})
	require.NoError(t, err)
	raw, err := a.Pipeline.Predict(f)
	require.NoError(t, err)
	assert.InDelta(t, math.Expm1(raw.At(0, 0)), res.Price, 1e-6)

	assert.InDelta(t, res.Price-1270, res.Low, 1e-9)
	assert.InDelta(t, res.Price+1270, res.High, 1e-9)
	assert.Greater(t, res.Price, 0.0)
}

func TestEstimate_UnknownCategoriesStillPredict(t *testing.T) {
	est := valuation.NewEstimator(fittedArtifact(t), valuation.WithErrorMargin(500))
	res, err := est.Estimate(valuation.Input{
		Brand:      "Lancia",
		Model:      "Lancia Ypsilon",
		Engine:     vehicle.EngineCNG,
		Year:       2012,
		Kilometros: 150000,
		ExtCV:      70,
	})
	require.NoError(t, err)
	assert.False(t, math.IsNaN(res.Price))
	assert.Equal(t, vehicle.OtherModel, res.Record.ModeloAgrupado)
	assert.InDelta(t, 1000, res.High-res.Low, 1e-9)
}

func TestEstimate_ModelUnavailable(t *testing.T) {
	est := valuation.NewEstimator(nil)
	assert.False(t, est.Available())
	assert.Nil(t, est.Brands())

	_, err := est.Estimate(bmwInput())
	assert.True(t, errors.Is(err, valuation.ErrModelUnavailable))
}

func TestEstimate_YearAfterReferenceYear(t *testing.T) {
	a := fittedArtifact(t)
	a.ReferenceYear = 2025
	est := valuation.NewEstimator(a)
	assert.Equal(t, 2025, est.MaxYear())

	in := bmwInput()
	in.Year = 2026
	_, err := est.Estimate(in)
	var verr *errors.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "year", verr.Param)
	assert.Equal(t, "lte=2025", verr.Reason)

	in.Year = 2025
	_, err = est.Estimate(in)
	assert.NoError(t, err)
}

func TestEstimate_PredictionErrorCarriesRecord(t *testing.T) {
	a := fittedArtifact(t)
	// a regressor that was never fitted makes the pipeline fail at predict time
	a.Pipeline.Steps[1].Estimator = svm.NewSVR()

	_, err := valuation.NewEstimator(a).Estimate(bmwInput())
	require.Error(t, err)
	var perr *valuation.PredictionError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "Serie 3", perr.Record.ModeloAgrupado)
	assert.Contains(t, err.Error(), "prediction failed")
}

func TestMenus(t *testing.T) {
	est := valuation.NewEstimator(fittedArtifact(t))
	assert.Equal(t, []string{"bmw", "kia", "seat"}, est.Brands())
	assert.Equal(t, []string{"Ibiza", "Leon"}, est.Models("SEAT"))

	menu := dataset.NewCatalog()
	menu.Add("tesla", "Model 3")
	est = valuation.NewEstimator(fittedArtifact(t), valuation.WithCatalog(menu))
	assert.Equal(t, []string{"tesla"}, est.Brands())
	assert.Equal(t, []string{"Model"}, est.Models("tesla"))
}

func TestSaveLoad(t *testing.T) {
	a := fittedArtifact(t)
	path := filepath.Join(t.TempDir(), "modelo.gob")
	require.NoError(t, a.Save(path))

	loaded, err := valuation.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2026, loaded.ReferenceYear)
	assert.Equal(t, a.Vocabulary.Models, loaded.Vocabulary.Models)

	want, err := valuation.NewEstimator(a).Estimate(bmwInput())
	require.NoError(t, err)
	got, err := valuation.NewEstimator(loaded).Estimate(bmwInput())
	require.NoError(t, err)
	assert.InDelta(t, want.Price, got.Price, 1e-9)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := valuation.Load(filepath.Join(dir, "missing.gob"))
	assert.True(t, errors.Is(err, valuation.ErrModelUnavailable))
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	corrupt := filepath.Join(dir, "corrupt.gob")
	require.NoError(t, os.WriteFile(corrupt, []byte("not a gob"), 0o600))
	_, err = valuation.Load(corrupt)
	assert.True(t, errors.Is(err, valuation.ErrModelUnavailable))

	assert.Error(t, (&valuation.Artifact{}).Save(filepath.Join(dir, "empty.gob")))
}
