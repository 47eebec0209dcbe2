package trainer_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezoic/tasador/core/model"
	"github.com/ezoic/tasador/pkg/errors"
	"github.com/ezoic/tasador/trainer"
	"github.com/ezoic/tasador/valuation"
	"github.com/ezoic/tasador/vehicle"
)

// writeListings writes a synthetic listings file with a few rows the
// quality filters must drop.
func writeListings(t *testing.T, dir string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("año;ext_CV;kilometros;precio_€;marca_busqueda;modelo;motor\n")
	cars := []struct{ brand, model string }{
		{"BMW", "BMW Serie 3 320d"},
		{"seat", "SEAT Ibiza 1.0 TSI"},
		{"seat", "León FR"},
		{"toyota", "Toyota RAV 4 Hybrid"},
		{"kia", "Ceed Tech"},
		{"fiat", "Multipla"},
	}
	for i := 0; i < 60; i++ {
		c := cars[i%len(cars)]
		year := 2010 + i%12
		km := 15000 + (i%9)*20000
		cv := 90 + (i%6)*20
		engine := vehicle.EngineTypes[i%3]
		price := 32000 - 1300*(2026-year) - km/20 + cv*40
		fmt.Fprintf(&b, "%d;%d;%d;%d;%s;%s;%s\n", year, cv, km, price, c.brand, c.model, engine)
	}
	b.WriteString("1995;90;150000;1800;opel;Corsa;Gasolina\n")
	b.WriteString("2018;;50000;15000;opel;Astra;Gasolina\n")
	b.WriteString("2018;100;50000;900;opel;Astra;Gasolina\n")

	path := filepath.Join(dir, "listings.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
	return path
}

func TestTrain(t *testing.T) {
	dir := t.TempDir()
	opts := trainer.DefaultOptions()
	opts.Input = writeListings(t, dir)
	opts.Output = filepath.Join(dir, "out", "modelo.gob")
	opts.Report = filepath.Join(dir, "report.json")
	opts.Plot = filepath.Join(dir, "holdout.png")
	opts.TopModels = 5
	opts.TestRatio = 0.2

	res, err := trainer.Train(context.Background(), opts)
	require.NoError(t, err)

	summary := res.Artifact.Summary
	assert.Equal(t, 63, summary.Rows.Read)
	assert.Equal(t, 60, summary.Rows.Kept)
	assert.NotEmpty(t, summary.ID)
	assert.Greater(t, summary.SupportVectors, 0)
	require.NotNil(t, summary.Holdout)
	assert.Equal(t, 12, summary.Holdout.N)
	assert.Len(t, res.Holdout.Predicted, 12)
	require.NotNil(t, summary.Baseline)
	assert.Equal(t, 12, summary.Baseline.N)

	// six buckets, the rarest by name folds away
	assert.Equal(t, 5, res.Artifact.Vocabulary.Len())
	assert.False(t, res.Artifact.Vocabulary.Contains("Serie 3"))
	assert.Contains(t, res.Artifact.Catalog.ModelsFor("bmw"), "Serie 3")
	assert.Equal(t, []string{"Rav 4"}, res.Artifact.Catalog.ModelsFor("toyota"))

	for _, path := range []string{opts.Output, opts.Report, opts.Plot} {
		_, err := os.Stat(path)
		assert.NoError(t, err, path)
	}

	report, err := model.LoadReportFromFile(opts.Report)
	require.NoError(t, err)
	assert.Equal(t, trainer.ReportName, report.Spec.Name)
	var decoded valuation.Summary
	require.NoError(t, report.DecodeParams(&decoded))
	assert.Equal(t, summary.ID, decoded.ID)

	a, err := valuation.Load(opts.Output)
	require.NoError(t, err)
	est, err := valuation.NewEstimator(a).Estimate(valuation.Input{
		Brand: "seat", Model: "Ibiza", Engine: vehicle.EngineGasoline,
		Year: 2018, Kilometros: 60000, ExtCV: 110,
	})
	require.NoError(t, err)
	assert.Greater(t, est.Price, 0.0)
}

func TestTrain_WithoutHoldout(t *testing.T) {
	dir := t.TempDir()
	opts := trainer.DefaultOptions()
	opts.Input = writeListings(t, dir)
	opts.Output = filepath.Join(dir, "modelo.gob")
	opts.Plot = filepath.Join(dir, "unused.png")

	res, err := trainer.Train(context.Background(), opts)
	require.NoError(t, err)
	assert.Nil(t, res.Holdout)
	assert.Nil(t, res.Artifact.Summary.Holdout)
	assert.Nil(t, res.Artifact.Summary.Baseline)

	_, err = os.Stat(opts.Plot)
	assert.True(t, os.IsNotExist(err), "no plot without a hold-out")
}

func TestTrain_MissingInput(t *testing.T) {
	opts := trainer.DefaultOptions()
	opts.Input = filepath.Join(t.TempDir(), "missing.csv")
	_, err := trainer.Train(context.Background(), opts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestTrain_NothingSurvivesCleaning(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "old.csv")
	csv := "año;ext_CV;kilometros;precio_€;marca_busqueda;modelo\n1990;60;300000;900;seat;Marbella\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o600))

	opts := trainer.DefaultOptions()
	opts.Input = path
	opts.Output = filepath.Join(dir, "modelo.gob")
	_, err := trainer.Train(context.Background(), opts)
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}

func TestOptionsValidate(t *testing.T) {
	opts := trainer.DefaultOptions()
	assert.Error(t, opts.Validate(), "input required")

	opts.Input = "x.csv"
	assert.NoError(t, opts.Validate())

	bad := opts
	bad.TestRatio = 1
	assert.Error(t, bad.Validate())

	bad = opts
	bad.TopModels = 0
	assert.Error(t, bad.Validate())

	bad = opts
	bad.BaselineAlpha = -1
	assert.Error(t, bad.Validate())

	bad = opts
	bad.Scaler = "log"
	_, err := trainer.BuildPipeline(bad)
	assert.Error(t, err)
}

func TestTrain_Cancelled(t *testing.T) {
	dir := t.TempDir()
	opts := trainer.DefaultOptions()
	opts.Input = writeListings(t, dir)
	opts.Output = filepath.Join(dir, "modelo.gob")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := trainer.Train(ctx, opts)
	assert.ErrorIs(t, err, context.Canceled)
	_, statErr := os.Stat(opts.Output)
	assert.True(t, os.IsNotExist(statErr))
}
