package model_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezoic/tasador/core/model"
	"github.com/ezoic/tasador/pkg/errors"
	"github.com/ezoic/tasador/pkg/log"
)

type fittedScaler struct {
	model.BaseEstimator
	Center []float64
	Scale  []float64
}

func TestSaveLoadModel(t *testing.T) {
	original := &fittedScaler{Center: []float64{80000, 7, 150}, Scale: []float64{60000, 5, 40}}
	original.SetFitted()

	path := filepath.Join(t.TempDir(), "nested", "scaler.gob")
	require.NoError(t, model.SaveModel(original, path))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary file should be renamed away")

	loaded := &fittedScaler{}
	require.NoError(t, model.LoadModel(loaded, path))

	assert.True(t, loaded.IsFitted())
	assert.Equal(t, original.Center, loaded.Center)
	assert.Equal(t, original.Scale, loaded.Scale)
}

func TestSaveLoadModelToWriter(t *testing.T) {
	state := model.NewStateManager()
	state.SetFitted()
	state.SetDimensions(3, 10)

	var buf bytes.Buffer
	require.NoError(t, model.SaveModelToWriter(state, &buf))

	loaded := model.NewStateManager()
	require.NoError(t, model.LoadModelFromReader(loaded, &buf))
	assert.Equal(t, state, loaded)
}

func TestLoadModelMissingFile(t *testing.T) {
	err := model.LoadModel(&fittedScaler{}, filepath.Join(t.TempDir(), "absent.gob"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestLoadModelCorruptData(t *testing.T) {
	err := model.LoadModelFromReader(&fittedScaler{}, strings.NewReader("not a gob stream"))
	assert.Error(t, err)
}

func TestSaveModelNil(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, model.SaveModelToWriter(nil, &buf))
}

func TestLogDebugDefaultsToModelTypeLogger(t *testing.T) {
	var buf bytes.Buffer
	log.Setup(log.Options{Level: "debug", Format: "json"})
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetupLogger("info") })

	est := &model.BaseEstimator{ModelType: "ColumnTransformer"}
	est.LogDebug("ColumnTransformer fitted", "features", 12)

	assert.Contains(t, buf.String(), `"component":"ColumnTransformer"`)
	assert.Contains(t, buf.String(), "ColumnTransformer fitted")
}
