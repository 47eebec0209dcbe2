package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezoic/tasador/dataset"
	"github.com/ezoic/tasador/server"
	"github.com/ezoic/tasador/sklearn/pipeline"
	"github.com/ezoic/tasador/trainer"
	"github.com/ezoic/tasador/valuation"
	"github.com/ezoic/tasador/vehicle"
)

func fittedArtifact(t *testing.T) *valuation.Artifact {
	t.Helper()
	cars := []struct{ brand, model string }{
		{"BMW", "BMW Serie 3 320d"}, {"SEAT", "Ibiza FR"}, {"SEAT", "León ST"}, {"Kia", "Ceed Tech"},
	}
	var samples []dataset.Sample
	for i := 0; i < 40; i++ {
		c := cars[i%len(cars)]
		km := 30000 + float64(i%8)*20000
		r := vehicle.NewRecord(c.brand, c.model, vehicle.EngineTypes[i%2], 2009+i%13, km, 100+float64(i%4)*25, 2026)
		samples = append(samples, dataset.Sample{Record: r, Price: 32000 - 1300*r.Antiguedad - 0.04*km})
	}
	catalog := dataset.BuildCatalog(samples)
	models := make([]string, len(samples))
	for i, s := range samples {
		models[i] = s.Record.ModeloAgrupado
	}
	vocab := dataset.BuildVocabulary(models, dataset.DefaultTopModels)

	p, err := trainer.Fit(context.Background(), samples, trainer.DefaultOptions())
	require.NoError(t, err)
	return &valuation.Artifact{
		Pipeline:      p,
		ReferenceYear: 2026,
		Vocabulary:    vocab,
		Catalog:       catalog,
		Summary:       valuation.Summary{ID: "server-test"},
	}
}

func newServer(t *testing.T, a *valuation.Artifact) *server.Server {
	t.Helper()
	s, err := server.New(valuation.NewEstimator(a))
	require.NoError(t, err)
	return s
}

func do(t *testing.T, s *server.Server, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp, body
}

func postJSON(path string, v interface{}) *http.Request {
	b, _ := json.Marshal(v)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(string(b)))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return req
}

func bmw() valuation.Input {
	return valuation.Input{
		Brand:      "BMW",
		Model:      "BMW Serie 3",
		Engine:     vehicle.EngineDiesel,
		Year:       2019,
		Kilometros: 80000,
		ExtCV:      150,
	}
}

func TestEstimateAPI(t *testing.T) {
	s := newServer(t, fittedArtifact(t))

	resp, body := do(t, s, postJSON("/api/v1/estimate", bmw()))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))

	var res valuation.Result
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Greater(t, res.Price, 0.0)
	assert.InDelta(t, 1270, res.Price-res.Low, 1e-6)
	assert.InDelta(t, 1270, res.High-res.Price, 1e-6)
	assert.Equal(t, "Serie 3", res.Record.ModeloAgrupado)
	assert.Equal(t, 7.0, res.Record.Antiguedad)
	assert.Equal(t, "bmw", res.Record.MarcaBusqueda)
}

func TestEstimateAPI_DecomposedEngine(t *testing.T) {
	s := newServer(t, fittedArtifact(t))
	in := bmw()
	in.Engine = "Die\u0301sel"

	resp, body := do(t, s, postJSON("/api/v1/estimate", in))
	assert.Equal(t, http.StatusOK, resp.StatusCode, string(body))
}

func TestEstimateAPI_UnknownModel(t *testing.T) {
	s := newServer(t, fittedArtifact(t))
	in := bmw()
	in.Model = "Isetta"

	resp, body := do(t, s, postJSON("/api/v1/estimate", in))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var res valuation.Result
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Equal(t, vehicle.OtherModel, res.Record.ModeloAgrupado)
}

func TestEstimateAPI_EmptyModel(t *testing.T) {
	s := newServer(t, fittedArtifact(t))
	in := bmw()
	in.Model = ""

	resp, body := do(t, s, postJSON("/api/v1/estimate", in))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var res valuation.Result
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Equal(t, vehicle.OtherModel, res.Record.ModeloAgrupado)
}

func TestEstimateAPI_YearAfterReferenceYear(t *testing.T) {
	a := fittedArtifact(t)
	a.ReferenceYear = 2025
	s := newServer(t, a)
	in := bmw()
	in.Year = 2026

	resp, body := do(t, s, postJSON("/api/v1/estimate", in))
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, string(body))
	var e struct {
		Error  string              `json:"error"`
		Fields []server.FieldError `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(body, &e))
	assert.Equal(t, "invalid input", e.Error)
	assert.Equal(t, []server.FieldError{{Field: "year", Rule: "lte", Param: "2025"}}, e.Fields)

	resp, body = do(t, s, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `max="2025"`)
}

func TestEstimateAPI_Invalid(t *testing.T) {
	s := newServer(t, fittedArtifact(t))
	in := bmw()
	in.Engine = "Vapor"
	in.Year = 1970

	resp, body := do(t, s, postJSON("/api/v1/estimate", in))
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var e struct {
		Error  string              `json:"error"`
		Fields []server.FieldError `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(body, &e))
	fields := map[string]string{}
	for _, f := range e.Fields {
		fields[f.Field] = f.Rule
	}
	assert.Equal(t, "engine", fields["engine"])
	assert.Equal(t, "gte", fields["year"])

	req := httptest.NewRequest(http.MethodPost, "/api/v1/estimate", strings.NewReader("{"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, _ = do(t, s, req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEstimateAPI_PredictionError(t *testing.T) {
	a := fittedArtifact(t)
	a.Pipeline = pipeline.New(a.Pipeline.Steps...)
	s := newServer(t, a)

	resp, body := do(t, s, postJSON("/api/v1/estimate", bmw()))
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	var e struct {
		Error  string                 `json:"error"`
		Record map[string]interface{} `json:"record"`
	}
	require.NoError(t, json.Unmarshal(body, &e))
	assert.Contains(t, e.Error, "prediction failed")
	assert.Equal(t, "Serie 3", e.Record[vehicle.ColModeloAgrupado])
}

func TestNoModel(t *testing.T) {
	s := newServer(t, nil)

	resp, body := do(t, s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok","model_loaded":false}`, string(body))

	resp, body = do(t, s, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "no se ha cargado el modelo")
	assert.Contains(t, string(body), "disabled")

	resp, _ = do(t, s, postJSON("/api/v1/estimate", bmw()))
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, _ = do(t, s, httptest.NewRequest(http.MethodGet, "/api/v1/model", nil))
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, body = do(t, s, httptest.NewRequest(http.MethodGet, "/api/v1/brands", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"brands":[]}`, string(body))
}

func TestBrandsAndModels(t *testing.T) {
	s := newServer(t, fittedArtifact(t))

	resp, body := do(t, s, httptest.NewRequest(http.MethodGet, "/api/v1/brands", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"brands":["bmw","kia","seat"]}`, string(body))

	resp, body = do(t, s, httptest.NewRequest(http.MethodGet, "/api/v1/brands/SEAT/models", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"brand":"seat","models":["Ibiza","León"]}`, string(body))

	resp, body = do(t, s, httptest.NewRequest(http.MethodGet, "/api/v1/brands/lada/models", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "unknown brand")
}

func TestModelsForEscapedBrand(t *testing.T) {
	cat := dataset.NewCatalog()
	cat.Add("Land Rover", "Range Rover Evoque")
	cat.Add("Citroën", "C4 Picasso")
	s, err := server.New(valuation.NewEstimator(fittedArtifact(t), valuation.WithCatalog(cat)))
	require.NoError(t, err)

	resp, body := do(t, s, httptest.NewRequest(http.MethodGet, "/api/v1/brands/land%20rover/models", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.JSONEq(t, `{"brand":"land rover","models":["Range Rover"]}`, string(body))

	resp, body = do(t, s, httptest.NewRequest(http.MethodGet, "/api/v1/brands/citro%C3%ABn/models", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.JSONEq(t, `{"brand":"citroën","models":["C4"]}`, string(body))
}

func TestFormPage(t *testing.T) {
	s := newServer(t, fittedArtifact(t))

	resp, body := do(t, s, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := string(body)
	assert.Contains(t, page, `value="2019"`)
	assert.Contains(t, page, `value="80000"`)
	assert.Contains(t, page, `value="150"`)
	assert.Contains(t, page, "Híbrido Enchufable (PHEV)")
	assert.Contains(t, page, `<option value="Serie 3">`)

	form := url.Values{
		"brand":      {"bmw"},
		"model":      {"Serie 3"},
		"engine":     {vehicle.EngineDiesel},
		"year":       {"2019"},
		"kilometros": {"80000"},
		"ext_cv":     {"150"},
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	resp, body = do(t, s, req)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), "Rango estimado")

	form.Set("ext_cv", "20")
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	resp, body = do(t, s, req)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, string(body), "ext_cv: gte=50")
	assert.NotContains(t, string(body), "Rango estimado")
}

func TestModelInfo(t *testing.T) {
	s := newServer(t, fittedArtifact(t))

	resp, body := do(t, s, httptest.NewRequest(http.MethodGet, "/api/v1/model", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var info struct {
		Summary       valuation.Summary `json:"summary"`
		ReferenceYear int               `json:"reference_year"`
		ErrorMargin   float64           `json:"error_margin"`
	}
	require.NoError(t, json.Unmarshal(body, &info))
	assert.Equal(t, "server-test", info.Summary.ID)
	assert.Equal(t, 2026, info.ReferenceYear)
	assert.Equal(t, 1270.0, info.ErrorMargin)
}

func TestMetrics(t *testing.T) {
	s := newServer(t, fittedArtifact(t))
	do(t, s, postJSON("/api/v1/estimate", bmw()))
	in := bmw()
	in.Engine = ""
	do(t, s, postJSON("/api/v1/estimate", in))

	resp, body := do(t, s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	text := string(body)
	assert.Contains(t, text, `tasador_estimates_total{outcome="ok"} 1`)
	assert.Contains(t, text, `tasador_estimates_total{outcome="invalid"} 1`)
	assert.Contains(t, text, "tasador_model_loaded 1")
	assert.Contains(t, text, "tasador_estimate_duration_seconds_count 1")
}
