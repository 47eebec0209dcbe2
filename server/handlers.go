package server

import (
	"bytes"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ezoic/tasador/pkg/errors"
	"github.com/ezoic/tasador/pkg/log"
	"github.com/ezoic/tasador/valuation"
	"github.com/ezoic/tasador/vehicle"
)

// Form defaults.
const (
	DefaultYear       = 2019
	DefaultKilometros = 80000
	DefaultExtCV      = 150
	DefaultMaxYear    = 2026 // without an artifact
)

// page is the data rendered by index.html.
type page struct {
	Brands      []string
	Models      []string
	Engines     []string
	Input       valuation.Input
	Result      *valuation.Result
	Errors      []string
	Record      map[string]interface{}
	MaxYear     int
	Unavailable bool
}

// estimateError is the JSON body of a refused estimate.
type estimateError struct {
	Error  string                 `json:"error"`
	Fields []FieldError           `json:"fields,omitempty"`
	Record map[string]interface{} `json:"record,omitempty"`
}

// estimate validates in and runs the estimator. status is the HTTP status to
// answer with when err is not nil.
func (s *Server) estimate(c *fiber.Ctx, in valuation.Input) (res *valuation.Result, status int, err error) {
	start := time.Now()
	outcome := OutcomeOK
	defer func() {
		s.metrics.observe(outcome, time.Since(start))
	}()

	in.Engine = vehicle.NormalizeEngine(in.Engine)
	if err := s.validate.Struct(in); err != nil {
		outcome = OutcomeInvalid
		return nil, fiber.StatusUnprocessableEntity, err
	}
	res, err = s.estimator.Estimate(in)
	var verr *errors.ValidationError
	switch {
	case err == nil:
		return res, fiber.StatusOK, nil
	case errors.As(err, &verr):
		outcome = OutcomeInvalid
		return nil, fiber.StatusUnprocessableEntity, err
	case errors.Is(err, valuation.ErrModelUnavailable):
		outcome = OutcomeUnavailable
		return nil, fiber.StatusServiceUnavailable, err
	default:
		outcome = OutcomeFailed
		s.logger.Error("Estimate failed",
			log.RequestIDKey, requestIDOf(c),
			"error", err,
		)
		return nil, fiber.StatusInternalServerError, err
	}
}

func (s *Server) newPage(in valuation.Input) page {
	p := page{
		Brands:      s.estimator.Brands(),
		Engines:     vehicle.EngineTypes,
		Input:       in,
		MaxYear:     s.estimator.MaxYear(),
		Unavailable: !s.estimator.Available(),
	}
	if p.MaxYear == 0 {
		p.MaxYear = DefaultMaxYear
	}
	if p.Input.Brand == "" && len(p.Brands) > 0 {
		p.Input.Brand = p.Brands[0]
	}
	p.Models = s.estimator.Models(p.Input.Brand)
	if p.Unavailable {
		p.Errors = append(p.Errors, "Error: no se ha cargado el modelo de tasación.")
	}
	return p
}

func (s *Server) render(c *fiber.Ctx, status int, p page) error {
	var buf bytes.Buffer
	if err := s.pages.Execute(&buf, p); err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Status(status).Send(buf.Bytes())
}

func (s *Server) formPage(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, s.newPage(valuation.Input{
		Engine:     vehicle.EngineDiesel,
		Year:       DefaultYear,
		Kilometros: DefaultKilometros,
		ExtCV:      DefaultExtCV,
	}))
}

func (s *Server) estimatePage(c *fiber.Ctx) error {
	var in valuation.Input
	if err := c.BodyParser(&in); err != nil {
		p := s.newPage(in)
		p.Errors = append(p.Errors, "Formulario no válido: "+err.Error())
		return s.render(c, fiber.StatusUnprocessableEntity, p)
	}

	res, status, err := s.estimate(c, in)
	p := s.newPage(in)
	if err == nil {
		p.Result = res
		return s.render(c, status, p)
	}

	if fields := fieldErrors(err); fields != nil {
		for _, f := range fields {
			p.Errors = append(p.Errors, "Valor no válido en "+f.String())
		}
		return s.render(c, status, p)
	}
	var perr *valuation.PredictionError
	if errors.As(err, &perr) {
		p.Errors = append(p.Errors, "Ocurrió un error: "+perr.Err.Error())
		p.Record = perr.Record.Fields()
	} else if !p.Unavailable {
		p.Errors = append(p.Errors, err.Error())
	}
	return s.render(c, status, p)
}

func (s *Server) estimateAPI(c *fiber.Ctx) error {
	var in valuation.Input
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(estimateError{Error: err.Error()})
	}
	res, status, err := s.estimate(c, in)
	if err == nil {
		return c.JSON(res)
	}
	body := estimateError{Error: err.Error(), Fields: fieldErrors(err)}
	if body.Fields != nil {
		body.Error = "invalid input"
	}
	var perr *valuation.PredictionError
	if errors.As(err, &perr) {
		body.Record = perr.Record.Fields()
	}
	return c.Status(status).JSON(body)
}

func (s *Server) listBrands(c *fiber.Ctx) error {
	brands := s.estimator.Brands()
	if brands == nil {
		brands = []string{}
	}
	return c.JSON(fiber.Map{"brands": brands})
}

func (s *Server) listModels(c *fiber.Ctx) error {
	raw, err := url.PathUnescape(c.Params("brand"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed brand "+c.Params("brand"))
	}
	brand := vehicle.NormalizeBrand(raw)
	models := s.estimator.Models(brand)
	if models == nil {
		return fiber.NewError(fiber.StatusNotFound, "unknown brand "+brand)
	}
	return c.JSON(fiber.Map{"brand": brand, "models": models})
}

func (s *Server) modelInfo(c *fiber.Ctx) error {
	a := s.estimator.Artifact()
	if a == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, valuation.ErrModelUnavailable.Error())
	}
	return c.JSON(fiber.Map{
		"summary":        a.Summary,
		"reference_year": a.ReferenceYear,
		"error_margin":   s.estimator.ErrorMargin(),
		"vocabulary":     a.Vocabulary.Len(),
	})
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":       "ok",
		"model_loaded": s.estimator.Available(),
	})
}

// handleError answers API routes with JSON and pages with plain text.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "internal error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	}
	if strings.HasPrefix(c.Path(), "/api/") {
		return c.Status(code).JSON(estimateError{Error: msg})
	}
	return c.Status(code).SendString(msg)
}
