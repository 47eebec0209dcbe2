// Package dataset reads historical listings, applies the quality filters and
// builds the model vocabulary and the brand → model catalog.
package dataset

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/ezoic/tasador/pkg/errors"
)

// Listing CSV columns.
const (
	ColYear       = "año"
	ColExtCV      = "ext_CV"
	ColKilometros = "kilometros"
	ColPrice      = "precio_€"
	ColBrand      = "marca_busqueda"
	ColModel      = "modelo"
	ColEngine     = "motor"
)

// Separator is the field delimiter of every CSV the project reads.
const Separator = ';'

// RequiredColumns must be present in a listings file. motor is optional.
var RequiredColumns = []string{ColYear, ColExtCV, ColKilometros, ColPrice, ColBrand, ColModel}

var yearPattern = regexp.MustCompile(`(\d{4})`)

// Listing is one raw row of the historical file. Unparseable numbers are NaN.
type Listing struct {
	Year       float64
	ExtCV      float64
	Kilometros float64
	Price      float64
	Brand      string
	Model      string
	Engine     string
}

// LoadListings reads a listings file. A missing file yields an error
// matching errors.ErrNotFound.
func LoadListings(path string) ([]Listing, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(errors.ErrNotFound, "listings file %s", path)
		}
		return nil, errors.Wrapf(err, "open listings file %s", path)
	}
	defer func() { _ = f.Close() }()

	listings, err := ReadListings(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return listings, nil
}

// ReadListings parses ';'-separated listings from r.
func ReadListings(r io.Reader) ([]Listing, error) {
	cr := newReader(r)
	names, err := cr.Read()
	if err == io.EOF {
		return nil, errors.NewModelError("ReadListings", "missing header", errors.ErrEmptyData)
	}
	if err != nil {
		return nil, errors.Wrap(err, "read header")
	}
	idx, err := columnIndex(names, RequiredColumns)
	if err != nil {
		return nil, err
	}
	engineIdx := -1
	if i, ok := idx.lookup(ColEngine); ok {
		engineIdx = i
	}

	var out []Listing
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read row")
		}
		out = append(out, Listing{
			Year:       ParseYear(field(rec, idx[ColYear])),
			ExtCV:      ParseNumber(field(rec, idx[ColExtCV])),
			Kilometros: ParseNumber(field(rec, idx[ColKilometros])),
			Price:      ParseNumber(field(rec, idx[ColPrice])),
			Brand:      field(rec, idx[ColBrand]),
			Model:      field(rec, idx[ColModel]),
			Engine:     field(rec, engineIdx),
		})
	}
	return out, nil
}

// newReader returns a lenient ';' CSV reader that drops a UTF-8 BOM.
func newReader(r io.Reader) *csv.Reader {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	cr := csv.NewReader(decoded)
	cr.Comma = Separator
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true
	return cr
}

type columns map[string]int

func (h columns) lookup(name string) (int, bool) {
	i, ok := h[name]
	return i, ok
}

// columnIndex maps header names to positions and checks required columns.
func columnIndex(names []string, required []string) (columns, error) {
	idx := make(columns, len(names))
	for i, name := range names {
		name = strings.TrimSpace(norm.NFC.String(name))
		if _, dup := idx[name]; !dup {
			idx[name] = i
		}
	}
	var missing []string
	for _, name := range required {
		if _, ok := idx[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, errors.NewValueError("dataset", "missing required columns: "+strings.Join(missing, ", "))
	}
	return idx, nil
}

// field returns rec[i] trimmed, or "" when the row is short or i < 0.
func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// ParseNumber parses a float, returning NaN for anything unparseable.
func ParseNumber(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// ParseYear returns the first run of four digits in s, or NaN.
func ParseYear(s string) float64 {
	m := yearPattern.FindString(s)
	if m == "" {
		return math.NaN()
	}
	return ParseNumber(m)
}
