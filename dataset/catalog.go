package dataset

import (
	"io"
	"os"
	"sort"

	"github.com/ezoic/tasador/pkg/errors"
	"github.com/ezoic/tasador/vehicle"
)

// Catalog maps a normalized brand to its sorted canonical models. It feeds
// the brand and model menus of the estimator.
type Catalog struct {
	Models map[string][]string
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{Models: make(map[string][]string)}
}

// Add records brand/model, canonicalizing both. Empty brands are ignored.
func (c *Catalog) Add(brand, model string) {
	c.insert(vehicle.NormalizeBrand(brand), vehicle.CanonicalModel(brand, model))
}

func (c *Catalog) insert(b, m string) {
	if b == "" {
		return
	}
	models := c.Models[b]
	i := sort.SearchStrings(models, m)
	if i < len(models) && models[i] == m {
		return
	}
	models = append(models, "")
	copy(models[i+1:], models[i:])
	models[i] = m
	c.Models[b] = models
}

// Brands returns the brands in alphabetical order.
func (c *Catalog) Brands() []string {
	if c == nil {
		return nil
	}
	brands := make([]string, 0, len(c.Models))
	for b := range c.Models {
		brands = append(brands, b)
	}
	sort.Strings(brands)
	return brands
}

// ModelsFor returns the sorted models of brand, or nil when unknown.
func (c *Catalog) ModelsFor(brand string) []string {
	if c == nil {
		return nil
	}
	return c.Models[vehicle.NormalizeBrand(brand)]
}

// BuildCatalog collects the catalog from cleaned samples. Call it before
// folding the samples into a vocabulary to keep every canonical model.
func BuildCatalog(samples []Sample) *Catalog {
	c := NewCatalog()
	for _, s := range samples {
		c.insert(s.Record.MarcaBusqueda, s.Record.ModeloAgrupado)
	}
	return c
}

// LoadCatalog reads a menu CSV with marca_busqueda and modelo columns.
func LoadCatalog(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(errors.ErrNotFound, "menu file %s", path)
		}
		return nil, errors.Wrapf(err, "open menu file %s", path)
	}
	defer func() { _ = f.Close() }()
	return ReadCatalog(f)
}

// ReadCatalog parses a menu CSV from r.
func ReadCatalog(r io.Reader) (*Catalog, error) {
	cr := newReader(r)
	names, err := cr.Read()
	if err == io.EOF {
		return nil, errors.NewModelError("ReadCatalog", "missing header", errors.ErrEmptyData)
	}
	if err != nil {
		return nil, errors.Wrap(err, "read header")
	}
	idx, err := columnIndex(names, []string{ColBrand, ColModel})
	if err != nil {
		return nil, err
	}

	c := NewCatalog()
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read row")
		}
		c.Add(field(rec, idx[ColBrand]), field(rec, idx[ColModel]))
	}
	return c, nil
}
