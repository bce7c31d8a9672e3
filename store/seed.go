package store

import (
	_ "embed"
	"os"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"storefront/model"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type seedFile struct {
	Products []seedProduct `yaml:"products"`
}

type seedProduct struct {
	ID          int64  `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Category    string `yaml:"category"`
	Brand       string `yaml:"brand"`
	Price       string `yaml:"price"`
	Discount    string `yaml:"discount"`
	Stock       int    `yaml:"stock"`
	Image       string `yaml:"image"`
}

// LoadCatalog reads products from path, or the embedded catalog when path
// is empty.
func LoadCatalog(path string) ([]model.Product, error) {
	data := defaultCatalog
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read catalog %s", path)
		}
		data = b
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML catalog document.
func ParseCatalog(data []byte) ([]model.Product, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "parse catalog")
	}

	seen := make(map[int64]bool, len(f.Products))
	out := make([]model.Product, 0, len(f.Products))
	for _, sp := range f.Products {
		if sp.ID <= 0 {
			return nil, errors.Errorf("product %q: id must be positive", sp.Name)
		}
		if seen[sp.ID] {
			return nil, errors.Errorf("product %d: duplicate id", sp.ID)
		}
		seen[sp.ID] = true

		price, err := decimal.NewFromString(sp.Price)
		if err != nil {
			return nil, errors.Wrapf(err, "product %d: price", sp.ID)
		}
		if price.IsNegative() {
			return nil, errors.Errorf("product %d: price must be >= 0", sp.ID)
		}

		p := model.Product{
			ID:          sp.ID,
			Name:        sp.Name,
			Description: sp.Description,
			Category:    sp.Category,
			Brand:       sp.Brand,
			Price:       price,
			Stock:       sp.Stock,
			ImageURL:    sp.Image,
		}
		if sp.Discount != "" {
			d, err := decimal.NewFromString(sp.Discount)
			if err != nil {
				return nil, errors.Wrapf(err, "product %d: discount", sp.ID)
			}
			if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(100)) {
				return nil, errors.Errorf("product %d: discount must be within 0-100", sp.ID)
			}
			p.Discount = &d
		}
		out = append(out, p)
	}
	return out, nil
}
