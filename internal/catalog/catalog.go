package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/smartshopai/smartshop/internal/models"
)

//go:embed data/products.json
var rawCatalog []byte

// Autosuggest and chat use different match limits; both are small on
// purpose so result strips stay scannable.
const (
	SuggestLimit = 5
	ChatLimit    = 3
)

// Repository is the read-only product catalog shared by all components.
// The returned slices reference catalog entries and must not be mutated.
type Repository interface {
	List() []models.Product
	Get(id string) (*models.Product, bool)
	// Match returns up to limit products whose name, category, or any tag
	// contains the query substring (case-insensitive), in catalog order.
	Match(query string, limit int) []models.Product
}

type repository struct {
	products []models.Product
	byID     map[string]int
}

// Load parses the embedded catalog. Called once at process start.
func Load() (Repository, error) {
	var products []models.Product
	if err := json.Unmarshal(rawCatalog, &products); err != nil {
		return nil, fmt.Errorf("parse embedded catalog: %w", err)
	}

	byID := make(map[string]int, len(products))
	for i, p := range products {
		if p.ID == "" {
			return nil, fmt.Errorf("catalog entry %d has no id", i)
		}
		if _, dup := byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate catalog id %q", p.ID)
		}
		byID[p.ID] = i
	}
	return &repository{products: products, byID: byID}, nil
}

func (r *repository) List() []models.Product { return r.products }

func (r *repository) Get(id string) (*models.Product, bool) {
	i, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	return &r.products[i], true
}

func (r *repository) Match(query string, limit int) []models.Product {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" || limit <= 0 {
		return nil
	}

	var out []models.Product
	for _, p := range r.products {
		if matchesQuery(p, q) {
			out = append(out, p)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}

func matchesQuery(p models.Product, q string) bool {
	if strings.Contains(strings.ToLower(p.Name), q) ||
		strings.Contains(strings.ToLower(p.Category), q) {
		return true
	}
	for _, t := range p.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}
