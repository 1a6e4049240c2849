// Package generator defines purchasable nutrient generators and their cost curve.
// This package is PURE and must NOT import any infrastructure packages.
package generator

import (
	"errors"
	"fmt"
	"math"
)

// CostMultiplier scales the price of every generator after each purchase.
const CostMultiplier = 1.15

// Definition describes one generator type.
type Definition struct {
	Name           string  `json:"name" yaml:"name"`
	BaseCost       float64 `json:"base_cost" yaml:"base_cost"`
	BaseProduction float64 `json:"base_production" yaml:"base_production"` // Nutrients per second per unit
}

// CostAt is the price of the next unit when count units are owned.
func (d Definition) CostAt(count int) float64 {
	if count < 0 {
		count = 0
	}
	return d.BaseCost * math.Pow(CostMultiplier, float64(count))
}

// ProductionAt is the nutrients per second produced by count units.
func (d Definition) ProductionAt(count int) float64 {
	if count <= 0 {
		return 0
	}
	return d.BaseProduction * float64(count)
}

// seriesTerms is the largest bulk purchase priced by summing unit prices.
// Larger ones use the closed form.
const seriesTerms = 1024

// CostForN is the price of buying n more units when count are owned. It equals
// the sum of the CostAt quotes a player would pay buying them one at a time.
func (d Definition) CostForN(count, n int) float64 {
	if n <= 0 {
		return 0
	}
	if count < 0 {
		count = 0
	}
	if n == 1 {
		return d.CostAt(count)
	}
	if n <= seriesTerms {
		total := 0.0
		for k := 0; k < n; k++ {
			total += d.CostAt(count + k)
		}
		return total
	}
	head := d.CostAt(count)
	return head * (math.Pow(CostMultiplier, float64(n)) - 1) * 20 / 3
}

// MaxAffordable returns how many units budget buys when count are owned.
func (d Definition) MaxAffordable(count int, budget float64) int {
	head := d.CostAt(count)
	if head <= 0 || budget < head || math.IsInf(budget, 0) || math.IsNaN(budget) {
		return 0
	}
	// Invert the geometric series, then correct for float rounding at the boundary.
	n := int(math.Floor(math.Log(budget*(CostMultiplier-1)/head+1) / math.Log(CostMultiplier)))
	for n > 0 && d.CostForN(count, n) > budget {
		n--
	}
	for d.CostForN(count, n+1) <= budget {
		n++
	}
	return n
}

// Catalog is the ordered list of generator types. Indices match GameData.GeneratorCounts.
type Catalog []Definition

// DefaultCatalog returns the two starter generators.
func DefaultCatalog() Catalog {
	return Catalog{
		{Name: "Root Sprout", BaseCost: 10, BaseProduction: 1.0},
		{Name: "Leaf Cluster", BaseCost: 100, BaseProduction: 5.0},
	}
}

// Get returns the definition at index.
func (c Catalog) Get(index int) (Definition, bool) {
	if index < 0 || index >= len(c) {
		return Definition{}, false
	}
	return c[index], true
}

// TotalProduction sums the production of every generator. Missing counts are treated as zero.
func (c Catalog) TotalProduction(counts []int) float64 {
	total := 0.0
	for i, def := range c {
		if i >= len(counts) {
			break
		}
		total += def.ProductionAt(counts[i])
	}
	return total
}

// Validate checks that the catalog is usable.
func (c Catalog) Validate() error {
	if len(c) == 0 {
		return errors.New("generator catalog is empty")
	}
	seen := make(map[string]bool, len(c))
	for i, def := range c {
		if def.Name == "" {
			return fmt.Errorf("generator %d: name is required", i)
		}
		if seen[def.Name] {
			return fmt.Errorf("generator %d: duplicate name %q", i, def.Name)
		}
		seen[def.Name] = true
		if def.BaseCost <= 0 {
			return fmt.Errorf("generator %q: base cost must be positive", def.Name)
		}
		if def.BaseProduction < 0 {
			return fmt.Errorf("generator %q: base production must not be negative", def.Name)
		}
	}
	return nil
}
