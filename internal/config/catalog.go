package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog describes what can be ordered: the laundry packages on offer and
// the flat rates attached to pickup and service types. Prices are informational
// constants shown to the user; no computation beyond these flats happens here.
type Catalog struct {
	Packages     []string                  `yaml:"packages"`
	PickupTypes  map[string]PickupRate     `yaml:"pickup_types"`
	ServiceTypes map[string]ServiceOptions `yaml:"service_types"`
}

// PickupRate is the flat rate card for a pickup type, in RM.
type PickupRate struct {
	PickupFee   int    `yaml:"pickup_fee"`
	DeliveryFee int    `yaml:"delivery_fee"`
	Description string `yaml:"description"`
}

// ServiceOptions describes a service type.
type ServiceOptions struct {
	SurchargePercent int    `yaml:"surcharge_percent"`
	Description      string `yaml:"description"`
}

// LoadCatalog loads the catalog from a yaml file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	if len(cat.Packages) == 0 {
		return nil, fmt.Errorf("catalog: at least one package is required")
	}
	for name, rate := range cat.PickupTypes {
		if rate.PickupFee < 0 || rate.DeliveryFee < 0 {
			return nil, fmt.Errorf("catalog: pickup type %s has negative fee", name)
		}
	}

	return &cat, nil
}

// LoadCatalogOrDefault loads the catalog or falls back to the built-in one.
func LoadCatalogOrDefault(path string) *Catalog {
	cat, err := LoadCatalog(path)
	if err != nil {
		return DefaultCatalog()
	}
	return cat
}

// DefaultCatalog returns the built-in service catalog.
func DefaultCatalog() *Catalog {
	return &Catalog{
		Packages: []string{
			"Shoe Cleaning (Promotion)",
			"Regular Laundry Packages",
			"Specialty Services (Kuala Lumpur)",
		},
		PickupTypes: map[string]PickupRate{
			"Economy": {
				PickupFee:   5,
				DeliveryFee: 5,
				Description: "Route pickup, budget friendly",
			},
			"Express": {
				PickupFee:   10,
				DeliveryFee: 0,
				Description: "On-demand rider, distance top-up applies",
			},
		},
		ServiceTypes: map[string]ServiceOptions{
			"Normal": {
				SurchargePercent: 0,
				Description:      "Standard rate, 24-48 hour processing",
			},
			"Express": {
				SurchargePercent: 50,
				Description:      "Priority turnaround, ready within 24 hours",
			},
		},
	}
}

// HasPackage reports whether the named package is offered.
func (c *Catalog) HasPackage(name string) bool {
	for _, p := range c.Packages {
		if p == name {
			return true
		}
	}
	return false
}

// HasPickupType reports whether the named pickup type is offered.
func (c *Catalog) HasPickupType(name string) bool {
	_, ok := c.PickupTypes[name]
	return ok
}

// HasServiceType reports whether the named service type is offered.
func (c *Catalog) HasServiceType(name string) bool {
	_, ok := c.ServiceTypes[name]
	return ok
}
