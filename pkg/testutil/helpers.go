// Package testutil provides common utility functions for testing.
package testutil

import (
	"github.com/iwvelando/estimate-engine/internal/engine"
)

// FindResult returns the result named name, or nil.
func FindResult(results []engine.Result, name string) *engine.Result {
	for i := range results {
		if results[i].Name == name {
			return &results[i]
		}
	}
	return nil
}

// ApartmentRequest is the 100 m² apartment with a 10 m² balcony at 12 000 per
// m², valued at 1 260 000.
func ApartmentRequest(name string) engine.ValuationRequest {
	return engine.ValuationRequest{
		Name:                name,
		PropertyType:        "apartment",
		LivingSurface:       100,
		BalconySurface:      10,
		UnitPricePerM2:      12000,
		SchedulingStartDate: "2024-01-01",
	}
}
