package catalog

import (
	"math"

	"github.com/HerbHall/artiscatalog/pkg/models"
)

// sheetsPerKg is the rough number of laminate sheets printed per kilogram of
// design paper.
const sheetsPerKg = 4

// EstimatedSheets converts a design paper weight into an approximate sheet count.
func EstimatedSheets(kg float64) int {
	return int(math.Round(kg * sheetsPerKg))
}

// ActiveConsumption returns the monthly series up to and including the last
// month with non-zero consumption. Trailing months that were never filled in
// are dropped; a history with no consumption at all yields an empty series.
func ActiveConsumption(h *models.ConsumptionHistory) []models.MonthlyConsumption {
	if h == nil {
		return []models.MonthlyConsumption{}
	}
	last := -1
	for i, m := range h.MonthlyData {
		if m.Consumption > 0 {
			last = i
		}
	}
	out := make([]models.MonthlyConsumption, last+1)
	copy(out, h.MonthlyData[:last+1])
	return out
}
