package models

// Catalog names one of the fixed laminate collections.
type Catalog string

const (
	CatalogArtis1MM Catalog = "Artis 1MM"
	CatalogArtvio   Catalog = "Artvio"
	CatalogWoodrica Catalog = "Woodrica"
)

// Catalogs lists every known collection in display order.
var Catalogs = []Catalog{CatalogArtis1MM, CatalogArtvio, CatalogWoodrica}

// Valid reports whether c is one of the known collections.
func (c Catalog) Valid() bool {
	for _, known := range Catalogs {
		if c == known {
			return true
		}
	}
	return false
}

// Categories lists the category labels used by the design team. Products may
// carry other labels or none at all.
var Categories = []string{
	"Wooden",
	"Marble",
	"Plain Colours",
	"Abstract",
	"Acrylic",
	"Metallic",
	"Stone",
	"Sparkle",
	"Pastel",
}

// StockStatus is the derived inventory health label.
type StockStatus string

const (
	StockStatusHigh     StockStatus = "high"
	StockStatusMedium   StockStatus = "medium"
	StockStatusLow      StockStatus = "low"
	StockStatusCritical StockStatus = "critical"
)

// Trend is the derived direction of monthly consumption.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// Lamital holds the externally hosted detail page, image and texture tags.
// URLs are opaque and passed through untouched.
type Lamital struct {
	URL      string   `json:"url" yaml:"url"`
	ImageURL string   `json:"image_url" yaml:"imageUrl"`
	Textures []string `json:"textures" yaml:"textures"`
}

// StockData is the current design paper inventory for a product.
type StockData struct {
	CurrentStock    *float64    `json:"current_stock" yaml:"currentStock"`
	AvgConsumption  *float64    `json:"avg_consumption" yaml:"avgConsumption"`
	StockStatus     StockStatus `json:"stock_status,omitempty" yaml:"stockStatus"`
	MonthsRemaining *float64    `json:"months_remaining" yaml:"monthsRemaining"`
	LastUpdated     string      `json:"last_updated,omitempty" yaml:"lastUpdated"`
}

// MonthlyConsumption is one month of design paper usage in kilograms.
type MonthlyConsumption struct {
	Month       string  `json:"month" yaml:"month"` // YYYY-MM
	Consumption float64 `json:"consumption" yaml:"consumption"`
}

// ConsumptionHistory is the trailing consumption series for a product.
type ConsumptionHistory struct {
	MonthlyData      []MonthlyConsumption `json:"monthly_data" yaml:"monthlyData"`
	TotalConsumption *float64             `json:"total_consumption" yaml:"totalConsumption"`
	AverageMonthly   *float64             `json:"average_monthly" yaml:"averageMonthly"`
	Trend            Trend                `json:"trend,omitempty" yaml:"trend"`
}

// Product is a single laminate design in the catalog.
type Product struct {
	Code               string              `json:"code" yaml:"code"`
	Name               string              `json:"name" yaml:"name"`
	Catalog            Catalog             `json:"catalog" yaml:"catalog"`
	Category           string              `json:"category" yaml:"category"`
	Supplier           string              `json:"supplier,omitempty" yaml:"supplier"`
	SupplierCode       string              `json:"supplier_code,omitempty" yaml:"supplierCode"`
	CurrentStock       *float64            `json:"current_stock" yaml:"currentStock"`
	Matched            bool                `json:"matched" yaml:"matched"`
	Lamital            Lamital             `json:"lamital" yaml:"lamital"`
	InventoryCatalogs  []string            `json:"inventory_catalogs,omitempty" yaml:"inventoryCatalogs"`
	StockData          *StockData          `json:"stock_data,omitempty" yaml:"stockData"`
	ConsumptionHistory *ConsumptionHistory `json:"consumption_history,omitempty" yaml:"consumptionHistory"`
}

// HasStockInfo reports whether the product carries any inventory data.
func (p *Product) HasStockInfo() bool {
	return p.StockData != nil || p.ConsumptionHistory != nil
}
