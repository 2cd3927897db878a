package catalog

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/HerbHall/artiscatalog/pkg/models"
)

// csvHeaders returns the CSV column headers.
func csvHeaders() []string {
	return []string{
		"code", "name", "catalog", "category", "supplier", "supplier_code",
		"matched", "current_stock", "stock_status", "textures", "lamital_url",
	}
}

// productToCSVRow converts a product to a CSV row (matching csvHeaders order).
func productToCSVRow(p *models.Product) []string {
	var stock, status string
	if p.CurrentStock != nil {
		stock = strconv.FormatFloat(*p.CurrentStock, 'f', -1, 64)
	}
	if p.StockData != nil {
		status = string(p.StockData.StockStatus)
	}
	return []string{
		p.Code,
		p.Name,
		string(p.Catalog),
		p.Category,
		p.Supplier,
		p.SupplierCode,
		strconv.FormatBool(p.Matched),
		stock,
		status,
		strings.Join(p.Lamital.Textures, ";"),
		p.Lamital.URL,
	}
}

// writeCSV writes products with a header row.
func writeCSV(w io.Writer, products []models.Product) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeaders()); err != nil {
		return err
	}
	for i := range products {
		if err := cw.Write(productToCSVRow(&products[i])); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
