package models

import "testing"

func TestCatalogValid(t *testing.T) {
	for _, c := range Catalogs {
		if !c.Valid() {
			t.Errorf("Catalog %q should be valid", c)
		}
	}
	if Catalog("Artvio ").Valid() {
		t.Error("catalog with trailing space should be invalid")
	}
	if Catalog("").Valid() {
		t.Error("empty catalog should be invalid")
	}
}

func TestLookupTextureUnknownFallback(t *testing.T) {
	got := LookupTexture("ZZ")
	if got.Name != "ZZ" || got.Code != "ZZ" {
		t.Errorf("LookupTexture(ZZ) = %+v, want code and name ZZ", got)
	}
	if got := LookupTexture("SYN"); got.Name != "Synchronized" {
		t.Errorf("LookupTexture(SYN).Name = %q, want Synchronized", got.Name)
	}
}

func TestHasStockInfo(t *testing.T) {
	p := Product{Code: "1318"}
	if p.HasStockInfo() {
		t.Error("product without stock data reports stock info")
	}
	p.ConsumptionHistory = &ConsumptionHistory{}
	if !p.HasStockInfo() {
		t.Error("product with consumption history reports no stock info")
	}
}
