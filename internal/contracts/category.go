package contracts

import (
	"fmt"
	"strings"
)

// Category is the closed set of independent leaderboards
// ⭐ SSOT: 카테고리 정의는 여기서만 (카테고리 간 계산 혼합 금지)
type Category string

const (
	CategoryManufacturer   Category = "manufacturer"
	CategoryCannabisStrain Category = "cannabis_strain"
	CategoryProduct        Category = "product"
	CategoryPharmacy       Category = "pharmacy"
	CategoryBrand          Category = "brand"
)

// AllCategories returns every category in a stable order
func AllCategories() []Category {
	return []Category{
		CategoryManufacturer,
		CategoryCannabisStrain,
		CategoryProduct,
		CategoryPharmacy,
		CategoryBrand,
	}
}

// ParseCategory converts user input into a Category
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c.Valid() {
		return c, nil
	}
	return "", &InvalidInputError{Field: "category", Reason: fmt.Sprintf("unknown category %q", s)}
}

// Valid reports whether c is a member of the enumeration
func (c Category) Valid() bool {
	switch c {
	case CategoryManufacturer, CategoryCannabisStrain, CategoryProduct, CategoryPharmacy, CategoryBrand:
		return true
	default:
		return false
	}
}

// String returns the category name
func (c Category) String() string {
	return string(c)
}

// Table returns the daily stats table backing the category
func (c Category) Table() string {
	switch c {
	case CategoryManufacturer:
		return "manufacturer_daily_stats"
	case CategoryCannabisStrain:
		return "strain_daily_stats"
	case CategoryProduct:
		return "product_daily_stats"
	case CategoryPharmacy:
		return "pharmacy_daily_stats"
	case CategoryBrand:
		return "brand_daily_stats"
	default:
		return ""
	}
}

// Description returns Korean description of the category
func (c Category) Description() string {
	switch c {
	case CategoryManufacturer:
		return "제조사"
	case CategoryCannabisStrain:
		return "품종"
	case CategoryProduct:
		return "제품"
	case CategoryPharmacy:
		return "약국"
	case CategoryBrand:
		return "브랜드"
	default:
		return "알 수 없음"
	}
}

// ParseCategories parses a comma separated list; empty input means all categories
func ParseCategories(s string) ([]Category, error) {
	if strings.TrimSpace(s) == "" {
		return AllCategories(), nil
	}

	seen := make(map[Category]bool)
	var out []Category
	for _, part := range strings.Split(s, ",") {
		c, err := ParseCategory(part)
		if err != nil {
			return nil, err
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out, nil
}
