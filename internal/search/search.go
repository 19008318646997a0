// Package search compiles property search requests into validated filters.
package search

import (
	"sort"
	"strings"

	"realestate/server/internal/apperr"
	"realestate/server/internal/models"
)

// AnyPrice disables the price clause
const AnyPrice = "Any"

// Request is the raw search payload as received from a client
type Request struct {
	AdvertType    string `json:"advert_type"`
	PropertyType  string `json:"property_type"`
	PriceTier     string `json:"price_tier"`
	BedroomsTier  string `json:"bedrooms_tier"`
	BathroomsTier string `json:"bathrooms_tier"`
	Phrase        string `json:"phrase"`
	Sort          string `json:"sort"`
}

type SortOrder string

const (
	SortDefault   SortOrder = ""
	SortPriceAsc  SortOrder = "price_asc"
	SortPriceDesc SortOrder = "price_desc"
	SortNewest    SortOrder = "newest"
)

var priceTiers = map[string]float64{
	"$0+":       0,
	"$100,000+": 100000,
	"$200,000+": 200000,
	"$300,000+": 300000,
	"$400,000+": 400000,
	"$500,000+": 500000,
	"$600,000+": 600000,
}

var roomTiers = map[string]int{
	"0+": 0,
	"1+": 1,
	"2+": 2,
	"3+": 3,
	"4+": 4,
	"5+": 5,
	"6+": 6,
}

// Filter is a compiled request. Nil pointers are clauses that do not apply.
type Filter struct {
	AdvertType   *models.AdvertType
	PropertyType *models.PropertyType
	MinPrice     *float64
	MinBedrooms  int
	MinBathrooms int
	Phrase       string
	Sort         SortOrder
}

// PriceTiers lists the accepted price tier labels in ascending order, "Any" last
func PriceTiers() []string {
	tiers := make([]string, 0, len(priceTiers)+1)
	for k := range priceTiers {
		tiers = append(tiers, k)
	}
	sort.Slice(tiers, func(i, j int) bool { return priceTiers[tiers[i]] < priceTiers[tiers[j]] })
	return append(tiers, AnyPrice)
}

// RoomTiers lists the accepted bedroom and bathroom tier labels in ascending order
func RoomTiers() []string {
	tiers := make([]string, 0, len(roomTiers))
	for k := range roomTiers {
		tiers = append(tiers, k)
	}
	sort.Slice(tiers, func(i, j int) bool { return roomTiers[tiers[i]] < roomTiers[tiers[j]] })
	return tiers
}

// Compile validates req and returns the filter it describes. All problems
// are reported together in a single validation error.
func Compile(req Request) (Filter, error) {
	var f Filter
	var problems []string

	if v := strings.TrimSpace(req.AdvertType); v != "" {
		if at, ok := models.ParseAdvertType(v); ok {
			f.AdvertType = &at
		} else {
			problems = append(problems, "unknown advert_type "+quote(v))
		}
	}

	if v := strings.TrimSpace(req.PropertyType); v != "" {
		if pt, ok := models.ParsePropertyType(v); ok {
			f.PropertyType = &pt
		} else {
			problems = append(problems, "unknown property_type "+quote(v))
		}
	}

	switch v := strings.TrimSpace(req.PriceTier); {
	case v == "":
		problems = append(problems, "price_tier is required")
	case strings.EqualFold(v, AnyPrice):
	default:
		if min, ok := priceTiers[v]; ok {
			f.MinPrice = &min
		} else {
			problems = append(problems, "unknown price_tier "+quote(v)+expected(PriceTiers()))
		}
	}

	f.MinBedrooms = roomTier("bedrooms_tier", req.BedroomsTier, &problems)
	f.MinBathrooms = roomTier("bathrooms_tier", req.BathroomsTier, &problems)

	f.Phrase = strings.TrimSpace(req.Phrase)

	switch s := SortOrder(strings.TrimSpace(req.Sort)); s {
	case SortDefault, SortPriceAsc, SortPriceDesc, SortNewest:
		f.Sort = s
	default:
		problems = append(problems, "unknown sort "+quote(string(s)))
	}

	if len(problems) > 0 {
		return Filter{}, apperr.Validation(strings.Join(problems, "; "))
	}
	return f, nil
}

func roomTier(field, raw string, problems *[]string) int {
	v := strings.TrimSpace(raw)
	if v == "" {
		*problems = append(*problems, field+" is required")
		return 0
	}
	n, ok := roomTiers[v]
	if !ok {
		*problems = append(*problems, "unknown "+field+" "+quote(v)+expected(RoomTiers()))
	}
	return n
}

func quote(s string) string {
	return `"` + s + `"`
}

func expected(options []string) string {
	return " (expected one of " + strings.Join(options, ", ") + ")"
}

// Matches is the reference predicate for the filter over a single property.
// The store query must select exactly the properties for which it returns true.
func (f Filter) Matches(p models.Property) bool {
	if !p.Published {
		return false
	}
	if f.AdvertType != nil && !strings.EqualFold(string(p.AdvertType), string(*f.AdvertType)) {
		return false
	}
	if f.PropertyType != nil && !strings.EqualFold(string(p.PropertyType), string(*f.PropertyType)) {
		return false
	}
	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if p.Bedrooms < f.MinBedrooms || p.Bathrooms < f.MinBathrooms {
		return false
	}
	if f.Phrase != "" && !strings.Contains(strings.ToLower(p.Description), strings.ToLower(f.Phrase)) {
		return false
	}
	return true
}
