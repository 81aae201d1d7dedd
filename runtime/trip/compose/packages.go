package compose

import (
	"sort"
	"strconv"
	"strings"

	"goa.design/voyage/runtime/trip"
	"goa.design/voyage/runtime/trip/plan"
)

type (
	// Tier names one of the three suggested package levels.
	Tier string

	// Package pairs one flight with one hotel at a price tier. Packages are
	// built deterministically from the ok sections so repeated composition of
	// the same results yields the same suggestions.
	Package struct {
		Tier       Tier
		Flight     trip.Item
		Hotel      trip.Item
		TotalPrice float64
	}
)

const (
	TierBudget   Tier = "Budget"
	TierBalanced Tier = "Balanced"
	TierPremium  Tier = "Premium"
)

// BuildPackages assembles Budget, Balanced and Premium flight+hotel pairings.
// Packages are only built for a full plan with a known budget and priced
// options in both sections; anything else returns nil and the composer
// presents the raw sections.
func BuildPackages(p plan.Plan, sections map[trip.Category][]trip.Item) []Package {
	if p.Intent != plan.IntentFull || p.TotalBudget <= 0 {
		return nil
	}
	flights := pricedSorted(sections[trip.CategoryFlights])
	hotels := pricedSorted(sections[trip.CategoryHotels])
	if len(flights) == 0 || len(hotels) == 0 {
		return nil
	}

	pair := func(tier Tier, fi, hi int) Package {
		f, h := flights[fi], hotels[hi]
		return Package{
			Tier:       tier,
			Flight:     f.item,
			Hotel:      h.item,
			TotalPrice: f.price + h.price,
		}
	}
	pkgs := []Package{
		pair(TierBudget, 0, 0),
		pair(TierBalanced, len(flights)/2, len(hotels)/2),
		pair(TierPremium, len(flights)-1, len(hotels)-1),
	}

	// Drop tiers that collapse onto an identical cheaper pairing so short
	// inventories do not produce three copies of the same suggestion.
	out := pkgs[:1]
	for _, pk := range pkgs[1:] {
		prev := out[len(out)-1]
		if pk.Flight.Name == prev.Flight.Name && pk.Hotel.Name == prev.Hotel.Name {
			continue
		}
		out = append(out, pk)
	}
	return out
}

type pricedItem struct {
	item  trip.Item
	price float64
}

// pricedSorted extracts the items with a parseable price, cheapest first.
// Ties break on name so ordering is stable.
func pricedSorted(items []trip.Item) []pricedItem {
	var out []pricedItem
	for _, it := range items {
		if v, ok := ParsePrice(it.Price); ok {
			out = append(out, pricedItem{item: it, price: v})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].price != out[j].price {
			return out[i].price < out[j].price
		}
		return out[i].item.Name < out[j].item.Name
	})
	return out
}

// ParsePrice extracts a numeric amount from a supplier price string such as
// "$420.50", "310 USD" or "1,200". Returns false when no number is present.
func ParsePrice(s string) (float64, bool) {
	var b strings.Builder
	seen := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.':
			b.WriteRune(r)
			seen = true
		case r == ',':
			// thousands separator
		default:
			if seen {
				// First complete number wins.
				goto done
			}
		}
	}
done:
	if !seen {
		return 0, false
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
