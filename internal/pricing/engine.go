package pricing

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/simrig-store/internal/money"
)

// Product is the catalog data the engine needs about a sellable item.
type Product struct {
	ID               string          `json:"id"`
	SKU              string          `json:"sku"`
	Name             string          `json:"name"`
	BasePrice        money.Amount    `json:"basePrice"`
	VATRate          decimal.Decimal `json:"vatRate"`
	IsCustomizable   bool            `json:"isCustomizable"`
	BaseLeadTimeDays int             `json:"baseLeadTimeDays"`
	WeightKg         decimal.Decimal `json:"weightKg"`
}

// ComponentOption is one selectable choice inside a named option group of a product.
type ComponentOption struct {
	ID              string       `json:"id"`
	ProductID       string       `json:"productId"`
	OptionGroup     string       `json:"optionGroup"`
	IsGroupRequired bool         `json:"isGroupRequired"`
	IsDefault       bool         `json:"isDefault"`
	PriceModifier   money.Amount `json:"priceModifier"`
	ComponentID     string       `json:"componentId"`
	ComponentName   string       `json:"componentName"`
	DisplayOrder    int          `json:"displayOrder"`
	LeadTimeDays    int          `json:"leadTimeDays"`
}

// ResolvedComponent is the display/audit record of one selected option.
type ResolvedComponent struct {
	Group         string `json:"group"`
	ComponentID   string `json:"componentId"`
	ComponentName string `json:"componentName"`
}

// PricedLine is the result of pricing one configured product instance.
type PricedLine struct {
	UnitPriceExVAT   money.Amount        `json:"unitPriceExVat"`
	UnitPriceWithVAT money.Amount        `json:"unitPriceWithVat"`
	VATRate          decimal.Decimal     `json:"vatRate"`
	Components       []ResolvedComponent `json:"components"`
	LeadTimeDays     int                 `json:"leadTimeDays"`
	WeightKg         decimal.Decimal     `json:"weightKg"`
}

// PriceSelection validates selectedIDs against the option groups of p and prices the result.
//
// Rules are applied in order and the first failure is returned: every id must belong to p,
// each group accepts at most one id, and every required group needs exactly one id. Groups are
// visited in name order so the reported group is stable across calls.
func PriceSelection(p Product, options []ComponentOption, selectedIDs []string) (PricedLine, error) {
	byID := make(map[string]ComponentOption, len(options))
	required := make(map[string]struct{})
	for _, opt := range options {
		if opt.ProductID != p.ID {
			continue
		}
		byID[opt.ID] = opt
		if opt.IsGroupRequired {
			required[opt.OptionGroup] = struct{}{}
		}
	}

	chosen := make([]ComponentOption, 0, len(selectedIDs))
	perGroup := make(map[string]int, len(selectedIDs))
	for _, id := range selectedIDs {
		opt, ok := byID[id]
		if !ok || !p.IsCustomizable {
			return PricedLine{}, &ValidationError{Kind: ErrUnknownOption, OptionID: id}
		}
		chosen = append(chosen, opt)
		perGroup[opt.OptionGroup]++
	}

	for _, group := range sortedKeys(perGroup) {
		if perGroup[group] > 1 {
			return PricedLine{}, &ValidationError{Kind: ErrMultipleSelectionsInGroup, Group: group}
		}
	}
	// Option rows of a non-customizable product are not offered to the client.
	if p.IsCustomizable {
		for _, group := range sortedKeys(required) {
			if perGroup[group] == 0 {
				return PricedLine{}, &ValidationError{Kind: ErrMissingRequiredGroup, Group: group}
			}
		}
	}

	exVAT := p.BasePrice
	extraLead := 0
	for _, opt := range chosen {
		exVAT = exVAT.Add(opt.PriceModifier)
		if opt.LeadTimeDays > extraLead {
			extraLead = opt.LeadTimeDays
		}
	}

	sort.SliceStable(chosen, func(i, j int) bool {
		if chosen[i].DisplayOrder != chosen[j].DisplayOrder {
			return chosen[i].DisplayOrder < chosen[j].DisplayOrder
		}
		if chosen[i].OptionGroup != chosen[j].OptionGroup {
			return chosen[i].OptionGroup < chosen[j].OptionGroup
		}
		return chosen[i].ID < chosen[j].ID
	})
	components := make([]ResolvedComponent, 0, len(chosen))
	for _, opt := range chosen {
		components = append(components, ResolvedComponent{
			Group:         opt.OptionGroup,
			ComponentID:   opt.ComponentID,
			ComponentName: opt.ComponentName,
		})
	}

	return PricedLine{
		UnitPriceExVAT:   exVAT,
		UnitPriceWithVAT: money.WithVAT(exVAT, p.VATRate),
		VATRate:          p.VATRate,
		Components:       components,
		LeadTimeDays:     p.BaseLeadTimeDays + extraLead,
		WeightKg:         p.WeightKg,
	}, nil
}

// DefaultSelection returns the default option of every group that has one, ordered by display
// order. It is a pre-fill for configurator UIs; PriceSelection never substitutes defaults.
func DefaultSelection(p Product, options []ComponentOption) []string {
	if !p.IsCustomizable {
		return nil
	}
	defaults := make([]ComponentOption, 0)
	for _, opt := range options {
		if opt.ProductID == p.ID && opt.IsDefault {
			defaults = append(defaults, opt)
		}
	}
	sort.SliceStable(defaults, func(i, j int) bool {
		if defaults[i].DisplayOrder != defaults[j].DisplayOrder {
			return defaults[i].DisplayOrder < defaults[j].DisplayOrder
		}
		return defaults[i].ID < defaults[j].ID
	})
	seen := make(map[string]struct{}, len(defaults))
	ids := make([]string, 0, len(defaults))
	for _, opt := range defaults {
		if _, dup := seen[opt.OptionGroup]; dup {
			continue
		}
		seen[opt.OptionGroup] = struct{}{}
		ids = append(ids, opt.ID)
	}
	return ids
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
