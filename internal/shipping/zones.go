package shipping

import (
	"regexp"
	"strings"

	"github.com/noah-isme/simrig-store/internal/money"
)

var postalCodePattern = regexp.MustCompile(`^\d{5}$`)

// Zone is one row of the postal-code indexed shipping rate table.
type Zone struct {
	Name                  string       `json:"name"`
	PostalCodePrefixes    string       `json:"postalCodePrefixes"`
	BaseCost              money.Amount `json:"baseCost"`
	CostPerKg             money.Amount `json:"costPerKg"`
	FreeShippingThreshold money.Amount `json:"freeShippingThreshold"`
	IsActive              bool         `json:"isActive"`
}

// Prefixes splits the comma-joined prefix list, dropping blanks.
func (z Zone) Prefixes() []string {
	parts := strings.Split(z.PostalCodePrefixes, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// ValidPostalCode reports whether code matches the five digit format accepted by checkout.
func ValidPostalCode(code string) bool {
	return postalCodePattern.MatchString(code)
}

// NormalizePostalCode trims the input and keeps its leading run of digits.
func NormalizePostalCode(code string) string {
	code = strings.TrimSpace(code)
	end := 0
	for end < len(code) && code[end] >= '0' && code[end] <= '9' {
		end++
	}
	return code[:end]
}

// ResolveZone finds the active zone serving postalCode. The longest matching prefix wins;
// zones matching with prefixes of equal length are resolved by their position in zones.
func ResolveZone(postalCode string, zones []Zone) (Zone, bool) {
	code := NormalizePostalCode(postalCode)
	if code == "" {
		return Zone{}, false
	}
	best := -1
	bestLen := 0
	for i, zone := range zones {
		if !zone.IsActive {
			continue
		}
		for _, prefix := range zone.Prefixes() {
			if len(prefix) > bestLen && strings.HasPrefix(code, prefix) {
				best = i
				bestLen = len(prefix)
			}
		}
	}
	if best < 0 {
		return Zone{}, false
	}
	return zones[best], true
}
