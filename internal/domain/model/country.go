package model

import (
	"sort"
	"strings"
)

// CountryInfo is the resolved currency information of a country. Values are
// shared through the cache and must not be modified after construction.
type CountryInfo struct {
	Name         string         `json:"name"`
	OfficialName string         `json:"official_name,omitempty"`
	Currencies   []CurrencyInfo `json:"currencies"`
}

// NewCountryInfo orders the candidates (primary first, then by code) and makes
// sure exactly one of them carries the primary flag. A flagged candidate wins;
// otherwise the sole currency, then USD, then EUR, then the lowest code.
func NewCountryInfo(name, official string, currencies []CurrencyInfo) *CountryInfo {
	list := make([]CurrencyInfo, len(currencies))
	copy(list, currencies)

	sort.SliceStable(list, func(i, j int) bool { return list[i].Code < list[j].Code })

	primary := -1
	for i := range list {
		if list[i].IsPrimary && primary < 0 {
			primary = i
		}
		list[i].IsPrimary = false
	}
	if primary < 0 && len(list) > 0 {
		primary = 0
		for _, preferred := range PreferredPrimaries {
			if idx := indexOf(list, preferred); idx >= 0 {
				primary = idx
				break
			}
		}
	}
	if primary > 0 {
		p := list[primary]
		copy(list[1:primary+1], list[:primary])
		list[0] = p
	}
	if len(list) > 0 {
		list[0].IsPrimary = true
	}

	return &CountryInfo{
		Name:         name,
		OfficialName: official,
		Currencies:   list,
	}
}

func (c *CountryInfo) Primary() (CurrencyInfo, bool) {
	if len(c.Currencies) == 0 {
		return CurrencyInfo{}, false
	}
	return c.Currencies[0], true
}

func (c *CountryInfo) Lookup(code Currency) (CurrencyInfo, bool) {
	if idx := indexOf(c.Currencies, code); idx >= 0 {
		return c.Currencies[idx], true
	}
	return CurrencyInfo{}, false
}

func (c *CountryInfo) IsMultiCurrency() bool {
	return len(c.Currencies) > 1
}

func (c *CountryInfo) Codes() []string {
	codes := make([]string, 0, len(c.Currencies))
	for _, cur := range c.Currencies {
		codes = append(codes, cur.Code.String())
	}
	return codes
}

func indexOf(list []CurrencyInfo, code Currency) int {
	for i := range list {
		if list[i].Code == code {
			return i
		}
	}
	return -1
}

// NormalizeCountry is the cache key form of a country name.
func NormalizeCountry(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// FormatCountry title-cases each word of a country name for display.
func FormatCountry(name string) string {
	words := strings.Fields(name)
	for i, w := range words {
		lower := []rune(strings.ToLower(w))
		lower[0] = []rune(strings.ToUpper(string(lower[0])))[0]
		words[i] = string(lower)
	}
	return strings.Join(words, " ")
}
