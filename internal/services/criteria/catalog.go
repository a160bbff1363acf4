package criteria

import (
	"strings"
	"unicode"

	"home_compare/internal/domain"
)

// Ключи критериев каталога.
const (
	KeyLocation        = "location"
	KeyInternalSpace   = "internal_space"
	KeyFurniture       = "furniture"
	KeyAccessibility   = "accessibility"
	KeyFinishing       = "finishing"
	KeyPrice           = "price"
	KeyCondoFee        = "condo_fee"
	KeySafety          = "safety"
	KeyPublicTransport = "public_transport"
	KeySilence         = "silence"
	KeyNaturalLight    = "natural_light"
	KeyParking         = "parking"
	KeyLeisure         = "leisure"
	KeySchools         = "schools"
	KeyCommerce        = "commerce"
	KeyView            = "view"
)

// catalog — упорядоченный реестр критериев. DefaultWeight задан в шкале отображения 1..5.
var catalog = []domain.Criterion{
	{Key: KeyLocation, Label: "Location", DefaultWeight: 5},
	{Key: KeyInternalSpace, Label: "Internal space", DefaultWeight: 4},
	{Key: KeyFurniture, Label: "Furniture", DefaultWeight: 3},
	{Key: KeyAccessibility, Label: "Accessibility", DefaultWeight: 3},
	{Key: KeyFinishing, Label: "Finishing", DefaultWeight: 3},
	{Key: KeyPrice, Label: "Price", DefaultWeight: 5},
	{Key: KeyCondoFee, Label: "Condo fee", DefaultWeight: 4},
	{Key: KeySafety, Label: "Safety", DefaultWeight: 3},
	{Key: KeyPublicTransport, Label: "Public transport", DefaultWeight: 3},
	{Key: KeySilence, Label: "Silence", DefaultWeight: 3},
	{Key: KeyNaturalLight, Label: "Natural light", DefaultWeight: 3},
	{Key: KeyParking, Label: "Parking", DefaultWeight: 3},
	{Key: KeyLeisure, Label: "Leisure", DefaultWeight: 3},
	{Key: KeySchools, Label: "Schools", DefaultWeight: 3},
	{Key: KeyCommerce, Label: "Commerce", DefaultWeight: 3},
	{Key: KeyView, Label: "View", DefaultWeight: 3},
}

// defaultKeys — системный набор критериев для пользователей без настроек и онбординга.
var defaultKeys = []domain.CriterionKey{
	KeyLocation,
	KeyInternalSpace,
	KeyFurniture,
	KeyAccessibility,
	KeyFinishing,
	KeyPrice,
	KeyCondoFee,
}

// profileTables — предлагаемые веса архетипов. Порядок строк задаёт порядок отображения.
var profileTables = map[domain.ProfileType][]domain.CriterionWeight{
	domain.ProfileInvestor: {
		{CriterionKey: KeyPrice, Weight: 30},
		{CriterionKey: KeyLocation, Weight: 25},
		{CriterionKey: KeyCondoFee, Weight: 15},
		{CriterionKey: KeyPublicTransport, Weight: 10},
		{CriterionKey: KeySafety, Weight: 10},
		{CriterionKey: KeyFinishing, Weight: 10},
	},
	domain.ProfileFamilyWithChildren: {
		{CriterionKey: KeySchools, Weight: 25},
		{CriterionKey: KeySafety, Weight: 20},
		{CriterionKey: KeyInternalSpace, Weight: 20},
		{CriterionKey: KeyLeisure, Weight: 10},
		{CriterionKey: KeyPrice, Weight: 15},
		{CriterionKey: KeyParking, Weight: 10},
	},
	domain.ProfileYoungProfessional: {
		{CriterionKey: KeyLocation, Weight: 25},
		{CriterionKey: KeyPublicTransport, Weight: 20},
		{CriterionKey: KeyPrice, Weight: 15},
		{CriterionKey: KeyLeisure, Weight: 15},
		{CriterionKey: KeyFurniture, Weight: 10},
		{CriterionKey: KeyCommerce, Weight: 15},
	},
	domain.ProfileStudent: {
		{CriterionKey: KeyPrice, Weight: 35},
		{CriterionKey: KeyPublicTransport, Weight: 25},
		{CriterionKey: KeyFurniture, Weight: 15},
		{CriterionKey: KeyLocation, Weight: 15},
		{CriterionKey: KeyCommerce, Weight: 10},
	},
	domain.ProfileRetiree: {
		{CriterionKey: KeySilence, Weight: 25},
		{CriterionKey: KeyAccessibility, Weight: 25},
		{CriterionKey: KeySafety, Weight: 20},
		{CriterionKey: KeyCommerce, Weight: 10},
		{CriterionKey: KeyNaturalLight, Weight: 10},
		{CriterionKey: KeyCondoFee, Weight: 10},
	},
}

// Criteria возвращает копию полного каталога в порядке отображения.
func Criteria() []domain.Criterion {
	out := make([]domain.Criterion, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup ищет критерий по ключу.
func Lookup(key domain.CriterionKey) (domain.Criterion, bool) {
	for _, c := range catalog {
		if c.Key == key {
			return c, true
		}
	}
	return domain.Criterion{}, false
}

// Label возвращает подпись критерия; для пользовательских ключей вне каталога
// подпись строится из ключа ("home_office" -> "Home office").
func Label(key domain.CriterionKey) string {
	if c, ok := Lookup(key); ok {
		return c.Label
	}
	return humanize(key)
}

// DefaultCriteria возвращает системный набор критериев по умолчанию.
func DefaultCriteria() []domain.Criterion {
	out := make([]domain.Criterion, 0, len(defaultKeys))
	for _, k := range defaultKeys {
		c, _ := Lookup(k)
		out = append(out, c)
	}
	return out
}

// ProfileWeights возвращает таблицу весов архетипа.
func ProfileWeights(profile domain.ProfileType) ([]domain.CriterionWeight, bool) {
	table, ok := profileTables[profile]
	if !ok {
		return nil, false
	}
	out := make([]domain.CriterionWeight, len(table))
	copy(out, table)
	return out, true
}

// ProfileWeightMap — таблица архетипа в виде отображения ключ -> вес.
func ProfileWeightMap(profile domain.ProfileType) (map[domain.CriterionKey]float64, bool) {
	table, ok := profileTables[profile]
	if !ok {
		return nil, false
	}
	out := make(map[domain.CriterionKey]float64, len(table))
	for _, cw := range table {
		out[cw.CriterionKey] = cw.Weight
	}
	return out, true
}

// ProfileTypes возвращает архетипы, для которых есть таблица весов.
func ProfileTypes() []domain.ProfileType {
	return domain.ProfileTypes()
}

func humanize(key string) string {
	s := strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(key, "_", " "), "-", " "))
	if s == "" {
		return key
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
