package jsonld

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"home_compare/internal/domain"
)

// Listing — объявление, собранное из schema.org-разметки страницы.
// Поля, которые не удалось распознать, остаются нулевыми.
type Listing struct {
	Type         string
	Name         string
	Description  string
	URL          string
	Address      string
	Price        *float64
	FloorSize    *float64
	Rooms        *int32
	Bedrooms     *int32
	Bathrooms    *int32
	FloorLevel   *int32
	Images       []string
	Latitude     *float64
	Longitude    *float64
	CondoFee     *float64
	ParkingSpots *int32
}

// listingTypes — типы schema.org, которые описывают жильё или объявление о нём.
var listingTypes = map[string]bool{
	"RealEstateListing":     true,
	"Apartment":             true,
	"House":                 true,
	"SingleFamilyResidence": true,
	"Residence":             true,
	"Accommodation":         true,
	"ApartmentComplex":      true,
	"Room":                  true,
	"Product":               true,
	"Offer":                 true,
}

// node — объект JSON-LD с произвольными полями.
type node map[string]json.RawMessage

// decodeNodes разбирает содержимое одного <script type="application/ld+json">.
// Поддерживаются одиночный объект, массив и @graph.
func decodeNodes(data []byte) []node {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}

	var nodes []node
	if data[0] == '[' {
		var raws []json.RawMessage
		if err := json.Unmarshal(data, &raws); err != nil {
			return nil
		}
		for _, raw := range raws {
			nodes = append(nodes, decodeNodes(raw)...)
		}
		return nodes
	}

	var n node
	if err := json.Unmarshal(data, &n); err != nil {
		return nil
	}
	if graph, ok := n["@graph"]; ok {
		nodes = append(nodes, decodeNodes(graph)...)
	}
	return append(nodes, n)
}

// toListing переводит узел в Listing, если его тип похож на объявление.
func toListing(n node) (Listing, bool) {
	types := stringsOf(n["@type"])
	var matched string
	for _, t := range types {
		if listingTypes[t] {
			matched = t
			break
		}
	}
	if matched == "" {
		return Listing{}, false
	}

	l := Listing{
		Type:        matched,
		Name:        stringOf(n["name"]),
		Description: stringOf(n["description"]),
		URL:         stringOf(n["url"]),
		Images:      imagesOf(n["image"]),
	}

	// Offer и RealEstateListing часто описывают сам объект во вложенном узле.
	for _, key := range []string{"itemOffered", "mainEntity", "about"} {
		if inner, ok := objectOf(n[key]); ok {
			if sub, ok := toListing(inner); ok {
				l = merge(l, sub)
			} else {
				l = merge(l, fields(inner))
			}
		}
	}
	l = merge(l, fields(n))

	if l.Price == nil {
		l.Price = numberOf(n["price"])
	}

	return l, true
}

// fields читает характеристики объекта без проверки типа.
func fields(n node) Listing {
	l := Listing{
		Name:        stringOf(n["name"]),
		Description: stringOf(n["description"]),
		Address:     addressOf(n["address"]),
		FloorSize:   quantityOf(n["floorSize"]),
		Rooms:       intOf(n["numberOfRooms"]),
		Bedrooms:    intOf(n["numberOfBedrooms"]),
		Bathrooms:   firstInt(n["numberOfBathroomsTotal"], n["numberOfFullBathrooms"]),
		FloorLevel:  intOf(n["floorLevel"]),
		Images:      imagesOf(n["image"]),
		Price:       priceOf(n["offers"]),
	}

	if geo, ok := objectOf(n["geo"]); ok {
		l.Latitude = numberOf(geo["latitude"])
		l.Longitude = numberOf(geo["longitude"])
	}

	if raw, ok := n["additionalProperty"]; ok {
		for _, p := range objectsOf(raw) {
			name := strings.ToLower(stringOf(p["name"]))
			switch {
			case strings.Contains(name, "condo") || strings.Contains(name, "hoa") || strings.Contains(name, "condom"):
				l.CondoFee = numberOf(p["value"])
			case strings.Contains(name, "parking") || strings.Contains(name, "garage") || strings.Contains(name, "vaga"):
				l.ParkingSpots = intOf(p["value"])
			}
		}
	}

	return l
}

// merge дополняет пустые поля dst значениями из src.
func merge(dst, src Listing) Listing {
	if dst.Name == "" {
		dst.Name = src.Name
	}
	if dst.Description == "" {
		dst.Description = src.Description
	}
	if dst.URL == "" {
		dst.URL = src.URL
	}
	if dst.Address == "" {
		dst.Address = src.Address
	}
	if dst.Price == nil {
		dst.Price = src.Price
	}
	if dst.FloorSize == nil {
		dst.FloorSize = src.FloorSize
	}
	if dst.Rooms == nil {
		dst.Rooms = src.Rooms
	}
	if dst.Bedrooms == nil {
		dst.Bedrooms = src.Bedrooms
	}
	if dst.Bathrooms == nil {
		dst.Bathrooms = src.Bathrooms
	}
	if dst.FloorLevel == nil {
		dst.FloorLevel = src.FloorLevel
	}
	if dst.Latitude == nil {
		dst.Latitude, dst.Longitude = src.Latitude, src.Longitude
	}
	if dst.CondoFee == nil {
		dst.CondoFee = src.CondoFee
	}
	if dst.ParkingSpots == nil {
		dst.ParkingSpots = src.ParkingSpots
	}
	if len(dst.Images) == 0 {
		dst.Images = src.Images
	}
	return dst
}

// Complete сообщает, достаточно ли данных для объекта без помощи LLM.
func (l Listing) Complete() bool {
	return l.Name != "" && l.Address != "" && l.Price != nil
}

// Draft переводит объявление в черновик объекта. Цена трактуется как месячная аренда.
func (l Listing) Draft() domain.PropertyDraft {
	d := domain.PropertyDraft{
		Title:       l.Name,
		Address:     l.Address,
		Description: l.Description,
		Images:      l.Images,
	}
	if l.Price != nil {
		d.Costs.Rent = *l.Price
	}
	if l.CondoFee != nil {
		d.Costs.CondoFee = *l.CondoFee
	}
	if l.FloorSize != nil {
		d.Area = *l.FloorSize
	}
	switch {
	case l.Bedrooms != nil:
		d.Bedrooms = *l.Bedrooms
	case l.Rooms != nil:
		d.Bedrooms = *l.Rooms
	}
	if l.Bathrooms != nil {
		d.Bathrooms = *l.Bathrooms
	}
	if l.ParkingSpots != nil {
		d.ParkingSpots = *l.ParkingSpots
	}
	d.Floor = l.FloorLevel
	return d
}

func stringOf(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return stringOf(list[0])
	}
	if obj, ok := objectOf(raw); ok {
		if v := stringOf(obj["@value"]); v != "" {
			return v
		}
		return stringOf(obj["name"])
	}
	return ""
}

func stringsOf(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	if s := stringOf(raw); s != "" {
		return []string{s}
	}
	return nil
}

func objectOf(raw json.RawMessage) (node, bool) {
	objs := objectsOf(raw)
	if len(objs) == 0 {
		return nil, false
	}
	return objs[0], true
}

func objectsOf(raw json.RawMessage) []node {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	if raw[0] == '[' {
		var list []node
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil
		}
		return list
	}
	if raw[0] != '{' {
		return nil
	}
	var n node
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil
	}
	return []node{n}
}

// numberOf принимает число или строку вида "1.234,56", "R$ 2 500" или "2500.00".
func numberOf(raw json.RawMessage) *float64 {
	if len(raw) == 0 {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return &f
	}
	if obj, ok := objectOf(raw); ok {
		return numberOf(obj["value"])
	}
	s := stringOf(raw)
	if s == "" {
		return nil
	}
	return parseNumber(s)
}

func parseNumber(s string) *float64 {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' || r == '-' {
			b.WriteRune(r)
		}
	}
	clean := b.String()
	if clean == "" {
		return nil
	}

	dots, commas := strings.Count(clean, "."), strings.Count(clean, ",")
	switch {
	case dots > 0 && commas > 0:
		// последний разделитель — десятичный
		if strings.LastIndex(clean, ",") > strings.LastIndex(clean, ".") {
			clean = strings.ReplaceAll(clean, ".", "")
			clean = strings.Replace(clean, ",", ".", 1)
		} else {
			clean = strings.ReplaceAll(clean, ",", "")
		}
	case dots > 1:
		clean = strings.ReplaceAll(clean, ".", "")
	case commas > 1:
		clean = strings.ReplaceAll(clean, ",", "")
	case dots == 1 || commas == 1:
		sep := "."
		if commas == 1 {
			sep = ","
		}
		// "2.500" и "2,500" — разделитель тысяч, "2500,5" — десятичная дробь
		if len(clean)-strings.Index(clean, sep)-1 == 3 {
			clean = strings.Replace(clean, sep, "", 1)
		} else {
			clean = strings.Replace(clean, sep, ".", 1)
		}
	}

	f, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return nil
	}
	return &f
}

func intOf(raw json.RawMessage) *int32 {
	f := numberOf(raw)
	if f == nil || *f < 0 || *f > math.MaxInt32 {
		return nil
	}
	v := int32(math.Round(*f))
	return &v
}

func firstInt(raws ...json.RawMessage) *int32 {
	for _, raw := range raws {
		if v := intOf(raw); v != nil {
			return v
		}
	}
	return nil
}

func quantityOf(raw json.RawMessage) *float64 {
	if obj, ok := objectOf(raw); ok {
		return numberOf(obj["value"])
	}
	return numberOf(raw)
}

func priceOf(raw json.RawMessage) *float64 {
	for _, offer := range objectsOf(raw) {
		if p := numberOf(offer["price"]); p != nil {
			return p
		}
		if spec, ok := objectOf(offer["priceSpecification"]); ok {
			if p := numberOf(spec["price"]); p != nil {
				return p
			}
		}
		if p := numberOf(offer["lowPrice"]); p != nil {
			return p
		}
	}
	return nil
}

func addressOf(raw json.RawMessage) string {
	if obj, ok := objectOf(raw); ok {
		parts := make([]string, 0, 5)
		for _, key := range []string{"streetAddress", "addressLocality", "addressRegion", "postalCode", "addressCountry"} {
			if v := stringOf(obj[key]); v != "" {
				parts = append(parts, v)
			}
		}
		return strings.Join(parts, ", ")
	}
	return stringOf(raw)
}

func imagesOf(raw json.RawMessage) []string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}

	switch raw[0] {
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil
		}
		var out []string
		for _, item := range list {
			out = append(out, imagesOf(item)...)
		}
		return out
	case '{':
		obj, _ := objectOf(raw)
		for _, key := range []string{"url", "contentUrl"} {
			if s := stringOf(obj[key]); strings.HasPrefix(s, "http") {
				return []string{s}
			}
		}
		return nil
	default:
		if s := stringOf(raw); strings.HasPrefix(s, "http") {
			return []string{s}
		}
		return nil
	}
}
