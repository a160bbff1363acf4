package domain

import (
	"time"

	"github.com/google/uuid"
)

// Property — доменная сущность объекта недвижимости, добавленного пользователем для сравнения.
type Property struct {
	ID           uuid.UUID
	OwnerUserID  uuid.UUID
	Title        string
	Address      string
	Bedrooms     int32
	Bathrooms    int32
	ParkingSpots int32
	// Area — площадь, м²
	Area  float64
	Floor *int32
	Costs MonthlyCosts
	// Scores — баллы по критериям (0..10)
	Scores PropertyScores
	// FinalScore — кэш результата агрегации на момент последнего сохранения
	FinalScore      float64
	Images          []string
	SourceURL       *string
	LocationSummary *string
	// Coordinates — координаты адреса, заполняются геокодированием перед ранжированием (не хранятся)
	Coordinates *Coordinates
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// MonthlyCosts — ежемесячные расходы по объекту. Все значения неотрицательны.
type MonthlyCosts struct {
	Rent        float64 `json:"rent"`
	CondoFee    float64 `json:"condo_fee"`
	PropertyTax float64 `json:"property_tax"`
	Insurance   float64 `json:"insurance"`
	OtherFees   float64 `json:"other_fees"`
}

// Total — производная сумма пяти статей расходов.
func (c MonthlyCosts) Total() float64 {
	return c.Rent + c.CondoFee + c.PropertyTax + c.Insurance + c.OtherFees
}

// Sanitize заменяет отрицательные значения нулём.
func (c MonthlyCosts) Sanitize() MonthlyCosts {
	return MonthlyCosts{
		Rent:        nonNegative(c.Rent),
		CondoFee:    nonNegative(c.CondoFee),
		PropertyTax: nonNegative(c.PropertyTax),
		Insurance:   nonNegative(c.Insurance),
		OtherFees:   nonNegative(c.OtherFees),
	}
}

// TotalMonthlyCost — сумма ежемесячных расходов объекта.
func (p Property) TotalMonthlyCost() float64 {
	return p.Costs.Total()
}

func nonNegative(v float64) float64 {
	if v < 0 || v != v {
		return 0
	}
	return v
}

// PropertyDraft — данные нового объекта (ручной ввод или результат извлечения по URL).
type PropertyDraft struct {
	Title           string         `json:"title"`
	Address         string         `json:"address"`
	Bedrooms        int32          `json:"bedrooms"`
	Bathrooms       int32          `json:"bathrooms"`
	ParkingSpots    int32          `json:"parking_spots"`
	Area            float64        `json:"area"`
	Floor           *int32         `json:"floor,omitempty"`
	Costs           MonthlyCosts   `json:"costs"`
	Scores          PropertyScores `json:"scores,omitempty"`
	Images          []string       `json:"images,omitempty"`
	SourceURL       *string        `json:"source_url,omitempty"`
	LocationSummary *string        `json:"location_summary,omitempty"`
	Description     string         `json:"description,omitempty"`
}

// PropertyUpdate — частичное обновление объекта. nil означает «не менять».
type PropertyUpdate struct {
	Title        *string
	Address      *string
	Bedrooms     *int32
	Bathrooms    *int32
	ParkingSpots *int32
	Area         *float64
	Floor        *int32
	Rent         *float64
	CondoFee     *float64
	PropertyTax  *float64
	Insurance    *float64
	OtherFees    *float64
	// Scores — баллы, которые нужно перезаписать; остальные сохраняются
	Scores          PropertyScores
	Images          []string
	SourceURL       *string
	LocationSummary *string
	// FinalScore — пересчитанный итоговый балл, заполняется сервисом
	FinalScore *float64
}

// RankedProperty — объект в ранжированном списке.
type RankedProperty struct {
	Property Property `json:"property"`
	// FinalScore — взвешенное среднее баллов
	FinalScore float64 `json:"final_score"`
	// AdjustedScore — FinalScore плюс бонусы близости
	AdjustedScore float64           `json:"adjusted_score"`
	Bonuses       []ProximityBonus  `json:"bonuses,omitempty"`
	Distances     []AddressDistance `json:"distances,omitempty"`
}
