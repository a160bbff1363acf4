package domain

import (
	"time"

	"github.com/google/uuid"
)

// Coordinates — географические координаты в градусах.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// AddressLabel — тип опорного адреса.
type AddressLabel string

const (
	AddressLabelWork   AddressLabel = "work"
	AddressLabelSchool AddressLabel = "school"
	AddressLabelOther  AddressLabel = "other"
)

func (l AddressLabel) String() string {
	return string(l)
}

// Valid проверяет, что метка входит в допустимый набор.
func (l AddressLabel) Valid() bool {
	switch l {
	case AddressLabelWork, AddressLabelSchool, AddressLabelOther:
		return true
	}
	return false
}

// ReferenceAddress — значимый для пользователя адрес (работа, школа и т.д.).
// Координаты заполняются лениво после успешного геокодирования.
type ReferenceAddress struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Label       AddressLabel
	CustomLabel *string
	Address     string
	Latitude    *float64
	Longitude   *float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Coordinates возвращает координаты адреса или nil, если геокодирование ещё не удалось.
func (a ReferenceAddress) Coordinates() *Coordinates {
	if a.Latitude == nil || a.Longitude == nil {
		return nil
	}
	return &Coordinates{Lat: *a.Latitude, Lng: *a.Longitude}
}

// SetCoordinates сохраняет координаты в адресе; nil очищает их.
func (a *ReferenceAddress) SetCoordinates(c *Coordinates) {
	if c == nil {
		a.Latitude, a.Longitude = nil, nil
		return
	}
	lat, lng := c.Lat, c.Lng
	a.Latitude, a.Longitude = &lat, &lng
}

// AddressDistance — расстояние от объекта до опорного адреса.
type AddressDistance struct {
	AddressID      uuid.UUID    `json:"address_id"`
	Label          AddressLabel `json:"label"`
	CustomLabel    *string      `json:"custom_label,omitempty"`
	DistanceMeters float64      `json:"distance_meters"`
}

// ProximityBonus — отметка «объект ближайший к опорному адресу».
type ProximityBonus struct {
	AddressID      uuid.UUID    `json:"address_id"`
	Label          AddressLabel `json:"label"`
	CustomLabel    *string      `json:"custom_label,omitempty"`
	DistanceMeters float64      `json:"distance_meters"`
	IsClosest      bool         `json:"is_closest"`
}

// AddressUpdate — частичное изменение опорного адреса.
type AddressUpdate struct {
	Label       *AddressLabel
	CustomLabel *string
	Address     *string
}
