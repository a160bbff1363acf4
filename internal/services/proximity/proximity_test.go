package proximity

import (
	"testing"

	"home_compare/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func address(label domain.AddressLabel, c *domain.Coordinates) domain.ReferenceAddress {
	a := domain.ReferenceAddress{ID: uuid.New(), Label: label, Address: string(label)}
	a.SetCoordinates(c)
	return a
}

func TestDistance(t *testing.T) {
	t.Run("same point", func(t *testing.T) {
		p := domain.Coordinates{Lat: -23.55, Lng: -46.63}
		assert.Equal(t, 0.0, Distance(p, p))
	})

	t.Run("one degree of latitude", func(t *testing.T) {
		d := Distance(domain.Coordinates{Lat: 0, Lng: 0}, domain.Coordinates{Lat: 1, Lng: 0})
		assert.InDelta(t, 111195, d, 1)
	})

	t.Run("symmetric", func(t *testing.T) {
		a := domain.Coordinates{Lat: 55.7558, Lng: 37.6173}
		b := domain.Coordinates{Lat: 59.9343, Lng: 30.3351}
		assert.InDelta(t, Distance(a, b), Distance(b, a), 1e-6)
		assert.InDelta(t, 633000, Distance(a, b), 2000)
	})

	t.Run("antipodes", func(t *testing.T) {
		d := Distance(domain.Coordinates{Lat: 0, Lng: 0}, domain.Coordinates{Lat: 0, Lng: 180})
		assert.InDelta(t, 20015087, d, 1)
	})
}

func TestComputeDistances(t *testing.T) {
	origin := &domain.Coordinates{Lat: 0, Lng: 0}
	far := address(domain.AddressLabelWork, &domain.Coordinates{Lat: 0, Lng: 0.1})
	near := address(domain.AddressLabelSchool, &domain.Coordinates{Lat: 0, Lng: 0.01})
	unknown := address(domain.AddressLabelOther, nil)

	got := ComputeDistances(origin, []domain.ReferenceAddress{far, unknown, near})

	require.Len(t, got, 2)
	assert.Equal(t, near.ID, got[0].AddressID)
	assert.Equal(t, far.ID, got[1].AddressID)
	assert.Less(t, got[0].DistanceMeters, got[1].DistanceMeters)
}

func TestComputeDistances_NoPropertyCoordinates(t *testing.T) {
	got := ComputeDistances(nil, []domain.ReferenceAddress{address(domain.AddressLabelWork, &domain.Coordinates{})})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestComputeClosestBonuses(t *testing.T) {
	work := address(domain.AddressLabelWork, &domain.Coordinates{Lat: 0, Lng: 0})
	school := address(domain.AddressLabelSchool, &domain.Coordinates{Lat: 1, Lng: 1})
	ungeocoded := address(domain.AddressLabelOther, nil)

	a := &domain.Coordinates{Lat: 0, Lng: 0.001}
	b := &domain.Coordinates{Lat: 0.99, Lng: 1}

	bonuses := ComputeClosestBonuses([]*domain.Coordinates{a, b, nil}, []domain.ReferenceAddress{work, school, ungeocoded})

	require.Len(t, bonuses, 3)
	require.Len(t, bonuses[0], 1)
	assert.Equal(t, work.ID, bonuses[0][0].AddressID)
	assert.True(t, bonuses[0][0].IsClosest)

	require.Len(t, bonuses[1], 1)
	assert.Equal(t, school.ID, bonuses[1][0].AddressID)

	assert.Empty(t, bonuses[2])
}

func TestComputeClosestBonuses_TieGoesToFirst(t *testing.T) {
	work := address(domain.AddressLabelWork, &domain.Coordinates{Lat: 0, Lng: 0})
	same := domain.Coordinates{Lat: 0.5, Lng: 0.5}

	bonuses := ComputeClosestBonuses([]*domain.Coordinates{&same, &same}, []domain.ReferenceAddress{work})

	assert.Len(t, bonuses[0], 1)
	assert.Empty(t, bonuses[1])
}

func TestComputeClosestBonuses_OnePropertyCollectsAll(t *testing.T) {
	addrs := []domain.ReferenceAddress{
		address(domain.AddressLabelWork, &domain.Coordinates{Lat: 0, Lng: 0}),
		address(domain.AddressLabelSchool, &domain.Coordinates{Lat: 0, Lng: 0.01}),
		address(domain.AddressLabelOther, &domain.Coordinates{Lat: 0.01, Lng: 0}),
	}

	bonuses := ComputeClosestBonuses([]*domain.Coordinates{{Lat: 0.005, Lng: 0.005}}, addrs)

	require.Len(t, bonuses, 1)
	assert.Len(t, bonuses[0], 3)
	assert.Equal(t, 10.5, ApplyBonuses(7.5, bonuses[0]), "bonus is not capped")
}

func TestComputeClosestBonuses_NoGeocodedProperties(t *testing.T) {
	bonuses := ComputeClosestBonuses(
		[]*domain.Coordinates{nil},
		[]domain.ReferenceAddress{address(domain.AddressLabelWork, &domain.Coordinates{})},
	)
	require.Len(t, bonuses, 1)
	assert.Empty(t, bonuses[0])
}

func TestApplyBonuses(t *testing.T) {
	assert.Equal(t, 6.0, ApplyBonuses(6, nil))
	assert.Equal(t, 8.0, ApplyBonuses(6, make([]domain.ProximityBonus, 2)))
}
