package domain

import "github.com/google/uuid"

// ProfileType — архетип пользователя с предлагаемой таблицей весов.
type ProfileType string

const (
	ProfileUnspecified        ProfileType = ""
	ProfileInvestor           ProfileType = "investor"
	ProfileFamilyWithChildren ProfileType = "family_with_children"
	ProfileYoungProfessional  ProfileType = "young_professional"
	ProfileStudent            ProfileType = "student"
	ProfileRetiree            ProfileType = "retiree"
)

func (t ProfileType) String() string {
	return string(t)
}

// ProfileTypes возвращает известные архетипы в порядке отображения.
func ProfileTypes() []ProfileType {
	return []ProfileType{
		ProfileInvestor,
		ProfileFamilyWithChildren,
		ProfileYoungProfessional,
		ProfileStudent,
		ProfileRetiree,
	}
}

// Known проверяет, что тип входит в набор архетипов.
func (t ProfileType) Known() bool {
	for _, p := range ProfileTypes() {
		if p == t {
			return true
		}
	}
	return false
}

// UserProfile — профиль пользователя, заполняемый при онбординге.
type UserProfile struct {
	UserID              uuid.UUID
	ProfileType         ProfileType
	OnboardingCompleted bool
	// SubscriptionActive — флаг платной подписки, открывает AI-функции
	SubscriptionActive bool
}

// Capabilities — возможности, доступные пользователю.
type Capabilities struct {
	AIFeatures bool
}

// CapabilitiesOf вычисляет возможности по профилю; nil-профиль — бесплатный пользователь.
func CapabilitiesOf(p *UserProfile) Capabilities {
	if p == nil {
		return Capabilities{}
	}
	return Capabilities{AIFeatures: p.SubscriptionActive}
}
