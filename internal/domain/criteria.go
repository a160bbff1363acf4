package domain

const (
	// MinScore / MaxScore — допустимый диапазон балла по критерию.
	MinScore = 0.0
	MaxScore = 10.0
	// DefaultScore — балл, который получает критерий без оценки при создании объекта.
	DefaultScore = 5.0

	// MinWeight / MaxWeight — допустимый диапазон веса критерия.
	MinWeight = 0.0
	MaxWeight = 100.0
)

// CriterionKey — идентификатор критерия оценки.
type CriterionKey = string

// Criterion — запись каталога критериев. Не изменяется после старта процесса.
type Criterion struct {
	Key           CriterionKey `json:"key"`
	Label         string       `json:"label"`
	DefaultWeight float64      `json:"default_weight"`
}

// CriteriaWeights — веса критериев (ключ -> вес).
type CriteriaWeights map[CriterionKey]float64

// Clone возвращает копию весов.
func (w CriteriaWeights) Clone() CriteriaWeights {
	out := make(CriteriaWeights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// Total возвращает сумму всех весов.
func (w CriteriaWeights) Total() float64 {
	var total float64
	for _, v := range w {
		total += v
	}
	return total
}

// PropertyScores — баллы объекта по критериям (0..10).
// Отсутствующий ключ означает «не оценено» и не участвует в агрегации.
type PropertyScores map[CriterionKey]float64

// Clone возвращает копию баллов.
func (s PropertyScores) Clone() PropertyScores {
	out := make(PropertyScores, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// CriterionWeight — пара «критерий — вес», как она хранится в пользовательских настройках.
type CriterionWeight struct {
	CriterionKey CriterionKey `json:"criterion_key"`
	Weight       float64      `json:"weight"`
}

// ActiveCriterion — критерий, действующий для пользователя.
type ActiveCriterion struct {
	Key    CriterionKey `json:"key"`
	Label  string       `json:"label"`
	Weight float64      `json:"weight"`
}

// ConfigurationSource — ветка разрешения, из которой получена конфигурация.
type ConfigurationSource string

const (
	SourceCustom  ConfigurationSource = "custom"
	SourceProfile ConfigurationSource = "profile"
	SourceDefault ConfigurationSource = "default"
)

// ResolvedConfiguration — представление действующих критериев и весов пользователя.
// Не хранится, пересчитывается при изменении входных данных.
type ResolvedConfiguration struct {
	ActiveCriteria []ActiveCriterion   `json:"active_criteria"`
	Weights        CriteriaWeights     `json:"weights"`
	Source         ConfigurationSource `json:"source"`
}

// Keys возвращает ключи активных критериев в порядке отображения.
func (c ResolvedConfiguration) Keys() []CriterionKey {
	keys := make([]CriterionKey, 0, len(c.ActiveCriteria))
	for _, ac := range c.ActiveCriteria {
		keys = append(keys, ac.Key)
	}
	return keys
}
