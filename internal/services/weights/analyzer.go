package weights

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"home_compare/internal/domain"
	"home_compare/internal/lib/llm"
	"home_compare/internal/lib/logger/sl"

	"github.com/samber/lo"
)

// Analyzer — определение архетипа пользователя по ответам онбординга.
type Analyzer struct {
	log       *slog.Logger
	llmClient llm.Client
}

// NewAnalyzer создаёт новый анализатор профиля.
func NewAnalyzer(log *slog.Logger, llmClient llm.Client) *Analyzer {
	return &Analyzer{
		log:       log,
		llmClient: llmClient,
	}
}

// ProfileResult — результат определения профиля.
type ProfileResult struct {
	ProfileType domain.ProfileType
	// Confidence — уверенность в выборе (0-1)
	Confidence float64
	// Explanation — объяснение выбора
	Explanation string
	// UsedLLM — использовался ли LLM для анализа
	UsedLLM bool
}

// DetectProfile определяет архетип пользователя.
// Если LLM недоступен, отключён или вернул неизвестный тип, используется эвристика по ключевым словам.
// Ошибку не возвращает: эвристика отвечает всегда.
func (a *Analyzer) DetectProfile(ctx context.Context, answers map[string]string) (*ProfileResult, error) {
	const op = "weights.Analyzer.DetectProfile"

	log := a.log.With(slog.String("op", op))

	if a.llmClient != nil && a.llmClient.IsEnabled() && len(answers) > 0 {
		result, err := a.llmAnalysis(ctx, answers)
		if err == nil {
			return result, nil
		}
		log.Warn("LLM classification failed, falling back to heuristic", sl.Err(err))
	}

	return a.heuristicAnalysis(answers), nil
}

func (a *Analyzer) llmAnalysis(ctx context.Context, answers map[string]string) (*ProfileResult, error) {
	const op = "weights.Analyzer.llmAnalysis"

	types := lo.Map(domain.ProfileTypes(), func(t domain.ProfileType, _ int) string {
		return t.String()
	})

	resp, err := a.llmClient.ClassifyProfile(ctx, llm.ClassifyProfileRequest{
		Answers:      answers,
		ProfileTypes: types,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	pt := domain.ProfileType(strings.TrimSpace(strings.ToLower(resp.ProfileType)))
	if !pt.Known() {
		return nil, fmt.Errorf("%s: unknown profile type %q", op, resp.ProfileType)
	}

	a.log.Info("LLM profile classification completed",
		slog.String("profile_type", pt.String()),
		slog.Float64("confidence", resp.Confidence),
	)

	return &ProfileResult{
		ProfileType: pt,
		Confidence:  Clamp(resp.Confidence, 0, 1),
		Explanation: resp.Explanation,
		UsedLLM:     true,
	}, nil
}

// profileKeywords — ключевые слова для эвристики, в порядке приоритета архетипов при равенстве.
var profileKeywords = []struct {
	profile  domain.ProfileType
	keywords []string
}{
	{domain.ProfileInvestor, []string{"invest", "rental income", "yield", "roi", "resale", "инвест", "аренд", "доход", "окупаем"}},
	{domain.ProfileFamilyWithChildren, []string{"kid", "child", "school", "family", "daycare", "playground", "дети", "ребен", "школ", "семь", "детский сад"}},
	{domain.ProfileYoungProfessional, []string{"office", "commute", "career", "nightlife", "gym", "работ", "офис", "карьер"}},
	{domain.ProfileStudent, []string{"universit", "college", "campus", "student", "study", "студент", "учёб", "учеб", "универ"}},
	{domain.ProfileRetiree, []string{"retire", "pension", "quiet", "calm", "hospital", "пенси", "тишин", "спокой", "поликлиник"}},
}

func (a *Analyzer) heuristicAnalysis(answers map[string]string) *ProfileResult {
	text := strings.ToLower(joinAnswers(answers))

	best := domain.ProfileUnspecified
	bestScore, total := 0, 0
	for _, pk := range profileKeywords {
		score := countKeywords(text, pk.keywords)
		total += score
		if score > bestScore {
			best, bestScore = pk.profile, score
		}
	}

	if bestScore == 0 {
		return &ProfileResult{
			ProfileType: domain.ProfileYoungProfessional,
			Confidence:  0.2,
			Explanation: "no profile keywords found, using the most general archetype",
		}
	}

	return &ProfileResult{
		ProfileType: best,
		Confidence:  float64(bestScore) / float64(total),
		Explanation: fmt.Sprintf("keyword heuristic: %d of %d matches point to %s", bestScore, total, best),
	}
}

// joinAnswers склеивает ответы в детерминированном порядке вопросов.
func joinAnswers(answers map[string]string) string {
	keys := lo.Keys(answers)
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, answers[k])
	}
	return strings.Join(parts, " ")
}

func countKeywords(text string, keywords []string) int {
	count := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			count++
		}
	}
	return count
}
