package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"home_compare/internal/config"
)

// ErrDisabled — LLM отключён конфигурацией.
var ErrDisabled = errors.New("llm service is disabled")

// Client — клиент OpenAI-совместимого Chat Completions API.
type Client interface {
	// SuggestScores предлагает баллы 0..10 по критериям для объекта.
	SuggestScores(ctx context.Context, req SuggestScoresRequest) (*SuggestScoresResponse, error)
	// ExtractProperty извлекает структурированные поля объекта из текста страницы объявления.
	ExtractProperty(ctx context.Context, req ExtractPropertyRequest) (*ExtractPropertyResponse, error)
	// ClassifyProfile относит ответы онбординга к одному из архетипов.
	ClassifyProfile(ctx context.Context, req ClassifyProfileRequest) (*ClassifyProfileResponse, error)
	// IsEnabled проверяет, включен ли сервис.
	IsEnabled() bool
}

// CriterionPrompt — критерий, по которому модель должна выставить балл.
type CriterionPrompt struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// SuggestScoresRequest — данные объекта для оценки.
type SuggestScoresRequest struct {
	Title        string            `json:"title"`
	Address      string            `json:"address"`
	Description  string            `json:"description,omitempty"`
	Bedrooms     int32             `json:"bedrooms"`
	Bathrooms    int32             `json:"bathrooms"`
	ParkingSpots int32             `json:"parking_spots"`
	Area         float64           `json:"area"`
	Floor        *int32            `json:"floor,omitempty"`
	MonthlyCost  float64           `json:"monthly_cost"`
	Criteria     []CriterionPrompt `json:"criteria"`
}

// SuggestScoresResponse — предложенные баллы.
type SuggestScoresResponse struct {
	Scores      map[string]float64 `json:"scores"`
	Explanation string             `json:"explanation"`
}

// ExtractPropertyRequest — текст страницы объявления.
type ExtractPropertyRequest struct {
	URL      string `json:"url"`
	PageText string `json:"page_text"`
}

// ExtractPropertyResponse — поля объекта, найденные моделью. Отсутствующие поля остаются nil.
type ExtractPropertyResponse struct {
	Title        *string  `json:"title"`
	Address      *string  `json:"address"`
	Description  *string  `json:"description"`
	Bedrooms     *int32   `json:"bedrooms"`
	Bathrooms    *int32   `json:"bathrooms"`
	ParkingSpots *int32   `json:"parking_spots"`
	Area         *float64 `json:"area"`
	Floor        *int32   `json:"floor"`
	Rent         *float64 `json:"rent"`
	CondoFee     *float64 `json:"condo_fee"`
	PropertyTax  *float64 `json:"property_tax"`
	Images       []string `json:"images"`
}

// ClassifyProfileRequest — ответы пользователя на вопросы онбординга.
type ClassifyProfileRequest struct {
	Answers      map[string]string `json:"answers"`
	ProfileTypes []string          `json:"profile_types"`
}

// ClassifyProfileResponse — выбранный архетип.
type ClassifyProfileResponse struct {
	ProfileType string  `json:"profile_type"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation"`
}

type client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	log        *slog.Logger
}

// NewClient создаёт новый клиент для LLM API.
func NewClient(cfg config.LLMConfig, log *slog.Logger) Client {
	if !cfg.Enabled {
		return &noopClient{log: log}
	}

	return &client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		log:     log,
	}
}

func (c *client) SuggestScores(ctx context.Context, req SuggestScoresRequest) (*SuggestScoresResponse, error) {
	const op = "llm.Client.SuggestScores"

	chatReq := ChatCompletionRequest{
		Model: c.model,
		Messages: []ChatMessage{
			{
				Role: "system",
				Content: `You are a real-estate analyst. Rate a property on each given criterion with a number from 0 to 10,
where 10 is excellent. Use only the criterion keys you are given. Answer strictly in JSON.`,
			},
			{
				Role:    "user",
				Content: buildScoresPrompt(req),
			},
		},
		Temperature: 0.2,
		MaxTokens:   600,
	}

	resp, err := c.sendChatRequest(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var result SuggestScoresResponse
	if err := json.Unmarshal([]byte(extractJSON(resp.Content)), &result); err != nil {
		return nil, fmt.Errorf("%s: failed to parse response: %w", op, err)
	}

	// ключи вне запрошенного набора отбрасываются
	allowed := make(map[string]struct{}, len(req.Criteria))
	for _, cr := range req.Criteria {
		allowed[cr.Key] = struct{}{}
	}
	for k := range result.Scores {
		if _, ok := allowed[k]; !ok {
			delete(result.Scores, k)
		}
	}

	return &result, nil
}

func (c *client) ExtractProperty(ctx context.Context, req ExtractPropertyRequest) (*ExtractPropertyResponse, error) {
	const op = "llm.Client.ExtractProperty"

	chatReq := ChatCompletionRequest{
		Model: c.model,
		Messages: []ChatMessage{
			{
				Role: "system",
				Content: `You extract structured data from real-estate listing pages. Return only facts present in the text.
Use null for anything that is not stated. Monetary values are monthly amounts. Answer strictly in JSON.`,
			},
			{
				Role:    "user",
				Content: buildExtractionPrompt(req),
			},
		},
		Temperature: 0,
		MaxTokens:   800,
	}

	resp, err := c.sendChatRequest(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var result ExtractPropertyResponse
	if err := json.Unmarshal([]byte(extractJSON(resp.Content)), &result); err != nil {
		return nil, fmt.Errorf("%s: failed to parse response: %w", op, err)
	}

	return &result, nil
}

func (c *client) ClassifyProfile(ctx context.Context, req ClassifyProfileRequest) (*ClassifyProfileResponse, error) {
	const op = "llm.Client.ClassifyProfile"

	chatReq := ChatCompletionRequest{
		Model: c.model,
		Messages: []ChatMessage{
			{
				Role: "system",
				Content: `You classify home seekers into one archetype from a fixed list based on their onboarding answers.
Answer strictly in JSON.`,
			},
			{
				Role:    "user",
				Content: buildProfilePrompt(req),
			},
		},
		Temperature: 0.2,
		MaxTokens:   300,
	}

	resp, err := c.sendChatRequest(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var result ClassifyProfileResponse
	if err := json.Unmarshal([]byte(extractJSON(resp.Content)), &result); err != nil {
		return nil, fmt.Errorf("%s: failed to parse response: %w", op, err)
	}

	return &result, nil
}

func (c *client) IsEnabled() bool {
	return true
}

// ChatCompletionRequest — запрос к Chat Completion API.
type ChatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// ChatMessage — сообщение в чате.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionResponse — ответ от Chat Completion API.
type ChatCompletionResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
}

func (c *client) sendChatRequest(ctx context.Context, req ChatCompletionRequest) (*ChatMessage, error) {
	const op = "llm.Client.sendChatRequest"

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to marshal request: %w", op, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", op, err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to send request: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%s: unexpected status code %d: %s", op, resp.StatusCode, string(body))
	}

	var chatResp ChatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("%s: failed to decode response: %w", op, err)
	}

	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("%s: no choices in response", op)
	}

	c.log.Debug("llm response received",
		slog.String("model", req.Model),
		slog.Int("content_len", len(chatResp.Choices[0].Message.Content)),
	)

	return &chatResp.Choices[0].Message, nil
}

func buildScoresPrompt(req SuggestScoresRequest) string {
	var sb strings.Builder
	sb.WriteString("Rate this property:\n\n")
	fmt.Fprintf(&sb, "Title: %s\n", req.Title)
	fmt.Fprintf(&sb, "Address: %s\n", req.Address)
	fmt.Fprintf(&sb, "Bedrooms: %d, bathrooms: %d, parking spots: %d\n", req.Bedrooms, req.Bathrooms, req.ParkingSpots)
	if req.Area > 0 {
		fmt.Fprintf(&sb, "Area: %.1f m2\n", req.Area)
	}
	if req.Floor != nil {
		fmt.Fprintf(&sb, "Floor: %d\n", *req.Floor)
	}
	if req.MonthlyCost > 0 {
		fmt.Fprintf(&sb, "Total monthly cost: %.2f\n", req.MonthlyCost)
	}
	if req.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", req.Description)
	}

	sb.WriteString("\nCriteria:\n")
	for _, cr := range req.Criteria {
		fmt.Fprintf(&sb, "- %s (%s)\n", cr.Key, cr.Label)
	}

	sb.WriteString("\nResponse format: {\"scores\": {\"<key>\": 7.5}, \"explanation\": \"...\"}")
	return sb.String()
}

// maxPromptPageText — ограничение текста страницы в промпте.
const maxPromptPageText = 12000

func buildExtractionPrompt(req ExtractPropertyRequest) string {
	text := req.PageText
	if r := []rune(text); len(r) > maxPromptPageText {
		text = string(r[:maxPromptPageText])
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Listing URL: %s\n\n", req.URL)
	sb.WriteString("Page text:\n")
	sb.WriteString(text)
	sb.WriteString(`

Response format:
{"title": "...", "address": "...", "description": "...", "bedrooms": 2, "bathrooms": 1, "parking_spots": 1,
 "area": 70.5, "floor": 3, "rent": 2500, "condo_fee": 600, "property_tax": 120, "images": ["https://..."]}`)
	return sb.String()
}

func buildProfilePrompt(req ClassifyProfileRequest) string {
	var sb strings.Builder
	sb.WriteString("Onboarding answers:\n")
	for q, a := range req.Answers {
		fmt.Fprintf(&sb, "- %s: %s\n", q, a)
	}
	fmt.Fprintf(&sb, "\nAllowed archetypes: %s\n", strings.Join(req.ProfileTypes, ", "))
	sb.WriteString("\nResponse format: {\"profile_type\": \"...\", \"confidence\": 0.8, \"explanation\": \"...\"}")
	return sb.String()
}

// extractJSON извлекает JSON из текста ответа LLM.
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")

	if start != -1 && end != -1 && end > start {
		return text[start : end+1]
	}
	return text
}

// noopClient — заглушка для случая, когда LLM отключен.
type noopClient struct {
	log *slog.Logger
}

func (c *noopClient) SuggestScores(_ context.Context, _ SuggestScoresRequest) (*SuggestScoresResponse, error) {
	c.log.Debug("LLM service is disabled")
	return nil, ErrDisabled
}

func (c *noopClient) ExtractProperty(_ context.Context, _ ExtractPropertyRequest) (*ExtractPropertyResponse, error) {
	c.log.Debug("LLM service is disabled")
	return nil, ErrDisabled
}

func (c *noopClient) ClassifyProfile(_ context.Context, _ ClassifyProfileRequest) (*ClassifyProfileResponse, error) {
	c.log.Debug("LLM service is disabled")
	return nil, ErrDisabled
}

func (c *noopClient) IsEnabled() bool {
	return false
}
