package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"
)

const (
	openRouterBaseURL = "https://openrouter.ai/api/v1/chat/completions"
	openRouterModel   = "google/gemini-2.0-flash-001"
	maxChatTurns      = 10
)

const chatSystemPrompt = `You are StayEase AI Assistant, a helpful chatbot for a hostel and PG booking platform.
You help users with:
- Finding hostels, PGs, and budget hotels
- Booking guidance and policies
- FAQs about amenities, pricing, and availability
- Suggesting properties based on preferences
- Complaint and maintenance requests guidance

Be friendly, concise, and helpful. If asked about specific property availability or pricing,
mention that exact details can be found on the property page. For complaints,
guide them to the complaint form. Keep responses under 150 words.`

const chatFallbackReply = "I'm having trouble connecting right now. Please try again in a moment, or reach out to our support team."

// AIClient calls the OpenRouter chat-completions API. Every public operation
// degrades to a defined default when the upstream is unreachable, since the
// AI layer is advisory and must never block the primary flow.
type AIClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewAIClient builds a client from OPENROUTER_API_KEY. OPENROUTER_BASE_URL
// overrides the endpoint for tests.
func NewAIClient() *AIClient {
	baseURL := os.Getenv("OPENROUTER_BASE_URL")
	if baseURL == "" {
		baseURL = openRouterBaseURL
	}
	return &AIClient{
		apiKey:  os.Getenv("OPENROUTER_API_KEY"),
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *AIClient) complete(ctx context.Context, messages []ChatMessage, maxTokens int, temperature float64) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("OPENROUTER_API_KEY not set")
	}

	payload, err := json.Marshal(chatRequest{
		Model:       openRouterModel,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("model API status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("model API returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// Chat returns an assistant reply for the bounded recent history. Upstream
// failures return a graceful fallback string, never an error.
func (c *AIClient) Chat(ctx context.Context, history []ChatMessage, city string) string {
	messages := []ChatMessage{{Role: "system", Content: chatSystemPrompt}}
	if city != "" {
		messages = append(messages, ChatMessage{
			Role:    "system",
			Content: fmt.Sprintf("The user is looking in %s. We have properties available in major Indian cities.", city),
		})
	}
	if len(history) > maxChatTurns {
		history = history[len(history)-maxChatTurns:]
	}
	messages = append(messages, history...)

	reply, err := c.complete(ctx, messages, 300, 0.7)
	if err != nil {
		log.Printf("ai chat error: %v", err)
		return chatFallbackReply
	}
	return reply
}

// ReviewModeration is the verdict returned for a submitted review.
type ReviewModeration struct {
	IsFake         bool    `json:"isFake"`
	IsAbusive      bool    `json:"isAbusive"`
	SentimentScore float64 `json:"sentimentScore"`
	SentimentLabel string  `json:"sentimentLabel"`
	ShouldFlag     bool    `json:"shouldFlag"`
	FlagReason     string  `json:"flagReason"`
	Confidence     float64 `json:"confidence"`
}

func neutralModeration() ReviewModeration {
	return ReviewModeration{SentimentLabel: "neutral", Confidence: 0.5}
}

const moderationSystemPrompt = `You are a review moderation system for a hostel/PG platform.
Analyze the review and return a JSON object with:
- isFake: boolean (true if review seems fake/spam/bot-generated)
- isAbusive: boolean (true if contains hate speech, profanity, or abuse)
- sentimentScore: number from -1 to 1
- sentimentLabel: one of [positive, negative, neutral]
- shouldFlag: boolean (true if review should be flagged for manual review)
- flagReason: string (reason for flagging, empty if not flagged)
- confidence: number from 0 to 1

Look for: suspicious patterns, irrelevant content, excessive praise/hate without substance,
promotional content, personal attacks, and rating-text mismatch.
Return ONLY valid JSON.`

// ModerateReview scores a review. A moderation failure returns the neutral
// unflagged default so it never blocks review submission.
func (c *AIClient) ModerateReview(ctx context.Context, text string, rating int) ReviewModeration {
	raw, err := c.complete(ctx, []ChatMessage{
		{Role: "system", Content: moderationSystemPrompt},
		{Role: "user", Content: fmt.Sprintf("Rating: %d/5\nReview: %s", rating, text)},
	}, 200, 0.3)
	if err != nil {
		log.Printf("ai review moderation error: %v", err)
		return neutralModeration()
	}

	var verdict ReviewModeration
	if err := json.Unmarshal([]byte(stripJSONFences(raw)), &verdict); err != nil {
		log.Printf("ai review moderation parse error: %v", err)
		return neutralModeration()
	}
	if verdict.SentimentLabel == "" {
		verdict.SentimentLabel = "neutral"
	}
	return verdict
}

// ComplaintClassification is the advisory category/priority suggestion.
type ComplaintClassification struct {
	SuggestedCategory string  `json:"suggestedCategory"`
	SuggestedPriority string  `json:"suggestedPriority"`
	SentimentScore    float64 `json:"sentimentScore"`
	Confidence        float64 `json:"confidence"`
}

func defaultClassification() ComplaintClassification {
	return ComplaintClassification{SuggestedCategory: "other", SuggestedPriority: "medium", Confidence: 0.5}
}

const classificationSystemPrompt = `You are a complaint classification system for a hostel/PG platform.
Analyze the complaint and return a JSON object with:
- category: one of [maintenance, cleanliness, noise, security, billing, staff, food, other]
- priority: one of [low, medium, high, urgent]
- sentimentScore: number from -1 (very negative) to 1 (positive)
- confidence: number from 0 to 1

Consider:
- Safety/security -> urgent
- Billing overcharges -> high
- Cleanliness -> medium to high
- Minor inconveniences -> low
Return ONLY valid JSON.`

// ClassifyComplaint suggests a category and priority. Advisory only; failures
// return the other/medium default.
func (c *AIClient) ClassifyComplaint(ctx context.Context, title, description string) ComplaintClassification {
	raw, err := c.complete(ctx, []ChatMessage{
		{Role: "system", Content: classificationSystemPrompt},
		{Role: "user", Content: fmt.Sprintf("Title: %s\nDescription: %s", title, description)},
	}, 150, 0.3)
	if err != nil {
		log.Printf("ai complaint classification error: %v", err)
		return defaultClassification()
	}

	var parsed struct {
		Category       string  `json:"category"`
		Priority       string  `json:"priority"`
		SentimentScore float64 `json:"sentimentScore"`
		Confidence     float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(stripJSONFences(raw)), &parsed); err != nil {
		log.Printf("ai complaint classification parse error: %v", err)
		return defaultClassification()
	}

	out := ComplaintClassification{
		SuggestedCategory: parsed.Category,
		SuggestedPriority: parsed.Priority,
		SentimentScore:    parsed.SentimentScore,
		Confidence:        parsed.Confidence,
	}
	if out.SuggestedCategory == "" {
		out.SuggestedCategory = "other"
	}
	if out.SuggestedPriority == "" {
		out.SuggestedPriority = "medium"
	}
	if out.Confidence == 0 {
		out.Confidence = 0.5
	}
	return out
}

// RecommendationCandidate is the property summary handed to the ranker.
type RecommendationCandidate struct {
	ID        uint    `json:"id"`
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	City      string  `json:"city"`
	Price     float64 `json:"price"`
	Rating    float64 `json:"rating"`
	Gender    string  `json:"gender"`
	Amenities string  `json:"amenities"`
}

// RecommendationRanking pairs a candidate id with a short reason for the pick.
type RecommendationRanking struct {
	ID     uint   `json:"id"`
	Reason string `json:"reason"`
}

const recommendationSystemPrompt = `You are a property recommendation AI for a hostel/PG platform.
Given user preferences and a list of properties, rank them and provide a brief
reason for each recommendation.
Return JSON: { "rankings": [{"id", "reason"}] } for the top %d properties.
Return ONLY valid JSON.`

// RankProperties orders candidates against the stated preferences. Returns
// nil on any failure so the caller can fall back to rating order.
func (c *AIClient) RankProperties(ctx context.Context, preferences map[string]interface{}, candidates []RecommendationCandidate, limit int) []RecommendationRanking {
	prefsJSON, _ := json.Marshal(preferences)
	candidatesJSON, _ := json.Marshal(candidates)

	raw, err := c.complete(ctx, []ChatMessage{
		{Role: "system", Content: fmt.Sprintf(recommendationSystemPrompt, limit)},
		{Role: "user", Content: fmt.Sprintf("Preferences: %s\nProperties: %s", prefsJSON, candidatesJSON)},
	}, 300, 0.5)
	if err != nil {
		log.Printf("ai recommendation ranking error: %v", err)
		return nil
	}

	var parsed struct {
		Rankings []RecommendationRanking `json:"rankings"`
	}
	if err := json.Unmarshal([]byte(stripJSONFences(raw)), &parsed); err != nil {
		log.Printf("ai recommendation ranking parse error: %v", err)
		return nil
	}
	return parsed.Rankings
}

// BookingMonthStat is one month of aggregated booking history fed to the
// demand predictor.
type BookingMonthStat struct {
	Month    string  `json:"month"`
	Bookings int64   `json:"bookings"`
	Revenue  float64 `json:"revenue"`
}

type MonthlyPrediction struct {
	Month             string  `json:"month"`
	Occupancy         float64 `json:"occupancy"`
	PricingSuggestion string  `json:"pricingSuggestion"`
}

type DemandPrediction struct {
	Predictions     []MonthlyPrediction `json:"predictions"`
	PeakPeriods     []string            `json:"peakPeriods"`
	Recommendations []string            `json:"recommendations"`
}

func defaultDemandPrediction() DemandPrediction {
	return DemandPrediction{
		Predictions: []MonthlyPrediction{
			{Month: "Next Month", Occupancy: 70, PricingSuggestion: "+5%"},
			{Month: "Month +2", Occupancy: 75, PricingSuggestion: "+8%"},
			{Month: "Month +3", Occupancy: 65, PricingSuggestion: "0%"},
		},
		PeakPeriods:     []string{"June-July (College Admissions)", "October-November (Festivals)"},
		Recommendations: []string{"Monitor local events for short-term demand spikes"},
	}
}

const demandSystemPrompt = `You are a demand prediction AI for a hostel/PG platform in India.
Based on historical booking data and knowledge of Indian travel patterns, predict:
- Expected occupancy for next 3 months (percentage)
- Suggested pricing adjustment (percentage change)
- Peak demand periods
- Recommendations

Consider: college admissions (June-July), festival seasons, exam periods,
corporate relocations, and weather patterns.
Return a JSON object with: predictions (array of {month, occupancy, pricingSuggestion}),
peakPeriods (array of strings), and recommendations (array of strings).
Return ONLY valid JSON.`

// PredictDemand produces a forward-looking occupancy/pricing suggestion.
// Purely advisory; it never mutates pricing.
func (c *AIClient) PredictDemand(ctx context.Context, city string, history []BookingMonthStat) DemandPrediction {
	if city == "" {
		city = "General"
	}
	historyJSON, _ := json.Marshal(history)

	raw, err := c.complete(ctx, []ChatMessage{
		{Role: "system", Content: demandSystemPrompt},
		{Role: "user", Content: fmt.Sprintf("City: %s\nHistorical Data: %s", city, historyJSON)},
	}, 500, 0.5)
	if err != nil {
		log.Printf("ai demand prediction error: %v", err)
		return defaultDemandPrediction()
	}

	var prediction DemandPrediction
	if err := json.Unmarshal([]byte(stripJSONFences(raw)), &prediction); err != nil {
		log.Printf("ai demand prediction parse error: %v", err)
		return defaultDemandPrediction()
	}
	if len(prediction.Predictions) == 0 {
		return defaultDemandPrediction()
	}
	return prediction
}

var jsonFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// stripJSONFences extracts the JSON object from a reply that may be wrapped
// in a markdown code fence.
func stripJSONFences(raw string) string {
	if m := jsonFenceRe.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
