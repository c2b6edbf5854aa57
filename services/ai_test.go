package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// fakeModelServer answers the chat-completions call with a fixed message body.
func fakeModelServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			t.Error("expected Authorization header")
		}
		w.WriteHeader(status)
		if status != http.StatusOK {
			w.Write([]byte(`{"error":"upstream unavailable"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": content}},
			},
		})
	}))
}

func testClient(t *testing.T, server *httptest.Server) *AIClient {
	t.Helper()
	t.Setenv("OPENROUTER_API_KEY", "test-key")
	t.Setenv("OPENROUTER_BASE_URL", server.URL)
	return NewAIClient()
}

func TestChatReturnsUpstreamReply(t *testing.T) {
	server := fakeModelServer(t, http.StatusOK, "Hostels in Koramangala start around ₹8,000 a month.")
	defer server.Close()

	client := testClient(t, server)
	reply := client.Chat(context.Background(), []ChatMessage{{Role: "user", Content: "PGs near Koramangala?"}}, "Bengaluru")
	if reply != "Hostels in Koramangala start around ₹8,000 a month." {
		t.Fatalf("unexpected reply %q", reply)
	}
}

func TestChatFallsBackOnUpstreamError(t *testing.T) {
	server := fakeModelServer(t, http.StatusInternalServerError, "")
	defer server.Close()

	client := testClient(t, server)
	reply := client.Chat(context.Background(), []ChatMessage{{Role: "user", Content: "hello"}}, "")
	if reply != chatFallbackReply {
		t.Fatalf("expected fallback reply, got %q", reply)
	}
}

func TestChatFallsBackWithoutAPIKey(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("OPENROUTER_BASE_URL", "")

	client := NewAIClient()
	reply := client.Chat(context.Background(), []ChatMessage{{Role: "user", Content: "hello"}}, "")
	if reply != chatFallbackReply {
		t.Fatalf("expected fallback reply, got %q", reply)
	}
}

func TestRankPropertiesParsesRankings(t *testing.T) {
	server := fakeModelServer(t, http.StatusOK, `{"rankings":[{"id":7,"reason":"Matches the budget"},{"id":3,"reason":"Highest rated"}]}`)
	defer server.Close()

	client := testClient(t, server)
	rankings := client.RankProperties(context.Background(),
		map[string]interface{}{"city": "Pune", "budget": 700},
		[]RecommendationCandidate{{ID: 3, Name: "Hilltop Hostel"}, {ID: 7, Name: "Budget Stay"}}, 6)
	if len(rankings) != 2 {
		t.Fatalf("expected 2 rankings, got %d", len(rankings))
	}
	if rankings[0].ID != 7 || rankings[0].Reason != "Matches the budget" {
		t.Fatalf("unexpected first ranking %+v", rankings[0])
	}
}

func TestRankPropertiesNilOnUpstreamError(t *testing.T) {
	server := fakeModelServer(t, http.StatusInternalServerError, "")
	defer server.Close()

	client := testClient(t, server)
	rankings := client.RankProperties(context.Background(), nil,
		[]RecommendationCandidate{{ID: 1, Name: "Hilltop Hostel"}}, 6)
	if rankings != nil {
		t.Fatalf("expected nil rankings on failure, got %+v", rankings)
	}
}

func TestModerateReviewParsesFencedJSON(t *testing.T) {
	verdict := "```json\n{\"isFake\":true,\"isAbusive\":false,\"sentimentScore\":-0.4,\"sentimentLabel\":\"negative\",\"shouldFlag\":true,\"flagReason\":\"promotional content\",\"confidence\":0.9}\n```"
	server := fakeModelServer(t, http.StatusOK, verdict)
	defer server.Close()

	client := testClient(t, server)
	got := client.ModerateReview(context.Background(), "Best place ever!! Visit my site", 5)
	if !got.IsFake || !got.ShouldFlag {
		t.Fatalf("expected flagged fake verdict, got %+v", got)
	}
	if got.FlagReason != "promotional content" {
		t.Fatalf("unexpected flag reason %q", got.FlagReason)
	}
}

func TestModerateReviewNeutralOnFailure(t *testing.T) {
	server := fakeModelServer(t, http.StatusBadGateway, "")
	defer server.Close()

	client := testClient(t, server)
	got := client.ModerateReview(context.Background(), "fine", 3)
	if got.ShouldFlag || got.IsFake || got.IsAbusive {
		t.Fatalf("failure must not flag, got %+v", got)
	}
	if got.SentimentLabel != "neutral" {
		t.Fatalf("expected neutral label, got %q", got.SentimentLabel)
	}
}

func TestClassifyComplaintDefaultsOnGarbage(t *testing.T) {
	server := fakeModelServer(t, http.StatusOK, "sorry, I cannot help with that")
	defer server.Close()

	client := testClient(t, server)
	got := client.ClassifyComplaint(context.Background(), "Leaky tap", "Water everywhere in room 4")
	if got.SuggestedCategory != "other" || got.SuggestedPriority != "medium" {
		t.Fatalf("expected other/medium default, got %+v", got)
	}
}

func TestClassifyComplaintParsesSuggestion(t *testing.T) {
	server := fakeModelServer(t, http.StatusOK,
		`{"category":"security","priority":"urgent","sentimentScore":-0.8,"confidence":0.95}`)
	defer server.Close()

	client := testClient(t, server)
	got := client.ClassifyComplaint(context.Background(), "Broken lock", "Main gate lock broken since yesterday")
	if got.SuggestedCategory != "security" || got.SuggestedPriority != "urgent" {
		t.Fatalf("unexpected classification %+v", got)
	}
}

func TestPredictDemandDefaultOnFailure(t *testing.T) {
	server := fakeModelServer(t, http.StatusServiceUnavailable, "")
	defer server.Close()

	client := testClient(t, server)
	got := client.PredictDemand(context.Background(), "Pune", nil)
	if len(got.Predictions) == 0 || len(got.PeakPeriods) == 0 {
		t.Fatalf("expected populated default prediction, got %+v", got)
	}
}

func TestStripJSONFences(t *testing.T) {
	cases := []struct{ in, want string }{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{`Here you go: {"a":1} hope that helps`, `{"a":1}`},
		{`{"a":1}`, `{"a":1}`},
		{"no json here", "no json here"},
	}
	for _, c := range cases {
		if got := stripJSONFences(c.in); got != c.want {
			t.Errorf("stripJSONFences(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
