package routes

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"stayease-server/models"

	"github.com/kataras/iris/v12"
)

func aiApp(user *models.User) *iris.Application {
	return newTestApp(func(app *iris.Application) {
		ai := app.Party("/api/ai")
		{
			ai.Post("/chat", Chat)
			ai.Get("/recommendations", asUser(user), Recommendations)
			ai.Post("/predict-demand", asUser(user), PredictDemand)
		}
	})
}

// stubModelServer speaks just enough of the chat-completions protocol for the
// handlers under test.
func stubModelServer(content string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": content}},
			},
		})
	}))
}

func TestChatEndpoint(t *testing.T) {
	server := stubModelServer("Try Indiranagar for PGs under ₹10,000.")
	defer server.Close()
	t.Setenv("OPENROUTER_API_KEY", "test-key")
	t.Setenv("OPENROUTER_BASE_URL", server.URL)

	db := setupTestDB(t)
	app := aiApp(seedUser(t, db, "user"))

	resp := doJSON(app, http.MethodPost, "/api/ai/chat", iris.Map{
		"messages": []iris.Map{{"role": "user", "content": "Where should I look in Bengaluru?"}},
		"context":  iris.Map{"city": "Bengaluru"},
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	body := decodeBody(t, resp)
	if body["message"] != "Try Indiranagar for PGs under ₹10,000." {
		t.Fatalf("unexpected reply %v", body["message"])
	}
}

func TestChatEndpointFallsBack(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("OPENROUTER_BASE_URL", "")

	db := setupTestDB(t)
	app := aiApp(seedUser(t, db, "user"))

	resp := doJSON(app, http.MethodPost, "/api/ai/chat", iris.Map{
		"messages": []iris.Map{{"role": "user", "content": "hello"}},
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("chat must degrade gracefully, got %d", resp.Code)
	}
	body := decodeBody(t, resp)
	if msg, _ := body["message"].(string); msg == "" {
		t.Fatal("expected a fallback message")
	}
}

func TestRecommendationsFallBackToRatingOrder(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("OPENROUTER_BASE_URL", "")

	db := setupTestDB(t)
	owner := seedUser(t, db, "owner")
	guest := seedUser(t, db, "user")
	lower := seedProperty(t, db, owner.ID)
	higher := seedProperty(t, db, owner.ID)
	db.Model(lower).UpdateColumn("avg_rating", 3.0)
	db.Model(higher).UpdateColumn("avg_rating", 4.5)

	app := aiApp(guest)
	resp := doJSON(app, http.MethodGet, "/api/ai/recommendations?city=Bengaluru", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	body := decodeBody(t, resp)
	properties := body["properties"].([]interface{})
	if len(properties) != 2 {
		t.Fatalf("expected 2 recommendations, got %d", len(properties))
	}
	first := properties[0].(map[string]interface{})
	if first["property"].(map[string]interface{})["avgRating"].(float64) != 4.5 {
		t.Fatal("expected rating order when the ranking model is unavailable")
	}
	if _, ok := first["aiReason"]; ok {
		t.Fatal("fallback list must not carry model reasons")
	}
}

func TestRecommendationsUseModelRanking(t *testing.T) {
	db := setupTestDB(t)
	owner := seedUser(t, db, "owner")
	guest := seedUser(t, db, "user")
	higher := seedProperty(t, db, owner.ID)
	lower := seedProperty(t, db, owner.ID)
	db.Model(higher).UpdateColumn("avg_rating", 4.5)
	db.Model(lower).UpdateColumn("avg_rating", 3.0)

	// Model prefers the lower-rated listing and explains why.
	content := fmt.Sprintf(`{"rankings":[{"id":%d,"reason":"Closer to your budget"},{"id":%d,"reason":"Top rated in the area"}]}`,
		lower.ID, higher.ID)
	server := stubModelServer(content)
	defer server.Close()
	t.Setenv("OPENROUTER_API_KEY", "test-key")
	t.Setenv("OPENROUTER_BASE_URL", server.URL)

	app := aiApp(guest)
	resp := doJSON(app, http.MethodGet, "/api/ai/recommendations?city=Bengaluru&budget=700", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	body := decodeBody(t, resp)
	properties := body["properties"].([]interface{})
	if len(properties) != 2 {
		t.Fatalf("expected 2 recommendations, got %d", len(properties))
	}
	first := properties[0].(map[string]interface{})
	if first["property"].(map[string]interface{})["slug"] != lower.Slug {
		t.Fatal("expected the model ranking to reorder the list")
	}
	if first["aiReason"] != "Closer to your budget" {
		t.Fatalf("expected the model reason, got %v", first["aiReason"])
	}
}

func TestPredictDemandAuthz(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")

	db := setupTestDB(t)
	owner := seedUser(t, db, "owner")
	stranger := seedUser(t, db, "owner")
	property := seedProperty(t, db, owner.ID)

	url := fmt.Sprintf("/api/ai/predict-demand?propertyId=%d", property.ID)

	strangerApp := aiApp(stranger)
	if resp := doJSON(strangerApp, http.MethodPost, url, nil); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-owner, got %d", resp.Code)
	}

	ownerApp := aiApp(owner)
	resp := doJSON(ownerApp, http.MethodPost, url, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	body := decodeBody(t, resp)
	prediction := body["prediction"].(map[string]interface{})
	if preds := prediction["predictions"].([]interface{}); len(preds) == 0 {
		t.Fatal("expected default predictions when upstream is unavailable")
	}
}

func TestPredictDemandIncludesHistory(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")

	db := setupTestDB(t)
	guest := seedUser(t, db, "user")
	owner := seedUser(t, db, "owner")
	property := seedProperty(t, db, owner.ID)
	room := seedRoom(t, db, property.ID, 4, 550)
	seedBooking(t, db, guest.ID, property.ID, room.ID, models.BookingStatusConfirmed)
	seedBooking(t, db, guest.ID, property.ID, room.ID, models.BookingStatusConfirmed)

	app := aiApp(owner)
	resp := doJSON(app, http.MethodPost, fmt.Sprintf("/api/ai/predict-demand?propertyId=%d", property.ID), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	body := decodeBody(t, resp)
	history := body["historical"].([]interface{})
	if len(history) != 1 {
		t.Fatalf("expected one month bucket, got %d", len(history))
	}
	month := history[0].(map[string]interface{})
	if month["bookings"].(float64) != 2 {
		t.Fatalf("expected 2 bookings in bucket, got %v", month["bookings"])
	}
	if month["revenue"].(float64) != 17248 {
		t.Fatalf("expected revenue 17248, got %v", month["revenue"])
	}
}
