package routes

import (
	"encoding/json"
	"strings"
	"time"

	"stayease-server/models"
	"stayease-server/services"
	"stayease-server/storage"
	"stayease-server/utils"

	"github.com/kataras/iris/v12"
)

// aiClient builds a fresh client per call so credential changes (and test
// overrides) are picked up without restarting.
func aiClient() *services.AIClient {
	return services.NewAIClient()
}

type ChatRequest struct {
	Messages []services.ChatMessage `json:"messages" validate:"required,min=1"`
	Context  struct {
		City string `json:"city"`
	} `json:"context"`
}

// Chat proxies the assistant conversation. The AI layer degrades to a
// fallback reply internally, so this endpoint never surfaces a hard failure.
func Chat(ctx iris.Context) {
	var request ChatRequest
	if err := ctx.ReadJSON(&request); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	reply := aiClient().Chat(ctx.Request().Context(), request.Messages, request.Context.City)
	ctx.JSON(iris.Map{"success": true, "message": reply})
}

const recommendationLimit = 6

// RecommendedProperty is one recommendation list entry. AIReason is empty
// when the list fell back to plain rating order.
type RecommendedProperty struct {
	Property models.Property `json:"property"`
	AIReason string          `json:"aiReason,omitempty"`
}

// Recommendations suggests listings from the user's stored preferences; the
// city and budget query parameters override the profile. The ranking model is
// advisory: without it the list stays in rating order.
func Recommendations(ctx iris.Context) {
	userID, _, ok := utils.ContextUser(ctx)
	if !ok {
		ctx.StatusCode(iris.StatusUnauthorized)
		ctx.JSON(iris.Map{"message": "User not authenticated"})
		return
	}

	var user models.User
	if err := storage.DB.First(&user, userID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	city := ctx.URLParam("city")
	budget := ctx.URLParamIntDefault("budget", 0)
	if city == "" && user.PreferredCities != nil {
		var cities []string
		if err := json.Unmarshal(user.PreferredCities, &cities); err == nil && len(cities) > 0 {
			city = cities[0]
		}
	}
	if budget == 0 {
		budget = user.BudgetMax
	}

	query := storage.DB.Model(&models.Property{}).
		Where("is_active = ? AND is_verified = ?", true, true)
	if city != "" {
		query = query.Where("city LIKE ?", "%"+city+"%")
	}
	if user.PreferredType != "" {
		query = query.Where("type = ?", user.PreferredType)
	}
	if budget > 0 {
		query = query.Where("starting_from <= ?", budget)
	}

	var properties []models.Property
	if err := query.Order("avg_rating DESC, total_reviews DESC").
		Limit(recommendationLimit * 2).
		Find(&properties).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	// Broaden when the strict preference match comes up short: keep the
	// city, drop type and budget, accept unverified listings.
	if len(properties) < recommendationLimit {
		broad := storage.DB.Model(&models.Property{}).Where("is_active = ?", true)
		if city != "" {
			broad = broad.Where("city LIKE ?", "%"+city+"%")
		}
		if err := broad.Order("avg_rating DESC").
			Limit(recommendationLimit).
			Find(&properties).Error; err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
	}

	preferences := map[string]interface{}{}
	if city != "" {
		preferences["city"] = city
	}
	if budget > 0 {
		preferences["budget"] = budget
	}
	if user.PreferredType != "" {
		preferences["type"] = user.PreferredType
	}

	ctx.JSON(iris.Map{
		"success":    true,
		"properties": rankRecommendations(ctx, preferences, properties),
	})
}

// rankRecommendations reorders the candidates by the model's ranking,
// attaching its reasons. Candidates the model skips or invents are dropped;
// a failed ranking keeps the incoming rating order.
func rankRecommendations(ctx iris.Context, preferences map[string]interface{}, properties []models.Property) []RecommendedProperty {
	candidates := make([]services.RecommendationCandidate, 0, len(properties))
	byID := make(map[uint]models.Property, len(properties))
	for _, p := range properties {
		var amenities []string
		if p.Amenities != nil {
			json.Unmarshal(p.Amenities, &amenities)
		}
		candidates = append(candidates, services.RecommendationCandidate{
			ID:        p.ID,
			Name:      p.Name,
			Type:      p.Type,
			City:      p.City,
			Price:     p.StartingFrom,
			Rating:    p.AvgRating,
			Gender:    p.Gender,
			Amenities: strings.Join(amenities, ", "),
		})
		byID[p.ID] = p
	}

	var rankings []services.RecommendationRanking
	if len(candidates) > 0 {
		rankings = aiClient().RankProperties(ctx.Request().Context(), preferences, candidates, recommendationLimit)
	}

	out := make([]RecommendedProperty, 0, recommendationLimit)
	if len(rankings) > 0 {
		for _, ranking := range rankings {
			property, ok := byID[ranking.ID]
			if !ok {
				continue
			}
			out = append(out, RecommendedProperty{Property: property, AIReason: ranking.Reason})
			if len(out) == recommendationLimit {
				break
			}
		}
		if len(out) > 0 {
			return out
		}
	}

	for _, p := range properties {
		out = append(out, RecommendedProperty{Property: p})
		if len(out) == recommendationLimit {
			break
		}
	}
	return out
}

// PredictDemand aggregates six months of booking history for the caller's
// scope and asks the model for a forward-looking occupancy suggestion.
// Advisory only; nothing here mutates pricing.
func PredictDemand(ctx iris.Context) {
	userID, _, ok := utils.ContextUser(ctx)
	if !ok {
		ctx.StatusCode(iris.StatusUnauthorized)
		ctx.JSON(iris.Map{"message": "User not authenticated"})
		return
	}

	propertyID := uint(ctx.URLParamIntDefault("propertyId", 0))
	city := ctx.URLParam("city")

	if propertyID != 0 {
		var property models.Property
		if err := storage.DB.First(&property, propertyID).Error; err != nil {
			utils.CreateNotFound(ctx)
			return
		}
		if property.OwnerID != userID && !utils.IsAdmin(ctx) {
			utils.CreateForbidden(ctx)
			return
		}
		if city == "" {
			city = property.City
		}
	}

	history, err := bookingHistoryByMonth(propertyID)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	prediction := aiClient().PredictDemand(ctx.Request().Context(), city, history)
	ctx.JSON(iris.Map{
		"success":    true,
		"prediction": prediction,
		"historical": history,
	})
}

// bookingHistoryByMonth buckets the last six months of bookings by calendar
// month in Go so the query stays portable across postgres and the sqlite
// test database.
func bookingHistoryByMonth(propertyID uint) ([]services.BookingMonthStat, error) {
	since := time.Now().AddDate(0, -6, 0)

	query := storage.DB.Model(&models.Booking{}).Where("created_at >= ?", since)
	if propertyID != 0 {
		query = query.Where("property_id = ?", propertyID)
	}

	var rows []struct {
		CreatedAt   time.Time
		AmountTotal float64
	}
	if err := query.Select("created_at, amount_total").Scan(&rows).Error; err != nil {
		return nil, err
	}

	buckets := map[string]*services.BookingMonthStat{}
	order := []string{}
	for _, row := range rows {
		month := row.CreatedAt.Format("2006-01")
		stat, ok := buckets[month]
		if !ok {
			stat = &services.BookingMonthStat{Month: month}
			buckets[month] = stat
			order = append(order, month)
		}
		stat.Bookings++
		stat.Revenue += row.AmountTotal
	}

	out := make([]services.BookingMonthStat, 0, len(order))
	for _, month := range order {
		out = append(out, *buckets[month])
	}
	return out, nil
}
