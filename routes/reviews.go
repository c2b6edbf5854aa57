package routes

import (
	"math"

	"stayease-server/models"
	"stayease-server/storage"
	"stayease-server/utils"

	"github.com/kataras/iris/v12"
	"gorm.io/gorm"
)

type CreateReviewRequest struct {
	PropertyID uint   `json:"propertyId" validate:"required"`
	Rating     int    `json:"rating" validate:"required,min=1,max=5"`
	Title      string `json:"title" validate:"omitempty,max=100"`
	Text       string `json:"text" validate:"required,max=1000"`
}

// CreateReview stores a review after running it through moderation. The
// moderation call is advisory: an upstream failure yields the neutral
// default and never blocks submission.
func CreateReview(ctx iris.Context) {
	userID, _, ok := utils.ContextUser(ctx)
	if !ok {
		ctx.StatusCode(iris.StatusUnauthorized)
		ctx.JSON(iris.Map{"message": "User not authenticated"})
		return
	}

	var request CreateReviewRequest
	if err := ctx.ReadJSON(&request); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var property models.Property
	if err := storage.DB.First(&property, request.PropertyID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	var existing models.Review
	if err := storage.DB.Where("user_id = ? AND property_id = ?", userID, request.PropertyID).
		First(&existing).Error; err == nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "you have already reviewed this property", ctx)
		return
	}

	verdict := aiClient().ModerateReview(ctx.Request().Context(), request.Text, request.Rating)

	review := models.Review{
		UserID:         userID,
		PropertyID:     request.PropertyID,
		Rating:         request.Rating,
		Title:          request.Title,
		Body:           request.Text,
		SentimentScore: verdict.SentimentScore,
		SentimentLabel: verdict.SentimentLabel,
		Flagged:        verdict.ShouldFlag || verdict.IsFake || verdict.IsAbusive,
		FlagReason:     verdict.FlagReason,
	}

	txErr := storage.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&review).Error; err != nil {
			return err
		}
		return recomputeReviewAggregates(tx, request.PropertyID)
	})
	if txErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	storage.DB.Preload("User").First(&review, review.ID)

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{"success": true, "review": review})
}

// ListPropertyReviews is the public read: non-flagged reviews, newest first.
func ListPropertyReviews(ctx iris.Context) {
	propertyID := ctx.Params().GetUintDefault("id", 0)

	var reviews []models.Review
	if err := storage.DB.Where("property_id = ? AND flagged = ?", propertyID, false).
		Preload("User").
		Order("created_at DESC").
		Find(&reviews).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"success": true, "reviews": reviews})
}

// DeleteReview removes a review (author or admin) and refreshes the
// property's aggregates.
func DeleteReview(ctx iris.Context) {
	userID, _, ok := utils.ContextUser(ctx)
	if !ok {
		ctx.StatusCode(iris.StatusUnauthorized)
		ctx.JSON(iris.Map{"message": "User not authenticated"})
		return
	}

	reviewID := ctx.Params().GetUintDefault("id", 0)
	var review models.Review
	if err := storage.DB.First(&review, reviewID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	if review.UserID != userID && !utils.IsAdmin(ctx) {
		utils.CreateForbidden(ctx)
		return
	}

	// Hard delete: the (user, property) unique pair must free up so the
	// author can review the property again later.
	txErr := storage.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Delete(&review).Error; err != nil {
			return err
		}
		return recomputeReviewAggregates(tx, review.PropertyID)
	})
	if txErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"success": true})
}

type FlagReviewRequest struct {
	Flagged bool   `json:"flagged"`
	Reason  string `json:"reason" validate:"omitempty,max=500"`
}

// FlagReview sets or clears the flag on a review (admin only). Flagging
// changes which rows qualify for the aggregate, so the recomputation runs
// here too, not only on create/delete.
func FlagReview(ctx iris.Context) {
	reviewID := ctx.Params().GetUintDefault("id", 0)
	var review models.Review
	if err := storage.DB.First(&review, reviewID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	var request FlagReviewRequest
	if err := ctx.ReadJSON(&request); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	before := review
	txErr := storage.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&review).Updates(map[string]interface{}{
			"flagged":     request.Flagged,
			"flag_reason": request.Reason,
		}).Error; err != nil {
			return err
		}
		return recomputeReviewAggregates(tx, review.PropertyID)
	})
	if txErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.Audit(ctx, "review.flag", "review", review.ID, before, review)
	ctx.JSON(iris.Map{"success": true, "review": review})
}

// AdminListReviews is the paginated moderation queue.
func AdminListReviews(ctx iris.Context) {
	page, limit, offset := utils.Pagination(ctx)

	query := storage.DB.Model(&models.Review{})
	if flagged := ctx.URLParam("flagged"); flagged != "" {
		query = query.Where("flagged = ?", flagged == "true")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	var reviews []models.Review
	if err := query.
		Preload("User").
		Preload("Property").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&reviews).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.JSONPage(ctx, reviews, page, limit, total)
}

// recomputeReviewAggregates rewrites AvgRating and TotalReviews from the
// non-flagged source rows; it is never patched incrementally.
func recomputeReviewAggregates(tx *gorm.DB, propertyID uint) error {
	var stats struct {
		Avg float64
		Cnt int64
	}
	err := tx.Model(&models.Review{}).
		Where("property_id = ? AND flagged = ?", propertyID, false).
		Select("COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS cnt").
		Scan(&stats).Error
	if err != nil {
		return err
	}

	avg := math.Round(stats.Avg*10) / 10
	return tx.Model(&models.Property{}).
		Where("id = ?", propertyID).
		Updates(map[string]interface{}{
			"avg_rating":    avg,
			"total_reviews": stats.Cnt,
		}).Error
}
