package routes

import (
	"encoding/json"
	"time"

	"stayease-server/models"
	"stayease-server/storage"
	"stayease-server/utils"

	"github.com/kataras/iris/v12"
	"golang.org/x/exp/slices"
	"gorm.io/datatypes"
)

type CreateComplaintRequest struct {
	PropertyID  uint     `json:"propertyId" validate:"required"`
	Title       string   `json:"title" validate:"required,max=150"`
	Description string   `json:"description" validate:"required,max=1000"`
	Category    string   `json:"category" validate:"omitempty,oneof=maintenance cleanliness noise security billing staff food other"`
	Images      []string `json:"images"`
}

// CreateComplaint files a complaint and attaches an advisory AI
// classification snapshot. The snapshot never overrides what the user chose.
func CreateComplaint(ctx iris.Context) {
	userID, _, ok := utils.ContextUser(ctx)
	if !ok {
		ctx.StatusCode(iris.StatusUnauthorized)
		ctx.JSON(iris.Map{"message": "User not authenticated"})
		return
	}

	var request CreateComplaintRequest
	if err := ctx.ReadJSON(&request); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var property models.Property
	if err := storage.DB.First(&property, request.PropertyID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	classification := aiClient().ClassifyComplaint(ctx.Request().Context(), request.Title, request.Description)

	category := request.Category
	if category == "" {
		category = classification.SuggestedCategory
	}

	var images datatypes.JSON
	if len(request.Images) > 0 {
		if raw, err := json.Marshal(request.Images); err == nil {
			images = raw
		}
	}

	complaint := models.Complaint{
		UserID:      userID,
		PropertyID:  request.PropertyID,
		Title:       request.Title,
		Description: request.Description,
		Category:    category,
		Priority:    classification.SuggestedPriority,
		Status:      models.ComplaintStatusOpen,
		AIClassification: models.ComplaintClassification{
			SuggestedCategory: classification.SuggestedCategory,
			SuggestedPriority: classification.SuggestedPriority,
			SentimentScore:    classification.SentimentScore,
			Confidence:        classification.Confidence,
		},
		Images: images,
	}

	if err := storage.DB.Create(&complaint).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{"success": true, "complaint": complaint})
}

// GetMyComplaints lists the authenticated user's complaints.
func GetMyComplaints(ctx iris.Context) {
	userID, _, ok := utils.ContextUser(ctx)
	if !ok {
		ctx.StatusCode(iris.StatusUnauthorized)
		ctx.JSON(iris.Map{"message": "User not authenticated"})
		return
	}

	var complaints []models.Complaint
	if err := storage.DB.Where("user_id = ?", userID).
		Preload("Property").
		Order("created_at DESC").
		Find(&complaints).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"success": true, "complaints": complaints})
}

// GetPropertyComplaints is the property owner's (or an admin's) view.
func GetPropertyComplaints(ctx iris.Context) {
	userID, _, ok := utils.ContextUser(ctx)
	if !ok {
		ctx.StatusCode(iris.StatusUnauthorized)
		ctx.JSON(iris.Map{"message": "User not authenticated"})
		return
	}

	propertyID := ctx.Params().GetUintDefault("id", 0)
	var property models.Property
	if err := storage.DB.First(&property, propertyID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	if property.OwnerID != userID && !utils.IsAdmin(ctx) {
		utils.CreateForbidden(ctx)
		return
	}

	var complaints []models.Complaint
	if err := storage.DB.Where("property_id = ?", propertyID).
		Preload("User").
		Order("created_at DESC").
		Find(&complaints).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"success": true, "complaints": complaints})
}

type UpdateComplaintRequest struct {
	Status     string `json:"status" validate:"omitempty,oneof=open in-progress resolved closed"`
	Priority   string `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Category   string `json:"category" validate:"omitempty,oneof=maintenance cleanliness noise security billing staff food other"`
	Resolution string `json:"resolution" validate:"omitempty,max=1000"`
}

// UpdateComplaint lets the property owner or an admin progress a complaint.
// Moving to resolved records who resolved it and when.
func UpdateComplaint(ctx iris.Context) {
	userID, _, ok := utils.ContextUser(ctx)
	if !ok {
		ctx.StatusCode(iris.StatusUnauthorized)
		ctx.JSON(iris.Map{"message": "User not authenticated"})
		return
	}

	complaintID := ctx.Params().GetUintDefault("id", 0)
	var complaint models.Complaint
	if err := storage.DB.Preload("Property").First(&complaint, complaintID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	if complaint.Property.OwnerID != userID && !utils.IsAdmin(ctx) {
		utils.CreateForbidden(ctx)
		return
	}

	var request UpdateComplaintRequest
	if err := ctx.ReadJSON(&request); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	updates := map[string]interface{}{}
	if request.Status != "" {
		updates["status"] = request.Status
	}
	if request.Priority != "" {
		updates["priority"] = request.Priority
	}
	if request.Category != "" {
		updates["category"] = request.Category
	}
	if request.Resolution != "" || request.Status == models.ComplaintStatusResolved {
		now := time.Now()
		updates["resolution_text"] = request.Resolution
		updates["resolution_resolved_by"] = userID
		updates["resolution_resolved_at"] = now
	}
	if len(updates) == 0 {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "nothing to update", ctx)
		return
	}

	if err := storage.DB.Model(&complaint).Updates(updates).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"success": true, "complaint": complaint})
}

// AdminListComplaints is the paginated admin read with optional filters.
func AdminListComplaints(ctx iris.Context) {
	page, limit, offset := utils.Pagination(ctx)

	query := storage.DB.Model(&models.Complaint{})
	if status := ctx.URLParam("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if priority := ctx.URLParam("priority"); priority != "" && slices.Contains([]string{"low", "medium", "high", "urgent"}, priority) {
		query = query.Where("priority = ?", priority)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	var complaints []models.Complaint
	if err := query.
		Preload("User").
		Preload("Property").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&complaints).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.JSONPage(ctx, complaints, page, limit, total)
}
