package routes

import (
	"stayease-server/models"
	"stayease-server/storage"
	"stayease-server/utils"

	"github.com/kataras/iris/v12"
)

// AdminStats is the dashboard summary: entity counts plus completed booking
// revenue.
func AdminStats(ctx iris.Context) {
	var users, properties, bookings, openComplaints int64
	storage.DB.Model(&models.User{}).Count(&users)
	storage.DB.Model(&models.Property{}).Count(&properties)
	storage.DB.Model(&models.Booking{}).Count(&bookings)
	storage.DB.Model(&models.Complaint{}).Where("status = ?", models.ComplaintStatusOpen).Count(&openComplaints)

	var revenue float64
	storage.DB.Model(&models.Booking{}).
		Where("payment_status = ?", models.PaymentStatusCompleted).
		Select("COALESCE(SUM(amount_total), 0)").
		Scan(&revenue)

	ctx.JSON(iris.Map{
		"success": true,
		"stats": iris.Map{
			"users":          users,
			"properties":     properties,
			"bookings":       bookings,
			"openComplaints": openComplaints,
			"revenue":        revenue,
		},
	})
}

// AdminListUsers is the paginated user directory.
func AdminListUsers(ctx iris.Context) {
	page, limit, offset := utils.Pagination(ctx)

	query := storage.DB.Model(&models.User{})
	if role := ctx.URLParam("role"); role != "" {
		query = query.Where("role = ?", role)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	var users []models.User
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.JSONPage(ctx, users, page, limit, total)
}

type ChangeRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user owner admin"`
}

func AdminChangeUserRole(ctx iris.Context) {
	userID := ctx.Params().GetUintDefault("id", 0)
	var user models.User
	if err := storage.DB.First(&user, userID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	var request ChangeRoleRequest
	if err := ctx.ReadJSON(&request); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	before := user.Role
	if err := storage.DB.Model(&user).Update("role", request.Role).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.Audit(ctx, "user.role_change", "user", user.ID,
		iris.Map{"role": before}, iris.Map{"role": request.Role})
	ctx.JSON(iris.Map{"success": true, "user": user})
}

type VerifyPropertyRequest struct {
	Verified bool `json:"verified"`
}

// AdminVerifyProperty flips the verification flag that gates a listing's
// appearance in public search.
func AdminVerifyProperty(ctx iris.Context) {
	propertyID := ctx.Params().GetUintDefault("id", 0)
	var property models.Property
	if err := storage.DB.First(&property, propertyID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	var request VerifyPropertyRequest
	if err := ctx.ReadJSON(&request); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	before := property.IsVerified
	if err := storage.DB.Model(&property).Update("is_verified", request.Verified).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.Audit(ctx, "property.verify", "property", property.ID,
		iris.Map{"isVerified": before}, iris.Map{"isVerified": request.Verified})
	ctx.JSON(iris.Map{"success": true, "property": property})
}

// AdminListProperties includes unverified and inactive listings.
func AdminListProperties(ctx iris.Context) {
	page, limit, offset := utils.Pagination(ctx)

	query := storage.DB.Model(&models.Property{})
	if verified := ctx.URLParam("verified"); verified != "" {
		query = query.Where("is_verified = ?", verified == "true")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	var properties []models.Property
	if err := query.Preload("Owner").Order("created_at DESC").
		Offset(offset).Limit(limit).Find(&properties).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.JSONPage(ctx, properties, page, limit, total)
}
