package routes

import (
	"encoding/json"

	"stayease-server/models"
	"stayease-server/storage"
	"stayease-server/utils"

	"github.com/kataras/iris/v12"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PropertyRequest struct {
	Name            string   `json:"name" validate:"required,max=100"`
	Description     string   `json:"description" validate:"required,max=2000"`
	Type            string   `json:"type" validate:"required,oneof=hostel pg budget-hotel co-living"`
	Gender          string   `json:"gender" validate:"omitempty,oneof=male female coed"`
	Address         string   `json:"address" validate:"required"`
	City            string   `json:"city" validate:"required"`
	State           string   `json:"state" validate:"required"`
	Pincode         string   `json:"pincode" validate:"required"`
	Lat             float64  `json:"lat"`
	Lng             float64  `json:"lng"`
	NearbyPlaces    []string `json:"nearbyPlaces"`
	Amenities       []string `json:"amenities"`
	Rules           []string `json:"rules"`
	Images          []string `json:"images"`
	StartingFrom    float64  `json:"startingFrom" validate:"omitempty,min=0"`
	SecurityDeposit float64  `json:"securityDeposit" validate:"omitempty,min=0"`
}

func packJSON(values []string) datatypes.JSON {
	if len(values) == 0 {
		return nil
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return nil
	}
	return raw
}

// CreateProperty lists a new property owned by the caller. New listings
// start unverified; an admin flips the flag before they appear in search.
func CreateProperty(ctx iris.Context) {
	userID, _, ok := utils.ContextUser(ctx)
	if !ok {
		ctx.StatusCode(iris.StatusUnauthorized)
		ctx.JSON(iris.Map{"message": "User not authenticated"})
		return
	}

	var request PropertyRequest
	if err := ctx.ReadJSON(&request); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	gender := request.Gender
	if gender == "" {
		gender = "coed"
	}

	property := models.Property{
		OwnerID:         userID,
		Name:            request.Name,
		Slug:            utils.NewSlug(request.Name),
		Description:     request.Description,
		Type:            request.Type,
		Gender:          gender,
		Address:         request.Address,
		City:            request.City,
		State:           request.State,
		Pincode:         request.Pincode,
		Lat:             request.Lat,
		Lng:             request.Lng,
		NearbyPlaces:    packJSON(request.NearbyPlaces),
		Amenities:       packJSON(request.Amenities),
		Rules:           packJSON(request.Rules),
		Images:          packJSON(request.Images),
		StartingFrom:    request.StartingFrom,
		SecurityDeposit: request.SecurityDeposit,
	}

	if err := storage.DB.Create(&property).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{"success": true, "property": property})
}

// SearchProperties is the public listing read: active, verified properties
// with optional filters.
func SearchProperties(ctx iris.Context) {
	page, limit, offset := utils.Pagination(ctx)

	query := storage.DB.Model(&models.Property{}).
		Where("is_active = ? AND is_verified = ?", true, true)

	if city := ctx.URLParam("city"); city != "" {
		query = query.Where("city = ?", city)
	}
	if propertyType := ctx.URLParam("type"); propertyType != "" {
		query = query.Where("type = ?", propertyType)
	}
	if gender := ctx.URLParam("gender"); gender != "" {
		query = query.Where("gender = ?", gender)
	}
	if minPrice := ctx.URLParamFloat64Default("minPrice", 0); minPrice > 0 {
		query = query.Where("starting_from >= ?", minPrice)
	}
	if maxPrice := ctx.URLParamFloat64Default("maxPrice", 0); maxPrice > 0 {
		query = query.Where("starting_from <= ?", maxPrice)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	var properties []models.Property
	if err := query.Order("avg_rating DESC, created_at DESC").
		Offset(offset).Limit(limit).
		Find(&properties).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.JSONPage(ctx, properties, page, limit, total)
}

// GetFeaturedProperties returns the top-rated verified listings.
func GetFeaturedProperties(ctx iris.Context) {
	var properties []models.Property
	if err := storage.DB.
		Where("is_active = ? AND is_verified = ?", true, true).
		Order("avg_rating DESC").
		Limit(6).
		Find(&properties).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"success": true, "properties": properties})
}

// GetProperty returns one listing with its rooms and owner summary.
func GetProperty(ctx iris.Context) {
	propertyID := ctx.Params().GetUintDefault("id", 0)

	var property models.Property
	if err := storage.DB.
		Preload("Rooms", "active = ?", true).
		Preload("Owner").
		First(&property, propertyID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	ctx.JSON(iris.Map{"success": true, "property": property})
}

// GetMyProperties lists everything the caller owns, including unverified
// listings.
func GetMyProperties(ctx iris.Context) {
	userID, _, ok := utils.ContextUser(ctx)
	if !ok {
		ctx.StatusCode(iris.StatusUnauthorized)
		ctx.JSON(iris.Map{"message": "User not authenticated"})
		return
	}

	var properties []models.Property
	if err := storage.DB.Where("owner_id = ?", userID).
		Order("created_at DESC").
		Find(&properties).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"success": true, "properties": properties})
}

// UpdateProperty lets the owner or an admin edit listing fields. Derived
// counters are not accepted here; they are owned by the room and booking
// paths.
func UpdateProperty(ctx iris.Context) {
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

	var request PropertyRequest
	if err := ctx.ReadJSON(&request); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	property.Name = request.Name
	property.Description = request.Description
	property.Type = request.Type
	if request.Gender != "" {
		property.Gender = request.Gender
	}
	property.Address = request.Address
	property.City = request.City
	property.State = request.State
	property.Pincode = request.Pincode
	property.Lat = request.Lat
	property.Lng = request.Lng
	property.NearbyPlaces = packJSON(request.NearbyPlaces)
	property.Amenities = packJSON(request.Amenities)
	property.Rules = packJSON(request.Rules)
	property.Images = packJSON(request.Images)
	property.SecurityDeposit = request.SecurityDeposit

	if err := storage.DB.Save(&property).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"success": true, "property": property})
}

// DeleteProperty removes a listing and its rooms.
func DeleteProperty(ctx iris.Context) {
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

	txErr := storage.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("property_id = ?", propertyID).Delete(&models.Room{}).Error; err != nil {
			return err
		}
		return tx.Delete(&property).Error
	})
	if txErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"success": true})
}
