package routes

import (
	"stayease-server/models"
	"stayease-server/storage"
	"stayease-server/utils"

	"github.com/kataras/iris/v12"
	"gorm.io/gorm"
)

type RoomRequest struct {
	Name             string   `json:"name" validate:"required,max=100"`
	Type             string   `json:"type" validate:"required,oneof=single double triple dormitory deluxe suite"`
	DailyPrice       float64  `json:"dailyPrice" validate:"required,gt=0"`
	WeeklyPrice      float64  `json:"weeklyPrice" validate:"omitempty,gt=0"`
	MonthlyPrice     float64  `json:"monthlyPrice" validate:"omitempty,gt=0"`
	Capacity         int      `json:"capacity" validate:"required,min=1,max=20"`
	TotalBeds        int      `json:"totalBeds" validate:"required,min=1"`
	AvailableBeds    *int     `json:"availableBeds" validate:"omitempty,min=0"`
	Amenities        []string `json:"amenities"`
	Images           []string `json:"images"`
	AC               bool     `json:"ac"`
	AttachedBathroom bool     `json:"attachedBathroom"`
}

// mustOwnProperty loads the property and enforces owner-or-admin access.
func mustOwnProperty(ctx iris.Context, propertyID uint) (*models.Property, bool) {
	userID, _, ok := utils.ContextUser(ctx)
	if !ok {
		ctx.StatusCode(iris.StatusUnauthorized)
		ctx.JSON(iris.Map{"message": "User not authenticated"})
		return nil, false
	}

	var property models.Property
	if err := storage.DB.First(&property, propertyID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return nil, false
	}

	if property.OwnerID != userID && !utils.IsAdmin(ctx) {
		utils.CreateForbidden(ctx)
		return nil, false
	}
	return &property, true
}

// AddRoom creates a room under a property and refreshes the property's
// room-count caches in the same transaction.
func AddRoom(ctx iris.Context) {
	propertyID := ctx.Params().GetUintDefault("id", 0)
	if _, ok := mustOwnProperty(ctx, propertyID); !ok {
		return
	}

	var request RoomRequest
	if err := ctx.ReadJSON(&request); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	availableBeds := request.TotalBeds
	if request.AvailableBeds != nil {
		availableBeds = *request.AvailableBeds
	}
	if availableBeds > request.TotalBeds {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "availableBeds cannot exceed totalBeds", ctx)
		return
	}

	room := models.Room{
		PropertyID:       propertyID,
		Name:             request.Name,
		Type:             request.Type,
		DailyPrice:       request.DailyPrice,
		WeeklyPrice:      request.WeeklyPrice,
		MonthlyPrice:     request.MonthlyPrice,
		Capacity:         request.Capacity,
		TotalBeds:        request.TotalBeds,
		AvailableBeds:    availableBeds,
		Amenities:        packJSON(request.Amenities),
		Images:           packJSON(request.Images),
		AC:               request.AC,
		AttachedBathroom: request.AttachedBathroom,
	}

	txErr := storage.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&room).Error; err != nil {
			return err
		}
		return recomputeRoomCounts(tx, propertyID)
	})
	if txErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{"success": true, "room": room})
}

// ListRooms returns a property's active rooms.
func ListRooms(ctx iris.Context) {
	propertyID := ctx.Params().GetUintDefault("id", 0)

	var rooms []models.Room
	if err := storage.DB.Where("property_id = ? AND active = ?", propertyID, true).
		Order("daily_price ASC").
		Find(&rooms).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"success": true, "rooms": rooms})
}

// UpdateRoom edits a room; bed counters are clamped so the capacity
// invariant holds, and the property caches are recomputed.
func UpdateRoom(ctx iris.Context) {
	roomID := ctx.Params().GetUintDefault("id", 0)

	var room models.Room
	if err := storage.DB.First(&room, roomID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	if _, ok := mustOwnProperty(ctx, room.PropertyID); !ok {
		return
	}

	var request RoomRequest
	if err := ctx.ReadJSON(&request); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	room.Name = request.Name
	room.Type = request.Type
	room.DailyPrice = request.DailyPrice
	room.WeeklyPrice = request.WeeklyPrice
	room.MonthlyPrice = request.MonthlyPrice
	room.Capacity = request.Capacity
	room.TotalBeds = request.TotalBeds
	if request.AvailableBeds != nil {
		room.AvailableBeds = *request.AvailableBeds
	}
	if room.AvailableBeds > room.TotalBeds {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "availableBeds cannot exceed totalBeds", ctx)
		return
	}
	room.Amenities = packJSON(request.Amenities)
	room.Images = packJSON(request.Images)
	room.AC = request.AC
	room.AttachedBathroom = request.AttachedBathroom

	txErr := storage.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&room).Error; err != nil {
			return err
		}
		return recomputeRoomCounts(tx, room.PropertyID)
	})
	if txErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"success": true, "room": room})
}

// DeleteRoom removes a room and refreshes the property caches.
func DeleteRoom(ctx iris.Context) {
	roomID := ctx.Params().GetUintDefault("id", 0)

	var room models.Room
	if err := storage.DB.First(&room, roomID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	if _, ok := mustOwnProperty(ctx, room.PropertyID); !ok {
		return
	}

	txErr := storage.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&room).Error; err != nil {
			return err
		}
		return recomputeRoomCounts(tx, room.PropertyID)
	})
	if txErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"success": true})
}

// recomputeRoomCounts rewrites TotalRooms, AvailableRooms, and the
// starting-from price from the property's rooms.
func recomputeRoomCounts(tx *gorm.DB, propertyID uint) error {
	var stats struct {
		Total     int64
		Available int64
		MinDaily  float64
	}
	err := tx.Model(&models.Room{}).
		Where("property_id = ?", propertyID).
		Select("COUNT(*) AS total, " +
			"COALESCE(SUM(CASE WHEN available_beds > 0 THEN 1 ELSE 0 END), 0) AS available, " +
			"COALESCE(MIN(daily_price), 0) AS min_daily").
		Scan(&stats).Error
	if err != nil {
		return err
	}

	return tx.Model(&models.Property{}).
		Where("id = ?", propertyID).
		Updates(map[string]interface{}{
			"total_rooms":     stats.Total,
			"available_rooms": stats.Available,
			"starting_from":   stats.MinDaily,
		}).Error
}
