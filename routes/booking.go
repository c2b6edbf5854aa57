package routes

import (
	"errors"
	"time"

	"stayease-server/models"
	"stayease-server/storage"
	"stayease-server/utils"

	"github.com/kataras/iris/v12"
	"gorm.io/gorm"
)

type BookingRequest struct {
	PropertyID      uint   `json:"propertyId" validate:"required"`
	RoomID          uint   `json:"roomId" validate:"required"`
	CheckIn         string `json:"checkIn" validate:"required"`
	CheckOut        string `json:"checkOut" validate:"required"`
	Guests          int    `json:"guests" validate:"omitempty,min=1"`
	SpecialRequests string `json:"specialRequests" validate:"omitempty,max=500"`
}

var errRoomUnavailable = errors.New("room not available")

// CreateBooking inserts a pending booking and takes one bed from the room.
// The availability check and decrement are a single conditional UPDATE inside
// the same transaction as the booking insert, so two concurrent requests
// against the last bed cannot both succeed.
func CreateBooking(ctx iris.Context) {
	userID, _, ok := utils.ContextUser(ctx)
	if !ok {
		ctx.StatusCode(iris.StatusUnauthorized)
		ctx.JSON(iris.Map{"message": "User not authenticated"})
		return
	}

	var request BookingRequest
	if err := ctx.ReadJSON(&request); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	checkIn, errIn := parseBookingDate(request.CheckIn)
	checkOut, errOut := parseBookingDate(request.CheckOut)
	if errIn != nil || errOut != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "invalid date format", ctx)
		return
	}

	nights := utils.StayNights(checkIn, checkOut)
	if nights < 1 {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "check-out date must be after check-in date", ctx)
		return
	}

	var room models.Room
	if err := storage.DB.Where("id = ? AND property_id = ?", request.RoomID, request.PropertyID).First(&room).Error; err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "room not available", ctx)
		return
	}
	if room.Active != nil && !*room.Active {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "room not available", ctx)
		return
	}

	guests := request.Guests
	if guests < 1 {
		guests = 1
	}

	subtotal, tax, total := utils.BookingAmountFor(room.DailyPrice, nights)

	booking := models.Booking{
		UserID:          userID,
		PropertyID:      request.PropertyID,
		RoomID:          request.RoomID,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		Guests:          guests,
		SpecialRequests: request.SpecialRequests,
		Amount:          models.BookingAmount{Subtotal: subtotal, Tax: tax, Total: total},
		Status:          models.BookingStatusPending,
		Payment:         models.BookingPayment{Status: models.PaymentStatusPending},
		InvoiceNumber:   utils.NewInvoiceNumber(),
	}

	txErr := storage.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Room{}).
			Where("id = ? AND available_beds > 0", room.ID).
			UpdateColumn("available_beds", gorm.Expr("available_beds - 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errRoomUnavailable
		}
		if err := tx.Create(&booking).Error; err != nil {
			return err
		}
		return recomputeAvailableRooms(tx, room.PropertyID)
	})
	if txErr != nil {
		if errors.Is(txErr, errRoomUnavailable) {
			utils.CreateError(iris.StatusBadRequest, "Bad Request", "room not available", ctx)
			return
		}
		utils.CreateInternalServerError(ctx)
		return
	}

	storage.DB.Preload("Property").Preload("Room").Preload("User").First(&booking, booking.ID)

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{"success": true, "booking": booking})
}

// CancelBooking returns the bed taken at creation and recomputes the
// property's room availability, the exact inverse of CreateBooking.
func CancelBooking(ctx iris.Context) {
	userID, _, ok := utils.ContextUser(ctx)
	if !ok {
		ctx.StatusCode(iris.StatusUnauthorized)
		ctx.JSON(iris.Map{"message": "User not authenticated"})
		return
	}

	bookingID := ctx.Params().GetUintDefault("id", 0)
	var booking models.Booking
	if err := storage.DB.First(&booking, bookingID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	if booking.UserID != userID && !utils.IsAdmin(ctx) {
		utils.CreateForbidden(ctx)
		return
	}

	if booking.Status == models.BookingStatusCancelled {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "booking already cancelled", ctx)
		return
	}
	if !models.CanTransitionBooking(booking.Status, models.BookingStatusCancelled) {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "booking can no longer be cancelled", ctx)
		return
	}

	if err := cancelBookingTx(&booking); err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"success": true, "booking": booking})
}

// cancelBookingTx flips the status and restores the bed in one transaction.
// The increment is capped at total_beds so a stray double restore can never
// push availability past capacity.
func cancelBookingTx(booking *models.Booking) error {
	return storage.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(booking).Update("status", models.BookingStatusCancelled).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Room{}).
			Where("id = ? AND available_beds < total_beds", booking.RoomID).
			UpdateColumn("available_beds", gorm.Expr("available_beds + 1")).Error; err != nil {
			return err
		}
		return recomputeAvailableRooms(tx, booking.PropertyID)
	})
}

type BookingStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed checked-in checked-out cancelled"`
}

// UpdateBookingStatus moves a booking along its lifecycle. Only transitions
// in the status table are allowed; cancellation through this endpoint
// restores the bed the same way CancelBooking does.
func UpdateBookingStatus(ctx iris.Context) {
	userID, _, ok := utils.ContextUser(ctx)
	if !ok {
		ctx.StatusCode(iris.StatusUnauthorized)
		ctx.JSON(iris.Map{"message": "User not authenticated"})
		return
	}

	bookingID := ctx.Params().GetUintDefault("id", 0)
	var booking models.Booking
	if err := storage.DB.Preload("Property").First(&booking, bookingID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	if booking.Property.OwnerID != userID && !utils.IsAdmin(ctx) {
		utils.CreateForbidden(ctx)
		return
	}

	var request BookingStatusRequest
	if err := ctx.ReadJSON(&request); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if !models.CanTransitionBooking(booking.Status, request.Status) {
		utils.CreateError(iris.StatusBadRequest, "Bad Request",
			"invalid status transition from "+booking.Status+" to "+request.Status, ctx)
		return
	}

	if request.Status == models.BookingStatusCancelled {
		if err := cancelBookingTx(&booking); err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
	} else if err := storage.DB.Model(&booking).Update("status", request.Status).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"success": true, "booking": booking})
}

// GetBooking returns one populated booking. Visible to the booking's user,
// the property's owner, and admins.
func GetBooking(ctx iris.Context) {
	userID, _, ok := utils.ContextUser(ctx)
	if !ok {
		ctx.StatusCode(iris.StatusUnauthorized)
		ctx.JSON(iris.Map{"message": "User not authenticated"})
		return
	}

	bookingID := ctx.Params().GetUintDefault("id", 0)
	var booking models.Booking
	if err := storage.DB.
		Preload("Property").
		Preload("Room").
		Preload("User").
		First(&booking, bookingID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	if booking.UserID != userID && booking.Property.OwnerID != userID && !utils.IsAdmin(ctx) {
		utils.CreateForbidden(ctx)
		return
	}

	ctx.JSON(iris.Map{"success": true, "booking": booking})
}

// GetMyBookings lists the authenticated user's bookings, newest first.
func GetMyBookings(ctx iris.Context) {
	userID, _, ok := utils.ContextUser(ctx)
	if !ok {
		ctx.StatusCode(iris.StatusUnauthorized)
		ctx.JSON(iris.Map{"message": "User not authenticated"})
		return
	}

	var bookings []models.Booking
	if err := storage.DB.Where("user_id = ?", userID).
		Preload("Property").
		Preload("Room").
		Order("created_at DESC").
		Find(&bookings).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"success": true, "bookings": bookings})
}

// GetPropertyBookings is the owner view of bookings against one property.
func GetPropertyBookings(ctx iris.Context) {
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

	var bookings []models.Booking
	if err := storage.DB.Where("property_id = ?", propertyID).
		Preload("Room").
		Preload("User").
		Order("created_at DESC").
		Find(&bookings).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"success": true, "bookings": bookings})
}

// ListBookings is the paginated admin read over all bookings.
func ListBookings(ctx iris.Context) {
	page, limit, offset := utils.Pagination(ctx)

	query := storage.DB.Model(&models.Booking{})
	if status := ctx.URLParam("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	var bookings []models.Booking
	if err := query.
		Preload("Property").
		Preload("Room").
		Preload("User").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&bookings).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.JSONPage(ctx, bookings, page, limit, total)
}

// recomputeAvailableRooms rewrites Property.AvailableRooms from the child
// rooms rather than patching it incrementally.
func recomputeAvailableRooms(tx *gorm.DB, propertyID uint) error {
	var available int64
	if err := tx.Model(&models.Room{}).
		Where("property_id = ? AND available_beds > 0", propertyID).
		Count(&available).Error; err != nil {
		return err
	}
	return tx.Model(&models.Property{}).
		Where("id = ?", propertyID).
		UpdateColumn("available_rooms", available).Error
}

func parseBookingDate(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}
