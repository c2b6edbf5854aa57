package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	"stayease-server/models"
	"stayease-server/storage"

	"github.com/go-playground/validator/v10"
	"github.com/kataras/iris/v12"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB points storage.DB at a fresh in-memory SQLite database.
// A single connection keeps the memory database alive and serializes
// concurrent transactions the way a real connection pool would under load.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("getting sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := storage.Migrate(db); err != nil {
		t.Fatalf("migrating test db: %v", err)
	}

	storage.DB = db
	return db
}

// asUser injects an authenticated identity the way the JWT middleware does.
func asUser(user *models.User) iris.Handler {
	return func(ctx iris.Context) {
		ctx.Values().Set("userID", user.ID)
		ctx.Values().Set("userRole", user.Role)
		ctx.Next()
	}
}

func newTestApp(register func(app *iris.Application)) *iris.Application {
	app := iris.New()
	app.Validator = validator.New()
	register(app)
	if err := app.Build(); err != nil {
		panic(err)
	}
	return app
}

func doJSON(app *iris.Application, method, target string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	return resp
}

func decodeBody(t *testing.T, resp *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding response %q: %v", resp.Body.String(), err)
	}
	return out
}

var testUserSeq int

func seedUser(t *testing.T, db *gorm.DB, role string) *models.User {
	t.Helper()
	testUserSeq++
	user := models.User{
		Name:     fmt.Sprintf("Test User %d", testUserSeq),
		Email:    fmt.Sprintf("user%d@example.com", testUserSeq),
		Password: "not-a-real-hash",
		Role:     role,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seeding user: %v", err)
	}
	return &user
}

func seedProperty(t *testing.T, db *gorm.DB, ownerID uint) *models.Property {
	t.Helper()
	testUserSeq++
	verified := true
	active := true
	property := models.Property{
		OwnerID:    ownerID,
		Name:       "Sunrise PG",
		Slug:       fmt.Sprintf("sunrise-pg-%d", testUserSeq),
		Type:       "pg",
		Gender:     "coed",
		Address:    "12 MG Road",
		City:       "Bengaluru",
		State:      "Karnataka",
		Pincode:    "560001",
		IsVerified: &verified,
		IsActive:   &active,
	}
	if err := db.Create(&property).Error; err != nil {
		t.Fatalf("seeding property: %v", err)
	}
	return &property
}

func seedRoom(t *testing.T, db *gorm.DB, propertyID uint, beds int, dailyPrice float64) *models.Room {
	t.Helper()
	active := true
	room := models.Room{
		PropertyID:    propertyID,
		Name:          "Room A",
		Type:          "double",
		DailyPrice:    dailyPrice,
		Capacity:      2,
		TotalBeds:     beds,
		AvailableBeds: beds,
		Active:        &active,
	}
	if err := db.Create(&room).Error; err != nil {
		t.Fatalf("seeding room: %v", err)
	}
	// AvailableRooms mirrors rooms with open beds
	available := 0
	if beds > 0 {
		available = 1
	}
	db.Model(&models.Property{}).Where("id = ?", propertyID).
		UpdateColumn("available_rooms", available)
	return &room
}

func seedBooking(t *testing.T, db *gorm.DB, userID, propertyID, roomID uint, status string) *models.Booking {
	t.Helper()
	testUserSeq++
	booking := models.Booking{
		UserID:        userID,
		PropertyID:    propertyID,
		RoomID:        roomID,
		Guests:        1,
		Status:        status,
		Amount:        models.BookingAmount{Subtotal: 7700, Tax: 924, Total: 8624},
		Payment:       models.BookingPayment{Status: models.PaymentStatusPending},
		InvoiceNumber: fmt.Sprintf("SE-TEST-%d", testUserSeq),
	}
	if err := db.Create(&booking).Error; err != nil {
		t.Fatalf("seeding booking: %v", err)
	}
	return &booking
}
