package routes

import (
	"fmt"
	"net/http"
	"sync"
	"testing"

	"stayease-server/models"

	"github.com/kataras/iris/v12"
)

func bookingApp(user *models.User) *iris.Application {
	return newTestApp(func(app *iris.Application) {
		bookings := app.Party("/api/bookings", asUser(user))
		{
			bookings.Post("/", CreateBooking)
			bookings.Get("/mine", GetMyBookings)
			bookings.Get("/{id:uint}", GetBooking)
			bookings.Post("/{id:uint}/cancel", CancelBooking)
			bookings.Patch("/{id:uint}/status", UpdateBookingStatus)
		}
	})
}

func TestCreateBookingComputesAmountAndTakesBed(t *testing.T) {
	db := setupTestDB(t)
	guest := seedUser(t, db, "user")
	owner := seedUser(t, db, "owner")
	property := seedProperty(t, db, owner.ID)
	room := seedRoom(t, db, property.ID, 2, 550)

	app := bookingApp(guest)
	resp := doJSON(app, http.MethodPost, "/api/bookings", iris.Map{
		"propertyId": property.ID,
		"roomId":     room.ID,
		"checkIn":    "2025-03-01",
		"checkOut":   "2025-03-15",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var booking models.Booking
	if err := db.First(&booking, "user_id = ?", guest.ID).Error; err != nil {
		t.Fatalf("booking not persisted: %v", err)
	}
	if booking.Amount.Subtotal != 7700 || booking.Amount.Tax != 924 || booking.Amount.Total != 8624 {
		t.Fatalf("unexpected amount %+v", booking.Amount)
	}
	if booking.Status != models.BookingStatusPending {
		t.Fatalf("expected pending status, got %q", booking.Status)
	}
	if booking.InvoiceNumber == "" {
		t.Fatal("expected an invoice number")
	}

	var after models.Room
	db.First(&after, room.ID)
	if after.AvailableBeds != 1 {
		t.Fatalf("expected 1 bed left, got %d", after.AvailableBeds)
	}
}

func TestGetBookingAuthorization(t *testing.T) {
	db := setupTestDB(t)
	guest := seedUser(t, db, "user")
	stranger := seedUser(t, db, "user")
	admin := seedUser(t, db, "admin")
	owner := seedUser(t, db, "owner")
	property := seedProperty(t, db, owner.ID)
	room := seedRoom(t, db, property.ID, 2, 550)
	booking := seedBooking(t, db, guest.ID, property.ID, room.ID, models.BookingStatusPending)

	url := fmt.Sprintf("/api/bookings/%d", booking.ID)

	for _, tc := range []struct {
		name string
		user *models.User
		want int
	}{
		{"booking user", guest, http.StatusOK},
		{"property owner", owner, http.StatusOK},
		{"admin", admin, http.StatusOK},
		{"stranger", stranger, http.StatusForbidden},
	} {
		resp := doJSON(bookingApp(tc.user), http.MethodGet, url, nil)
		if resp.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d: %s", tc.name, tc.want, resp.Code, resp.Body.String())
		}
	}

	if resp := doJSON(bookingApp(guest), http.MethodGet, "/api/bookings/99999", nil); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing booking, got %d", resp.Code)
	}

	resp := doJSON(bookingApp(guest), http.MethodGet, url, nil)
	body := decodeBody(t, resp)
	got := body["booking"].(map[string]interface{})
	if got["property"].(map[string]interface{})["name"] != "Sunrise PG" {
		t.Fatal("expected property populated on the booking")
	}
}

func TestCreateBookingRejectsSoldOutRoom(t *testing.T) {
	db := setupTestDB(t)
	guest := seedUser(t, db, "user")
	owner := seedUser(t, db, "owner")
	property := seedProperty(t, db, owner.ID)
	room := seedRoom(t, db, property.ID, 1, 550)

	app := bookingApp(guest)
	body := iris.Map{
		"propertyId": property.ID,
		"roomId":     room.ID,
		"checkIn":    "2025-03-01",
		"checkOut":   "2025-03-02",
	}

	if resp := doJSON(app, http.MethodPost, "/api/bookings", body); resp.Code != http.StatusCreated {
		t.Fatalf("first booking should succeed, got %d", resp.Code)
	}
	if resp := doJSON(app, http.MethodPost, "/api/bookings", body); resp.Code != http.StatusBadRequest {
		t.Fatalf("second booking should fail with 400, got %d", resp.Code)
	}

	var property2 models.Property
	db.First(&property2, property.ID)
	if property2.AvailableRooms != 0 {
		t.Fatalf("expected 0 available rooms, got %d", property2.AvailableRooms)
	}
}

func TestConcurrentBookingsLastBed(t *testing.T) {
	db := setupTestDB(t)
	owner := seedUser(t, db, "owner")
	property := seedProperty(t, db, owner.ID)
	room := seedRoom(t, db, property.ID, 1, 600)

	const attempts = 8
	codes := make([]int, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		guest := seedUser(t, db, "user")
		app := bookingApp(guest)
		wg.Add(1)
		go func(i int, app *iris.Application) {
			defer wg.Done()
			resp := doJSON(app, http.MethodPost, "/api/bookings", iris.Map{
				"propertyId": property.ID,
				"roomId":     room.ID,
				"checkIn":    "2025-03-01",
				"checkOut":   "2025-03-05",
			})
			codes[i] = resp.Code
		}(i, app)
	}
	wg.Wait()

	created := 0
	for _, code := range codes {
		if code == http.StatusCreated {
			created++
		}
	}
	if created != 1 {
		t.Fatalf("expected exactly 1 booking to win the last bed, got %d (codes %v)", created, codes)
	}

	var count int64
	db.Model(&models.Booking{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 persisted booking, got %d", count)
	}
	var after models.Room
	db.First(&after, room.ID)
	if after.AvailableBeds != 0 {
		t.Fatalf("expected 0 beds left, got %d", after.AvailableBeds)
	}
}

func TestCancelBookingRestoresBed(t *testing.T) {
	db := setupTestDB(t)
	guest := seedUser(t, db, "user")
	owner := seedUser(t, db, "owner")
	property := seedProperty(t, db, owner.ID)
	room := seedRoom(t, db, property.ID, 1, 550)

	app := bookingApp(guest)
	resp := doJSON(app, http.MethodPost, "/api/bookings", iris.Map{
		"propertyId": property.ID,
		"roomId":     room.ID,
		"checkIn":    "2025-03-01",
		"checkOut":   "2025-03-03",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}

	var booking models.Booking
	db.First(&booking, "user_id = ?", guest.ID)

	cancelURL := fmt.Sprintf("/api/bookings/%d/cancel", booking.ID)
	if resp := doJSON(app, http.MethodPost, cancelURL, nil); resp.Code != http.StatusOK {
		t.Fatalf("cancel failed with %d: %s", resp.Code, resp.Body.String())
	}

	var after models.Room
	db.First(&after, room.ID)
	if after.AvailableBeds != 1 {
		t.Fatalf("expected bed restored, got %d", after.AvailableBeds)
	}
	var propertyAfter models.Property
	db.First(&propertyAfter, property.ID)
	if propertyAfter.AvailableRooms != 1 {
		t.Fatalf("expected available rooms restored, got %d", propertyAfter.AvailableRooms)
	}

	// Cancelling twice must not restore a second bed.
	if resp := doJSON(app, http.MethodPost, cancelURL, nil); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on double cancel, got %d", resp.Code)
	}
	db.First(&after, room.ID)
	if after.AvailableBeds != 1 {
		t.Fatalf("double cancel changed beds to %d", after.AvailableBeds)
	}
}

func TestUpdateBookingStatusTransitions(t *testing.T) {
	db := setupTestDB(t)
	guest := seedUser(t, db, "user")
	owner := seedUser(t, db, "owner")
	property := seedProperty(t, db, owner.ID)
	room := seedRoom(t, db, property.ID, 2, 500)
	booking := seedBooking(t, db, guest.ID, property.ID, room.ID, models.BookingStatusPending)

	app := bookingApp(owner)
	statusURL := fmt.Sprintf("/api/bookings/%d/status", booking.ID)

	// pending cannot jump straight to checked-in
	if resp := doJSON(app, http.MethodPatch, statusURL, iris.Map{"status": "checked-in"}); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for pending->checked-in, got %d", resp.Code)
	}

	for _, next := range []string{"confirmed", "checked-in", "checked-out"} {
		if resp := doJSON(app, http.MethodPatch, statusURL, iris.Map{"status": next}); resp.Code != http.StatusOK {
			t.Fatalf("transition to %s failed with %d: %s", next, resp.Code, resp.Body.String())
		}
	}

	// checked-out is terminal
	if resp := doJSON(app, http.MethodPatch, statusURL, iris.Map{"status": "cancelled"}); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for checked-out->cancelled, got %d", resp.Code)
	}
}

func TestUpdateBookingStatusForbiddenForStranger(t *testing.T) {
	db := setupTestDB(t)
	guest := seedUser(t, db, "user")
	owner := seedUser(t, db, "owner")
	stranger := seedUser(t, db, "owner")
	property := seedProperty(t, db, owner.ID)
	room := seedRoom(t, db, property.ID, 2, 500)
	booking := seedBooking(t, db, guest.ID, property.ID, room.ID, models.BookingStatusPending)

	app := bookingApp(stranger)
	statusURL := fmt.Sprintf("/api/bookings/%d/status", booking.ID)
	if resp := doJSON(app, http.MethodPatch, statusURL, iris.Map{"status": "confirmed"}); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-owner, got %d", resp.Code)
	}
}
