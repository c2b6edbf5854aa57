package main

import (
	"fmt"
	"log"
	"os"
	"stayease-server/routes"
	"stayease-server/storage"
	"stayease-server/utils"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

func main() {
	// Only load .env in development
	if os.Getenv("RENDER") == "" {
		godotenv.Load()
	}

	storage.InitializeDB()
	storage.InitializeRedis()

	app := iris.New()
	app.Validator = validator.New()

	// CORS configuration
	app.AllowMethods(iris.MethodOptions)
	app.UseRouter(func(ctx iris.Context) {
		ctx.Header("Access-Control-Allow-Origin", ctx.GetHeader("Origin"))
		ctx.Header("Vary", "Origin")
		ctx.Header("Access-Control-Allow-Credentials", "true")
		ctx.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With")
		ctx.Header("Access-Control-Allow-Methods", "GET,POST,PATCH,PUT,DELETE,OPTIONS")
		if ctx.Method() == iris.MethodOptions {
			ctx.StatusCode(iris.StatusNoContent)
			return
		}
		ctx.Next()
	})

	app.Use(iris.Compression)

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifier.WithDefaultBlocklist()
	auth := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	refreshTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("REFRESH_TOKEN_SECRET")))
	refreshTokenVerifier.WithDefaultBlocklist()
	refreshTokenVerifierMiddleware := refreshTokenVerifier.Verify(func() interface{} {
		return new(jwt.Claims)
	})

	refreshTokenVerifier.Extractors = append(refreshTokenVerifier.Extractors, func(ctx iris.Context) string {
		var tokenInput utils.RefreshTokenInput
		err := ctx.ReadJSON(&tokenInput)
		if err != nil {
			return ""
		}
		return tokenInput.RefreshToken
	})

	withUser := utils.UserIDFromTokenMiddleware
	ownerOnly := utils.RequireRoles(utils.RoleOwner, utils.RoleAdmin)

	app.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"status": "ok"})
	})

	user := app.Party("/api/user")
	{
		user.Post("/register", routes.Register)
		user.Post("/login", routes.Login)
		user.Get("/me", auth, withUser, routes.GetCurrentUser)
		user.Patch("/profile", auth, withUser, routes.UpdateProfile)
		user.Patch("/properties/saved", auth, withUser, routes.AlterSavedProperties)
	}

	property := app.Party("/api/property")
	{
		property.Get("/search", routes.SearchProperties)
		property.Get("/featured", routes.GetFeaturedProperties)
		property.Get("/mine", auth, withUser, ownerOnly, routes.GetMyProperties)
		property.Get("/{id:uint}", routes.GetProperty)
		property.Get("/{id:uint}/rooms", routes.ListRooms)
		property.Get("/{id:uint}/reviews", routes.ListPropertyReviews)
		property.Post("/", auth, withUser, ownerOnly, routes.CreateProperty)
		property.Patch("/{id:uint}", auth, withUser, routes.UpdateProperty)
		property.Delete("/{id:uint}", auth, withUser, routes.DeleteProperty)
		property.Post("/{id:uint}/rooms", auth, withUser, routes.AddRoom)
		property.Get("/{id:uint}/bookings", auth, withUser, routes.GetPropertyBookings)
		property.Get("/{id:uint}/complaints", auth, withUser, routes.GetPropertyComplaints)
	}

	rooms := app.Party("/api/rooms")
	{
		rooms.Patch("/{id:uint}", auth, withUser, routes.UpdateRoom)
		rooms.Delete("/{id:uint}", auth, withUser, routes.DeleteRoom)
	}

	bookings := app.Party("/api/bookings", auth, withUser)
	{
		bookings.Post("/", routes.CreateBooking)
		bookings.Get("/mine", routes.GetMyBookings)
		bookings.Get("/{id:uint}", routes.GetBooking)
		bookings.Post("/{id:uint}/cancel", routes.CancelBooking)
		bookings.Patch("/{id:uint}/status", routes.UpdateBookingStatus)
	}

	payments := app.Party("/api/payments")
	{
		payments.Post("/order", auth, withUser, routes.CreatePaymentOrder)
		payments.Post("/verify", auth, withUser, routes.VerifyPayment)
		payments.Post("/webhook", routes.PaymentWebhook)
	}

	reviews := app.Party("/api/reviews", auth, withUser)
	{
		reviews.Post("/", routes.CreateReview)
		reviews.Delete("/{id:uint}", routes.DeleteReview)
	}

	complaints := app.Party("/api/complaints", auth, withUser)
	{
		complaints.Post("/", routes.CreateComplaint)
		complaints.Get("/mine", routes.GetMyComplaints)
		complaints.Patch("/{id:uint}", routes.UpdateComplaint)
	}

	ai := app.Party("/api/ai")
	{
		ai.Post("/chat", routes.Chat)
		ai.Get("/recommendations", auth, withUser, routes.Recommendations)
		ai.Post("/predict-demand", auth, withUser, ownerOnly, routes.PredictDemand)
	}

	admin := app.Party("/api/admin", auth, withUser, utils.AdminOnlyMiddleware)
	{
		admin.Get("/stats", routes.AdminStats)
		admin.Get("/users", routes.AdminListUsers)
		admin.Patch("/users/{id:uint}/role", routes.AdminChangeUserRole)
		admin.Get("/properties", routes.AdminListProperties)
		admin.Patch("/properties/{id:uint}/verify", routes.AdminVerifyProperty)
		admin.Get("/bookings", routes.ListBookings)
		admin.Get("/reviews", routes.AdminListReviews)
		admin.Patch("/reviews/{id:uint}/flag", routes.FlagReview)
		admin.Get("/complaints", routes.AdminListComplaints)
	}

	app.Post("/api/refresh", refreshTokenVerifierMiddleware, utils.RefreshToken)

	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}
	addr := "0.0.0.0:" + port

	fmt.Printf("🚀 Server starting on %s\n", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("❌ Server failed: %v", err)
	}
}
