package routes

import (
	"encoding/json"
	"strings"

	"stayease-server/models"
	"stayease-server/storage"
	"stayease-server/utils"

	"github.com/kataras/iris/v12"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slices"
)

type RegisterUserInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=256"`
	PhoneNumber string `json:"phoneNumber" validate:"omitempty,max=20"`
	Role        string `json:"role" validate:"omitempty,oneof=user owner"`
}

func Register(ctx iris.Context) {
	var input RegisterUserInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	email := strings.ToLower(input.Email)
	var existing models.User
	if err := storage.DB.Where("email = ?", email).First(&existing).Error; err == nil {
		utils.CreateError(iris.StatusConflict, "Conflict", "email already registered", ctx)
		return
	}

	hashed, err := hashAndSaltPassword(input.Password)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	role := input.Role
	if role == "" {
		role = string(utils.RoleUser)
	}

	user := models.User{
		Name:        input.Name,
		Email:       email,
		Password:    hashed,
		PhoneNumber: input.PhoneNumber,
		Role:        role,
	}
	if err := storage.DB.Create(&user).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	returnUserWithTokens(user, ctx)
}

type LoginUserInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func Login(ctx iris.Context) {
	var input LoginUserInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var user models.User
	if err := storage.DB.Where("email = ?", strings.ToLower(input.Email)).First(&user).Error; err != nil {
		utils.CreateError(iris.StatusUnauthorized, "Unauthorized", "invalid credentials", ctx)
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)) != nil {
		utils.CreateError(iris.StatusUnauthorized, "Unauthorized", "invalid credentials", ctx)
		return
	}

	returnUserWithTokens(user, ctx)
}

// GetCurrentUser returns the authenticated account.
func GetCurrentUser(ctx iris.Context) {
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

	ctx.JSON(iris.Map{"success": true, "user": user})
}

type UpdateProfileInput struct {
	Name            string   `json:"name" validate:"omitempty,max=100"`
	PhoneNumber     string   `json:"phoneNumber" validate:"omitempty,max=20"`
	AvatarURL       string   `json:"avatarURL" validate:"omitempty,url"`
	BudgetMin       *int     `json:"budgetMin" validate:"omitempty,min=0"`
	BudgetMax       *int     `json:"budgetMax" validate:"omitempty,min=0"`
	PreferredCities []string `json:"preferredCities"`
	PreferredType   string   `json:"preferredType" validate:"omitempty,oneof=hostel pg budget-hotel co-living"`
}

func UpdateProfile(ctx iris.Context) {
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

	var input UpdateProfileInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if input.Name != "" {
		user.Name = input.Name
	}
	if input.PhoneNumber != "" {
		user.PhoneNumber = input.PhoneNumber
	}
	if input.AvatarURL != "" {
		user.AvatarURL = input.AvatarURL
	}
	if input.BudgetMin != nil {
		user.BudgetMin = *input.BudgetMin
	}
	if input.BudgetMax != nil {
		user.BudgetMax = *input.BudgetMax
	}
	if input.PreferredCities != nil {
		user.PreferredCities = packJSON(input.PreferredCities)
	}
	if input.PreferredType != "" {
		user.PreferredType = input.PreferredType
	}

	if err := storage.DB.Save(&user).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"success": true, "user": user})
}

type AlterSavedPropertiesInput struct {
	PropertyID uint `json:"propertyId" validate:"required"`
}

// AlterSavedProperties toggles a property in the user's saved list.
func AlterSavedProperties(ctx iris.Context) {
	userID, _, ok := utils.ContextUser(ctx)
	if !ok {
		ctx.StatusCode(iris.StatusUnauthorized)
		ctx.JSON(iris.Map{"message": "User not authenticated"})
		return
	}

	var input AlterSavedPropertiesInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var user models.User
	if err := storage.DB.First(&user, userID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	var saved []uint
	if user.SavedProperties != nil {
		json.Unmarshal(user.SavedProperties, &saved)
	}

	if idx := slices.Index(saved, input.PropertyID); idx >= 0 {
		saved = slices.Delete(saved, idx, idx+1)
	} else {
		saved = append(saved, input.PropertyID)
	}

	raw, err := json.Marshal(saved)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	user.SavedProperties = raw

	if err := storage.DB.Save(&user).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"success": true, "savedProperties": saved})
}

func hashAndSaltPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func returnUserWithTokens(user models.User, ctx iris.Context) {
	tokenPair, err := utils.CreateTokenPair(user.ID)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{
		"success":      true,
		"user":         user,
		"accessToken":  string(tokenPair.AccessToken),
		"refreshToken": string(tokenPair.RefreshToken),
	})
}
