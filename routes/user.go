package routes

import (
	"encoding/json"
	"strings"

	"linkup-server/models"
	"linkup-server/storage"
	"linkup-server/utils"

	"github.com/kataras/iris/v12"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slices"
	"gorm.io/datatypes"
)

type registerInput struct {
	Username string `json:"username" validate:"required,min=2,max=32"`
	Name     string `json:"name" validate:"required,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=256"`
}

type loginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) Register(ctx iris.Context) {
	var userInput registerInput
	err := ctx.ReadJSON(&userInput)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var existing models.User
	userExists, userExistsErr := getAndHandleUserExists(&existing, userInput.Email, userInput.Username)
	if userExistsErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if userExists == true {
		utils.JSONError(ctx, iris.StatusConflict, "conflict", "email or username already registered")
		return
	}

	hashedPassword, hashErr := hashAndSaltPassword(userInput.Password)
	if hashErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	newUser := models.User{
		Username: strings.ToLower(userInput.Username),
		Name:     userInput.Name,
		Email:    strings.ToLower(userInput.Email),
		Password: hashedPassword,
	}
	if err := storage.DB.Create(&newUser).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	returnUser(newUser, ctx)
}

func (h *Handler) Login(ctx iris.Context) {
	var userInput loginInput
	err := ctx.ReadJSON(&userInput)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	errorMsg := "invalid email or password"
	var existingUser models.User
	userExists, userExistsErr := getAndHandleUserExists(&existingUser, userInput.Email, "")
	if userExistsErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if userExists == false {
		utils.JSONError(ctx, iris.StatusUnauthorized, "credentials", errorMsg)
		return
	}

	passwordErr := bcrypt.CompareHashAndPassword([]byte(existingUser.Password), []byte(userInput.Password))
	if passwordErr != nil {
		utils.JSONError(ctx, iris.StatusUnauthorized, "credentials", errorMsg)
		return
	}

	returnUser(existingUser, ctx)
}

func (h *Handler) GetSettings(ctx iris.Context) {
	claims := utils.CurrentUser(ctx)
	if claims == nil {
		ctx.StopWithStatus(iris.StatusUnauthorized)
		return
	}
	ctx.JSON(h.Directory.GetSettings(claims.ID))
}

type updateSettingsInput struct {
	DMPrivacy           *string `json:"dmPrivacy" validate:"omitempty,oneof=everyone friends nobody"`
	HideReadReceipts    *bool   `json:"hideReadReceipts"`
	HideTyping          *bool   `json:"hideTyping"`
	ShowOnline          *bool   `json:"showOnline"`
	AllowsNotifications *bool   `json:"allowsNotifications"`
	PushToken           *string `json:"pushToken"`
}

// UpdateSettings applies a partial update; only the fields present in the
// request body change. pushToken appends a device token to the user's set.
func (h *Handler) UpdateSettings(ctx iris.Context) {
	claims := utils.CurrentUser(ctx)
	if claims == nil {
		ctx.StopWithStatus(iris.StatusUnauthorized)
		return
	}

	var input updateSettingsInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	settings := h.Directory.GetSettings(claims.ID)
	settings.UserID = claims.ID
	if input.DMPrivacy != nil {
		settings.DMPrivacy = *input.DMPrivacy
	}
	if input.HideReadReceipts != nil {
		settings.HideReadReceipts = *input.HideReadReceipts
	}
	if input.HideTyping != nil {
		settings.HideTyping = *input.HideTyping
	}
	if input.ShowOnline != nil {
		settings.ShowOnline = *input.ShowOnline
	}

	err := storage.DB.Where(models.UserSettings{UserID: claims.ID}).
		Assign(map[string]interface{}{
			"dm_privacy":         settings.DMPrivacy,
			"hide_read_receipts": settings.HideReadReceipts,
			"hide_typing":        settings.HideTyping,
			"show_online":        settings.ShowOnline,
		}).
		FirstOrCreate(&models.UserSettings{}).Error
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if input.AllowsNotifications != nil || input.PushToken != nil {
		if err := updateUserDevice(claims.ID, input.AllowsNotifications, input.PushToken); err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
	}

	ctx.JSON(settings)
}

func updateUserDevice(userID uint, allows *bool, pushToken *string) error {
	var user models.User
	if err := storage.DB.First(&user, userID).Error; err != nil {
		return err
	}

	updates := map[string]interface{}{}
	if allows != nil {
		updates["allows_notifications"] = *allows
	}
	if pushToken != nil && *pushToken != "" {
		var tokens []string
		if user.PushTokens != nil {
			json.Unmarshal(user.PushTokens, &tokens)
		}
		if !slices.Contains(tokens, *pushToken) {
			tokens = append(tokens, *pushToken)
		}
		raw, err := json.Marshal(tokens)
		if err != nil {
			return err
		}
		updates["push_tokens"] = datatypes.JSON(raw)
	}
	if len(updates) == 0 {
		return nil
	}
	return storage.DB.Model(&user).Updates(updates).Error
}

func getAndHandleUserExists(user *models.User, email, username string) (exists bool, err error) {
	query := storage.DB.Where("email = ?", strings.ToLower(email))
	if username != "" {
		query = storage.DB.Where("email = ? OR username = ?", strings.ToLower(email), strings.ToLower(username))
	}
	userExistsQuery := query.Limit(1).Find(&user)

	if userExistsQuery.Error != nil {
		return false, userExistsQuery.Error
	}

	userExists := userExistsQuery.RowsAffected > 0
	if userExists == true {
		return true, nil
	}
	return false, nil
}

func hashAndSaltPassword(password string) (hashedPassword string, err error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func returnUser(user models.User, ctx iris.Context) {
	tokenPair, tokenErr := utils.CreateTokenPair(user.ID, user.Role)
	if tokenErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{
		"ID":           user.ID,
		"username":     user.Username,
		"name":         user.Name,
		"email":        user.Email,
		"avatarURL":    user.AvatarURL,
		"accessToken":  string(tokenPair.AccessToken),
		"refreshToken": string(tokenPair.RefreshToken),
	})
}
