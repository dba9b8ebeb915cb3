package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/smartshopai/smartshop/internal/api/middleware"
	"github.com/smartshopai/smartshop/internal/models"
	"github.com/smartshopai/smartshop/internal/utils"
)

const tokenTTL = 24 * time.Hour

// AuthHandler implements the demo sign-in: any email plus any password
// is accepted and the display name is derived from the email local
// part. There is no account store.
type AuthHandler struct{}

func NewAuthHandler() *AuthHandler { return &AuthHandler{} }

type SignInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type SignInResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func (h *AuthHandler) SignIn(c *gin.Context) {
	const op = "AuthHandler.SignIn"

	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid request body", err))
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	local, _, found := strings.Cut(email, "@")
	if !found || local == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid email", nil))
		return
	}

	user := models.User{
		ID:    email,
		Name:  displayName(local),
		Email: email,
	}

	token, err := middleware.SignToken(user.ID, user.Name, user.Email, tokenTTL)
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, op, "cannot issue token", err))
		return
	}

	c.JSON(http.StatusOK, SignInResponse{Token: token, User: user})
}

// displayName turns an email local part into a readable name:
// "jane.doe" becomes "Jane Doe".
func displayName(local string) string {
	words := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	if len(words) == 0 {
		return local
	}
	return strings.Join(words, " ")
}
