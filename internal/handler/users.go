package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/taskapp/backend/internal/model"
	"github.com/taskapp/backend/internal/service"
)

// maxAvatarBytes matches the upload limit of the original image endpoint.
const maxAvatarBytes = 1_000_000

type UserHandler struct {
	svc *service.UserService
}

func NewUserHandler(svc *service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// Register godoc
// @Summary Create an account
// @Description Signs up a new user and mints the first session token.
// @Tags users
// @Accept json
// @Produce json
// @Param request body model.CreateUserRequest true "Name, email and password"
// @Success 201 {object} model.SessionResponse
// @Failure 400 {object} model.ErrorResponse
// @Router /users [post]
func (h *UserHandler) Register(c *gin.Context) {
	var req model.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, token, err := h.svc.Signup(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, model.SessionResponse{User: user.Public(), Token: token})
}

// Login godoc
// @Summary Login
// @Description Unknown email and wrong password answer with the same body.
// @Tags users
// @Accept json
// @Produce json
// @Param request body model.LoginRequest true "Email and password"
// @Success 200 {object} model.SessionResponse
// @Failure 400 {object} model.ErrorResponse
// @Router /users/login [post]
func (h *UserHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, token, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		// Login-credential failures are 400, not 401.
		if errors.Is(err, service.ErrAuth) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.SessionResponse{User: user.Public(), Token: token})
}

// Logout godoc
// @Summary Logout the current session
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.StatusResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /users/logout [post]
func (h *UserHandler) Logout(c *gin.Context) {
	user := GetAuthUser(c)
	if err := h.svc.Logout(c.Request.Context(), user.ID, GetAuthToken(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.StatusResponse{Status: "logged_out"})
}

// LogoutAll godoc
// @Summary Logout every session
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.StatusResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /users/logoutAll [post]
func (h *UserHandler) LogoutAll(c *gin.Context) {
	user := GetAuthUser(c)
	if err := h.svc.LogoutAll(c.Request.Context(), user.ID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.StatusResponse{Status: "logged_out_all"})
}

// Me godoc
// @Summary Get the caller's profile
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.PublicUser
// @Failure 401 {object} model.ErrorResponse
// @Router /users/me [get]
func (h *UserHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, GetAuthUser(c).Public())
}

// UpdateMe godoc
// @Summary Update the caller's profile
// @Description Partial update; any key outside the whitelist rejects the whole update.
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.PublicUser
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /users/me [patch]
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var updates map[string]any
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, err := h.svc.Update(c.Request.Context(), GetAuthUser(c).ID, updates)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, user.Public())
}

// DeleteMe godoc
// @Summary Delete the caller's account
// @Description Deletes the caller's tasks, then the account record.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.PublicUser
// @Failure 401 {object} model.ErrorResponse
// @Router /users/me [delete]
func (h *UserHandler) DeleteMe(c *gin.Context) {
	user := GetAuthUser(c)
	if err := h.svc.Delete(c.Request.Context(), user); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user.Public())
}

// UploadAvatar godoc
// @Summary Upload the caller's avatar
// @Description Accepts a jpeg/jpg/png up to 1,000,000 bytes; stored as 200x200 PNG.
// @Tags users
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param avatar formData file true "Avatar image"
// @Success 200 {object} model.StatusResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /users/me/avatar [post]
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	file, err := c.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "avatar file is required"})
		return
	}

	if file.Size > maxAvatarBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "avatar must be at most 1000000 bytes"})
		return
	}
	if !allowedImageType(file.Header.Get("Content-Type"), file.Filename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "avatar must be jpeg, jpg, or png"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, maxAvatarBytes+1))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}
	if len(data) > maxAvatarBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "avatar must be at most 1000000 bytes"})
		return
	}

	if err := h.svc.SetAvatar(c.Request.Context(), GetAuthUser(c).ID, data); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.StatusResponse{Status: "avatar_uploaded"})
}

// DeleteAvatar godoc
// @Summary Clear the caller's avatar
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.StatusResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /users/me/avatar [delete]
func (h *UserHandler) DeleteAvatar(c *gin.Context) {
	if err := h.svc.ClearAvatar(c.Request.Context(), GetAuthUser(c).ID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.StatusResponse{Status: "avatar_deleted"})
}

// GetAvatar godoc
// @Summary Get a user's avatar
// @Description Public; serves the stored 200x200 PNG.
// @Tags users
// @Produce png
// @Param id path string true "User ID"
// @Success 200 {file} binary
// @Failure 404 {object} model.ErrorResponse
// @Router /users/{id}/avatar [get]
func (h *UserHandler) GetAvatar(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Avatar not found"})
		return
	}

	data, err := h.svc.Avatar(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Data(http.StatusOK, "image/png", data)
}

func allowedImageType(contentType, filename string) bool {
	switch contentType {
	case "image/jpeg", "image/jpg", "image/png":
		return true
	}
	lower := strings.ToLower(filename)
	return strings.HasSuffix(lower, ".jpeg") ||
		strings.HasSuffix(lower, ".jpg") ||
		strings.HasSuffix(lower, ".png")
}
