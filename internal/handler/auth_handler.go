package handler

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/medilog/internal/db"
	"github.com/medilog/internal/service"
	"go.uber.org/zap"
)

const (
	sessionUserIDKey   = "user_id"
	sessionUsernameKey = "username"
	userIDContextKey   = "__user_id"
)

type signupRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	DisplayName string `json:"display_name" binding:"max=100"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Signup 注册新用户并直接建立会话
func (a *API) Signup(c *gin.Context) {
	var payload signupRequest
	if !bindJSON(c, &payload, "이메일과 6자 이상의 비밀번호를 입력해 주세요") {
		return
	}

	user, err := a.users.Register(service.SignupInput{
		Email:       payload.Email,
		Password:    payload.Password,
		DisplayName: payload.DisplayName,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserExists):
			respondError(c, http.StatusConflict, "이미 가입된 이메일입니다")
		case errors.Is(err, service.ErrInvalidSignup):
			respondError(c, http.StatusBadRequest, "이메일과 6자 이상의 비밀번호를 입력해 주세요")
		default:
			c.Error(err)
			respondError(c, http.StatusInternalServerError, "회원가입에 실패했습니다")
		}
		return
	}

	if !startSession(c, user) {
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": userPayload(*user)})
}

// Login 校验账号密码并写入会话
func (a *API) Login(c *gin.Context) {
	var payload loginRequest
	if !bindJSON(c, &payload, "이메일과 비밀번호를 입력해 주세요") {
		return
	}

	user, err := a.users.Authenticate(payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			respondError(c, http.StatusUnauthorized, "이메일 또는 비밀번호가 올바르지 않습니다")
			return
		}
		c.Error(err)
		respondError(c, http.StatusInternalServerError, "로그인에 실패했습니다")
		return
	}

	if !startSession(c, user) {
		return
	}
	zap.L().Info("user logged in", zap.Uint("user_id", user.ID))
	c.JSON(http.StatusOK, gin.H{"user": userPayload(*user)})
}

// Logout 清空会话
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		c.Error(err)
	}
	c.JSON(http.StatusOK, gin.H{"message": "로그아웃되었습니다"})
}

// Me 返回当前登录用户
func (a *API) Me(c *gin.Context) {
	user, err := a.users.Get(currentUserID(c))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			respondError(c, http.StatusUnauthorized, "로그인이 필요합니다")
			return
		}
		respondError(c, http.StatusInternalServerError, "사용자 정보를 불러오지 못했습니다")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": userPayload(*user)})
}

// AuthRequired 是 API 的认证中间件，未登录时返回 401
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := sessionUserID(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, "로그인이 필요합니다")
			c.Abort()
			return
		}
		c.Set(userIDContextKey, userID)
		c.Next()
	}
}

// AdminRequired 限制全局设置只能由管理员修改，需挂在 AuthRequired 之后
func (a *API) AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := a.users.Get(currentUserID(c))
		if err != nil {
			if errors.Is(err, service.ErrUserNotFound) {
				respondError(c, http.StatusUnauthorized, "로그인이 필요합니다")
			} else {
				c.Error(err)
				respondError(c, http.StatusInternalServerError, "사용자 정보를 불러오지 못했습니다")
			}
			c.Abort()
			return
		}
		if !user.IsAdmin {
			zap.L().Warn("non-admin settings access", zap.Uint("user_id", user.ID), zap.String("path", c.FullPath()))
			respondError(c, http.StatusForbidden, "관리자만 사용할 수 있습니다")
			c.Abort()
			return
		}
		c.Next()
	}
}

func startSession(c *gin.Context, user *db.User) bool {
	session := sessions.Default(c)
	session.Set(sessionUserIDKey, user.ID)
	session.Set(sessionUsernameKey, user.Username)
	if err := session.Save(); err != nil {
		c.Error(err)
		respondError(c, http.StatusInternalServerError, "세션 저장에 실패했습니다")
		return false
	}
	return true
}

func sessionUserID(c *gin.Context) (uint, bool) {
	if _, exists := c.Get(sessions.DefaultKey); !exists {
		return 0, false
	}
	session := sessions.Default(c)
	switch value := session.Get(sessionUserIDKey).(type) {
	case uint:
		return value, value != 0
	case int:
		return uint(value), value > 0
	default:
		return 0, false
	}
}

// currentUserID 读取 AuthRequired 写入的用户 ID，未经过中间件时回退到会话
func currentUserID(c *gin.Context) uint {
	if value, exists := c.Get(userIDContextKey); exists {
		if id, ok := value.(uint); ok {
			return id
		}
	}
	id, _ := sessionUserID(c)
	return id
}

func userPayload(user db.User) gin.H {
	return gin.H{
		"id":           user.ID,
		"email":        user.Username,
		"display_name": user.DisplayName,
		"is_admin":     user.IsAdmin,
	}
}
