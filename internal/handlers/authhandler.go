package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/job-board/internal/dtos"
	"github.com/justsurfingit/job-board/internal/services"
)

type AuthHandler struct {
	Accounts *services.AccountService
	Log      *slog.Logger
}

func NewAuthHandler(accounts *services.AccountService, log *slog.Logger) *AuthHandler {
	return &AuthHandler{Accounts: accounts, Log: log}
}

func (h *AuthHandler) SignUp(c *gin.Context) {
	var req dtos.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c, h.Log, err)
		return
	}
	sess, err := h.Accounts.SignUp(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req dtos.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c, h.Log, err)
		return
	}
	sess, err := h.Accounts.Login(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}
