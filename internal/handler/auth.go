package handler

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/sleeping-barber/internal/config"
    "github.com/iliyamo/sleeping-barber/internal/middleware"
    "github.com/iliyamo/sleeping-barber/internal/utils"
)

// ownerSubject is the JWT subject of the single shop owner account.
const ownerSubject = "owner"

// AuthHandler issues owner tokens.  The shop has one owner whose bcrypt
// password hash comes from OWNER_PASSWORD_HASH.
type AuthHandler struct {
    Cfg config.Config
}

func NewAuthHandler(cfg config.Config) *AuthHandler {
    return &AuthHandler{Cfg: cfg}
}

type loginReq struct {
    Password string `json:"password"`
}

type tokenPart struct {
    Token   string    `json:"token"`
    Expires time.Time `json:"expires"`
}

// Login: verify the owner password and return an access token.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if req.Password == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "password required"})
    }
    if h.Cfg.OwnerPasswordHash == "" {
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "owner login disabled"})
    }
    if !utils.VerifyPassword(h.Cfg.OwnerPasswordHash, req.Password) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
    }

    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, ownerSubject, utils.RoleOwner, h.Cfg.AccessTTLMin)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "role":   utils.RoleOwner,
        "access": tokenPart{Token: access.Token, Expires: access.Exp},
    })
}

// Me: simple protected endpoint.
func (h *AuthHandler) Me(c echo.Context) error {
    return c.JSON(http.StatusOK, echo.Map{
        "subject": c.Get(middleware.SubjectKey),
        "role":    c.Get(middleware.RoleKey),
    })
}
