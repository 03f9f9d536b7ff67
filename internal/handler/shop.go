package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sleeping-barber/internal/barbershop"
	"github.com/iliyamo/sleeping-barber/internal/middleware"
	"github.com/iliyamo/sleeping-barber/internal/model"
	"github.com/iliyamo/sleeping-barber/internal/repository"
)

// ShopHandler exposes the barbershop over HTTP.  Base is the context the
// barber loop runs under once an owner opens the shop; it outlives any
// single request.
type ShopHandler struct {
	Shop *barbershop.Shop
	Seq  repository.Sequence
	Base context.Context
}

// NewShopHandler constructs a ShopHandler.  All dependencies must be non-nil.
func NewShopHandler(shop *barbershop.Shop, seq repository.Sequence, base context.Context) *ShopHandler {
	if shop == nil || seq == nil || base == nil {
		panic("nil dependency passed to NewShopHandler")
	}
	return &ShopHandler{Shop: shop, Seq: seq, Base: base}
}

type arrivalReq struct {
	ClientID *uint64 `json:"client_id"` // optional; assigned from the arrival sequence when absent
}

type arrivalResp struct {
	ClientID model.ClientID `json:"client_id"`
	Outcome  model.Outcome  `json:"outcome"`
	Waiting  int            `json:"waiting"`
}

// Arrive handles POST /v1/arrivals.  A client that finds a free waiting
// seat is admitted with 201 Created; a client that finds every seat taken
// balks and the response is 200 OK with outcome BALKED.  The request never
// waits for a seat.
func (h *ShopHandler) Arrive(c echo.Context) error {
	var req arrivalReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	var id model.ClientID
	if req.ClientID != nil {
		if *req.ClientID == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "client_id must be positive"})
		}
		id = model.ClientID(*req.ClientID)
	} else {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		next, err := h.Seq.Next(ctx)
		if err != nil {
			if errors.Is(err, repository.ErrSequenceUnavailable) {
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "arrival sequence unavailable"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to number client"})
		}
		id = next
	}

	outcome := h.Shop.SubmitClientArrival(id)
	resp := arrivalResp{ClientID: id, Outcome: outcome, Waiting: h.Shop.Room().Len()}
	if outcome == model.Balked {
		return c.JSON(http.StatusOK, resp)
	}
	return c.JSON(http.StatusCreated, resp)
}

// Snapshot handles GET /v1/shop.
func (h *ShopHandler) Snapshot(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Shop.Snapshot())
}

// StartBarber handles POST /v1/barber/start.  The barber loop can only be
// started once per process; later calls get 409 Conflict.
func (h *ShopHandler) StartBarber(c echo.Context) error {
	if err := h.Shop.SpawnConsumerLoop(h.Base); err != nil {
		if errors.Is(err, barbershop.ErrAlreadyRunning) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "barber already started"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start barber"})
	}
	c.Logger().Infof("barber started by %v", c.Get(middleware.SubjectKey))
	return c.JSON(http.StatusAccepted, echo.Map{"status": "started"})
}

// Health is used by load balancers.  It reports 200 while the process is
// up, along with whether the barber loop is running.
func (h *ShopHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "barber_running": h.Shop.Snapshot().Running})
}
