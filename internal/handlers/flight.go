package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alienx5499/zyura-backend/internal/logger"
	"github.com/alienx5499/zyura-backend/internal/services"
)

var errSettlementDisabled = errors.New("settlement disabled: no admin key configured")

type FlightHandler struct {
	log     *logger.Logger
	flights services.FlightService
	payouts services.PayoutService
}

func NewFlightHandler(log *logger.Logger, flights services.FlightService, payouts services.PayoutService) *FlightHandler {
	return &FlightHandler{
		log:     log.With("handler", "FlightHandler"),
		flights: flights,
		payouts: payouts,
	}
}

// Register creates or extends a flight record with PNRs.
func (h *FlightHandler) Register(c *gin.Context) {
	var req services.RegisterFlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	record, err := h.flights.Register(c.Request.Context(), req)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"record": record})
}

// Get returns a flight record with on-chain policy status hints.
func (h *FlightHandler) Get(c *gin.Context) {
	view, err := h.flights.Get(c.Request.Context(), c.Param("number"), c.Query("date"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, view)
}

type updateDepartureRequest struct {
	Date                string `json:"date"`
	ActualDepartureUnix int64  `json:"actual_departure_unix" binding:"required"`
	Settle              bool   `json:"settle"`
}

// UpdateDeparture records the observed departure, and optionally settles
// eligible policies in the same request.
func (h *FlightHandler) UpdateDeparture(c *gin.Context) {
	var req updateDepartureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	number := c.Param("number")
	record, err := h.flights.UpdateDeparture(c.Request.Context(), number, req.Date, req.ActualDepartureUnix)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	resp := gin.H{"record": record}
	if req.Settle {
		if h.payouts == nil {
			resp["settlement_error"] = "settlement disabled: no admin key configured"
			RespondOK(c, resp)
			return
		}
		eval, err := h.payouts.EvaluateFlight(c.Request.Context(), number, req.Date)
		if err != nil {
			h.log.Error("Settlement after departure update failed", "flight", number, "error", err)
			resp["settlement_error"] = err.Error()
		} else {
			resp["evaluation"] = eval
		}
	}
	RespondOK(c, resp)
}

// Settle evaluates the flight and pays every eligible policy.
func (h *FlightHandler) Settle(c *gin.Context) {
	if h.payouts == nil {
		RespondError(c, http.StatusServiceUnavailable, "settlement_disabled", errSettlementDisabled)
		return
	}
	eval, err := h.payouts.EvaluateFlight(c.Request.Context(), c.Param("number"), c.Query("date"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, eval)
}
