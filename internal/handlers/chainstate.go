package handlers

import (
	"net/http"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"

	"github.com/alienx5499/zyura-backend/internal/logger"
	"github.com/alienx5499/zyura-backend/internal/services"
)

type ChainStateHandler struct {
	log      *logger.Logger
	protocol services.ProtocolService
}

func NewChainStateHandler(log *logger.Logger, protocol services.ProtocolService) *ChainStateHandler {
	return &ChainStateHandler{
		log:      log.With("handler", "ChainStateHandler"),
		protocol: protocol,
	}
}

func parseID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return 0, false
	}
	return id, true
}

func (h *ChainStateHandler) GetConfig(c *gin.Context) {
	cfg, err := h.protocol.Config(c.Request.Context())
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, cfg)
}

func (h *ChainStateHandler) GetProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	product, err := h.protocol.Product(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, product)
}

func (h *ChainStateHandler) GetPolicy(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	policy, err := h.protocol.Policy(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, policy)
}

func (h *ChainStateHandler) GetLiquidityProvider(c *gin.Context) {
	provider, err := solana.PublicKeyFromBase58(c.Param("wallet"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	lp, err := h.protocol.LiquidityProvider(c.Request.Context(), provider)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, lp)
}
