package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"

	"github.com/rovshanmuradov/launchpad/internal/curve"
	"github.com/rovshanmuradov/launchpad/internal/dex/pumpswap"
	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/engine"
	"github.com/rovshanmuradov/launchpad/internal/fixedpoint"
	"github.com/rovshanmuradov/launchpad/internal/registry"
	"github.com/rovshanmuradov/launchpad/internal/utils/units"
)

// Service is the engine surface the HTTP layer needs.
type Service interface {
	Create(ctx context.Context, req registry.CreateRequest) (domain.CreateReceipt, error)
	Buy(ctx context.Context, req engine.BuyRequest) (*domain.Receipt, error)
	Sell(ctx context.Context, req engine.SellRequest) (*domain.Receipt, error)
	Quote(ctx context.Context, id domain.AssetID, amount fixedpoint.Amount, dir curve.Direction) (engine.Quote, error)
	Get(ctx context.Context, id domain.AssetID) (domain.AssetView, error)
	List(ctx context.Context) ([]domain.AssetView, error)
	Migrate(ctx context.Context, id domain.AssetID) (*domain.Migration, error)
	BalanceOf(ctx context.Context, id domain.AssetID, holder solana.PublicKey) (fixedpoint.Amount, error)
	Trades(ctx context.Context, id domain.AssetID) ([]*domain.Receipt, error)
	Treasury(ctx context.Context) (domain.Treasury, error)
}

// PoolReader exposes pools of the in-process market.
type PoolReader interface {
	Pool(addr solana.PublicKey) (pumpswap.PoolInfo, error)
}

var _ Service = (*engine.Engine)(nil)

type LaunchHandler struct {
	service  Service
	pools    PoolReader
	decimals uint8
}

func NewLaunchHandler(service Service, pools PoolReader, decimals uint8) *LaunchHandler {
	return &LaunchHandler{service: service, pools: pools, decimals: decimals}
}

func (h *LaunchHandler) RegisterRoutes(router gin.IRouter) {
	router.POST("/assets", h.createAsset)
	router.GET("/assets", h.listAssets)
	router.GET("/assets/:id", h.getAsset)
	router.GET("/assets/:id/quote", h.quote)
	router.POST("/assets/:id/buy", h.buy)
	router.POST("/assets/:id/sell", h.sell)
	router.POST("/assets/:id/migrate", h.migrate)
	router.GET("/assets/:id/trades", h.trades)
	router.GET("/assets/:id/balances/:holder", h.balance)
	router.GET("/treasury", h.treasury)
	if h.pools != nil {
		router.GET("/pools/:address", h.pool)
	}
}

type createAssetRequest struct {
	Creator     solana.PublicKey  `json:"creator" binding:"required"`
	Name        string            `json:"name" binding:"required"`
	Symbol      string            `json:"symbol" binding:"required"`
	Description string            `json:"description"`
	Image       string            `json:"image"`
	Attached    fixedpoint.Amount `json:"attached"`
}

type buyRequest struct {
	Buyer    solana.PublicKey  `json:"buyer" binding:"required"`
	Amount   fixedpoint.Amount `json:"amount"`
	Attached fixedpoint.Amount `json:"attached"`
}

type sellRequest struct {
	Seller solana.PublicKey  `json:"seller" binding:"required"`
	Amount fixedpoint.Amount `json:"amount"`
}

// assetResponse adds human-readable figures to the view.
type assetResponse struct {
	domain.AssetView
	Display map[string]string `json:"display"`
}

func (h *LaunchHandler) present(v domain.AssetView) assetResponse {
	return assetResponse{
		AssetView: v,
		Display: map[string]string{
			"current_price":  units.ToDecimal(v.CurrentPrice, h.decimals).String(),
			"funding_raised": units.ToDecimal(v.FundingRaised, h.decimals).String(),
			"funding_goal":   units.ToDecimal(v.FundingGoal, h.decimals).String(),
			"progress":       units.ToDecimal(fixedpoint.FromUint64(v.ProgressBps), 2).String() + "%",
		},
	}
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errBadRequest}, args...)...)
}

func assetID(c *gin.Context) (domain.AssetID, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, badRequest("invalid asset id %q", c.Param("id"))
	}
	return domain.AssetID(id), nil
}

func (h *LaunchHandler) createAsset(c *gin.Context) {
	var req createAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendAPIResponse(c, http.StatusBadRequest, false, "invalid request payload", nil)
		return
	}

	receipt, err := h.service.Create(c.Request.Context(), registry.CreateRequest{
		Creator: req.Creator,
		Metadata: domain.Metadata{
			Name:        req.Name,
			Symbol:      req.Symbol,
			Description: req.Description,
			Image:       req.Image,
		},
		Attached: req.Attached,
	})
	if err != nil {
		sendError(c, err)
		return
	}
	SendAPIResponse(c, http.StatusCreated, true, "asset created", receipt)
}

func (h *LaunchHandler) listAssets(c *gin.Context) {
	views, err := h.service.List(c.Request.Context())
	if err != nil {
		sendError(c, err)
		return
	}
	out := make([]assetResponse, 0, len(views))
	for _, v := range views {
		out = append(out, h.present(v))
	}
	SendAPIResponse(c, http.StatusOK, true, "assets retrieved", out)
}

func (h *LaunchHandler) getAsset(c *gin.Context) {
	id, err := assetID(c)
	if err != nil {
		sendError(c, err)
		return
	}
	v, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		sendError(c, err)
		return
	}
	SendAPIResponse(c, http.StatusOK, true, "asset retrieved", h.present(v))
}

func (h *LaunchHandler) quote(c *gin.Context) {
	id, err := assetID(c)
	if err != nil {
		sendError(c, err)
		return
	}
	dir, err := curve.ParseDirection(c.DefaultQuery("side", "buy"))
	if err != nil {
		sendError(c, badRequest("%v", err))
		return
	}
	amount, err := fixedpoint.Parse(c.Query("amount"))
	if err != nil {
		sendError(c, badRequest("%v", err))
		return
	}

	q, err := h.service.Quote(c.Request.Context(), id, amount, dir)
	if err != nil {
		sendError(c, err)
		return
	}
	SendAPIResponse(c, http.StatusOK, true, "quote computed", q)
}

func (h *LaunchHandler) buy(c *gin.Context) {
	id, err := assetID(c)
	if err != nil {
		sendError(c, err)
		return
	}
	var req buyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendAPIResponse(c, http.StatusBadRequest, false, "invalid request payload", nil)
		return
	}

	receipt, err := h.service.Buy(c.Request.Context(), engine.BuyRequest{
		AssetID:  id,
		Buyer:    req.Buyer,
		Amount:   req.Amount,
		Attached: req.Attached,
	})
	if err != nil {
		sendError(c, err)
		return
	}
	SendAPIResponse(c, http.StatusOK, true, "tokens bought", receipt)
}

func (h *LaunchHandler) sell(c *gin.Context) {
	id, err := assetID(c)
	if err != nil {
		sendError(c, err)
		return
	}
	var req sellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendAPIResponse(c, http.StatusBadRequest, false, "invalid request payload", nil)
		return
	}

	receipt, err := h.service.Sell(c.Request.Context(), engine.SellRequest{
		AssetID: id,
		Seller:  req.Seller,
		Amount:  req.Amount,
	})
	if err != nil {
		sendError(c, err)
		return
	}
	SendAPIResponse(c, http.StatusOK, true, "tokens sold", receipt)
}

func (h *LaunchHandler) migrate(c *gin.Context) {
	id, err := assetID(c)
	if err != nil {
		sendError(c, err)
		return
	}
	m, err := h.service.Migrate(c.Request.Context(), id)
	if err != nil {
		sendError(c, err)
		return
	}
	SendAPIResponse(c, http.StatusOK, true, "asset migrated", m)
}

func (h *LaunchHandler) trades(c *gin.Context) {
	id, err := assetID(c)
	if err != nil {
		sendError(c, err)
		return
	}
	trades, err := h.service.Trades(c.Request.Context(), id)
	if err != nil {
		sendError(c, err)
		return
	}
	if trades == nil {
		trades = []*domain.Receipt{}
	}
	SendAPIResponse(c, http.StatusOK, true, "trades retrieved", trades)
}

func (h *LaunchHandler) balance(c *gin.Context) {
	id, err := assetID(c)
	if err != nil {
		sendError(c, err)
		return
	}
	holder, err := domain.ParseAddress(c.Param("holder"))
	if err != nil {
		sendError(c, err)
		return
	}
	bal, err := h.service.BalanceOf(c.Request.Context(), id, holder)
	if err != nil {
		sendError(c, err)
		return
	}
	SendAPIResponse(c, http.StatusOK, true, "balance retrieved", gin.H{
		"asset_id": id,
		"holder":   holder,
		"balance":  bal,
	})
}

func (h *LaunchHandler) treasury(c *gin.Context) {
	t, err := h.service.Treasury(c.Request.Context())
	if err != nil {
		sendError(c, err)
		return
	}
	SendAPIResponse(c, http.StatusOK, true, "treasury retrieved", t)
}

func (h *LaunchHandler) pool(c *gin.Context) {
	addr, err := domain.ParseAddress(c.Param("address"))
	if err != nil {
		sendError(c, err)
		return
	}
	p, err := h.pools.Pool(addr)
	if err != nil {
		SendAPIResponse(c, http.StatusNotFound, false, err.Error(), nil)
		return
	}
	SendAPIResponse(c, http.StatusOK, true, "pool retrieved", p)
}
