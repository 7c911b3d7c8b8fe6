package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/launchpad/internal/curve"
	"github.com/rovshanmuradov/launchpad/internal/dex/pumpswap"
	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/engine"
	"github.com/rovshanmuradov/launchpad/internal/fixedpoint"
	"github.com/rovshanmuradov/launchpad/internal/registry"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) Create(ctx context.Context, req registry.CreateRequest) (domain.CreateReceipt, error) {
	args := m.Called(ctx, req)
	r, _ := args.Get(0).(domain.CreateReceipt)
	return r, args.Error(1)
}

func (m *mockService) Buy(ctx context.Context, req engine.BuyRequest) (*domain.Receipt, error) {
	args := m.Called(ctx, req)
	r, _ := args.Get(0).(*domain.Receipt)
	return r, args.Error(1)
}

func (m *mockService) Sell(ctx context.Context, req engine.SellRequest) (*domain.Receipt, error) {
	args := m.Called(ctx, req)
	r, _ := args.Get(0).(*domain.Receipt)
	return r, args.Error(1)
}

func (m *mockService) Quote(ctx context.Context, id domain.AssetID, amount fixedpoint.Amount, dir curve.Direction) (engine.Quote, error) {
	args := m.Called(ctx, id, amount, dir)
	q, _ := args.Get(0).(engine.Quote)
	return q, args.Error(1)
}

func (m *mockService) Get(ctx context.Context, id domain.AssetID) (domain.AssetView, error) {
	args := m.Called(ctx, id)
	v, _ := args.Get(0).(domain.AssetView)
	return v, args.Error(1)
}

func (m *mockService) List(ctx context.Context) ([]domain.AssetView, error) {
	args := m.Called(ctx)
	v, _ := args.Get(0).([]domain.AssetView)
	return v, args.Error(1)
}

func (m *mockService) Migrate(ctx context.Context, id domain.AssetID) (*domain.Migration, error) {
	args := m.Called(ctx, id)
	mg, _ := args.Get(0).(*domain.Migration)
	return mg, args.Error(1)
}

func (m *mockService) BalanceOf(ctx context.Context, id domain.AssetID, holder solana.PublicKey) (fixedpoint.Amount, error) {
	args := m.Called(ctx, id, holder)
	b, _ := args.Get(0).(fixedpoint.Amount)
	return b, args.Error(1)
}

func (m *mockService) Trades(ctx context.Context, id domain.AssetID) ([]*domain.Receipt, error) {
	args := m.Called(ctx, id)
	r, _ := args.Get(0).([]*domain.Receipt)
	return r, args.Error(1)
}

func (m *mockService) Treasury(ctx context.Context) (domain.Treasury, error) {
	args := m.Called(ctx)
	t, _ := args.Get(0).(domain.Treasury)
	return t, args.Error(1)
}

var (
	alice = solana.PublicKey{1, 2, 3}
	bob   = solana.PublicKey{4, 5, 6}
)

func setupRouter(t *testing.T, svc Service, pools PoolReader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(RouterConfig{
		Service:  svc,
		Pools:    pools,
		Decimals: 0,
		Logger:   zaptest.NewLogger(t),
	})
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Kind    domain.Kind     `json:"kind"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestLaunchHandler_CreateAsset_Success(t *testing.T) {
	svc := new(mockService)
	r := setupRouter(t, svc, nil)

	svc.On("Create", mock.Anything, mock.MatchedBy(func(req registry.CreateRequest) bool {
		return req.Creator == alice &&
			req.Metadata.Name == "Moon" &&
			req.Metadata.Symbol == "MOON" &&
			req.Attached.String() == "15"
	})).Return(domain.CreateReceipt{AssetID: 1, FeePaid: fixedpoint.FromUint64(10), Refund: fixedpoint.FromUint64(5)}, nil).Once()

	body := fmt.Sprintf(`{"creator":%q,"name":"Moon","symbol":"MOON","attached":"15"}`, alice.String())
	w := do(r, http.MethodPost, "/api/v1/assets", body)

	require.Equal(t, http.StatusCreated, w.Code)
	env := decode(t, w)
	assert.True(t, env.Success)

	var receipt domain.CreateReceipt
	require.NoError(t, json.Unmarshal(env.Data, &receipt))
	assert.Equal(t, domain.AssetID(1), receipt.AssetID)
	assert.Equal(t, "5", receipt.Refund.String())
	svc.AssertExpectations(t)
}

func TestLaunchHandler_CreateAsset_BadPayload(t *testing.T) {
	svc := new(mockService)
	r := setupRouter(t, svc, nil)

	w := do(r, http.MethodPost, "/api/v1/assets", `{"name":"Moon"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, decode(t, w).Success)
	svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestLaunchHandler_ErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		kind domain.Kind
	}{
		{"not found", fmt.Errorf("asset 9: %w", domain.ErrNotFound), http.StatusNotFound, domain.KindNotFound},
		{"graduated", domain.ErrAlreadyGraduated, http.StatusConflict, domain.KindAlreadyGraduated},
		{"in progress", domain.ErrMigrationInProgress, http.StatusConflict, domain.KindAlreadyGraduated},
		{"payment", domain.ErrInsufficientPayment, http.StatusPaymentRequired, domain.KindInsufficientPayment},
		{"range", domain.ErrOutOfRange, http.StatusUnprocessableEntity, domain.KindOutOfRange},
		{"deposit", domain.ErrExternalDepositFailed, http.StatusBadGateway, domain.KindExternalDepositFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockService)
			r := setupRouter(t, svc, nil)
			svc.On("Buy", mock.Anything, mock.Anything).Return(nil, tt.err).Once()

			body := fmt.Sprintf(`{"buyer":%q,"amount":"100","attached":"1000"}`, bob.String())
			w := do(r, http.MethodPost, "/api/v1/assets/9/buy", body)

			assert.Equal(t, tt.code, w.Code)
			env := decode(t, w)
			assert.False(t, env.Success)
			assert.Equal(t, tt.kind, env.Kind)
		})
	}
}

func TestLaunchHandler_InternalErrorIsMasked(t *testing.T) {
	svc := new(mockService)
	r := setupRouter(t, svc, nil)
	svc.On("Treasury", mock.Anything).Return(nil, fmt.Errorf("badger: disk on fire")).Once()

	w := do(r, http.MethodGet, "/api/v1/treasury", "")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	env := decode(t, w)
	assert.Equal(t, "internal error", env.Message)
	assert.Equal(t, domain.KindInternal, env.Kind)
}

func TestLaunchHandler_Buy(t *testing.T) {
	svc := new(mockService)
	r := setupRouter(t, svc, nil)

	receipt := &domain.Receipt{ID: "r-1", AssetID: 3, Side: domain.SideBuy, Trader: bob, Amount: fixedpoint.FromUint64(100_000)}
	svc.On("Buy", mock.Anything, engine.BuyRequest{
		AssetID:  3,
		Buyer:    bob,
		Amount:   fixedpoint.FromUint64(100_000),
		Attached: fixedpoint.FromUint64(336),
	}).Return(receipt, nil).Once()

	body := fmt.Sprintf(`{"buyer":%q,"amount":"100000","attached":"336"}`, bob.String())
	w := do(r, http.MethodPost, "/api/v1/assets/3/buy", body)

	require.Equal(t, http.StatusOK, w.Code)
	var got domain.Receipt
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &got))
	assert.Equal(t, "r-1", got.ID)
	assert.Equal(t, "100000", got.Amount.String())
	svc.AssertExpectations(t)
}

func TestLaunchHandler_Sell(t *testing.T) {
	svc := new(mockService)
	r := setupRouter(t, svc, nil)

	svc.On("Sell", mock.Anything, engine.SellRequest{AssetID: 3, Seller: bob, Amount: fixedpoint.FromUint64(50)}).
		Return(&domain.Receipt{ID: "r-2", Side: domain.SideSell}, nil).Once()

	body := fmt.Sprintf(`{"seller":%q,"amount":"50"}`, bob.String())
	w := do(r, http.MethodPost, "/api/v1/assets/3/sell", body)
	require.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestLaunchHandler_InvalidAssetID(t *testing.T) {
	svc := new(mockService)
	r := setupRouter(t, svc, nil)

	for _, path := range []string{"/api/v1/assets/abc", "/api/v1/assets/0", "/api/v1/assets/-1/trades"} {
		w := do(r, http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
		assert.Empty(t, decode(t, w).Kind, path)
	}
}

func TestLaunchHandler_Quote(t *testing.T) {
	svc := new(mockService)
	r := setupRouter(t, svc, nil)

	q := engine.Quote{AssetID: 2, Side: domain.SideSell, Amount: fixedpoint.FromUint64(10), Total: fixedpoint.FromUint64(7)}
	svc.On("Quote", mock.Anything, domain.AssetID(2), fixedpoint.FromUint64(10), curve.Sell).Return(q, nil).Once()

	w := do(r, http.MethodGet, "/api/v1/assets/2/quote?side=sell&amount=10", "")
	require.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)

	w = do(r, http.MethodGet, "/api/v1/assets/2/quote?side=sideways&amount=10", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/api/v1/assets/2/quote?amount=ten", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLaunchHandler_GetAssetDisplay(t *testing.T) {
	svc := new(mockService)
	r := setupRouter(t, svc, nil)

	view := domain.AssetView{
		Asset: &domain.Asset{
			ID:            4,
			Metadata:      domain.Metadata{Name: "Moon", Symbol: "MOON"},
			FundingGoal:   fixedpoint.FromUint64(90_000),
			FundingRaised: fixedpoint.FromUint64(45_000),
		},
		CurrentPrice: fixedpoint.FromUint64(12),
		ProgressBps:  5_000,
	}
	svc.On("Get", mock.Anything, domain.AssetID(4)).Return(view, nil).Once()

	w := do(r, http.MethodGet, "/api/v1/assets/4", "")
	require.Equal(t, http.StatusOK, w.Code)

	var got struct {
		ID      domain.AssetID    `json:"id"`
		Display map[string]string `json:"display"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &got))
	assert.Equal(t, domain.AssetID(4), got.ID)
	assert.Equal(t, "45000", got.Display["funding_raised"])
	assert.Equal(t, "50%", got.Display["progress"])
}

func TestLaunchHandler_ListTradesAndBalance(t *testing.T) {
	svc := new(mockService)
	r := setupRouter(t, svc, nil)

	svc.On("List", mock.Anything).Return([]domain.AssetView{}, nil).Once()
	svc.On("Trades", mock.Anything, domain.AssetID(1)).Return(nil, nil).Once()
	svc.On("BalanceOf", mock.Anything, domain.AssetID(1), alice).Return(fixedpoint.FromUint64(77), nil).Once()

	w := do(r, http.MethodGet, "/api/v1/assets", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(decode(t, w).Data))

	w = do(r, http.MethodGet, "/api/v1/assets/1/trades", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(decode(t, w).Data))

	w = do(r, http.MethodGet, "/api/v1/assets/1/balances/"+alice.String(), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decode(t, w).Data), `"balance":"77"`)

	w = do(r, http.MethodGet, "/api/v1/assets/1/balances/not-a-key", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	svc.AssertExpectations(t)
}

func TestLaunchHandler_Migrate(t *testing.T) {
	svc := new(mockService)
	r := setupRouter(t, svc, nil)

	svc.On("Migrate", mock.Anything, domain.AssetID(5)).Return(nil, domain.ErrGoalNotReached).Once()
	w := do(r, http.MethodPost, "/api/v1/assets/5/migrate", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, domain.KindGoalNotReached, decode(t, w).Kind)
}

func TestLaunchHandler_Pool(t *testing.T) {
	dex := pumpswap.NewDEX(pumpswap.DefaultConfig(), zaptest.NewLogger(t))
	r := setupRouter(t, new(mockService), dex)

	w := do(r, http.MethodGet, "/api/v1/pools/"+alice.String(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthz(t *testing.T) {
	r := setupRouter(t, new(mockService), nil)
	w := do(r, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
