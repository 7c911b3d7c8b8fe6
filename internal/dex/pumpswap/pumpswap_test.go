package pumpswap

import (
	"context"
	"math/big"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/fixedpoint"
	"github.com/rovshanmuradov/launchpad/internal/migration"
)

func TestCalculateOutput(t *testing.T) {
	reserves := fixedpoint.FromUint64(742080)
	otherReserves := fixedpoint.FromUint64(33322)
	amount := fixedpoint.FromUint64(136824)
	const feeBps = 25

	// y * a' / (x + a') with a' = a * (10000 - fee) / 10000, all floored
	a := new(big.Int).Mul(big.NewInt(136824), big.NewInt(10000-feeBps))
	a.Quo(a, big.NewInt(10000))
	num := new(big.Int).Mul(big.NewInt(33322), a)
	den := new(big.Int).Add(big.NewInt(742080), a)
	expected := num.Quo(num, den)

	actual, err := calculateOutput(reserves, otherReserves, amount, feeBps)
	require.NoError(t, err)
	assert.Equal(t, expected.String(), actual.String(), "calculateOutput result mismatch")

	zero, err := calculateOutput(fixedpoint.Zero(), fixedpoint.Zero(), fixedpoint.Zero(), feeBps)
	require.NoError(t, err)
	assert.True(t, zero.IsZero())
}

func TestCalculateLPSupply(t *testing.T) {
	lp, err := calculateLPSupply(fixedpoint.FromUint64(150_000), fixedpoint.FromUint64(90_000))
	require.NoError(t, err)
	// sqrt(13_500_000_000) = 116189.5
	assert.Equal(t, "116189", lp.String())
}

func request(key string) migration.PoolRequest {
	return migration.PoolRequest{
		AssetID:        1,
		Mint:           solana.PublicKey{1},
		Pool:           solana.PublicKey{2},
		TokenAmount:    fixedpoint.FromUint64(150_000),
		FundsAmount:    fixedpoint.FromUint64(90_000),
		IdempotencyKey: key,
	}
}

func TestPoolLifecycle(t *testing.T) {
	ctx := context.Background()
	depositor := solana.PublicKey{9}
	d := NewDEX(Config{FeeBasisPoints: 25, Depositor: depositor}, zaptest.NewLogger(t))

	token, err := d.CreatePool(ctx, request("k1"))
	require.NoError(t, err)
	assert.Equal(t, "116189", token.LPAmount.String())

	again, err := d.CreatePool(ctx, request("k1"))
	require.NoError(t, err)
	assert.Equal(t, token, again, "same key must return the same stake")

	_, err = d.CreatePool(ctx, request("k2"))
	assert.ErrorIs(t, err, ErrPoolExists)

	info, err := d.Pool(token.Pool)
	require.NoError(t, err)
	assert.Equal(t, depositor, info.LPHolder)
	assert.False(t, info.LPBurned)

	require.NoError(t, d.BurnLPTokens(ctx, token, domain.BurnAddress))
	assert.ErrorIs(t, d.BurnLPTokens(ctx, token, domain.BurnAddress), ErrLPAlreadyBurned)
	assert.ErrorIs(t, d.WithdrawPool(ctx, token), ErrLPAlreadyBurned)

	info, err = d.Pool(token.Pool)
	require.NoError(t, err)
	assert.True(t, info.LPBurned)
	assert.Equal(t, domain.BurnAddress, info.LPHolder)
	assert.Len(t, d.Pools(), 1)

	replay, err := d.CreatePool(ctx, request("k1"))
	require.NoError(t, err)
	assert.Equal(t, token.ID, replay.ID)
	assert.True(t, replay.Burned, "replay must report the burned stake")
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	d := NewDEX(DefaultConfig(), zaptest.NewLogger(t))

	migrated := &domain.Asset{
		ID:   1,
		Mint: solana.PublicKey{1},
		Migration: &domain.Migration{
			Pool:        solana.PublicKey{2},
			PoolTokenID: "lp-1",
			TokenAmount: fixedpoint.FromUint64(150_000),
			FundsAmount: fixedpoint.FromUint64(90_000),
			LPBurned:    fixedpoint.FromUint64(116_189),
			BurnAddress: domain.BurnAddress,
		},
	}
	assert.Equal(t, 1, d.Restore([]*domain.Asset{migrated, {ID: 2}}))
	assert.Zero(t, d.Restore([]*domain.Asset{migrated}), "restore is idempotent")

	info, err := d.Pool(solana.PublicKey{2})
	require.NoError(t, err)
	assert.True(t, info.LPBurned)
	assert.Equal(t, "116189", info.LPSupply.String())

	req := request(migration.IdempotencyKey(migrated))
	token, err := d.CreatePool(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "lp-1", token.ID)
	assert.True(t, token.Burned)

	_, err = d.CreatePool(ctx, request("other"))
	assert.ErrorIs(t, err, ErrPoolExists)
	assert.ErrorIs(t, d.WithdrawPool(ctx, token), ErrLPAlreadyBurned)
}

func TestWithdrawAllowsRecreate(t *testing.T) {
	ctx := context.Background()
	d := NewDEX(DefaultConfig(), zaptest.NewLogger(t))

	token, err := d.CreatePool(ctx, request("k1"))
	require.NoError(t, err)
	require.NoError(t, d.WithdrawPool(ctx, token))
	require.NoError(t, d.WithdrawPool(ctx, token))
	assert.ErrorIs(t, d.BurnLPTokens(ctx, token, domain.BurnAddress), ErrPoolWithdrawn)

	_, err = d.Quote(token.Pool, fixedpoint.FromUint64(1), true)
	assert.ErrorIs(t, err, ErrPoolWithdrawn)

	fresh, err := d.CreatePool(ctx, request("k1"))
	require.NoError(t, err)
	assert.NotEqual(t, token.ID, fresh.ID)
}

func TestCreatePoolRejections(t *testing.T) {
	ctx := context.Background()

	disabled := NewDEX(Config{DisableFlags: DisableCreatePool}, zaptest.NewLogger(t))
	_, err := disabled.CreatePool(ctx, request("k1"))
	assert.ErrorIs(t, err, ErrOperationDisabled)

	d := NewDEX(DefaultConfig(), zaptest.NewLogger(t))
	empty := request("k1")
	empty.TokenAmount = fixedpoint.Zero()
	_, err = d.CreatePool(ctx, empty)
	assert.ErrorIs(t, err, ErrEmptyReserve)

	_, err = d.Pool(solana.PublicKey{3})
	assert.ErrorIs(t, err, ErrPoolNotFound)
}

func TestQuote(t *testing.T) {
	d := NewDEX(DefaultConfig(), zaptest.NewLogger(t))
	token, err := d.CreatePool(context.Background(), request("k1"))
	require.NoError(t, err)

	sell, err := d.Quote(token.Pool, fixedpoint.FromUint64(1_500), true)
	require.NoError(t, err)
	want, err := calculateOutput(fixedpoint.FromUint64(150_000), fixedpoint.FromUint64(90_000), fixedpoint.FromUint64(1_500), 25)
	require.NoError(t, err)
	assert.Equal(t, want, sell.AmountOut)

	buy, err := d.Quote(token.Pool, fixedpoint.FromUint64(900), false)
	require.NoError(t, err)
	assert.True(t, buy.AmountOut.GreaterThan(fixedpoint.Zero()))
	assert.True(t, buy.AmountOut.LessThan(fixedpoint.FromUint64(1_500)))
}
