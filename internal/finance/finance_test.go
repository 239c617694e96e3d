package finance_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"bidtrack/internal/finance"
	"bidtrack/models"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func requireDecEqual(t *testing.T, want string, got *decimal.Decimal) {
	t.Helper()
	require.NotNil(t, got)
	require.True(t, decimal.RequireFromString(want).Equal(*got),
		"want %s, got %s", want, got.String())
}

func TestDeriveFullWaterfall(t *testing.T) {
	out := finance.Derive(finance.Inputs{
		TotalDirectCost: dec("100000"),
		GM:              dec("20"),
		DurationWithDT:  dec("10"),
		Depreciation:    dec("5000"),
		Taxes:           dec("2000"),
	})

	requireDecEqual(t, "125000.00", out.TotalRevenue)
	requireDecEqual(t, "25000.00", out.GP)
	// Default day-rate applies when none is given: 21000 * 10
	requireDecEqual(t, "210000.00", out.TotalOverhead)
	requireDecEqual(t, "-185000.00", out.EBITDAAmount)
	requireDecEqual(t, "-148.00", out.EBITDAPct)
	requireDecEqual(t, "-190000.00", out.EBITAmount)
	requireDecEqual(t, "-152.00", out.EBITPct)
	requireDecEqual(t, "-192000.00", out.NetAmount)
	requireDecEqual(t, "-153.60", out.NetPct)
	requireDecEqual(t, "-19000.00", out.EBITDay)
	requireDecEqual(t, "-19200.00", out.NetDay)
}

func TestDeriveExplicitDayrate(t *testing.T) {
	out := finance.Derive(finance.Inputs{
		TotalDirectCost: dec("100000"),
		GM:              dec("20"),
		OverheadDayrate: dec("1000"),
		DurationWithDT:  dec("10"),
	})

	requireDecEqual(t, "10000.00", out.TotalOverhead)
	requireDecEqual(t, "15000.00", out.EBITDAAmount)
}

func TestDeriveGMHundredPercent(t *testing.T) {
	// 1 - gm/100 hits zero: no revenue, nothing downstream of it either.
	out := finance.Derive(finance.Inputs{
		TotalDirectCost: dec("100000"),
		GM:              dec("100"),
		DurationWithDT:  dec("10"),
	})

	require.Nil(t, out.TotalRevenue)
	require.Nil(t, out.GP)
	require.Nil(t, out.EBITDAAmount)
	require.Nil(t, out.EBITAmount)
	require.Nil(t, out.NetAmount)
	require.Nil(t, out.EBITDAPct)
	require.Nil(t, out.EBITDay)
	// Overhead only needs the duration, so it still computes.
	requireDecEqual(t, "210000.00", out.TotalOverhead)
}

func TestDeriveZeroDuration(t *testing.T) {
	out := finance.Derive(finance.Inputs{
		TotalDirectCost: dec("80000"),
		GM:              dec("25"),
		DurationWithDT:  dec("0"),
	})

	// No overhead and no per-day figures at zero duration; the EBITDA
	// chain falls back to GP.
	require.Nil(t, out.TotalOverhead)
	require.Nil(t, out.EBITDay)
	require.Nil(t, out.NetDay)
	requireDecEqual(t, "106666.67", out.TotalRevenue)
	requireDecEqual(t, "26666.67", out.GP)
	requireDecEqual(t, "26666.67", out.EBITDAAmount)
	requireDecEqual(t, "26666.67", out.EBITAmount)
	requireDecEqual(t, "26666.67", out.NetAmount)
}

func TestDeriveMissingInputs(t *testing.T) {
	out := finance.Derive(finance.Inputs{})

	require.Nil(t, out.TotalRevenue)
	require.Nil(t, out.GP)
	require.Nil(t, out.TotalOverhead)
	require.Nil(t, out.EBITDAAmount)
	require.Nil(t, out.NetDay)
}

func TestDeriveFallbackChain(t *testing.T) {
	// No depreciation and no taxes: ebit == ebitda == net.
	out := finance.Derive(finance.Inputs{
		TotalDirectCost: dec("100000"),
		GM:              dec("20"),
		OverheadDayrate: dec("1000"),
		DurationWithDT:  dec("10"),
	})

	requireDecEqual(t, "15000.00", out.EBITDAAmount)
	requireDecEqual(t, "15000.00", out.EBITAmount)
	requireDecEqual(t, "15000.00", out.NetAmount)
}

func TestDeriveIdempotent(t *testing.T) {
	in := finance.Inputs{
		TotalDirectCost: dec("123456.78"),
		GM:              dec("17.5"),
		DurationWithDT:  dec("12.5"),
		Depreciation:    dec("9000"),
	}

	first := finance.Derive(in)
	second := finance.Derive(in)
	require.True(t, first.TotalRevenue.Equal(*second.TotalRevenue))
	require.True(t, first.NetAmount.Equal(*second.NetAmount))
	require.True(t, first.NetPct.Equal(*second.NetPct))
}

func TestRecompute(t *testing.T) {
	f := &models.Financial{
		ProjectID:       1,
		TotalDirectCost: dec("100000"),
		GM:              dec("20"),
		DurationWithDT:  dec("10"),
		// Stale derived values must be overwritten.
		TotalRevenue: dec("1"),
		NetAmount:    dec("1"),
	}

	finance.Recompute(f)

	requireDecEqual(t, "125000.00", f.TotalRevenue)
	requireDecEqual(t, "-185000.00", f.EBITDAAmount)
	requireDecEqual(t, "-185000.00", f.NetAmount)
}
