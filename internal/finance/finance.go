package finance

import (
	"github.com/shopspring/decimal"

	"bidtrack/models"
)

// OverheadDayrateDefault applies when no overhead day-rate is supplied.
var OverheadDayrateDefault = decimal.RequireFromString("21000.00")

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// Inputs are the hand-entered financial fields of a bid. DurationRaw is
// carried for the record but the waterfall always uses DurationWithDT.
type Inputs struct {
	TotalDirectCost *decimal.Decimal `json:"totalDirectCost"`
	GM              *decimal.Decimal `json:"gm"` // gross margin percent, 20.00 == 20%
	OverheadDayrate *decimal.Decimal `json:"overheadDayrate"`
	DurationRaw     *decimal.Decimal `json:"durationRaw"`
	DurationWithDT  *decimal.Decimal `json:"durationWithDt"`
	Depreciation    *decimal.Decimal `json:"depreciation"`
	Taxes           *decimal.Decimal `json:"taxes"`
}

// Derived is the full profitability waterfall. Every field is either a
// deterministic function of the inputs or nil when a required input is
// missing or a division would be by zero.
type Derived struct {
	TotalRevenue  *decimal.Decimal
	GP            *decimal.Decimal
	TotalOverhead *decimal.Decimal
	EBITDAAmount  *decimal.Decimal
	EBITDAPct     *decimal.Decimal
	EBITAmount    *decimal.Decimal
	EBITPct       *decimal.Decimal
	NetAmount     *decimal.Decimal
	NetPct        *decimal.Decimal
	EBITDay       *decimal.Decimal
	NetDay        *decimal.Decimal
}

// Derive recomputes the waterfall from scratch. Pure and idempotent: no
// caching of intermediates, every output rounded half-up to 2 places.
//
//	revenue  = cost / (1 - gm/100)
//	gp       = revenue - cost
//	overhead = dayrate * duration
//	ebitda   = gp - overhead        (= gp when overhead missing)
//	ebit     = ebitda - depreciation (= ebitda when missing)
//	net      = ebit - taxes          (= ebit when missing)
//	*Pct     = amount / revenue * 100
//	*Day     = amount / duration     (duration must be > 0)
func Derive(in Inputs) Derived {
	var out Derived

	cost := in.TotalDirectCost
	duration := in.DurationWithDT

	overheadRate := in.OverheadDayrate
	if overheadRate == nil {
		overheadRate = &OverheadDayrateDefault
	}

	var gmFrac *decimal.Decimal
	if in.GM != nil {
		f := in.GM.Div(hundred)
		gmFrac = &f
	}

	var revenue *decimal.Decimal
	if cost != nil && gmFrac != nil {
		denom := one.Sub(*gmFrac)
		if !denom.IsZero() {
			r := cost.Div(denom)
			revenue = &r
		}
	}

	var gp *decimal.Decimal
	if revenue != nil {
		g := revenue.Sub(*cost)
		gp = &g
	}

	var overhead *decimal.Decimal
	if duration != nil && !duration.IsZero() {
		o := overheadRate.Mul(*duration)
		overhead = &o
	}

	var ebitda *decimal.Decimal
	if gp != nil {
		e := *gp
		if overhead != nil {
			e = gp.Sub(*overhead)
		}
		ebitda = &e
	}

	var ebit *decimal.Decimal
	if ebitda != nil {
		e := *ebitda
		if in.Depreciation != nil {
			e = ebitda.Sub(*in.Depreciation)
		}
		ebit = &e
	}

	var net *decimal.Decimal
	if ebit != nil {
		n := *ebit
		if in.Taxes != nil {
			n = ebit.Sub(*in.Taxes)
		}
		net = &n
	}

	out.TotalRevenue = round2(revenue)
	out.GP = round2(gp)
	out.TotalOverhead = round2(overhead)
	out.EBITDAAmount = round2(ebitda)
	out.EBITDAPct = round2(pctOf(ebitda, revenue))
	out.EBITAmount = round2(ebit)
	out.EBITPct = round2(pctOf(ebit, revenue))
	out.NetAmount = round2(net)
	out.NetPct = round2(pctOf(net, revenue))

	if duration != nil && duration.IsPositive() {
		out.EBITDay = round2(perDay(ebit, *duration))
		out.NetDay = round2(perDay(net, *duration))
	}

	return out
}

// Apply writes the derived fields back onto a financial record.
func Apply(f *models.Financial, d Derived) {
	f.TotalRevenue = d.TotalRevenue
	f.GP = d.GP
	f.TotalOverhead = d.TotalOverhead
	f.EBITDAAmount = d.EBITDAAmount
	f.EBITDAPct = d.EBITDAPct
	f.EBITAmount = d.EBITAmount
	f.EBITPct = d.EBITPct
	f.NetAmount = d.NetAmount
	f.NetPct = d.NetPct
	f.EBITDay = d.EBITDay
	f.NetDay = d.NetDay
}

// Recompute derives from the record's own inputs and writes the results back.
func Recompute(f *models.Financial) {
	Apply(f, Derive(Inputs{
		TotalDirectCost: f.TotalDirectCost,
		GM:              f.GM,
		OverheadDayrate: f.OverheadDayrate,
		DurationWithDT:  f.DurationWithDT,
		Depreciation:    f.Depreciation,
		Taxes:           f.Taxes,
	}))
}

func pctOf(amount, revenue *decimal.Decimal) *decimal.Decimal {
	if amount == nil || revenue == nil || revenue.IsZero() {
		return nil
	}
	p := amount.Div(*revenue).Mul(hundred)
	return &p
}

func perDay(amount *decimal.Decimal, duration decimal.Decimal) *decimal.Decimal {
	if amount == nil {
		return nil
	}
	d := amount.Div(duration)
	return &d
}

// round2 rounds half away from zero at 2 decimal places, matching the
// half-up quantization the records were historically stored with.
func round2(v *decimal.Decimal) *decimal.Decimal {
	if v == nil {
		return nil
	}
	r := v.Round(2)
	return &r
}
