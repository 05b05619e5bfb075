package service

import (
	"context"
	"sort"
	"time"

	"github.com/contractdesk/contractdesk/internal/domain/contract"
	"github.com/contractdesk/contractdesk/internal/domain/invoice"
	"github.com/contractdesk/contractdesk/internal/domain/pricing"
	"github.com/contractdesk/contractdesk/internal/domain/tenant"
	ierr "github.com/contractdesk/contractdesk/internal/errors"
	"github.com/contractdesk/contractdesk/internal/logger"
	"github.com/contractdesk/contractdesk/internal/types"
	"github.com/shopspring/decimal"
)

// AssembledInvoice is the ephemeral result of invoice assembly: a draft that
// has not been numbered or persisted.
type AssembledInvoice struct {
	ContractID  string              `json:"contract_id"`
	CustomerID  string              `json:"customer_id"`
	BillingDate time.Time           `json:"billing_date"`
	PeriodStart time.Time           `json:"period_start"`
	PeriodEnd   time.Time           `json:"period_end"`
	Currency    string              `json:"currency"`
	LineItems   []*invoice.LineItem `json:"line_items"`
	NetTotal    decimal.Decimal     `json:"net_total"`
	TaxRate     decimal.Decimal     `json:"tax_rate"`
	TaxAmount   decimal.Decimal     `json:"tax_amount"`
	GrossTotal  decimal.Decimal     `json:"gross_total"`

	// Recognition carries the per-month spread of the net total when the
	// invoice was assembled in recognition mode.
	Recognition []MonthlyAmount `json:"recognition,omitempty"`
}

// MonthlyAmount attributes an amount to the calendar month starting at Month.
type MonthlyAmount struct {
	Month  time.Time       `json:"month"`
	Amount decimal.Decimal `json:"amount"`
}

// InvoiceAssemblyService combines billing events and resolved prices into
// line items and tax totals for one contract and billing date. It never
// persists anything.
type InvoiceAssemblyService interface {
	// AssembleInvoice assembles the invoice for the billing event starting
	// on billingDate. Returns ErrNotFound when the contract has no billing
	// event on that date.
	AssembleInvoice(ctx context.Context, c *contract.Contract, billingDate time.Time, mode types.ForecastMode) (*AssembledInvoice, error)

	// AssembleForEvent assembles line items and totals for one precomputed
	// billing event against preloaded pricing data. Pure.
	AssembleForEvent(c *contract.Contract, event types.BillingEvent, data *PricingData, settings tenant.Settings, mode types.ForecastMode) (*AssembledInvoice, error)
}

type invoiceAssemblyService struct {
	periodService BillingPeriodService
	priceService  PriceResolutionService
	tenantRepo    tenant.Repository
	logger        *logger.Logger
}

func NewInvoiceAssemblyService(
	periodService BillingPeriodService,
	priceService PriceResolutionService,
	tenantRepo tenant.Repository,
	logger *logger.Logger,
) InvoiceAssemblyService {
	return &invoiceAssemblyService{
		periodService: periodService,
		priceService:  priceService,
		tenantRepo:    tenantRepo,
		logger:        logger,
	}
}

func (s *invoiceAssemblyService) AssembleInvoice(ctx context.Context, c *contract.Contract, billingDate time.Time, mode types.ForecastMode) (*AssembledInvoice, error) {
	date := types.DateOnly(billingDate)
	events, err := s.periodService.ComputeBillingEvents(c, date, date)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, ierr.NewError("no billing event on date").
			WithHintf("Contract %s has no billing event starting on %s", c.ID, date.Format("2006-01-02")).
			Mark(ierr.ErrNotFound)
	}

	data, err := s.priceService.LoadPricingData(ctx, c)
	if err != nil {
		return nil, err
	}

	t, err := s.tenantRepo.Get(ctx, types.GetTenantID(ctx))
	if err != nil {
		return nil, err
	}

	return s.AssembleForEvent(c, events[0], data, t.Settings, mode)
}

func (s *invoiceAssemblyService) AssembleForEvent(c *contract.Contract, event types.BillingEvent, data *PricingData, settings tenant.Settings, mode types.ForecastMode) (*AssembledInvoice, error) {
	currency := c.Currency
	if currency == "" {
		currency = settings.Currency
	}
	billingDate := event.PeriodStart

	var lines []*invoice.LineItem
	for _, item := range c.Items {
		clipped := s.periodService.ClipToItemWindow([]types.BillingEvent{event}, item)
		if len(clipped) == 0 {
			continue
		}
		itemEvent := clipped[0]

		resolved, err := s.priceService.Resolve(c, item, data, billingDate)
		if err != nil {
			// assembly for the whole contract aborts rather than billing zero
			return nil, err
		}

		quantity := billableQuantity(item, data.Discounts, itemEvent)
		unitPrice := applyLineDiscounts(resolved.UnitPrice, item, resolved.Source, data.Discounts, itemEvent)

		net := quantity.Mul(unitPrice).Mul(itemEvent.ProrationFactor)
		net = types.RoundToCurrency(net, currency)

		lines = append(lines, &invoice.LineItem{
			ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_LINE),
			ContractItemID:  &item.ID,
			ProductID:       item.ProductID,
			Description:     item.Description,
			Quantity:        quantity,
			UnitPrice:       unitPrice,
			PriceSource:     resolved.Source,
			ProrationFactor: itemEvent.ProrationFactor,
			NetAmount:       net,
			Currency:        currency,
			PeriodStart:     itemEvent.PeriodStart,
			PeriodEnd:       itemEvent.PeriodEnd,
		})
	}

	applyContractDiscounts(lines, data.Discounts, event, currency)

	// tax and totals are summed from line level amounts; totals are never
	// re-rounded so repeated invoices cannot drift
	netTotal := decimal.Zero
	taxAmount := decimal.Zero
	for _, line := range lines {
		line.TaxAmount = types.RoundToCurrency(line.NetAmount.Mul(settings.DefaultTaxRate), currency)
		netTotal = netTotal.Add(line.NetAmount)
		taxAmount = taxAmount.Add(line.TaxAmount)
	}

	result := &AssembledInvoice{
		ContractID:  c.ID,
		CustomerID:  c.CustomerID,
		BillingDate: billingDate,
		PeriodStart: event.PeriodStart,
		PeriodEnd:   event.PeriodEnd,
		Currency:    currency,
		LineItems:   lines,
		NetTotal:    netTotal,
		TaxRate:     settings.DefaultTaxRate,
		TaxAmount:   taxAmount,
		GrossTotal:  netTotal.Add(taxAmount),
	}

	if mode == types.ForecastModeRecognition {
		result.Recognition = recognitionSpread(lines, currency)
	}

	return result, nil
}

// billableQuantity reduces the item quantity by applicable free-units
// discounts. Free units never touch the price.
func billableQuantity(item *contract.ContractItem, discounts []*pricing.Discount, event types.BillingEvent) decimal.Decimal {
	quantity := item.Quantity
	for _, d := range lineDiscounts(item, "", discounts, event, types.DiscountKindFreeUnits) {
		quantity = quantity.Sub(*d.Value.FreeUnits)
	}
	if quantity.IsNegative() {
		return decimal.Zero
	}
	return quantity
}

// applyLineDiscounts reduces the unit price by the discounts matching the
// line: item scoped ones, category scoped ones matching the item's product
// category, and price-list scoped ones when the price resolved from the
// standard list price. Percent discounts apply before absolute ones; within a
// kind the order is fixed by discount id so results are reproducible.
func applyLineDiscounts(unitPrice decimal.Decimal, item *contract.ContractItem, source types.PriceSource, discounts []*pricing.Discount, event types.BillingEvent) decimal.Decimal {
	for _, d := range lineDiscounts(item, source, discounts, event, types.DiscountKindPercent) {
		unitPrice = discountByPercent(unitPrice, *d.Value.Percent)
	}
	for _, d := range lineDiscounts(item, source, discounts, event, types.DiscountKindTiered) {
		unitPrice = discountByPercent(unitPrice, d.Value.TierFor(item.Quantity))
	}
	for _, d := range lineDiscounts(item, source, discounts, event, types.DiscountKindAbsolute) {
		unitPrice = unitPrice.Sub(*d.Value.Amount)
	}
	if unitPrice.IsNegative() {
		return decimal.Zero
	}
	return unitPrice
}

func lineDiscounts(item *contract.ContractItem, source types.PriceSource, discounts []*pricing.Discount, event types.BillingEvent, kind types.DiscountKind) []*pricing.Discount {
	var matched []*pricing.Discount
	for _, d := range discounts {
		if d.Kind != kind || !d.AppliesTo(event.PeriodStart, event.PeriodEnd) {
			continue
		}
		switch d.Scope {
		case types.DiscountScopeLineItem:
			if d.ContractItemID == nil || *d.ContractItemID != item.ID {
				continue
			}
		case types.DiscountScopeCategory:
			if d.ProductCategory == nil || item.ProductCategory == "" || *d.ProductCategory != item.ProductCategory {
				continue
			}
		case types.DiscountScopePriceList:
			if source != types.PriceSourceListPrice {
				continue
			}
		default:
			continue
		}
		matched = append(matched, d)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return matched
}

// applyContractDiscounts applies contract level discounts to the line totals
// after all line item discounts: percent discounts per line, absolute
// discounts allocated across lines proportionally to their net amounts with
// the rounding remainder carried by the last line. This ordering is fixed
// and must not change.
func applyContractDiscounts(lines []*invoice.LineItem, discounts []*pricing.Discount, event types.BillingEvent, currency string) {
	if len(lines) == 0 {
		return
	}

	var contractDiscounts []*pricing.Discount
	for _, d := range discounts {
		if d.Scope == types.DiscountScopeContract && d.AppliesTo(event.PeriodStart, event.PeriodEnd) {
			contractDiscounts = append(contractDiscounts, d)
		}
	}
	sort.Slice(contractDiscounts, func(i, j int) bool {
		if contractDiscounts[i].Kind != contractDiscounts[j].Kind {
			return contractDiscounts[i].Kind == types.DiscountKindPercent
		}
		return contractDiscounts[i].ID < contractDiscounts[j].ID
	})

	for _, d := range contractDiscounts {
		switch d.Kind {
		case types.DiscountKindPercent:
			for _, line := range lines {
				line.NetAmount = types.RoundToCurrency(discountByPercent(line.NetAmount, *d.Value.Percent), currency)
			}
		case types.DiscountKindAbsolute:
			allocateAbsoluteDiscount(lines, *d.Value.Amount, currency)
		case types.DiscountKindTiered:
			for _, line := range lines {
				line.NetAmount = types.RoundToCurrency(discountByPercent(line.NetAmount, d.Value.TierFor(line.Quantity)), currency)
			}
		}
	}
}

// allocateAbsoluteDiscount spreads a fixed discount over the lines in
// proportion to their net amounts, never below zero.
func allocateAbsoluteDiscount(lines []*invoice.LineItem, amount decimal.Decimal, currency string) {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.NetAmount)
	}
	if total.IsZero() || !amount.IsPositive() {
		return
	}
	if amount.GreaterThan(total) {
		amount = total
	}

	remaining := amount
	for i, line := range lines {
		var share decimal.Decimal
		if i == len(lines)-1 {
			share = remaining
		} else {
			share = types.RoundToCurrency(amount.Mul(line.NetAmount).Div(total), currency)
			if share.GreaterThan(remaining) {
				share = remaining
			}
		}
		line.NetAmount = line.NetAmount.Sub(share)
		remaining = remaining.Sub(share)
	}
}

func discountByPercent(amount, percent decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Sub(percent.Div(decimal.NewFromInt(100)))
	return amount.Mul(factor)
}

// recognitionSpread redistributes each line's net amount evenly across the
// calendar months its service period covers, instead of attributing it all
// to the billing date. The remainder cent lands in the first month.
func recognitionSpread(lines []*invoice.LineItem, currency string) []MonthlyAmount {
	byMonth := make(map[time.Time]decimal.Decimal)
	for _, line := range lines {
		months := types.MonthsCovered(line.PeriodStart, line.PeriodEnd)
		if len(months) == 0 {
			continue
		}
		n := decimal.NewFromInt(int64(len(months)))
		share := types.RoundToCurrency(line.NetAmount.Div(n), currency)
		firstShare := line.NetAmount.Sub(share.Mul(n.Sub(decimal.NewFromInt(1))))
		for i, month := range months {
			if i == 0 {
				byMonth[month] = byMonth[month].Add(firstShare)
			} else {
				byMonth[month] = byMonth[month].Add(share)
			}
		}
	}

	result := make([]MonthlyAmount, 0, len(byMonth))
	for month, amount := range byMonth {
		result = append(result, MonthlyAmount{Month: month, Amount: amount})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Month.Before(result[j].Month) })
	return result
}
