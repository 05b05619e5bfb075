package service

import (
	"context"
	"sort"
	"time"

	"github.com/contractdesk/contractdesk/internal/domain/contract"
	"github.com/contractdesk/contractdesk/internal/domain/tenant"
	ierr "github.com/contractdesk/contractdesk/internal/errors"
	"github.com/contractdesk/contractdesk/internal/logger"
	"github.com/contractdesk/contractdesk/internal/types"
	"github.com/shopspring/decimal"
)

// ForecastRequest describes one forecast horizon. From is truncated to the
// beginning of its month; Months periods are projected from there.
type ForecastRequest struct {
	From    time.Time          `json:"from" validate:"required"`
	Months  int                `json:"months" validate:"required,min=1,max=60"`
	Mode    types.ForecastMode `json:"mode"`
	ProRata bool               `json:"pro_rata"`
}

func (r *ForecastRequest) Validate() error {
	if r.Months < 1 || r.Months > 60 {
		return ierr.NewError("invalid forecast horizon").
			WithHint("Months must be between 1 and 60").
			Mark(ierr.ErrValidation)
	}
	if r.Mode == "" {
		r.Mode = types.ForecastModeBilling
	}
	return r.Mode.Validate()
}

// ForecastCell is one contract's projected amount for one calendar month.
type ForecastCell struct {
	ContractID string          `json:"contract_id"`
	CustomerID string          `json:"customer_id"`
	Month      time.Time       `json:"month"`
	Amount     decimal.Decimal `json:"amount"`
}

// ForecastResult is the contract x month matrix with per-month and grand
// totals. Months always spans the full requested horizon, including months
// with no billing activity.
type ForecastResult struct {
	From        time.Time                  `json:"from"`
	To          time.Time                  `json:"to"`
	Mode        types.ForecastMode         `json:"mode"`
	ProRata     bool                       `json:"pro_rata"`
	Currency    string                     `json:"currency"`
	Cells       []ForecastCell             `json:"cells"`
	MonthTotals map[string]decimal.Decimal `json:"month_totals"`
	GrandTotal  decimal.Decimal            `json:"grand_total"`
	Months      []time.Time                `json:"months"`
	ContractIDs []string                   `json:"contract_ids"`
	GeneratedAt time.Time                  `json:"generated_at"`
}

// ForecastService projects future billing or recognition totals across a
// month horizon. Read-only composition over the period calculator, price
// resolver and assembler; it never touches numbering or persistence.
type ForecastService interface {
	Forecast(ctx context.Context, req *ForecastRequest) (*ForecastResult, error)
}

type forecastService struct {
	contractRepo    contract.Repository
	tenantRepo      tenant.Repository
	periodService   BillingPeriodService
	priceService    PriceResolutionService
	assemblyService InvoiceAssemblyService
	logger          *logger.Logger
}

func NewForecastService(
	contractRepo contract.Repository,
	tenantRepo tenant.Repository,
	periodService BillingPeriodService,
	priceService PriceResolutionService,
	assemblyService InvoiceAssemblyService,
	logger *logger.Logger,
) ForecastService {
	return &forecastService{
		contractRepo:    contractRepo,
		tenantRepo:      tenantRepo,
		periodService:   periodService,
		priceService:    priceService,
		assemblyService: assemblyService,
		logger:          logger,
	}
}

func (s *forecastService) Forecast(ctx context.Context, req *ForecastRequest) (*ForecastResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	from := types.BeginningOfMonth(req.From.UTC())
	to := types.EndOfMonth(from.AddDate(0, req.Months-1, 0))

	t, err := s.tenantRepo.Get(ctx, types.GetTenantID(ctx))
	if err != nil {
		return nil, err
	}

	contracts, err := s.contractRepo.ListBillable(ctx)
	if err != nil {
		return nil, err
	}

	result := &ForecastResult{
		From:        from,
		To:          to,
		Mode:        req.Mode,
		ProRata:     req.ProRata,
		Currency:    t.Settings.Currency,
		MonthTotals: make(map[string]decimal.Decimal, req.Months),
		GeneratedAt: time.Now().UTC(),
	}
	for i := 0; i < req.Months; i++ {
		month := from.AddDate(0, i, 0)
		result.Months = append(result.Months, month)
		result.MonthTotals[monthKey(month)] = decimal.Zero
	}

	// contract x month accumulation; recognition mode attributes spread
	// amounts to the months they cover, billing mode attributes the whole
	// invoice to its billing month
	byContract := make(map[string]map[string]decimal.Decimal)
	customers := make(map[string]string)

	for _, c := range contracts {
		events, err := s.periodService.ComputeBillingEventsProRata(c, from, to, req.ProRata)
		if err != nil {
			return nil, err
		}
		if len(events) == 0 {
			continue
		}

		data, err := s.priceService.LoadPricingData(ctx, c)
		if err != nil {
			return nil, err
		}

		for _, event := range events {
			assembled, err := s.assemblyService.AssembleForEvent(c, event, data, t.Settings, req.Mode)
			if err != nil {
				return nil, err
			}
			if len(assembled.LineItems) == 0 {
				continue
			}

			if byContract[c.ID] == nil {
				byContract[c.ID] = make(map[string]decimal.Decimal)
				customers[c.ID] = c.CustomerID
			}

			switch req.Mode {
			case types.ForecastModeRecognition:
				for _, m := range assembled.Recognition {
					s.accumulate(result, byContract[c.ID], m.Month, m.Amount, from, to)
				}
			default:
				s.accumulate(result, byContract[c.ID], assembled.BillingDate, assembled.NetTotal, from, to)
			}
		}
	}

	contractIDs := make([]string, 0, len(byContract))
	for id := range byContract {
		contractIDs = append(contractIDs, id)
	}
	sort.Strings(contractIDs)
	result.ContractIDs = contractIDs

	for _, id := range contractIDs {
		for _, month := range result.Months {
			amount, ok := byContract[id][monthKey(month)]
			if !ok {
				continue
			}
			result.Cells = append(result.Cells, ForecastCell{
				ContractID: id,
				CustomerID: customers[id],
				Month:      month,
				Amount:     amount,
			})
		}
	}

	s.logger.Debugw("forecast computed",
		"tenant_id", types.GetTenantID(ctx),
		"from", from,
		"months", req.Months,
		"mode", req.Mode,
		"contracts", len(contractIDs),
		"grand_total", result.GrandTotal)

	return result, nil
}

// accumulate adds amount to the contract row, the month total and the grand
// total, dropping months that fall outside the requested horizon.
func (s *forecastService) accumulate(result *ForecastResult, row map[string]decimal.Decimal, at time.Time, amount decimal.Decimal, from, to time.Time) {
	month := types.BeginningOfMonth(at)
	if month.Before(from) || month.After(to) {
		return
	}
	key := monthKey(month)
	row[key] = row[key].Add(amount)
	result.MonthTotals[key] = result.MonthTotals[key].Add(amount)
	result.GrandTotal = result.GrandTotal.Add(amount)
}

func monthKey(t time.Time) string {
	return t.Format("2006-01")
}
