package service

import (
	"time"

	"github.com/contractdesk/contractdesk/internal/domain/contract"
	ierr "github.com/contractdesk/contractdesk/internal/errors"
	"github.com/contractdesk/contractdesk/internal/logger"
	"github.com/contractdesk/contractdesk/internal/types"
	"github.com/shopspring/decimal"
)

// BillingPeriodService computes the ordered sequence of billing events for a
// contract. It is pure and stateless: the same contract and range always
// yield the same events, so forecasts can recompute them for any horizon.
type BillingPeriodService interface {
	// ComputeBillingEvents returns every billing event whose billed period
	// start falls within [from, to], in chronological order.
	ComputeBillingEvents(c *contract.Contract, from, to time.Time) ([]types.BillingEvent, error)

	// ComputeBillingEventsProRata is ComputeBillingEvents with the
	// first-period proration toggled, for what-if forecasts.
	ComputeBillingEventsProRata(c *contract.Contract, from, to time.Time, proRata bool) ([]types.BillingEvent, error)

	// ClipToItemWindow clips events to a contract item's billing window
	// override. Events fully outside the window are omitted, partially
	// covered events get their proration factor recomputed against the
	// nominal period. An item proration anchor moves the measured start of
	// the period it falls in.
	ClipToItemWindow(events []types.BillingEvent, item *contract.ContractItem) []types.BillingEvent
}

type billingPeriodService struct {
	logger *logger.Logger
}

func NewBillingPeriodService(logger *logger.Logger) BillingPeriodService {
	return &billingPeriodService{logger: logger}
}

func (s *billingPeriodService) ComputeBillingEvents(c *contract.Contract, from, to time.Time) ([]types.BillingEvent, error) {
	return s.ComputeBillingEventsProRata(c, from, to, true)
}

func (s *billingPeriodService) ComputeBillingEventsProRata(c *contract.Contract, from, to time.Time, proRata bool) ([]types.BillingEvent, error) {
	if err := c.BillingInterval.Validate(); err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, ierr.NewError("invalid date range").
			WithHint("Range end must not precede range start").
			Mark(ierr.ErrValidation)
	}
	if !c.IsBillable() && c.ContractStatus != types.ContractStatusDraft {
		return nil, nil
	}

	billingStart := types.DateOnly(c.StartDate)
	contractEnd := types.DateOnly(c.EffectiveEnd())
	rangeEnd := types.MinTime(types.DateOnly(to), contractEnd)

	anchor, err := s.periodAnchor(c, billingStart)
	if err != nil {
		return nil, err
	}

	// each period start is generated from the anchor day itself, not stepped
	// from the previous clamped start, so an anchor day beyond a short month
	// returns to it afterwards (Jan 31, Feb 28, Mar 31)
	months := c.BillingInterval.Months()
	var events []types.BillingEvent
	first := true
	for k := 0; ; k++ {
		nominalStart := anchor.at(k * months)
		if nominalStart.After(rangeEnd) {
			break
		}
		nominalEnd := anchor.at((k + 1) * months).AddDate(0, 0, -1)

		start := nominalStart
		if first {
			start = billingStart
		}
		end := types.MinTime(nominalEnd, contractEnd)

		if !end.Before(start) {
			factor := decimal.NewFromInt(1)
			if (first && proRata) || end.Before(nominalEnd) {
				factor = prorationFactor(start, end, nominalStart, nominalEnd)
			}
			event := types.BillingEvent{
				PeriodStart:     start,
				PeriodEnd:       end,
				NominalStart:    nominalStart,
				NominalEnd:      nominalEnd,
				ProrationFactor: factor,
			}
			// only events whose billed start falls in the requested range
			if !start.Before(types.DateOnly(from)) && !start.After(types.DateOnly(to)) {
				events = append(events, event)
			}
		}

		first = false
	}

	return events, nil
}

// periodAnchor carries the calendar anchor that nominal periods are generated
// from. Keeping year, month and day separate preserves the anchor day across
// months too short to hold it.
type periodAnchor struct {
	year  int
	month time.Month
	day   int
}

// at returns the anchor date shifted by the given number of months, with the
// day clamped to the target month.
func (a periodAnchor) at(months int) time.Time {
	return anchoredDate(a.year, a.month+time.Month(months), a.day)
}

// periodAnchor finds the anchor whose zeroth period contains the contract's
// billing start: the most recent anchor date not after it.
func (s *billingPeriodService) periodAnchor(c *contract.Contract, billingStart time.Time) (periodAnchor, error) {
	months := c.BillingInterval.Months()

	if c.BillingInterval.UsesAlignmentDate() {
		if c.BillingAlignmentDate == nil {
			return periodAnchor{}, ierr.NewError("missing billing alignment date").
				WithHintf("Interval %s requires a billing alignment date", c.BillingInterval).
				WithReportableDetails(map[string]any{
					"contract_id": c.ID,
				}).
				Mark(ierr.ErrValidation)
		}
		aligned := types.DateOnly(*c.BillingAlignmentDate)
		anchor := periodAnchor{year: aligned.Year(), month: aligned.Month(), day: aligned.Day()}
		// shift the alignment date in whole periods to the one containing
		// the billing start; the alignment date may lie before or after it
		k := 0
		for anchor.at((k + 1) * months).After(billingStart) {
			k--
		}
		for !anchor.at((k + 1) * months).After(billingStart) {
			k++
		}
		return periodAnchor{year: anchor.year, month: anchor.month + time.Month(k*months), day: anchor.day}, nil
	}

	// monthly and quarterly interval periods are anchored at the anchor day,
	// clamped to the last valid day of shorter months
	anchorDay := c.BillingAnchorDay
	if anchorDay < 1 {
		anchorDay = 1
	}
	y, m, _ := billingStart.Date()
	anchor := periodAnchor{year: y, month: m, day: anchorDay}
	if anchor.at(0).After(billingStart) {
		anchor.month--
	}
	return anchor, nil
}

// anchoredDate builds the anchor date for a month, clamping the day to the
// last valid day of that month. Month may lie outside 1..12.
func anchoredDate(year int, month time.Month, day int) time.Time {
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return types.AddClampedDate(jan1, 0, int(month)-1, day-1)
}

// prorationFactor is (days billed / days in full nominal period) using
// calendar day counting with both endpoints included.
func prorationFactor(start, end, nominalStart, nominalEnd time.Time) decimal.Decimal {
	nominalDays := types.DaysBetweenInclusive(nominalStart, nominalEnd)
	billedDays := types.DaysBetweenInclusive(start, end)
	if nominalDays == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(billedDays)).Div(decimal.NewFromInt(int64(nominalDays)))
}

func (s *billingPeriodService) ClipToItemWindow(events []types.BillingEvent, item *contract.ContractItem) []types.BillingEvent {
	if item.BillingStartDate == nil && item.BillingEndDate == nil && item.ProrationAnchor == nil {
		return events
	}

	var clipped []types.BillingEvent
	for _, event := range events {
		start := event.PeriodStart
		end := event.PeriodEnd
		if item.BillingStartDate != nil {
			start = types.MaxTime(start, types.DateOnly(*item.BillingStartDate))
		}
		// the anchor moves the measured start of the one period it falls
		// inside, so the item's first partial span is charged from the
		// anchor onwards
		if item.ProrationAnchor != nil {
			anchor := types.DateOnly(*item.ProrationAnchor)
			if anchor.After(start) && !anchor.After(end) {
				start = anchor
			}
		}
		if item.BillingEndDate != nil {
			end = types.MinTime(end, types.DateOnly(*item.BillingEndDate))
		}
		// events fully outside the override window are omitted, not zeroed
		if end.Before(start) {
			continue
		}
		// an untouched event keeps its factor so a non-prorated first
		// period stays at 1
		if !start.Equal(event.PeriodStart) || !end.Equal(event.PeriodEnd) {
			event.PeriodStart = start
			event.PeriodEnd = end
			event.ProrationFactor = prorationFactor(start, end, event.NominalStart, event.NominalEnd)
		}
		clipped = append(clipped, event)
	}
	return clipped
}
