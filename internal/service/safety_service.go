package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dluxlabs/safetymarket/internal/domain"
	"github.com/dluxlabs/safetymarket/internal/pricing"
)

// FlagInput is the validated request to report a dApp for a safety issue.
type FlagInput struct {
	DAppID      string              `json:"dappId"`
	Metric      domain.SafetyMetric `json:"metric"`
	Description string              `json:"description"`
	FlaggedBy   string              `json:"flaggedBy"`
}

func (in *FlagInput) validate() error {
	if strings.TrimSpace(in.DAppID) == "" {
		return fmt.Errorf("%w: missing dappId", domain.ErrInvalidInput)
	}
	if !in.Metric.Valid() {
		return fmt.Errorf("%w: unknown safety metric %q", domain.ErrInvalidInput, in.Metric)
	}
	if strings.TrimSpace(in.FlaggedBy) == "" {
		return fmt.Errorf("%w: missing flaggedBy", domain.ErrInvalidInput)
	}
	return nil
}

// SafetyService rolls markets and flags up into per-dApp safety verdicts and
// handles manual flag filing.
type SafetyService struct {
	markets   domain.MarketStore
	flags     domain.FlagStore
	marketSvc *MarketService
	now       func() time.Time
	logger    *slog.Logger
}

// NewSafetyService creates a SafetyService. The MarketService is used to
// open a market whenever a flag is filed.
func NewSafetyService(
	markets domain.MarketStore,
	flags domain.FlagStore,
	marketSvc *MarketService,
	now func() time.Time,
	logger *slog.Logger,
) *SafetyService {
	if now == nil {
		now = time.Now
	}
	return &SafetyService{
		markets:   markets,
		flags:     flags,
		marketSvc: marketSvc,
		now:       now,
		logger:    logger.With(slog.String("component", "safety_service")),
	}
}

// DAppSafetyStatus computes the worst-case-wins verdict for a dApp. Any red
// market taints the whole dApp; yellow dominates green; a dApp with no
// market history at all is unknown/gray. Missing data is never an error.
func (s *SafetyService) DAppSafetyStatus(ctx context.Context, dappID string) (domain.DAppSafetyStatus, error) {
	if strings.TrimSpace(dappID) == "" {
		return domain.DAppSafetyStatus{}, fmt.Errorf("%w: missing dappId", domain.ErrInvalidInput)
	}

	now := s.now().UTC()

	all, err := s.markets.ListByDApp(ctx, dappID)
	if err != nil {
		return domain.DAppSafetyStatus{}, fmt.Errorf("safety_service: list markets for %s: %w", dappID, err)
	}

	var active, resolvedMarkets []domain.Market
	for _, m := range all {
		switch {
		case m.Status == domain.MarketStatusOpen && !m.Expired(now):
			active = append(active, m)
		case m.Status == domain.MarketStatusResolved:
			resolvedMarkets = append(resolvedMarkets, m)
		}
		// Cancelled markets carry no verdict and are skipped.
	}

	flags, err := s.flags.ListByDApp(ctx, dappID)
	if err != nil {
		s.logger.WarnContext(ctx, "flag lookup failed, degrading to no flags",
			slog.String("dapp_id", dappID),
			slog.String("error", err.Error()),
		)
		flags = nil
	}

	status, color := overallVerdict(active, resolvedMarkets)

	return domain.DAppSafetyStatus{
		DAppID:          dappID,
		ActiveMarkets:   active,
		ResolvedMarkets: resolvedMarkets,
		Flags:           flags,
		OverallStatus:   status,
		OverallColor:    color,
		LastChecked:     now,
	}, nil
}

// overallVerdict applies the worst-case-wins policy. Active markets are
// judged by their live status color; with only resolved markets, a single
// unsafe resolution makes the dApp unsafe.
func overallVerdict(active, resolved []domain.Market) (domain.OverallStatus, domain.StatusColor) {
	if len(active) == 0 && len(resolved) == 0 {
		return domain.StatusUnknown, domain.ColorGray
	}

	if len(active) > 0 {
		anyYellow := false
		for i := range active {
			switch pricing.Color(&active[i]) {
			case domain.ColorRed:
				return domain.StatusUnsafe, domain.ColorRed
			case domain.ColorYellow:
				anyYellow = true
			}
		}
		if anyYellow {
			return domain.StatusWarning, domain.ColorYellow
		}
		return domain.StatusSafe, domain.ColorGreen
	}

	for _, m := range resolved {
		if m.Resolution == domain.SideUnsafe {
			return domain.StatusUnsafe, domain.ColorRed
		}
	}
	return domain.StatusSafe, domain.ColorGreen
}

// FlagDApp records a safety flag and opens a prediction market for it.
func (s *SafetyService) FlagDApp(ctx context.Context, in FlagInput) (domain.SafetyFlag, error) {
	if err := in.validate(); err != nil {
		return domain.SafetyFlag{}, err
	}

	flag := domain.SafetyFlag{
		ID:          "flag_" + uuid.NewString(),
		DAppID:      in.DAppID,
		Metric:      in.Metric,
		Description: in.Description,
		FlaggedBy:   in.FlaggedBy,
		CreatedAt:   s.now().UTC(),
	}

	if err := s.flags.Save(ctx, flag); err != nil {
		return domain.SafetyFlag{}, fmt.Errorf("safety_service: save flag: %w", err)
	}

	if _, err := s.marketSvc.CreateMarket(ctx, CreateMarketInput{
		DAppID:             in.DAppID,
		SafetyMetric:       in.Metric,
		Description:        in.Description,
		TriggeredBy:        domain.TriggerFlag,
		TriggeredByAddress: in.FlaggedBy,
	}); err != nil {
		return domain.SafetyFlag{}, fmt.Errorf("safety_service: open market for flag %s: %w", flag.ID, err)
	}

	s.logger.InfoContext(ctx, "dapp flagged",
		slog.String("flag_id", flag.ID),
		slog.String("dapp_id", in.DAppID),
		slog.String("metric", string(in.Metric)),
	)

	return flag, nil
}
