package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dluxlabs/safetymarket/internal/domain"
	"github.com/dluxlabs/safetymarket/internal/notify"
	"github.com/dluxlabs/safetymarket/internal/pricing"
)

// lockTTL bounds how long a per-market lock can be held. Mutations are pure
// computation plus one ledger write, so a holder that dies mid-operation
// frees the market well before the next sweep.
const lockTTL = 15 * time.Second

// CreateMarketInput is the validated request to open a new market.
type CreateMarketInput struct {
	DAppID                 string               `json:"dappId"`
	SafetyMetric           domain.SafetyMetric  `json:"safetyMetric"`
	Description            string               `json:"description,omitempty"`
	PostingFeeContribution int64                `json:"postingFeeContribution,omitempty"`
	TriggeredBy            domain.TriggerSource `json:"triggeredBy"`
	TriggeredByAddress     string               `json:"triggeredByAddress"`
}

func (in *CreateMarketInput) validate() error {
	if strings.TrimSpace(in.DAppID) == "" {
		return fmt.Errorf("%w: missing dappId", domain.ErrInvalidInput)
	}
	if !in.SafetyMetric.Valid() {
		return fmt.Errorf("%w: unknown safety metric %q", domain.ErrInvalidInput, in.SafetyMetric)
	}
	if !in.TriggeredBy.Valid() {
		return fmt.Errorf("%w: unknown trigger source %q", domain.ErrInvalidInput, in.TriggeredBy)
	}
	if in.PostingFeeContribution < 0 {
		return fmt.Errorf("%w: negative posting fee contribution", domain.ErrInvalidInput)
	}
	return nil
}

// PlaceBetInput is the validated request to stake on one side of a market.
type PlaceBetInput struct {
	MarketID string      `json:"marketId"`
	Bettor   string      `json:"bettor"`
	Side     domain.Side `json:"side"`
	Amount   int64       `json:"amount"`
}

func (in *PlaceBetInput) validate() error {
	if strings.TrimSpace(in.MarketID) == "" {
		return fmt.Errorf("%w: missing marketId", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(in.Bettor) == "" {
		return fmt.Errorf("%w: missing bettor", domain.ErrInvalidInput)
	}
	if !in.Side.Valid() {
		return fmt.Errorf("%w: unknown side %q", domain.ErrInvalidInput, in.Side)
	}
	if in.Amount <= 0 {
		return fmt.Errorf("%w: bet amount must be positive", domain.ErrInvalidInput)
	}
	return nil
}

// ResolveMarketInput is the request to close a market. An empty Resolution
// lets the pool balance decide; a supplied one is an authoritative override.
type ResolveMarketInput struct {
	MarketID   string            `json:"marketId"`
	Resolution domain.Resolution `json:"resolution,omitempty"`
}

func (in *ResolveMarketInput) validate() error {
	if strings.TrimSpace(in.MarketID) == "" {
		return fmt.Errorf("%w: missing marketId", domain.ErrInvalidInput)
	}
	if in.Resolution != "" && !in.Resolution.Valid() {
		return fmt.Errorf("%w: unknown resolution %q", domain.ErrInvalidInput, in.Resolution)
	}
	return nil
}

// MarketService owns the market lifecycle: creation, bet placement,
// resolution, and administrative cancellation. Every read-modify-write on a
// market happens under that market's lock, so concurrent bets keep the pool
// invariant and a market resolves at most once.
type MarketService struct {
	markets   domain.MarketStore
	cache     domain.MarketCache
	locks     domain.LockManager
	bus       domain.SignalBus
	notifier  *notify.Notifier
	adminAddr string
	horizon   time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// MarketServiceOpts carries the optional collaborators and tunables for
// NewMarketService. Cache, Bus, and Notifier may be nil.
type MarketServiceOpts struct {
	Cache        domain.MarketCache
	Bus          domain.SignalBus
	Notifier     *notify.Notifier
	AdminAddress string
	Horizon      time.Duration
	Now          func() time.Time
}

// NewMarketService creates a MarketService over the given ledger and lock
// manager.
func NewMarketService(
	markets domain.MarketStore,
	locks domain.LockManager,
	opts MarketServiceOpts,
	logger *slog.Logger,
) *MarketService {
	horizon := opts.Horizon
	if horizon <= 0 {
		horizon = pricing.DefaultHorizon
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &MarketService{
		markets:   markets,
		cache:     opts.Cache,
		locks:     locks,
		bus:       opts.Bus,
		notifier:  opts.Notifier,
		adminAddr: opts.AdminAddress,
		horizon:   horizon,
		now:       now,
		logger:    logger.With(slog.String("component", "market_service")),
	}
}

// CreateMarket opens a new market with the fixed betting horizon. The
// posting fee contribution, if any, is seeded into the unsafe pool: the fee
// paid to publish content acts as a stake that the content is unsafe until
// proven otherwise.
func (s *MarketService) CreateMarket(ctx context.Context, in CreateMarketInput) (domain.Market, error) {
	if err := in.validate(); err != nil {
		return domain.Market{}, err
	}

	now := s.now().UTC()
	description := in.Description
	if description == "" {
		description = fmt.Sprintf("Safety check for %s", in.SafetyMetric)
	}

	market := domain.Market{
		ID:                     "pm_" + uuid.NewString(),
		DAppID:                 in.DAppID,
		SafetyMetric:           in.SafetyMetric,
		Description:            description,
		Status:                 domain.MarketStatusOpen,
		SafePool:               0,
		UnsafePool:             in.PostingFeeContribution,
		TotalPool:              in.PostingFeeContribution,
		PostingFeeContribution: in.PostingFeeContribution,
		RecommendedAge:         pricing.RecommendedAge(in.SafetyMetric, in.Description),
		CreatedAt:              now,
		ExpiresAt:              now.Add(s.horizon),
		Bets:                   []domain.Bet{},
		TriggeredBy:            in.TriggeredBy,
		TriggeredByAddress:     in.TriggeredByAddress,
	}

	if err := s.markets.Save(ctx, market); err != nil {
		return domain.Market{}, fmt.Errorf("market_service: save market: %w", err)
	}

	s.publish(ctx, domain.ChannelMarkets, market)
	s.logger.InfoContext(ctx, "market created",
		slog.String("market_id", market.ID),
		slog.String("dapp_id", market.DAppID),
		slog.String("metric", string(market.SafetyMetric)),
		slog.String("triggered_by", string(market.TriggeredBy)),
		slog.Int64("posting_fee", market.PostingFeeContribution),
	)

	return market, nil
}

// PlaceBet stakes on one side of an open market. Shares are priced against
// the chosen side's pool as it stood before this bet, then the pool is
// credited and the bet appended, all under the market's lock so the expiry
// check and the pool update are one atomic unit.
func (s *MarketService) PlaceBet(ctx context.Context, in PlaceBetInput) (domain.Bet, error) {
	if err := in.validate(); err != nil {
		return domain.Bet{}, err
	}

	unlock, err := s.locks.Acquire(ctx, in.MarketID, lockTTL)
	if err != nil {
		return domain.Bet{}, fmt.Errorf("market_service: lock market %s: %w", in.MarketID, err)
	}
	defer unlock()

	market, err := s.markets.GetByID(ctx, in.MarketID)
	if err != nil {
		return domain.Bet{}, fmt.Errorf("market_service: get market %s: %w", in.MarketID, err)
	}

	now := s.now().UTC()
	if market.Status != domain.MarketStatusOpen {
		return domain.Bet{}, fmt.Errorf("%w: market %s is %s", domain.ErrMarketNotOpen, market.ID, market.Status)
	}
	if market.Expired(now) {
		return domain.Bet{}, fmt.Errorf("%w: market %s expired at %s", domain.ErrMarketExpired, market.ID, market.ExpiresAt.Format(time.RFC3339))
	}

	bet := domain.Bet{
		ID:        "bet_" + uuid.NewString(),
		MarketID:  market.ID,
		Bettor:    in.Bettor,
		Side:      in.Side,
		Amount:    in.Amount,
		Shares:    pricing.Shares(market.Pool(in.Side), in.Amount),
		CreatedAt: now,
	}

	market.AddStake(in.Side, in.Amount)
	market.Bets = append(market.Bets, bet)

	if err := s.markets.Save(ctx, market); err != nil {
		return domain.Bet{}, fmt.Errorf("market_service: save market %s: %w", market.ID, err)
	}

	s.invalidate(ctx, market.ID)
	s.publish(ctx, domain.ChannelBets, bet)
	s.logger.InfoContext(ctx, "bet placed",
		slog.String("bet_id", bet.ID),
		slog.String("market_id", market.ID),
		slog.String("side", string(bet.Side)),
		slog.Int64("amount", bet.Amount),
		slog.Int64("shares", bet.Shares),
	)

	return bet, nil
}

// ResolveMarket closes an open market and distributes payouts. With no
// requested resolution the pool balance decides, ties going to unsafe; a
// requested resolution always wins because the caller is asserting ground
// truth. Resolving a non-open market fails without touching payouts.
func (s *MarketService) ResolveMarket(ctx context.Context, in ResolveMarketInput) (domain.Market, error) {
	if err := in.validate(); err != nil {
		return domain.Market{}, err
	}

	unlock, err := s.locks.Acquire(ctx, in.MarketID, lockTTL)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: lock market %s: %w", in.MarketID, err)
	}
	defer unlock()

	market, err := s.markets.GetByID(ctx, in.MarketID)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: get market %s: %w", in.MarketID, err)
	}
	if market.Status != domain.MarketStatusOpen {
		return domain.Market{}, fmt.Errorf("%w: market %s is %s", domain.ErrMarketNotOpen, market.ID, market.Status)
	}

	resolution := pricing.MarketResolution(market.SafePool, market.UnsafePool)
	if in.Resolution != "" {
		resolution = in.Resolution
	}

	now := s.now().UTC()
	market.Status = domain.MarketStatusResolved
	market.Resolution = resolution
	market.ResolvedAt = &now
	pricing.Distribute(&market, resolution)

	if err := s.markets.Save(ctx, market); err != nil {
		return domain.Market{}, fmt.Errorf("market_service: save market %s: %w", market.ID, err)
	}

	s.invalidate(ctx, market.ID)
	s.publish(ctx, domain.ChannelResolutions, market)
	s.logger.InfoContext(ctx, "market resolved",
		slog.String("market_id", market.ID),
		slog.String("resolution", string(resolution)),
		slog.Int64("total_pool", market.TotalPool),
	)

	if s.notifier != nil {
		title := fmt.Sprintf("Market resolved: %s", market.SafetyMetric)
		msg := fmt.Sprintf("dApp %s resolved %s (pool %d, %d bets)",
			market.DAppID, resolution, market.TotalPool, len(market.Bets))
		if err := s.notifier.Notify(ctx, "market_resolved", title, msg); err != nil {
			s.logger.WarnContext(ctx, "resolution notification failed",
				slog.String("market_id", market.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	return market, nil
}

// CancelMarket moves an open market to cancelled. This is an administrative
// action for spam or abuse markets: no payout pass runs and bet payouts stay
// unset. When an admin address is configured, only that actor may cancel.
func (s *MarketService) CancelMarket(ctx context.Context, marketID, requestedBy string) (domain.Market, error) {
	if strings.TrimSpace(marketID) == "" {
		return domain.Market{}, fmt.Errorf("%w: missing marketId", domain.ErrInvalidInput)
	}
	if s.adminAddr != "" && requestedBy != s.adminAddr {
		return domain.Market{}, fmt.Errorf("%w: cancel requires the admin address", domain.ErrUnauthorized)
	}

	unlock, err := s.locks.Acquire(ctx, marketID, lockTTL)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: lock market %s: %w", marketID, err)
	}
	defer unlock()

	market, err := s.markets.GetByID(ctx, marketID)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: get market %s: %w", marketID, err)
	}
	if market.Status != domain.MarketStatusOpen {
		return domain.Market{}, fmt.Errorf("%w: market %s is %s", domain.ErrMarketNotOpen, market.ID, market.Status)
	}

	market.Status = domain.MarketStatusCancelled

	if err := s.markets.Save(ctx, market); err != nil {
		return domain.Market{}, fmt.Errorf("market_service: save market %s: %w", market.ID, err)
	}

	s.invalidate(ctx, market.ID)
	s.publish(ctx, domain.ChannelResolutions, market)
	s.logger.InfoContext(ctx, "market cancelled",
		slog.String("market_id", market.ID),
		slog.String("requested_by", requestedBy),
	)

	return market, nil
}

// GetMarket retrieves a market by id, cache first.
func (s *MarketService) GetMarket(ctx context.Context, id string) (domain.Market, error) {
	if s.cache != nil {
		if m, err := s.cache.Get(ctx, id); err == nil {
			return m, nil
		}
	}

	market, err := s.markets.GetByID(ctx, id)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: get market %s: %w", id, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, market); err != nil {
			s.logger.WarnContext(ctx, "cache set failed",
				slog.String("market_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	return market, nil
}

// MarketStatus returns the derived view of a market as of now.
func (s *MarketService) MarketStatus(ctx context.Context, id string) (domain.MarketStatusView, error) {
	market, err := s.GetMarket(ctx, id)
	if err != nil {
		return domain.MarketStatusView{}, err
	}
	return pricing.StatusView(market, s.now().UTC()), nil
}

// ActiveMarkets returns the open, unexpired markets for a dApp.
func (s *MarketService) ActiveMarkets(ctx context.Context, dappID string) ([]domain.Market, error) {
	markets, err := s.markets.ListActiveByDApp(ctx, dappID, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("market_service: list active for %s: %w", dappID, err)
	}
	return markets, nil
}

// SweepExpired resolves every expired-but-open market using the
// odds-determined outcome. Failures on individual markets are logged and
// skipped so one bad market cannot block the rest; the next sweep retries.
// It returns the number of markets resolved.
func (s *MarketService) SweepExpired(ctx context.Context) (int, error) {
	expired, err := s.markets.ListExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("market_service: list expired: %w", err)
	}

	resolved := 0
	for _, market := range expired {
		if err := ctx.Err(); err != nil {
			return resolved, err
		}

		// Auto-resolution never overrides the odds.
		if _, err := s.ResolveMarket(ctx, ResolveMarketInput{MarketID: market.ID}); err != nil {
			s.logger.WarnContext(ctx, "auto-resolve failed",
				slog.String("market_id", market.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		resolved++
	}

	return resolved, nil
}

func (s *MarketService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "cache invalidate failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
	}
}

func (s *MarketService) publish(ctx context.Context, channel string, v any) {
	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		s.logger.WarnContext(ctx, "event marshal failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := s.bus.Publish(ctx, channel, payload); err != nil {
		s.logger.WarnContext(ctx, "event publish failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}
