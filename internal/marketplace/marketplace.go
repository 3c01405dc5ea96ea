// Package marketplace keeps the coin marketplace in sync with the API: open offers, the user's
// own offers, exchange requests and the last-known balance. Mutations are pessimistic: the
// collections are refetched after the server accepts a change.
package marketplace

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"
	"unicode/utf8"

	"reciclo/internal/api"
	"reciclo/internal/models"
	"reciclo/internal/pkg/debounce"
	"reciclo/internal/pkg/events"
	"reciclo/internal/pkg/logger"
	"reciclo/internal/pkg/notify"
	"reciclo/internal/pkg/report"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	offersPath       = "/api/coin-offers/"
	myOffersPath     = "/api/my-offers/"
	exchangesPath    = "/api/exchange-requests/"
	dashboardPath    = "/api/user/dashboard/"
	usersPath        = "/api/users/"
	transactionsPath = "/api/transactions/"

	// MinSearchLength is the shortest user search term sent to the API.
	MinSearchLength = 2
)

// Data holds the marketplace collections.
type Data struct {
	AvailableOffers  []models.CoinOffer
	MyOffers         []models.CoinOffer
	ExchangeRequests []models.ExchangeRequest
}

// Service is the marketplace of the signed-in user.
type Service struct {
	client   *api.Client
	notifier notify.Notifier
	reporter *report.Reporter
	bus      events.Publisher
	clock    clockwork.Clock
	log      *logger.Logger

	mu         sync.RWMutex
	data       Data
	balance    models.Balance
	loading    bool
	submitting int
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the clock driving debounced searches.
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// NewService creates a marketplace Service. bus and reporter may be nil.
func NewService(client *api.Client, notifier notify.Notifier, reporter *report.Reporter, bus events.Publisher, l *logger.Logger, opts ...Option) *Service {
	if bus == nil {
		bus = events.Nop{}
	}
	if reporter == nil {
		reporter = report.Nop(l)
	}
	s := &Service{
		client:   client,
		notifier: notifier,
		reporter: reporter,
		bus:      bus,
		clock:    clockwork.NewRealClock(),
		log:      l,
		data:     emptyData(),
		loading:  true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func emptyData() Data {
	return Data{
		AvailableOffers:  []models.CoinOffer{},
		MyOffers:         []models.CoinOffer{},
		ExchangeRequests: []models.ExchangeRequest{},
	}
}

// Data returns a copy of the collections.
func (s *Service) Data() Data {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Data{
		AvailableOffers:  append([]models.CoinOffer{}, s.data.AvailableOffers...),
		MyOffers:         append([]models.CoinOffer{}, s.data.MyOffers...),
		ExchangeRequests: append([]models.ExchangeRequest{}, s.data.ExchangeRequests...),
	}
}

// Balance returns the last-known balance.
func (s *Service) Balance() models.Balance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balance
}

// IsLoading reports whether the collections are being fetched.
func (s *Service) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// IsSubmitting reports whether an offer or exchange request is being created.
func (s *Service) IsSubmitting() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.submitting > 0
}

func (s *Service) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func (s *Service) submit() func() {
	s.mu.Lock()
	s.submitting++
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.submitting--
		s.mu.Unlock()
	}
}

// FetchData loads the three collections concurrently. They are replaced only if all succeed.
func (s *Service) FetchData(ctx context.Context) bool {
	s.setLoading(true)
	defer s.setLoading(false)

	if !s.client.HasToken() {
		s.notifier.Error(report.MsgLoginRequired)
		return false
	}

	var next Data
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		next.AvailableOffers, err = api.List[models.CoinOffer](gctx, s.client, offersPath)
		return err
	})
	g.Go(func() (err error) {
		next.MyOffers, err = api.List[models.CoinOffer](gctx, s.client, myOffersPath)
		return err
	})
	g.Go(func() (err error) {
		next.ExchangeRequests, err = api.List[models.ExchangeRequest](gctx, s.client, exchangesPath)
		return err
	})
	if err := g.Wait(); err != nil {
		s.reporter.Failure(s.notifier, "fetch marketplace", err, "Failed to load marketplace data.")
		return false
	}

	s.mu.Lock()
	s.data = next
	s.mu.Unlock()
	return true
}

// FetchUserBalance refreshes the last-known balance from the dashboard. Failures are only logged.
func (s *Service) FetchUserBalance(ctx context.Context) bool {
	if !s.client.HasToken() {
		s.notifier.Error(report.MsgLoginRequired)
		return false
	}

	var balance models.Balance
	if err := s.client.Get(ctx, dashboardPath, &balance); err != nil {
		s.log.Warn("failed to fetch user balance", zap.Error(err))
		return false
	}

	s.mu.Lock()
	s.balance = balance
	s.mu.Unlock()
	return true
}

// SearchUsers looks users up by name. Terms shorter than MinSearchLength return no results
// without calling the API.
func (s *Service) SearchUsers(ctx context.Context, term string) []models.UserSummary {
	if utf8.RuneCountInString(term) < MinSearchLength {
		return []models.UserSummary{}
	}
	if !s.client.HasToken() {
		s.notifier.Error(report.MsgLoginRequired)
		return []models.UserSummary{}
	}

	users, err := api.List[models.UserSummary](ctx, s.client, usersPath+"?search="+url.QueryEscape(term))
	if err != nil {
		s.reporter.Failure(s.notifier, "search users", err, "Failed to search users.")
		return []models.UserSummary{}
	}
	return users
}

// UserSearch debounces keystrokes of a user search box. Only the term typed last before a
// quiet period is searched, and its results are passed to onResults.
type UserSearch struct {
	d *debounce.Debouncer[string]
}

// NewUserSearch creates a debounced search feed. Searches run with ctx.
func (s *Service) NewUserSearch(ctx context.Context, delay time.Duration, onResults func(term string, users []models.UserSummary)) *UserSearch {
	return &UserSearch{d: debounce.New(s.clock, delay, func(term string) {
		onResults(term, s.SearchUsers(ctx, term))
	})}
}

// Type records the current content of the search box.
func (u *UserSearch) Type(term string) { u.d.Set(term) }

// Flush searches the pending term now.
func (u *UserSearch) Flush() { u.d.Flush() }

// Stop cancels the pending search.
func (u *UserSearch) Stop() { u.d.Stop() }

// ValidateOffer checks an offer against the last-known balance.
func ValidateOffer(o models.NewOffer, balance models.Balance) error {
	if o.Amount <= 0 {
		return models.Invalid("The amount of coins must be greater than zero.")
	}
	if o.OfferType == models.OfferSale && !o.PricePerCoin.IsPositive() {
		return models.Invalid("The price per coin must be greater than zero.")
	}
	switch o.CoinType {
	case models.CoinRecycling:
		if o.Amount > balance.RecyclingCoins {
			return models.Invalid("You do not have enough recycling coins to create this offer.")
		}
	case models.CoinReputation:
		if o.Amount > balance.ReputationCoins {
			return models.Invalid("You do not have enough reputation coins to create this offer.")
		}
	default:
		return models.Invalid(fmt.Sprintf("Unknown coin type %q.", o.CoinType))
	}
	return nil
}

// ValidateExchange checks an exchange request against the last-known balance.
func ValidateExchange(r models.NewExchangeRequest, balance models.Balance) error {
	if r.ReceiverID == 0 {
		return models.Invalid("Choose the user to exchange with.")
	}
	if r.OfferRecyclingCoins < 0 || r.OfferReputationCoins < 0 || r.RequestRecyclingCoins < 0 || r.RequestReputationCoins < 0 {
		return models.Invalid("Coin amounts cannot be negative.")
	}
	if r.OfferRecyclingCoins > balance.RecyclingCoins || r.OfferReputationCoins > balance.ReputationCoins {
		return models.Invalid("Insufficient balance to make this offer.")
	}
	if r.OfferRecyclingCoins+r.OfferReputationCoins == 0 || r.RequestRecyclingCoins+r.RequestReputationCoins == 0 {
		return models.Invalid("An exchange must offer and request at least one coin.")
	}
	return nil
}

// CreateOffer publishes a sale or gift offer.
func (s *Service) CreateOffer(ctx context.Context, offer models.NewOffer) bool {
	if err := ValidateOffer(offer, s.Balance()); err != nil {
		s.notifier.Error(err.Error())
		return false
	}
	if offer.OfferType == models.OfferGift {
		offer.PricePerCoin = decimal.Zero
	}
	done := s.submit()
	defer done()

	return s.mutate(ctx, "create offer", func(ctx context.Context) error {
		return s.client.Post(ctx, offersPath, offer, nil)
	}, "Offer created successfully!", "Failed to create the offer.", true)
}

// PurchaseOffer buys an open offer.
func (s *Service) PurchaseOffer(ctx context.Context, id int64) bool {
	return s.mutate(ctx, "purchase offer", func(ctx context.Context) error {
		return s.client.Post(ctx, fmt.Sprintf("%s%d/purchase/", offersPath, id), struct{}{}, nil)
	}, "Purchase completed successfully!", "Failed to purchase the offer.", true)
}

// CancelOffer withdraws one of the user's offers.
func (s *Service) CancelOffer(ctx context.Context, id int64) bool {
	return s.mutate(ctx, "cancel offer", func(ctx context.Context) error {
		return s.client.Post(ctx, fmt.Sprintf("%s%d/cancel/", offersPath, id), struct{}{}, nil)
	}, "Offer cancelled successfully!", "Failed to cancel the offer.", true)
}

// CreateExchangeRequest proposes a coin swap to another user.
func (s *Service) CreateExchangeRequest(ctx context.Context, req models.NewExchangeRequest) bool {
	if err := ValidateExchange(req, s.Balance()); err != nil {
		s.notifier.Error(err.Error())
		return false
	}
	done := s.submit()
	defer done()

	return s.mutate(ctx, "create exchange request", func(ctx context.Context) error {
		return s.client.Post(ctx, exchangesPath, req, nil)
	}, "Exchange request sent!", "Failed to create the exchange request.", true)
}

// RespondToExchangeRequest accepts or rejects a request addressed to the user.
func (s *Service) RespondToExchangeRequest(ctx context.Context, id int64, accept bool) bool {
	success := "Exchange rejected."
	if accept {
		success = "Exchange accepted successfully!"
	}
	return s.mutate(ctx, "respond to exchange request", func(ctx context.Context) error {
		return s.client.Post(ctx, fmt.Sprintf("%s%d/respond/", exchangesPath, id), models.ExchangeResponse{Accept: accept}, nil)
	}, success, "Failed to respond to the request.", true)
}

// CancelExchangeRequest withdraws a request made by the user. Coins do not move, so only the
// collections are refreshed.
func (s *Service) CancelExchangeRequest(ctx context.Context, id int64) bool {
	return s.mutate(ctx, "cancel exchange request", func(ctx context.Context) error {
		return s.client.Delete(ctx, fmt.Sprintf("%s%d/", exchangesPath, id))
	}, "Exchange request cancelled.", "Failed to cancel the request.", false)
}

// Transactions returns the user's coin transaction history.
func (s *Service) Transactions(ctx context.Context) []models.CoinTransaction {
	if !s.client.HasToken() {
		s.notifier.Error(report.MsgLoginRequired)
		return nil
	}
	txs, err := api.List[models.CoinTransaction](ctx, s.client, transactionsPath)
	if err != nil {
		s.reporter.Failure(s.notifier, "fetch transactions", err, "Failed to load transactions.")
		return nil
	}
	return txs
}

// mutate runs call and, on success, refreshes the collections and, when coins moved, the balance.
func (s *Service) mutate(ctx context.Context, op string, call func(context.Context) error, success, failure string, coinsMoved bool) bool {
	if !s.client.HasToken() {
		s.notifier.Error(report.MsgLoginRequired)
		return false
	}
	if err := call(ctx); err != nil {
		s.reporter.Failure(s.notifier, op, err, failure)
		return false
	}

	s.notifier.Success(success)
	s.FetchData(ctx)
	if coinsMoved {
		s.FetchUserBalance(ctx)
		s.bus.Publish(events.BalanceChanged)
	}
	return true
}
