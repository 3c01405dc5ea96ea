package stubapi

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"reciclo/internal/models"
	"reciclo/internal/pkg/auth"
	"reciclo/internal/pkg/logger"
	"reciclo/internal/pkg/security"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// Game rules of the stub. The real server owns these; the stub only needs plausible numbers.
const (
	ExperiencePerLevel  = 100
	ExperiencePerBottle = 10
	CoinsPerBottle      = 2
	historyMonths       = 6
)

const nonFieldErrors = "non_field_errors"

// ErrNoFiles is returned when a model without files is downloaded.
var ErrNoFiles = errors.New("stubapi: model has no files")

// FieldError is a validation failure of one request field, written as {"field": ["message"]}.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

func fieldError(field, msg string) error {
	return &FieldError{Field: field, Message: msg}
}

type achievementRule struct {
	ID          int64
	Title       string
	Description string
	Icon        string
	Goal        int
	Reward      int
}

var achievementRules = []achievementRule{
	{ID: 1, Title: "First bottle", Description: "Recycle your first bottle.", Icon: "recycle", Goal: 1, Reward: 10},
	{ID: 2, Title: "Getting started", Description: "Recycle 10 bottles.", Icon: "leaf", Goal: 10, Reward: 20},
	{ID: 3, Title: "Eco hero", Description: "Recycle 100 bottles.", Icon: "award", Goal: 100, Reward: 50},
}

// Backend holds the stub's request logic on top of a Store.
type Backend struct {
	store  Store
	issuer *auth.Issuer
	clock  clockwork.Clock
	log    *logger.Logger
}

// NewBackend creates a Backend. A nil clock means the real clock.
func NewBackend(store Store, issuer *auth.Issuer, clock clockwork.Clock, l *logger.Logger) *Backend {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Backend{store: store, issuer: issuer, clock: clock, log: l}
}

// Register creates an account and returns its token.
func (b *Backend) Register(ctx context.Context, reg models.Registration) (string, error) {
	switch {
	case strings.TrimSpace(reg.Username) == "":
		return "", fieldError("username", "This field is required.")
	case strings.TrimSpace(reg.Email) == "":
		return "", fieldError("email", "This field is required.")
	case reg.Password1 == "":
		return "", fieldError("password1", "This field is required.")
	case reg.Password1 != reg.Password2:
		return "", fieldError(nonFieldErrors, "The two password fields didn't match.")
	}

	account, err := b.store.CreateAccount(ctx, &Account{
		Username:     strings.TrimSpace(reg.Username),
		Email:        strings.TrimSpace(reg.Email),
		PasswordHash: security.HashPassword(reg.Password1),
	})
	if errors.Is(err, ErrConflict) {
		return "", fieldError("email", "A user is already registered with this e-mail address.")
	}
	if err != nil {
		return "", err
	}
	return b.issuer.GenerateToken(account.ID)
}

// Login checks the credentials and returns a fresh token.
func (b *Backend) Login(ctx context.Context, creds models.Credentials) (string, error) {
	if creds.Email == "" || creds.Password == "" {
		return "", fieldError(nonFieldErrors, `Must include "email" and "password".`)
	}
	invalid := fieldError(nonFieldErrors, "Unable to log in with provided credentials.")

	account, err := b.store.AccountByEmail(ctx, creds.Email)
	if errors.Is(err, ErrNotFound) {
		return "", invalid
	}
	if err != nil {
		return "", err
	}
	if err := security.CheckPassword(account.PasswordHash, creds.Password); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return "", invalid
		}
		return "", err
	}
	return b.issuer.GenerateToken(account.ID)
}

// CurrentUser returns the user record of the account.
func (b *Backend) CurrentUser(ctx context.Context, id int64) (*models.User, error) {
	account, err := b.store.AccountByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u := account.User()
	return &u, nil
}

// UpdateProfile changes the non-empty fields of the profile.
func (b *Backend) UpdateProfile(ctx context.Context, id int64, username, email, imageName string) (*models.User, error) {
	account, err := b.store.UpdateAccount(ctx, id, func(a *Account) error {
		if username != "" {
			a.Username = username
		}
		if email != "" {
			a.Email = email
		}
		if imageName != "" {
			image := fmt.Sprintf("/media/profiles/%d/%s", a.ID, imageName)
			a.Image = &image
		}
		return nil
	})
	if errors.Is(err, ErrConflict) {
		return nil, fieldError("username", "A user with that username already exists.")
	}
	if err != nil {
		return nil, err
	}
	u := account.User()
	return &u, nil
}

// SearchUsers looks other users up by username.
func (b *Backend) SearchUsers(ctx context.Context, viewer int64, term string) ([]models.UserSummary, error) {
	accounts, err := b.store.SearchAccounts(ctx, strings.TrimSpace(term), viewer)
	if err != nil {
		return nil, err
	}
	out := make([]models.UserSummary, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, *a.Summary())
	}
	return out, nil
}

// CreateModel validates and stores an upload.
func (b *Backend) CreateModel(ctx context.Context, owner int64, m NewModelRecord) (*models.Model3D, error) {
	switch {
	case strings.TrimSpace(m.Name) == "":
		return nil, fieldError("name", "This field is required.")
	case m.FileName == "":
		return nil, fieldError("file", "No file was submitted.")
	}
	return b.store.CreateModel(ctx, owner, m)
}

// Archive zips the files of a model for download and returns the suggested filename.
func (b *Backend) Archive(ctx context.Context, viewer, id int64) (string, []byte, error) {
	archive, err := b.store.TakeArchive(ctx, viewer, id)
	if err != nil {
		return "", nil, err
	}
	if len(archive.Files) == 0 {
		return "", nil, ErrNoFiles
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range archive.Files {
		w, err := zw.Create(f.Name)
		if err != nil {
			return "", nil, err
		}
		if _, err := w.Write(f.Data); err != nil {
			return "", nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return "", nil, err
	}
	return slug(archive.ModelName) + ".zip", buf.Bytes(), nil
}

func slug(name string) string {
	s := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		}
		return '_'
	}, strings.TrimSpace(name))
	if strings.Trim(s, "_") == "" {
		return "model"
	}
	return s
}

// Recycle registers bottles, credits coins and experience, and unlocks achievements.
func (b *Backend) Recycle(ctx context.Context, userID int64, sub models.RecyclingSubmission) (*models.RecyclingResult, error) {
	switch {
	case strings.TrimSpace(sub.Type) == "":
		return nil, fieldError("type", "Choose the bottle type.")
	case strings.TrimSpace(sub.Volume) == "":
		return nil, fieldError("volume", "Choose the bottle volume.")
	case sub.Quantity <= 0:
		return nil, fieldError("quantity", "The quantity must be at least 1.")
	}

	earned := sub.Quantity * CoinsPerBottle
	var levelBefore int
	account, err := b.store.UpdateAccount(ctx, userID, func(a *Account) error {
		levelBefore = a.Level()
		a.RecyclingCoins += earned
		a.Experience += sub.Quantity * ExperiencePerBottle
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := b.store.AddRecycling(ctx, RecyclingEntry{
		UserID: userID, Type: sub.Type, Volume: sub.Volume, Quantity: sub.Quantity, Date: b.clock.Now(),
	}); err != nil {
		return nil, err
	}

	total, err := b.totalBottles(ctx, userID)
	if err != nil {
		return nil, err
	}
	unlocked := []models.Achievement{}
	for _, rule := range achievementRules {
		if total < rule.Goal {
			continue
		}
		fresh, err := b.store.UnlockAchievement(ctx, userID, rule.ID)
		if err != nil {
			return nil, err
		}
		if !fresh {
			continue
		}
		if account, err = b.store.UpdateAccount(ctx, userID, func(a *Account) error {
			a.ReputationCoins += rule.Reward
			return nil
		}); err != nil {
			return nil, err
		}
		unlocked = append(unlocked, rule.achievement(true, total))
	}

	return &models.RecyclingResult{
		Message:         fmt.Sprintf("%d bottle(s) registered. You earned %d coins.", sub.Quantity, earned),
		CoinsEarned:     earned,
		LevelUp:         account.Level() > levelBefore,
		NewAchievements: unlocked,
	}, nil
}

func (r achievementRule) achievement(unlocked bool, current int) models.Achievement {
	a := models.Achievement{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		IconName:    r.Icon,
		Unlocked:    unlocked,
		Reward:      r.Reward,
	}
	if !unlocked {
		a.Progress = &models.AchievementProgress{Current: current, Total: r.Goal, Unit: "bottles"}
	}
	return a
}

func (b *Backend) totalBottles(ctx context.Context, userID int64) (int, error) {
	entries, err := b.store.Recycling(ctx, userID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, e := range entries {
		total += e.Quantity
	}
	return total, nil
}

// Dashboard builds the dashboard snapshot of the account.
func (b *Backend) Dashboard(ctx context.Context, userID int64) (*models.Dashboard, error) {
	account, err := b.store.AccountByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	entries, err := b.store.Recycling(ctx, userID)
	if err != nil {
		return nil, err
	}
	unlocked, err := b.store.Unlocked(ctx, userID)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, e := range entries {
		total += e.Quantity
	}
	achievements := make([]models.Achievement, 0, len(achievementRules))
	for _, rule := range achievementRules {
		achievements = append(achievements, rule.achievement(unlocked[rule.ID], total))
	}

	level := account.Level()
	return &models.Dashboard{
		RecyclingCoins:         account.RecyclingCoins,
		ReputationCoins:        account.ReputationCoins,
		Level:                  level,
		Experience:             account.Experience,
		ExperienceForNextLevel: level * ExperiencePerLevel,
		RecyclingData:          b.history(entries),
		Achievements:           achievements,
	}, nil
}

// history buckets the entries of the last months, oldest first.
func (b *Backend) history(entries []RecyclingEntry) []models.MonthlyRecycling {
	now := b.clock.Now()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -(historyMonths - 1), 0)

	buckets := make([]models.MonthlyRecycling, historyMonths)
	for i := range buckets {
		buckets[i].Month = first.AddDate(0, i, 0).Month().String()[:3]
	}
	for _, e := range entries {
		if e.Date.Before(first) {
			continue
		}
		i := (e.Date.Year()-first.Year())*12 + int(e.Date.Month()) - int(first.Month())
		if i >= 0 && i < historyMonths {
			buckets[i].Quantity += e.Quantity
		}
	}
	return buckets
}

// CreateOffer validates and stores a coin offer.
func (b *Backend) CreateOffer(ctx context.Context, seller int64, o models.NewOffer) (*models.CoinOffer, error) {
	switch {
	case o.CoinType != models.CoinRecycling && o.CoinType != models.CoinReputation:
		return nil, fieldError("coin_type", fmt.Sprintf("%q is not a valid choice.", o.CoinType))
	case o.OfferType != models.OfferSale && o.OfferType != models.OfferGift:
		return nil, fieldError("offer_type", fmt.Sprintf("%q is not a valid choice.", o.OfferType))
	case o.Amount <= 0:
		return nil, fieldError("amount", "Ensure this value is greater than or equal to 1.")
	case o.OfferType == models.OfferSale && !o.PricePerCoin.IsPositive():
		return nil, fieldError("price_per_coin", "Sale offers need a positive price.")
	}
	if o.OfferType == models.OfferGift {
		o.PricePerCoin = decimal.Zero
	}
	return b.store.CreateOffer(ctx, seller, o)
}

// CreateExchange validates and stores an exchange request.
func (b *Backend) CreateExchange(ctx context.Context, requester int64, r models.NewExchangeRequest) (*models.ExchangeRequest, error) {
	if r.ReceiverID == 0 {
		return nil, fieldError("receiver_id", "This field is required.")
	}
	if r.OfferRecyclingCoins < 0 || r.OfferReputationCoins < 0 || r.RequestRecyclingCoins < 0 || r.RequestReputationCoins < 0 {
		return nil, fieldError(nonFieldErrors, "Coin amounts cannot be negative.")
	}
	if r.OfferRecyclingCoins+r.OfferReputationCoins == 0 || r.RequestRecyclingCoins+r.RequestReputationCoins == 0 {
		return nil, fieldError(nonFieldErrors, "An exchange must offer and request at least one coin.")
	}
	return b.store.CreateExchange(ctx, requester, r)
}

// SeedCurator creates a curator account unless the email is taken.
func (b *Backend) SeedCurator(ctx context.Context, username, email, password string) error {
	_, err := b.store.CreateAccount(ctx, &Account{
		Username:     username,
		Email:        email,
		PasswordHash: security.HashPassword(password),
		IsCurator:    true,
	})
	if errors.Is(err, ErrConflict) {
		return nil
	}
	return err
}
