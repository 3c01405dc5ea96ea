package stubapi

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reciclo/internal/models"
	"reciclo/internal/pkg/auth"
	"reciclo/internal/pkg/logger"
)

func newBackend(t *testing.T) (*Backend, *SQLite, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC))
	store, err := NewSQLite(context.Background(), clock)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return NewBackend(store, auth.NewIssuer("secret", time.Hour), clock, logger.Nop()), store, clock
}

func register(t *testing.T, b *Backend, name string) int64 {
	t.Helper()
	ctx := context.Background()
	token, err := b.Register(ctx, models.Registration{Username: name, Email: name + "@example.com", Password1: "pw", Password2: "pw"})
	require.NoError(t, err)
	claims, err := b.issuer.ParseToken(token)
	require.NoError(t, err)
	return claims.UserID
}

func fund(t *testing.T, store *SQLite, id int64, recycling, reputation int) {
	t.Helper()
	_, err := store.UpdateAccount(context.Background(), id, func(a *Account) error {
		a.RecyclingCoins = recycling
		a.ReputationCoins = reputation
		return nil
	})
	require.NoError(t, err)
}

func TestBackend_LoginAfterRegister(t *testing.T) {
	b, _, _ := newBackend(t)
	ctx := context.Background()
	id := register(t, b, "ana")

	token, err := b.Login(ctx, models.Credentials{Email: "ana@example.com", Password: "pw"})
	require.NoError(t, err)
	claims, err := b.issuer.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)

	_, err = b.Login(ctx, models.Credentials{Email: "ana@example.com", Password: "nope"})
	var fieldErr *FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, nonFieldErrors, fieldErr.Field)

	_, err = b.Register(ctx, models.Registration{Username: "ana2", Email: "ANA@example.com", Password1: "pw", Password2: "pw"})
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "email", fieldErr.Field)
}

func TestBackend_RecycleUnlocksAchievementsOnce(t *testing.T) {
	b, _, _ := newBackend(t)
	ctx := context.Background()
	id := register(t, b, "ana")

	res, err := b.Recycle(ctx, id, models.RecyclingSubmission{Type: "Vidro", Volume: "1L", Quantity: 12})
	require.NoError(t, err)
	assert.Equal(t, 24, res.CoinsEarned)
	assert.True(t, res.LevelUp)
	assert.Equal(t, "12 bottle(s) registered. You earned 24 coins.", res.Message)
	require.Len(t, res.NewAchievements, 2)
	assert.Equal(t, int64(1), res.NewAchievements[0].ID)
	assert.Equal(t, int64(2), res.NewAchievements[1].ID)

	res, err = b.Recycle(ctx, id, models.RecyclingSubmission{Type: "Vidro", Volume: "1L", Quantity: 1})
	require.NoError(t, err)
	assert.Empty(t, res.NewAchievements)
	assert.False(t, res.LevelUp)

	user, err := b.CurrentUser(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 26, user.RecyclingCoins)
	assert.Equal(t, 30, user.ReputationCoins)
	assert.Equal(t, 2, user.Level)
}

func TestBackend_Dashboard(t *testing.T) {
	b, _, clock := newBackend(t)
	ctx := context.Background()
	id := register(t, b, "ana")

	_, err := b.Recycle(ctx, id, models.RecyclingSubmission{Type: "PET", Volume: "0.5L", Quantity: 3})
	require.NoError(t, err)
	clock.Advance(31 * 24 * time.Hour)
	_, err = b.Recycle(ctx, id, models.RecyclingSubmission{Type: "PET", Volume: "0.5L", Quantity: 2})
	require.NoError(t, err)

	d, err := b.Dashboard(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 10, d.RecyclingCoins)
	assert.Equal(t, 50, d.Experience)
	assert.Equal(t, 100, d.ExperienceForNextLevel)

	require.Len(t, d.RecyclingData, historyMonths)
	assert.Equal(t, "Feb", d.RecyclingData[0].Month)
	assert.Equal(t, "Jun", d.RecyclingData[4].Month)
	assert.Equal(t, 3, d.RecyclingData[4].Quantity)
	assert.Equal(t, "Jul", d.RecyclingData[5].Month)
	assert.Equal(t, 2, d.RecyclingData[5].Quantity)

	require.Len(t, d.Achievements, len(achievementRules))
	assert.True(t, d.Achievements[0].Unlocked)
	assert.Nil(t, d.Achievements[0].Progress)
	require.NotNil(t, d.Achievements[1].Progress)
	assert.Equal(t, models.AchievementProgress{Current: 5, Total: 10, Unit: "bottles"}, *d.Achievements[1].Progress)
}

func TestStore_OfferEscrow(t *testing.T) {
	b, store, _ := newBackend(t)
	ctx := context.Background()
	seller := register(t, b, "ana")
	buyer := register(t, b, "rui")
	fund(t, store, seller, 50, 0)

	_, err := b.CreateOffer(ctx, seller, models.NewOffer{OfferType: models.OfferSale, CoinType: models.CoinRecycling, Amount: 80, PricePerCoin: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	offer, err := b.CreateOffer(ctx, seller, models.NewOffer{OfferType: models.OfferSale, CoinType: models.CoinRecycling, Amount: 20, PricePerCoin: decimal.RequireFromString("0.25")})
	require.NoError(t, err)
	assert.True(t, offer.TotalPrice.Equal(decimal.NewFromInt(5)))

	a, err := store.AccountByID(ctx, seller)
	require.NoError(t, err)
	assert.Equal(t, 30, a.RecyclingCoins)

	open, err := store.Offers(ctx, buyer, false)
	require.NoError(t, err)
	require.Len(t, open, 1)
	own, err := store.Offers(ctx, seller, false)
	require.NoError(t, err)
	assert.Empty(t, own)

	assert.ErrorIs(t, store.PurchaseOffer(ctx, seller, offer.ID), ErrSelfTrade)
	require.NoError(t, store.PurchaseOffer(ctx, buyer, offer.ID))
	assert.ErrorIs(t, store.PurchaseOffer(ctx, buyer, offer.ID), ErrNotPending)
	assert.ErrorIs(t, store.CancelOffer(ctx, seller, offer.ID), ErrNotPending)

	r, err := store.AccountByID(ctx, buyer)
	require.NoError(t, err)
	assert.Equal(t, 20, r.RecyclingCoins)

	txs, err := store.Transactions(ctx, buyer)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, models.OfferSale, txs[0].TransactionType)
	assert.Equal(t, "ana", txs[0].Sender.Username)

	gift, err := b.CreateOffer(ctx, seller, models.NewOffer{OfferType: models.OfferGift, CoinType: models.CoinRecycling, Amount: 10, PricePerCoin: decimal.NewFromInt(9)})
	require.NoError(t, err)
	assert.True(t, gift.PricePerCoin.IsZero())
	require.NoError(t, store.CancelOffer(ctx, seller, gift.ID))
	a, err = store.AccountByID(ctx, seller)
	require.NoError(t, err)
	assert.Equal(t, 30, a.RecyclingCoins)
}

func TestStore_DirectedOffer(t *testing.T) {
	b, store, _ := newBackend(t)
	ctx := context.Background()
	seller := register(t, b, "ana")
	target := register(t, b, "rui")
	other := register(t, b, "eva")
	fund(t, store, seller, 0, 10)

	offer, err := b.CreateOffer(ctx, seller, models.NewOffer{OfferType: models.OfferGift, CoinType: models.CoinReputation, Amount: 5, SpecificUserID: &target})
	require.NoError(t, err)
	require.NotNil(t, offer.SpecificUser)
	assert.Equal(t, "rui", offer.SpecificUser.Username)

	visible, err := store.Offers(ctx, other, false)
	require.NoError(t, err)
	assert.Empty(t, visible)
	assert.ErrorIs(t, store.PurchaseOffer(ctx, other, offer.ID), ErrForbidden)
	require.NoError(t, store.PurchaseOffer(ctx, target, offer.ID))
}

func TestStore_ExchangeAccept(t *testing.T) {
	b, store, _ := newBackend(t)
	ctx := context.Background()
	ana := register(t, b, "ana")
	rui := register(t, b, "rui")
	fund(t, store, ana, 10, 0)
	fund(t, store, rui, 0, 4)

	_, err := b.CreateExchange(ctx, ana, models.NewExchangeRequest{ReceiverID: rui, OfferRecyclingCoins: 5})
	var fieldErr *FieldError
	require.ErrorAs(t, err, &fieldErr)

	req, err := b.CreateExchange(ctx, ana, models.NewExchangeRequest{ReceiverID: rui, OfferRecyclingCoins: 5, RequestReputationCoins: 3, Message: "deal?"})
	require.NoError(t, err)
	assert.Equal(t, models.ExchangePending, req.Status)

	assert.ErrorIs(t, store.RespondExchange(ctx, ana, req.ID, true), ErrForbidden)
	require.NoError(t, store.RespondExchange(ctx, rui, req.ID, true))
	assert.ErrorIs(t, store.CancelExchange(ctx, ana, req.ID), ErrNotPending)

	a, err := store.AccountByID(ctx, ana)
	require.NoError(t, err)
	assert.Equal(t, 5, a.RecyclingCoins)
	assert.Equal(t, 3, a.ReputationCoins)
	r, err := store.AccountByID(ctx, rui)
	require.NoError(t, err)
	assert.Equal(t, 5, r.RecyclingCoins)
	assert.Equal(t, 1, r.ReputationCoins)

	txs, err := store.Transactions(ctx, ana)
	require.NoError(t, err)
	assert.Len(t, txs, 2)
}

func TestStore_ExchangeAcceptNeedsFunds(t *testing.T) {
	b, store, _ := newBackend(t)
	ctx := context.Background()
	ana := register(t, b, "ana")
	rui := register(t, b, "rui")
	fund(t, store, ana, 10, 0)

	req, err := b.CreateExchange(ctx, ana, models.NewExchangeRequest{ReceiverID: rui, OfferRecyclingCoins: 5, RequestReputationCoins: 3})
	require.NoError(t, err)
	assert.ErrorIs(t, store.RespondExchange(ctx, rui, req.ID, true), ErrInsufficientFunds)
	require.NoError(t, store.RespondExchange(ctx, rui, req.ID, false))

	list, err := store.Exchanges(ctx, rui)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.ExchangeRejected, list[0].Status)
}

func TestStore_VisibilityAndArchive(t *testing.T) {
	b, store, _ := newBackend(t)
	ctx := context.Background()
	owner := register(t, b, "ana")
	viewer := register(t, b, "rui")
	require.NoError(t, b.SeedCurator(ctx, "curator", "curator@example.com", "pw"))
	curator, err := store.AccountByEmail(ctx, "curator@example.com")
	require.NoError(t, err)

	m, err := b.CreateModel(ctx, owner, NewModelRecord{Name: "Vaso Reciclado", FileName: "vaso.stl", FileData: []byte("solid vaso")})
	require.NoError(t, err)

	assert.ErrorIs(t, store.SetVisibility(ctx, viewer, m.ID, false), ErrForbidden)
	require.NoError(t, store.SetVisibility(ctx, curator.ID, m.ID, false))

	_, err = store.Model(ctx, viewer, m.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Model(ctx, owner, m.ID)
	assert.NoError(t, err)
	hidden, err := store.Models(ctx, 0, ModelFilter{})
	require.NoError(t, err)
	assert.Empty(t, hidden)

	require.NoError(t, store.SetVisibility(ctx, curator.ID, m.ID, true))
	name, data, err := b.Archive(ctx, viewer, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "vaso_reciclado.zip", name)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	f, err := zr.File[0].Open()
	require.NoError(t, err)
	content, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "solid vaso", string(content))

	got, err := store.Model(ctx, viewer, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Downloads)

	require.NoError(t, store.DeleteModelFile(ctx, owner, m.Files[0].ID))
	_, _, err = b.Archive(ctx, viewer, m.ID)
	assert.ErrorIs(t, err, ErrNoFiles)
}

func TestStore_LikesAndLists(t *testing.T) {
	b, store, _ := newBackend(t)
	ctx := context.Background()
	ana := register(t, b, "ana")
	rui := register(t, b, "rui")

	first, err := b.CreateModel(ctx, ana, NewModelRecord{Name: "Garrafa", FileName: "a.stl"})
	require.NoError(t, err)
	_, err = b.CreateModel(ctx, ana, NewModelRecord{Name: "Copo", Description: "vidro", FileName: "b.stl"})
	require.NoError(t, err)

	liked, likes, err := store.ToggleLike(ctx, rui, first.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, 1, likes)
	saved, err := store.ToggleSave(ctx, rui, first.ID)
	require.NoError(t, err)
	assert.True(t, saved)

	list, err := store.Models(ctx, rui, ModelFilter{List: ListLiked})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsLiked)

	list, err = store.Models(ctx, rui, ModelFilter{List: ListOwned})
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = store.Models(ctx, 0, ModelFilter{Search: "VIDRO"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Copo", list[0].Name)

	liked, likes, err = store.ToggleLike(ctx, rui, first.ID)
	require.NoError(t, err)
	assert.False(t, liked)
	assert.Equal(t, 0, likes)

	_, err = store.AddComment(ctx, rui, first.ID, "first")
	require.NoError(t, err)
	_, err = store.AddComment(ctx, ana, first.ID, "second")
	require.NoError(t, err)
	comments, err := store.Comments(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "second", comments[0].Text)
	assert.Equal(t, "ana", comments[0].User)

	assert.ErrorIs(t, store.DeleteModel(ctx, rui, first.ID), ErrForbidden)
	require.NoError(t, store.DeleteModel(ctx, ana, first.ID))
	comments, err = store.Comments(ctx, first.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestStore_AccountsIgnoreCase(t *testing.T) {
	b, store, _ := newBackend(t)
	ctx := context.Background()
	ana := register(t, b, "ana")
	register(t, b, "Anabela")

	_, err := store.UpdateAccount(ctx, ana, func(a *Account) error {
		a.Username = "ANABELA"
		return nil
	})
	assert.ErrorIs(t, err, ErrConflict)
	a, err := store.AccountByEmail(ctx, "Ana@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "ana", a.Username)

	found, err := store.SearchAccounts(ctx, "ANA", ana)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Anabela", found[0].Username)
}
