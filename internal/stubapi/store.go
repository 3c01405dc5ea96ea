// Package stubapi is a self-contained stand-in for the ReCiclo REST API. It serves the endpoints
// the client consumes with the same paths, authentication scheme and error bodies, backed by a
// private in-memory SQLite database, so the client can be exercised end to end without the real
// server.
package stubapi

import (
	"context"
	"errors"
	"time"

	"reciclo/internal/models"

	"github.com/shopspring/decimal"
)

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks reciclo/internal/stubapi Store

// Errors returned by a Store. Handlers translate them into HTTP answers.
var (
	ErrNotFound          = errors.New("stubapi: not found")
	ErrConflict          = errors.New("stubapi: already exists")
	ErrForbidden         = errors.New("stubapi: not allowed")
	ErrInsufficientFunds = errors.New("stubapi: insufficient balance")
	ErrNotPending        = errors.New("stubapi: no longer open")
	ErrSelfTrade         = errors.New("stubapi: cannot trade with yourself")
)

// Account is a registered user as the stub keeps it.
type Account struct {
	ID              int64
	Username        string
	Email           string
	PasswordHash    string
	Image           *string
	IsCurator       bool
	Experience      int
	RecyclingCoins  int
	ReputationCoins int
}

// Level derives the level from experience points.
func (a Account) Level() int {
	return 1 + a.Experience/ExperiencePerLevel
}

// User projects the account onto the API user record.
func (a Account) User() models.User {
	return models.User{
		ID:              a.ID,
		Username:        a.Username,
		Email:           a.Email,
		Handle:          a.Username,
		Image:           a.Image,
		ProfileImage:    a.Image,
		Level:           a.Level(),
		IsCurator:       a.IsCurator,
		RecyclingCoins:  a.RecyclingCoins,
		ReputationCoins: a.ReputationCoins,
	}
}

// Summary projects the account onto the nested user shape.
func (a Account) Summary() *models.UserSummary {
	return &models.UserSummary{ID: a.ID, Username: a.Username, Handle: a.Username, Image: a.Image}
}

// ModelList selects one of the model collections.
type ModelList int

const (
	ListAll ModelList = iota
	ListLiked
	ListSaved
	ListOwned
)

// ModelFilter narrows a model listing.
type ModelFilter struct {
	List   ModelList
	Search string
}

// NewModelRecord is a model upload with its first file and optional image.
type NewModelRecord struct {
	Name        string
	Description string
	Price       decimal.Decimal
	FileName    string
	FileData    []byte
	ImageName   string
}

// Archive is the content served by the download endpoint.
type Archive struct {
	ModelName string
	Files     []ArchiveFile
}

// ArchiveFile is one file of an Archive.
type ArchiveFile struct {
	Name string
	Data []byte
}

// RecyclingEntry is one registered recycling submission.
type RecyclingEntry struct {
	UserID   int64
	Type     string
	Volume   string
	Quantity int
	Date     time.Time
}

// Store holds the stub's state. Every method is atomic. The update callback of UpdateAccount
// runs inside the operation and must not call back into the store.
type Store interface {
	CreateAccount(ctx context.Context, a *Account) (*Account, error)
	AccountByEmail(ctx context.Context, email string) (*Account, error)
	AccountByID(ctx context.Context, id int64) (*Account, error)
	UpdateAccount(ctx context.Context, id int64, update func(*Account) error) (*Account, error)
	SearchAccounts(ctx context.Context, term string, exclude int64) ([]Account, error)

	Models(ctx context.Context, viewer int64, filter ModelFilter) ([]models.Model3D, error)
	Model(ctx context.Context, viewer, id int64) (*models.Model3D, error)
	CreateModel(ctx context.Context, owner int64, m NewModelRecord) (*models.Model3D, error)
	UpdateModel(ctx context.Context, owner, id int64, name, description string) (*models.Model3D, error)
	DeleteModel(ctx context.Context, owner, id int64) error
	AddModelImage(ctx context.Context, owner, id int64, name string) (*models.ModelImage, error)
	AddModelFile(ctx context.Context, owner, id int64, name string, data []byte) (*models.ModelFile, error)
	DeleteModelImage(ctx context.Context, owner, imageID int64) error
	DeleteModelFile(ctx context.Context, owner, fileID int64) error
	ToggleLike(ctx context.Context, viewer, id int64) (liked bool, likes int, err error)
	ToggleSave(ctx context.Context, viewer, id int64) (saved bool, err error)
	SetVisibility(ctx context.Context, curator, id int64, visible bool) error
	TakeArchive(ctx context.Context, viewer, id int64) (*Archive, error)

	Comments(ctx context.Context, modelID int64) ([]models.Comment, error)
	AddComment(ctx context.Context, author, modelID int64, text string) (*models.Comment, error)

	AddRecycling(ctx context.Context, e RecyclingEntry) error
	Recycling(ctx context.Context, userID int64) ([]RecyclingEntry, error)
	UnlockAchievement(ctx context.Context, userID, achievementID int64) (bool, error)
	Unlocked(ctx context.Context, userID int64) (map[int64]bool, error)

	Offers(ctx context.Context, viewer int64, mine bool) ([]models.CoinOffer, error)
	CreateOffer(ctx context.Context, seller int64, o models.NewOffer) (*models.CoinOffer, error)
	PurchaseOffer(ctx context.Context, buyer, id int64) error
	CancelOffer(ctx context.Context, seller, id int64) error

	Exchanges(ctx context.Context, userID int64) ([]models.ExchangeRequest, error)
	CreateExchange(ctx context.Context, requester int64, r models.NewExchangeRequest) (*models.ExchangeRequest, error)
	RespondExchange(ctx context.Context, receiver, id int64, accept bool) error
	CancelExchange(ctx context.Context, requester, id int64) error

	Transactions(ctx context.Context, userID int64) ([]models.CoinTransaction, error)
}
