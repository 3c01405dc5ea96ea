// Package models defines the data structures exchanged with the ReCiclo REST API.
// It includes the server records the client mirrors (users, 3D models, comments, achievements,
// dashboard snapshots, coin offers, exchange requests) and the request payloads it submits.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Coin types.
const (
	CoinRecycling  = "recycling"
	CoinReputation = "reputation"
)

// Offer types.
const (
	OfferSale = "sale"
	OfferGift = "gift"
)

// Offer statuses.
const (
	OfferActive    = "active"
	OfferCompleted = "completed"
	OfferCancelled = "cancelled"
)

// Exchange request statuses.
const (
	ExchangePending   = "pending"
	ExchangeAccepted  = "accepted"
	ExchangeRejected  = "rejected"
	ExchangeCancelled = "cancelled"
)

// DefaultAchievementReward is the reputation reward shown when the server omits one.
const DefaultAchievementReward = 10

// Credentials is the login payload. The API authenticates by email.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the opaque token issued at login.
type LoginResponse struct {
	Key string `json:"key"`
}

// Registration is the account creation payload.
type Registration struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password1 string `json:"password1"`
	Password2 string `json:"password2"`
}

// User is the authenticated user's record as returned by /api/auth/user/.
type User struct {
	ID              int64   `json:"id"`
	Username        string  `json:"username"`
	Email           string  `json:"email"`
	Handle          string  `json:"handle,omitempty"`
	Image           *string `json:"image"`
	ProfileImage    *string `json:"profile_image"`
	Level           int     `json:"level"`
	IsCurator       bool    `json:"is_curator"`
	RecyclingCoins  int     `json:"recycling_coins"`
	ReputationCoins int     `json:"reputation_coins"`
}

// UserSummary is the nested user shape embedded in models, offers and exchanges.
type UserSummary struct {
	ID       int64   `json:"id"`
	Username string  `json:"username"`
	Handle   string  `json:"handle,omitempty"`
	Image    *string `json:"image"`
}

// ProfileEdit holds the editable profile fields. Zero values are not sent.
type ProfileEdit struct {
	Username  string
	Email     string
	ImagePath string
}

// ModelImage is one preview image of a 3D model.
type ModelImage struct {
	ID      int64  `json:"id"`
	Image   string `json:"image"`
	Model3D int64  `json:"model3d"`
}

// ModelFile is one downloadable file of a 3D model.
type ModelFile struct {
	ID       int64  `json:"id"`
	File     string `json:"file"`
	FileName string `json:"file_name"`
	Model    int64  `json:"model"`
}

// Model3D is a shared 3D model with the viewer's like/save flags.
type Model3D struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	User        *UserSummary    `json:"user"`
	Date        time.Time       `json:"date"`
	Likes       int             `json:"likes"`
	Downloads   int             `json:"downloads"`
	Images      []ModelImage    `json:"images"`
	Files       []ModelFile     `json:"files"`
	IsLiked     bool            `json:"is_liked"`
	IsSaved     bool            `json:"is_saved"`
	Price       decimal.Decimal `json:"price"`
	IsFree      *bool           `json:"is_free"`
	IsVisible   bool            `json:"is_visible"`
}

// ToggleResult is the body returned by the like and save endpoints.
// Every field is optional; absent fields leave the optimistic value untouched.
type ToggleResult struct {
	Likes   *int   `json:"likes"`
	IsLiked *bool  `json:"is_liked"`
	Saved   *bool  `json:"saved"`
	IsSaved *bool  `json:"is_saved"`
	Message string `json:"message"`
}

// NewModel describes a model upload. FilePath is required, ImagePath optional.
type NewModel struct {
	Name        string
	Description string
	FilePath    string
	ImagePath   string
}

// ModelEdit describes an edit of an owned model.
type ModelEdit struct {
	Name           string
	Description    string
	DeleteImageIDs []int64
	DeleteFileIDs  []int64
	AddImagePaths  []string
	AddFilePaths   []string
}

// Comment is a comment left on a model. User is the author's username.
type Comment struct {
	ID    int64     `json:"id"`
	Model int64     `json:"model,omitempty"`
	User  string    `json:"user"`
	Text  string    `json:"text"`
	Image *string   `json:"image"`
	Date  time.Time `json:"date"`
}

// NewComment is the comment creation payload.
type NewComment struct {
	Model int64  `json:"model"`
	Text  string `json:"text"`
}

// AchievementProgress is the progress towards a locked achievement.
type AchievementProgress struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Unit    string `json:"unit"`
}

// Achievement is a read-only projection of a server-computed achievement.
type Achievement struct {
	ID          int64                `json:"id"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	IconName    string               `json:"icon_name"`
	Unlocked    bool                 `json:"unlocked"`
	Progress    *AchievementProgress `json:"progress"`
	Reward      int                  `json:"reward_points"`
}

// RewardOrDefault returns the reward, defaulting when the server omitted it.
func (a Achievement) RewardOrDefault() int {
	if a.Reward <= 0 {
		return DefaultAchievementReward
	}
	return a.Reward
}

// MonthlyRecycling is one bucket of the recycling history chart.
type MonthlyRecycling struct {
	Month    string `json:"month"`
	Quantity int    `json:"quantity"`
}

// Dashboard is the server-derived snapshot shown on the dashboard page.
type Dashboard struct {
	RecyclingCoins         int                `json:"recyclingCoins"`
	ReputationCoins        int                `json:"reputationCoins"`
	Level                  int                `json:"level"`
	Experience             int                `json:"experience"`
	ExperienceForNextLevel int                `json:"experience_for_next_level"`
	RecyclingData          []MonthlyRecycling `json:"recyclingData"`
	Achievements           []Achievement      `json:"achievements"`
}

// Balance is the client's last-known coin balance.
type Balance struct {
	RecyclingCoins  int `json:"recyclingCoins"`
	ReputationCoins int `json:"reputationCoins"`
}

// Of returns the balance of the given coin type.
func (b Balance) Of(coinType string) int {
	switch coinType {
	case CoinRecycling:
		return b.RecyclingCoins
	case CoinReputation:
		return b.ReputationCoins
	}
	return 0
}

// RecyclingForm is the recycling form as filled in by the user. "Outro" selects the custom field.
type RecyclingForm struct {
	BottleType       string
	CustomBottleType string
	Volume           string
	CustomVolume     string
	Quantity         int
}

// OtherOption is the form choice that defers to the custom text field.
const OtherOption = "Outro"

// RecyclingSubmission is the body posted to /api/recycle/bottles/.
type RecyclingSubmission struct {
	Type     string `json:"type"`
	Volume   string `json:"volume"`
	Quantity int    `json:"quantity"`
}

// RecyclingResult is the server's answer to a recycling submission.
type RecyclingResult struct {
	Message         string        `json:"message"`
	CoinsEarned     int           `json:"coins_earned"`
	LevelUp         bool          `json:"level_up"`
	NewAchievements []Achievement `json:"new_achievements"`
}

// CoinOffer is a marketplace listing selling or gifting coins of one type.
type CoinOffer struct {
	ID           int64           `json:"id"`
	Seller       *UserSummary    `json:"seller"`
	SpecificUser *UserSummary    `json:"specific_user"`
	CoinType     string          `json:"coin_type"`
	Amount       int             `json:"amount"`
	PricePerCoin decimal.Decimal `json:"price_per_coin"`
	OfferType    string          `json:"offer_type"`
	Status       string          `json:"status"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// NewOffer is the coin offer creation payload.
type NewOffer struct {
	OfferType      string          `json:"offer_type"`
	CoinType       string          `json:"coin_type"`
	Amount         int             `json:"amount"`
	PricePerCoin   decimal.Decimal `json:"price_per_coin"`
	SpecificUserID *int64          `json:"specific_user_id,omitempty"`
}

// ExchangeRequest is a peer-to-peer coin swap proposal.
type ExchangeRequest struct {
	ID                     int64        `json:"id"`
	Requester              *UserSummary `json:"requester"`
	Receiver               *UserSummary `json:"receiver"`
	Status                 string       `json:"status"`
	OfferRecyclingCoins    int          `json:"offer_recycling_coins"`
	OfferReputationCoins   int          `json:"offer_reputation_coins"`
	RequestRecyclingCoins  int          `json:"request_recycling_coins"`
	RequestReputationCoins int          `json:"request_reputation_coins"`
	Message                string       `json:"message"`
	CreatedAt              time.Time    `json:"created_at"`
}

// NewExchangeRequest is the exchange request creation payload.
type NewExchangeRequest struct {
	ReceiverID             int64  `json:"receiver_id"`
	OfferRecyclingCoins    int    `json:"offer_recycling_coins"`
	OfferReputationCoins   int    `json:"offer_reputation_coins"`
	RequestRecyclingCoins  int    `json:"request_recycling_coins"`
	RequestReputationCoins int    `json:"request_reputation_coins"`
	Message                string `json:"message,omitempty"`
}

// ExchangeResponse answers an exchange request addressed to the user.
type ExchangeResponse struct {
	Accept bool `json:"accept"`
}

// VisibilityChange is the curator moderation payload.
type VisibilityChange struct {
	IsVisible bool `json:"is_visible"`
}

// CoinTransaction is one entry of the marketplace transaction history.
type CoinTransaction struct {
	ID              int64           `json:"id"`
	Sender          *UserSummary    `json:"sender"`
	Receiver        *UserSummary    `json:"receiver"`
	CoinType        string          `json:"coin_type"`
	Amount          int             `json:"amount"`
	PricePerCoin    decimal.Decimal `json:"price_per_coin"`
	TransactionType string          `json:"transaction_type"`
	CreatedAt       time.Time       `json:"created_at"`
}

// ErrorResponse is the error body written by the stub API.
type ErrorResponse struct {
	Error string `json:"error"`
}
