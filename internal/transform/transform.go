// Package transform maps server model records to the flat card shape used by listings.
package transform

import (
	"encoding/json"

	"reciclo/internal/models"
	"reciclo/internal/pkg/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Fallbacks for missing fields.
const (
	DefaultUserName   = "Utilizador"
	DefaultUserHandle = "utilizador"
	PlaceholderImage  = "/placeholder.png"
)

// ModelCard is a model flattened for display: the author and the first preview image are
// lifted to the top level and every field has a usable value.
type ModelCard struct {
	ID          int64               `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Likes       int                 `json:"likes"`
	Downloads   int                 `json:"downloads"`
	IsLiked     bool                `json:"isLiked"`
	IsSaved     bool                `json:"isSaved"`
	Price       decimal.Decimal     `json:"price"`
	IsFree      bool                `json:"isFree"`
	Image       string              `json:"image"`
	Images      []models.ModelImage `json:"images"`
	UserName    string              `json:"userName"`
	UserHandle  string              `json:"userHandle"`
	UserImage   *string             `json:"userImage"`
}

// rawModel tolerates nulls and missing fields in the server record.
type rawModel struct {
	ID          int64               `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Likes       *int                `json:"likes"`
	Downloads   *int                `json:"downloads"`
	IsLiked     bool                `json:"is_liked"`
	IsSaved     bool                `json:"is_saved"`
	Price       decimal.NullDecimal `json:"price"`
	IsFree      *bool               `json:"is_free"`
	Images      []models.ModelImage `json:"images"`
	User        *models.UserSummary `json:"user"`
}

// TransformModelsData converts a raw JSON array of models. Anything other than an array is
// logged and yields an empty, non-nil slice; elements that cannot be decoded are skipped.
func TransformModelsData(raw json.RawMessage, log *logger.Logger) []ModelCard {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		log.Error("expected an array of models", zap.ByteString("input", truncate(raw, 256)))
		return []ModelCard{}
	}

	cards := make([]ModelCard, 0, len(items))
	for _, item := range items {
		var m rawModel
		if err := json.Unmarshal(item, &m); err != nil {
			log.Warn("skipping malformed model", zap.Error(err))
			continue
		}
		cards = append(cards, m.card())
	}
	return cards
}

// TransformModels converts decoded models.
func TransformModels(list []models.Model3D) []ModelCard {
	cards := make([]ModelCard, 0, len(list))
	for _, m := range list {
		likes, downloads := m.Likes, m.Downloads
		cards = append(cards, rawModel{
			ID:          m.ID,
			Name:        m.Name,
			Description: m.Description,
			Likes:       &likes,
			Downloads:   &downloads,
			IsLiked:     m.IsLiked,
			IsSaved:     m.IsSaved,
			Price:       decimal.NewNullDecimal(m.Price),
			IsFree:      m.IsFree,
			Images:      m.Images,
			User:        m.User,
		}.card())
	}
	return cards
}

// TransformModel converts a single decoded model.
func TransformModel(m models.Model3D) ModelCard {
	return TransformModels([]models.Model3D{m})[0]
}

func (m rawModel) card() ModelCard {
	c := ModelCard{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		IsLiked:     m.IsLiked,
		IsSaved:     m.IsSaved,
		Image:       PlaceholderImage,
		Images:      m.Images,
		UserName:    DefaultUserName,
		UserHandle:  DefaultUserHandle,
	}
	if m.Likes != nil {
		c.Likes = *m.Likes
	}
	if m.Downloads != nil {
		c.Downloads = *m.Downloads
	}
	if m.Price.Valid {
		c.Price = m.Price.Decimal
	}
	if m.IsFree != nil {
		c.IsFree = *m.IsFree
	} else {
		c.IsFree = c.Price.IsZero()
	}
	if c.Images == nil {
		c.Images = []models.ModelImage{}
	}
	if len(m.Images) > 0 && m.Images[0].Image != "" {
		c.Image = m.Images[0].Image
	}
	if u := m.User; u != nil {
		if u.Username != "" {
			c.UserName = u.Username
		}
		if u.Handle != "" {
			c.UserHandle = u.Handle
		}
		if u.Image != nil && *u.Image != "" {
			c.UserImage = u.Image
		}
	}
	return c
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
