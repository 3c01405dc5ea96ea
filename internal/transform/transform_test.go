package transform

import (
	"encoding/json"
	"testing"

	"reciclo/internal/models"
	"reciclo/internal/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestTransformModelsData_Defaults(t *testing.T) {
	cards := TransformModelsData(json.RawMessage(`[{"id": 1, "user": null, "images": []}]`), logger.Nop())

	require.Len(t, cards, 1)
	c := cards[0]
	assert.Equal(t, int64(1), c.ID)
	assert.Nil(t, c.UserImage)
	assert.Equal(t, "Utilizador", c.UserName)
	assert.Equal(t, "utilizador", c.UserHandle)
	assert.Equal(t, "/placeholder.png", c.Image)
	assert.Zero(t, c.Likes)
	assert.Zero(t, c.Downloads)
	assert.True(t, c.IsFree)
	assert.NotNil(t, c.Images)
}

func TestTransformModelsData_NonArray(t *testing.T) {
	testCases := []struct {
		name  string
		input string
	}{
		{name: "null", input: `null`},
		{name: "object", input: `{"id": 1}`},
		{name: "garbage", input: `not json`},
		{name: "empty", input: ``},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.ErrorLevel)
			var cards []ModelCard
			require.NotPanics(t, func() {
				cards = TransformModelsData(json.RawMessage(tc.input), &logger.Logger{Logger: zap.New(core)})
			})
			assert.NotNil(t, cards)
			assert.Empty(t, cards)
			assert.Equal(t, 1, logs.Len())
		})
	}
}

func TestTransformModelsData_Flattens(t *testing.T) {
	raw := `[{
		"id": 7, "name": "Vase", "description": "Spiral vase", "likes": 3, "downloads": 12,
		"is_liked": true, "is_saved": false, "price": "2.50",
		"images": [{"id": 1, "image": "/media/vase.png"}, {"id": 2, "image": "/media/vase2.png"}],
		"user": {"id": 4, "username": "ana", "handle": "ana3d", "image": "/media/ana.png"}
	}]`

	cards := TransformModelsData(json.RawMessage(raw), logger.Nop())
	require.Len(t, cards, 1)
	c := cards[0]
	assert.Equal(t, "/media/vase.png", c.Image)
	assert.Len(t, c.Images, 2)
	assert.Equal(t, "ana", c.UserName)
	assert.Equal(t, "ana3d", c.UserHandle)
	require.NotNil(t, c.UserImage)
	assert.Equal(t, "/media/ana.png", *c.UserImage)
	assert.Equal(t, 3, c.Likes)
	assert.True(t, c.IsLiked)
	assert.False(t, c.IsFree)
	assert.True(t, decimal.RequireFromString("2.5").Equal(c.Price))
}

func TestTransformModelsData_ExplicitIsFree(t *testing.T) {
	cards := TransformModelsData(json.RawMessage(`[{"id": 1, "price": 0, "is_free": false}]`), logger.Nop())
	require.Len(t, cards, 1)
	assert.False(t, cards[0].IsFree)
}

func TestTransformModels(t *testing.T) {
	free := false
	cards := TransformModels([]models.Model3D{
		{ID: 2, Name: "Gear", Likes: 1, Price: decimal.NewFromInt(3), IsFree: &free},
		{ID: 3, User: &models.UserSummary{Username: "rui"}},
	})

	require.Len(t, cards, 2)
	assert.Equal(t, 1, cards[0].Likes)
	assert.False(t, cards[0].IsFree)
	assert.Equal(t, "rui", cards[1].UserName)
	assert.Equal(t, "utilizador", cards[1].UserHandle)
	assert.True(t, cards[1].IsFree)
	assert.Equal(t, PlaceholderImage, TransformModel(models.Model3D{}).Image)
}
