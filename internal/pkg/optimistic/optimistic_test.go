package optimistic

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type liked struct {
	IsLiked bool
	Likes   int
}

func flip(v liked) liked {
	if v.IsLiked {
		return liked{IsLiked: false, Likes: v.Likes - 1}
	}
	return liked{IsLiked: true, Likes: v.Likes + 1}
}

func TestMutate_RollbackOnFailure(t *testing.T) {
	s := New(liked{IsLiked: false, Likes: 3})
	errCommit := errors.New("network down")

	_, err := Mutate(context.Background(), s, flip, func(context.Context) (int, error) {
		assert.Equal(t, liked{IsLiked: true, Likes: 4}, s.Get())
		return 0, errCommit
	}, nil)

	require.ErrorIs(t, err, errCommit)
	assert.Equal(t, liked{IsLiked: false, Likes: 3}, s.Get())
}

func TestMutate_Reconcile(t *testing.T) {
	s := New(liked{IsLiked: false, Likes: 3})

	_, err := Mutate(context.Background(), s, flip, func(context.Context) (int, error) {
		return 10, nil
	}, func(v liked, likes int) liked {
		v.Likes = likes
		return v
	})

	require.NoError(t, err)
	assert.Equal(t, liked{IsLiked: true, Likes: 10}, s.Get())
}

func TestMutate_StaleFailureDoesNotClobber(t *testing.T) {
	s := New(liked{IsLiked: false, Likes: 3})
	fresh := liked{IsLiked: true, Likes: 42}

	_, err := Mutate(context.Background(), s, flip, func(context.Context) (struct{}, error) {
		s.Set(fresh)
		return struct{}{}, errors.New("late failure")
	}, nil)

	require.Error(t, err)
	assert.Equal(t, fresh, s.Get())
}

func TestMutate_StaleSuccessSkipsReconcile(t *testing.T) {
	s := New(liked{})
	called := false

	_, err := Mutate(context.Background(), s, flip, func(context.Context) (int, error) {
		s.Update(flip)
		return 99, nil
	}, func(v liked, _ int) liked {
		called = true
		return v
	})

	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, liked{}, s.Get())
	assert.EqualValues(t, 2, s.Version())
}

type toggles struct {
	Liked bool
	Saved bool
}

var (
	likedField = Field[toggles]{Key: "liked", Restore: func(cur, snap toggles) toggles {
		cur.Liked = snap.Liked
		return cur
	}}
	savedField = Field[toggles]{Key: "saved", Restore: func(cur, snap toggles) toggles {
		cur.Saved = snap.Saved
		return cur
	}}
)

func TestMutateField_FailureRollsBackOnlyItsField(t *testing.T) {
	s := New(toggles{})

	_, err := MutateField(context.Background(), s, likedField,
		func(v toggles) toggles { v.Liked = true; return v },
		func(ctx context.Context) (struct{}, error) {
			_, err := MutateField(ctx, s, savedField,
				func(v toggles) toggles { v.Saved = true; return v },
				func(context.Context) (struct{}, error) { return struct{}{}, nil }, nil)
			require.NoError(t, err)
			return struct{}{}, errors.New("refused")
		}, nil)

	require.Error(t, err)
	assert.Equal(t, toggles{Liked: false, Saved: true}, s.Get())
}

func TestMutateField_SetSupersedesRollback(t *testing.T) {
	s := New(toggles{})
	fresh := toggles{Liked: true, Saved: true}

	_, err := MutateField(context.Background(), s, likedField,
		func(v toggles) toggles { v.Liked = !v.Liked; return v },
		func(context.Context) (struct{}, error) {
			s.Set(fresh)
			return struct{}{}, errors.New("late failure")
		}, nil)

	require.Error(t, err)
	assert.Equal(t, fresh, s.Get())
}

func TestMutateField_NewerMutationOfSameFieldWins(t *testing.T) {
	s := New(toggles{})

	_, err := MutateField(context.Background(), s, likedField,
		func(v toggles) toggles { v.Liked = true; return v },
		func(ctx context.Context) (struct{}, error) {
			_, err := MutateField(ctx, s, likedField,
				func(v toggles) toggles { v.Liked = false; return v },
				func(context.Context) (struct{}, error) { return struct{}{}, nil }, nil)
			require.NoError(t, err)
			return struct{}{}, errors.New("late failure")
		}, nil)

	require.Error(t, err)
	assert.Equal(t, toggles{}, s.Get())
}
