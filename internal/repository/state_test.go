package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-client/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
	"github.com/rocketscienceinc/tictactoe-client/testing/suite"
)

func TestStateRepository_SaveAndLoadField(t *testing.T) {
	ctx, st := suite.New(t)

	states := NewStateRepository(st.Storage, "tictactoe:")

	// Given: a board with one move on it
	board, err := entity.NewBoard(3)
	require.NoError(t, err)
	board[1][1] = entity.MarkerX

	// When: the board is saved and loaded back
	err = states.SaveField(ctx, FieldBoard, board)
	require.NoError(t, err)

	var loaded entity.Board
	err = states.LoadField(ctx, FieldBoard, &loaded)

	// Then: the loaded board matches the saved one
	require.NoError(t, err)
	assert.Equal(t, board, loaded)
}

func TestStateRepository_SaveField_Overwrites(t *testing.T) {
	ctx, st := suite.New(t)

	states := NewStateRepository(st.Storage, "tictactoe:")

	// Given: a step counter already saved
	require.NoError(t, states.SaveField(ctx, FieldStep, 1))

	// When: the same field is saved again
	require.NoError(t, states.SaveField(ctx, FieldStep, 2))

	// Then: the latest value wins
	var step int
	require.NoError(t, states.LoadField(ctx, FieldStep, &step))
	assert.Equal(t, 2, step)
}

func TestStateRepository_LoadField_Missing(t *testing.T) {
	ctx, st := suite.New(t)

	states := NewStateRepository(st.Storage, "tictactoe:")

	// When: a field that was never saved is loaded
	var step int
	err := states.LoadField(ctx, FieldStep, &step)

	// Then: ErrNotFound is returned
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestStateRepository_Clear(t *testing.T) {
	ctx, st := suite.New(t)

	states := NewStateRepository(st.Storage, "tictactoe:")

	// Given: two mirrored fields and one unrelated key
	require.NoError(t, states.SaveField(ctx, FieldStep, 4))
	require.NoError(t, states.SaveField(ctx, FieldStatus, entity.StatusOngoing))
	require.NoError(t, st.Storage.Set(ctx, "other:key", "kept", 0).Err())

	// When: the repository is cleared
	err := states.Clear(ctx)
	require.NoError(t, err)

	// Then: the mirrored fields are gone
	var step int
	assert.ErrorIs(t, states.LoadField(ctx, FieldStep, &step), apperror.ErrNotFound)

	var status string
	assert.ErrorIs(t, states.LoadField(ctx, FieldStatus, &status), apperror.ErrNotFound)

	// Then: keys outside the prefix survive
	kept, err := st.Storage.Get(ctx, "other:key").Result()
	require.NoError(t, err)
	assert.Equal(t, "kept", kept)
}

func TestStateRepository_Clear_Empty(t *testing.T) {
	ctx, st := suite.New(t)

	states := NewStateRepository(st.Storage, "tictactoe:")

	// When: Clear runs with nothing saved
	err := states.Clear(ctx)

	// Then: it succeeds
	require.NoError(t, err)
}
