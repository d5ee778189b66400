package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
	"github.com/rocketscienceinc/tictactoe-client/internal/transport/rest"
)

var (
	listGamesPolicy  = rest.RetryPolicy{MaxRetries: 3, InitialDelay: 100 * time.Millisecond}
	renameGamePolicy = rest.RetryPolicy{MaxRetries: 3, InitialDelay: 200 * time.Millisecond}
	deleteGamePolicy = rest.RetryPolicy{MaxRetries: 3, InitialDelay: 100 * time.Millisecond}
)

const listGamesQuery = `query games {
  games { gameId name board lastMove { row column } status userId difficulty size opponent createdAt updatedAt }
}`

const saveGameQuery = `mutation saveGame($game: SavedGameInput!) {
  saveGame(game: $game) { gameId }
}`

const renameGameQuery = `mutation renameGame($gameId: ID!, $name: String!) {
  renameGame(gameId: $gameId, name: $name) { result }
}`

const deleteGameQuery = `mutation deleteGame($gameId: ID!) {
  deleteGame(gameId: $gameId) { result }
}`

// ArchiveService manages the user's saved games on the backend.
type ArchiveService interface {
	List(ctx context.Context) ([]entity.SavedGame, error)
	Save(ctx context.Context, snapshot entity.SavedGame) (string, error)
	Rename(ctx context.Context, gameID, oldName, newName string) error
	Delete(ctx context.Context, gameID string) error
}

type listGamesResponse struct {
	Data struct {
		Games []entity.SavedGame `json:"games"`
	} `json:"data"`
}

type saveGameResponse struct {
	Data struct {
		SaveGame struct {
			GameID string `json:"gameId"`
		} `json:"saveGame"`
	} `json:"data"`
}

type renameGameResponse struct {
	Data struct {
		RenameGame resultPayload `json:"renameGame"`
	} `json:"data"`
}

type deleteGameResponse struct {
	Data struct {
		DeleteGame resultPayload `json:"deleteGame"`
	} `json:"data"`
}

type archiveService struct {
	logger   *slog.Logger
	client   *rest.Client
	notifier Notifier
}

func NewArchiveService(logger *slog.Logger, client *rest.Client, notifier Notifier) ArchiveService {
	return &archiveService{
		logger:   logger.With("component", "archive"),
		client:   client,
		notifier: notifier,
	}
}

// List - fetches the user's saved games.
func (that *archiveService) List(ctx context.Context) ([]entity.SavedGame, error) {
	body := graphqlRequest{Query: listGamesQuery}

	resp, err := rest.Do[listGamesResponse](ctx, that.client, rest.MethodPost, "graphql/game", body,
		rest.WithRetryPolicy(listGamesPolicy))
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}

	return resp.Data.Games, nil
}

// Save - persists a snapshot and returns its id.
func (that *archiveService) Save(ctx context.Context, snapshot entity.SavedGame) (string, error) {
	body := graphqlRequest{
		Query:     saveGameQuery,
		Variables: map[string]any{"game": snapshot},
	}

	resp, err := rest.Do[saveGameResponse](ctx, that.client, rest.MethodPost, "graphql/game", body)
	if err != nil {
		that.notifier.Failure("failed to save the game")
		return "", fmt.Errorf("failed to save game: %w", err)
	}

	that.logger.Info("game saved", "gameID", resp.Data.SaveGame.GameID)

	return resp.Data.SaveGame.GameID, nil
}

// Rename - changes a saved game's name. Renaming to the name it already
// has is a local no-op: nothing goes on the wire.
func (that *archiveService) Rename(ctx context.Context, gameID, oldName, newName string) error {
	if oldName == newName {
		that.logger.Debug("rename skipped, name unchanged", "gameID", gameID)
		return nil
	}

	body := graphqlRequest{
		Query:     renameGameQuery,
		Variables: map[string]any{"gameId": gameID, "name": newName},
	}

	_, err := rest.Do[renameGameResponse](ctx, that.client, rest.MethodPost, "graphql/game", body,
		rest.WithRetryPolicy(renameGamePolicy))
	if err != nil {
		that.notifier.Failure("failed to rename the game")
		return fmt.Errorf("failed to rename game: %w", err)
	}

	return nil
}

// Delete - removes a saved game by id.
func (that *archiveService) Delete(ctx context.Context, gameID string) error {
	body := graphqlRequest{
		Query:     deleteGameQuery,
		Variables: map[string]any{"gameId": gameID},
	}

	_, err := rest.Do[deleteGameResponse](ctx, that.client, rest.MethodPost, "graphql/game", body,
		rest.WithRetryPolicy(deleteGamePolicy))
	if err != nil {
		that.notifier.Failure("failed to delete the game")
		return fmt.Errorf("failed to delete game: %w", err)
	}

	return nil
}
