package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
	"github.com/rocketscienceinc/tictactoe-client/internal/transport/rest"
)

var ErrUnknownWinner = errors.New("unknown winner value")

// AI compute is slower than the rest of the API, so its retries start
// later; the winner check keeps the default spacing with fewer tries.
var (
	aiMovePolicy     = rest.RetryPolicy{MaxRetries: 5, InitialDelay: 700 * time.Millisecond}
	checkBoardPolicy = rest.RetryPolicy{MaxRetries: 3, InitialDelay: 200 * time.Millisecond}
)

// Outcome is a winner check translated off the wire: either the game is
// still open, or it ended with a draw or a winning marker.
type Outcome struct {
	Open   bool
	Draw   bool
	Winner entity.Marker
}

// AIMove is the oracle's answer to a move request: its move, the verdict
// for the board after it, and the board as the oracle sees it.
type AIMove struct {
	Move    *entity.Cell
	Outcome Outcome
	Region  *entity.Region
	Board   entity.Board
}

// OracleService talks to the remote move/winner oracle.
type OracleService interface {
	RequestMove(ctx context.Context, board entity.Board, aiMarker entity.Marker, difficulty entity.Difficulty, lastMove *entity.Cell) (*AIMove, error)
	CheckBoard(ctx context.Context, board entity.Board) (Outcome, error)
}

type aiMoveRequest struct {
	Board    entity.Board `json:"board"`
	Markup   string       `json:"markup"`
	Hardness string       `json:"hardness"`
	LastMove *entity.Cell `json:"lastMove"`
}

type aiMoveResponse struct {
	Winner   *string        `json:"winner"`
	Region   *entity.Region `json:"region"`
	LastMove *entity.Cell   `json:"lastMove"`
	Board    entity.Board   `json:"board"`
}

type checkBoardRequest struct {
	Board entity.Board `json:"board"`
}

type checkBoardResponse struct {
	Winner *string `json:"winner"`
}

type oracleService struct {
	logger *slog.Logger
	client *rest.Client
}

func NewOracleService(logger *slog.Logger, client *rest.Client) OracleService {
	return &oracleService{
		logger: logger.With("component", "oracle"),
		client: client,
	}
}

// RequestMove - asks the oracle for the computer's move. The numeric
// difficulty is mapped to its wire name just before sending.
func (that *oracleService) RequestMove(ctx context.Context, board entity.Board, aiMarker entity.Marker, difficulty entity.Difficulty, lastMove *entity.Cell) (*AIMove, error) {
	request := aiMoveRequest{
		Board:    board,
		Markup:   string(aiMarker),
		Hardness: difficulty.Name(),
		LastMove: lastMove,
	}

	resp, err := rest.Do[aiMoveResponse](ctx, that.client, rest.MethodPost, "game/ai-move", request, rest.WithRetryPolicy(aiMovePolicy))
	if err != nil {
		return nil, fmt.Errorf("failed to request ai move: %w", err)
	}

	outcome, err := parseWinner(resp.Winner)
	if err != nil {
		return nil, err
	}

	that.logger.Debug("ai move received", "hardness", request.Hardness, "lastMove", resp.LastMove)

	return &AIMove{
		Move:    resp.LastMove,
		Outcome: outcome,
		Region:  resp.Region,
		Board:   resp.Board,
	}, nil
}

// CheckBoard - asks the oracle whether the board already has a winner.
func (that *oracleService) CheckBoard(ctx context.Context, board entity.Board) (Outcome, error) {
	resp, err := rest.Do[checkBoardResponse](ctx, that.client, rest.MethodPost, "game/check-board", checkBoardRequest{Board: board}, rest.WithRetryPolicy(checkBoardPolicy))
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to check board: %w", err)
	}

	return parseWinner(resp.Winner)
}

// parseWinner - null means the game is still open; otherwise the value is
// a marker or the draw token.
func parseWinner(winner *string) (Outcome, error) {
	if winner == nil {
		return Outcome{Open: true}, nil
	}

	switch *winner {
	case "draw":
		return Outcome{Draw: true}, nil
	case string(entity.MarkerX):
		return Outcome{Winner: entity.MarkerX}, nil
	case string(entity.MarkerO):
		return Outcome{Winner: entity.MarkerO}, nil
	default:
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownWinner, *winner)
	}
}
