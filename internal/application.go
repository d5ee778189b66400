package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rocketscienceinc/tictactoe-client/internal/config"
	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
	"github.com/rocketscienceinc/tictactoe-client/internal/game"
	"github.com/rocketscienceinc/tictactoe-client/internal/oracle"
	"github.com/rocketscienceinc/tictactoe-client/internal/repository"
	"github.com/rocketscienceinc/tictactoe-client/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-client/internal/service"
	"github.com/rocketscienceinc/tictactoe-client/internal/transport/rest"
	"github.com/rocketscienceinc/tictactoe-client/internal/usecase"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - wires the client together and plays one demo match: restore or
// open the demo session, run the match loop, then archive the outcome.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	oracleErrCh := make(chan error, 1)
	if conf.Oracle.Embedded {
		oracleServer := oracle.NewServer(logger, conf.Oracle.JWTSecretKey)
		go func() {
			log.Info("Starting embedded oracle", "port", conf.Oracle.Port)
			if oracleErr := oracleServer.Start(ctx, conf.Oracle.Port); oracleErr != nil {
				log.Error("Oracle server error", "error", oracleErr)
				oracleErrCh <- oracleErr
			}
		}()
	}

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return ErrAddrNotFound
	}

	redisStorage, err := storage.NewRedisStorage(ctx, redisAddrString)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	client, err := rest.New(logger, conf.API.BaseURL,
		time.Duration(conf.API.TimeoutMs)*time.Millisecond,
		rest.RetryPolicy{
			MaxRetries:   conf.Retry.MaxRetries,
			InitialDelay: time.Duration(conf.Retry.InitialDelayMs) * time.Millisecond,
		})
	if err != nil {
		return fmt.Errorf("could not create rest client: %w", err)
	}

	notifier := service.NewNotifier(logger, time.Duration(conf.NoticeLifetimeMs)*time.Millisecond)
	defer notifier.Stop()

	sessions := service.NewSessionService(logger, client, notifier)
	moveOracle := service.NewOracleService(logger, client)
	archive := service.NewArchiveService(logger, client, notifier)

	machine, err := game.NewMachine(logger, gameSettings(&conf.Game), notifier)
	if err != nil {
		return fmt.Errorf("could not create game machine: %w", err)
	}

	// The mirror must subscribe before the orchestrator: resolution events
	// re-enter the machine synchronously, so a later subscriber would see
	// the pre-resolution snapshot last.
	states := repository.NewStateRepository(redisStorage.Connection, conf.Redis.Prefix)
	mirror := repository.NewMirror(ctx, logger, states)
	mirror.Attach(machine)

	orchestrator := usecase.NewOrchestrator(ctx, logger, machine, moveOracle, sessions, notifier)
	runner := usecase.NewMatchRunner(logger, machine, orchestrator, usecase.RandomPicker{})

	matchErrCh := make(chan error, 1)
	go func() {
		matchErrCh <- playDemoMatch(ctx, log, conf, sessions, archive, runner, orchestrator)
	}()

	select {
	case err = <-oracleErrCh:
		return fmt.Errorf("oracle server error: %w", err)
	case err = <-matchErrCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("demo match error: %w", err)
		}

		return nil
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}

// playDemoMatch - the boot sequence of the original client: restore the
// session or log the demo account in, play one match, then archive it.
func playDemoMatch(ctx context.Context, log *slog.Logger, conf *config.Config, sessions service.SessionService, archive service.ArchiveService, runner *usecase.MatchRunner, orchestrator *usecase.Orchestrator) error {
	if !sessions.RestoreSession(ctx) {
		if err := ensureAccount(ctx, sessions, conf.Demo); err != nil {
			return err
		}
	}

	snapshot, err := runner.Run(ctx)
	if err != nil {
		return fmt.Errorf("failed to run the match: %w", err)
	}

	results := orchestrator.Results()
	log.Info("demo match results",
		"xWins", results.X.Wins,
		"oWins", results.O.Wins,
		"draws", results.X.Draws,
	)

	if _, ok := sessions.CurrentUser(); !ok {
		return nil
	}

	saved := entity.SavedGame{
		Name:       "demo match",
		Board:      snapshot.Board,
		LastMove:   snapshot.LastMove,
		Status:     snapshot.Status,
		Difficulty: snapshot.Difficulty,
		Size:       snapshot.Size,
		Opponent:   snapshot.Opponent,
	}

	gameID, err := archive.Save(ctx, saved)
	if err != nil {
		return fmt.Errorf("failed to archive the match: %w", err)
	}

	games, err := archive.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list archived games: %w", err)
	}

	log.Info("match archived", "gameID", gameID, "archived", len(games))

	return nil
}

// ensureAccount - logs the demo account in, signing it up first if the
// oracle does not know it yet.
func ensureAccount(ctx context.Context, sessions service.SessionService, demo config.Demo) error {
	if _, err := sessions.Login(ctx, demo.Email, demo.Password); err == nil {
		return nil
	}

	if _, err := sessions.Signup(ctx, demo.Email, demo.Password, demo.Password); err != nil {
		return fmt.Errorf("failed to sign up the demo account: %w", err)
	}

	return nil
}

func gameSettings(conf *config.Game) game.Settings {
	difficulty := entity.DifficultyMedium
	switch conf.Difficulty {
	case "easy":
		difficulty = entity.DifficultyEasy
	case "hard":
		difficulty = entity.DifficultyHard
	}

	opponent := entity.OpponentComputer
	if conf.Opponent == string(entity.OpponentPlayer) {
		opponent = entity.OpponentPlayer
	}

	return game.Settings{
		Size:       conf.Size,
		Opponent:   opponent,
		Difficulty: difficulty,
		HumanMark:  entity.Marker(conf.HumanMark),
	}
}
