package oracle

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
)

var (
	ErrEmailTaken    = errors.New("this email is already used")
	ErrUnknownUser   = errors.New("there is no user with this email")
	ErrWrongPassword = errors.New("wrong password")
	ErrGameNotFound  = errors.New("game not found")
)

type account struct {
	id           string
	email        string
	passwordHash []byte

	wins   int
	losses int
	games  int
}

// Store keeps accounts and saved games in memory. Passwords are held only
// as bcrypt hashes; lookups by email and by id share the same records.
type Store struct {
	mu       sync.Mutex
	accounts map[string]*account // keyed by user id
	emails   map[string]string   // email -> user id
	saved    map[string][]*entity.SavedGame
}

func NewStore() *Store {
	return &Store{
		accounts: make(map[string]*account),
		emails:   make(map[string]string),
		saved:    make(map[string][]*entity.SavedGame),
	}
}

// Signup creates an account and returns its user view.
func (that *Store) Signup(email, password string) (entity.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return entity.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	if _, taken := that.emails[email]; taken {
		return entity.User{}, ErrEmailTaken
	}

	acc := &account{
		id:           uuid.NewString(),
		email:        email,
		passwordHash: hash,
	}

	that.accounts[acc.id] = acc
	that.emails[email] = acc.id

	return userView(acc), nil
}

// Login verifies the credentials and returns the user view.
func (that *Store) Login(email, password string) (entity.User, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	acc, err := that.byEmailLocked(email)
	if err != nil {
		return entity.User{}, err
	}

	if bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(password)) != nil {
		return entity.User{}, ErrWrongPassword
	}

	return userView(acc), nil
}

func (that *Store) UserByID(id string) (entity.User, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	acc, ok := that.accounts[id]
	if !ok {
		return entity.User{}, ErrUnknownUser
	}

	return userView(acc), nil
}

func (that *Store) EmailUsed(email string) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	_, used := that.emails[email]

	return used
}

// UpdateUser applies a merge-patch and returns the updated view. An email
// change re-keys the email index and fails when the address is taken.
func (that *Store) UpdateUser(id string, patch entity.UserPatch) (entity.User, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	acc, ok := that.accounts[id]
	if !ok {
		return entity.User{}, ErrUnknownUser
	}

	if patch.Email != nil && *patch.Email != acc.email {
		if err := that.rekeyEmailLocked(acc, *patch.Email); err != nil {
			return entity.User{}, err
		}
	}

	if patch.WinNumber != nil {
		acc.wins = *patch.WinNumber
	}
	if patch.LoseNumber != nil {
		acc.losses = *patch.LoseNumber
	}
	if patch.GameCount != nil {
		acc.games = *patch.GameCount
	}

	return userView(acc), nil
}

// CheckPassword compares a candidate against the stored hash without
// failing the request on mismatch.
func (that *Store) CheckPassword(id, password string) (bool, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	acc, ok := that.accounts[id]
	if !ok {
		return false, ErrUnknownUser
	}

	return bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(password)) == nil, nil
}

// ChangePassword swaps the hash after verifying the old password.
func (that *Store) ChangePassword(id, oldPassword, newPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	acc, ok := that.accounts[id]
	if !ok {
		return ErrUnknownUser
	}

	if bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(oldPassword)) != nil {
		return ErrWrongPassword
	}

	acc.passwordHash = hash

	return nil
}

func (that *Store) ChangeEmail(id, email string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	acc, ok := that.accounts[id]
	if !ok {
		return ErrUnknownUser
	}

	if email == acc.email {
		return nil
	}

	return that.rekeyEmailLocked(acc, email)
}

// ListGames returns the owner's saved games, oldest first.
func (that *Store) ListGames(ownerID string) []entity.SavedGame {
	that.mu.Lock()
	defer that.mu.Unlock()

	games := make([]entity.SavedGame, 0, len(that.saved[ownerID]))
	for _, game := range that.saved[ownerID] {
		games = append(games, *game)
	}

	return games
}

// SaveGame stores a snapshot. A snapshot carrying the id of a game the
// owner already saved replaces it; otherwise a new id is issued.
func (that *Store) SaveGame(ownerID string, game entity.SavedGame) (string, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.accounts[ownerID]; !ok {
		return "", ErrUnknownUser
	}

	now := time.Now().UTC()
	game.UserID = ownerID
	game.UpdatedAt = now

	if game.GameID != "" {
		if existing := that.gameLocked(ownerID, game.GameID); existing != nil {
			game.CreatedAt = existing.CreatedAt
			*existing = game

			return game.GameID, nil
		}
	}

	game.GameID = uuid.NewString()
	game.CreatedAt = now
	that.saved[ownerID] = append(that.saved[ownerID], &game)

	return game.GameID, nil
}

func (that *Store) RenameGame(ownerID, gameID, name string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	game := that.gameLocked(ownerID, gameID)
	if game == nil {
		return ErrGameNotFound
	}

	game.Name = name
	game.UpdatedAt = time.Now().UTC()

	return nil
}

func (that *Store) DeleteGame(ownerID, gameID string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	games := that.saved[ownerID]
	for i, game := range games {
		if game.GameID == gameID {
			that.saved[ownerID] = append(games[:i], games[i+1:]...)
			return nil
		}
	}

	return ErrGameNotFound
}

func (that *Store) byEmailLocked(email string) (*account, error) {
	id, ok := that.emails[email]
	if !ok {
		return nil, ErrUnknownUser
	}

	return that.accounts[id], nil
}

func (that *Store) rekeyEmailLocked(acc *account, email string) error {
	if _, taken := that.emails[email]; taken {
		return ErrEmailTaken
	}

	delete(that.emails, acc.email)
	that.emails[email] = acc.id
	acc.email = email

	return nil
}

func (that *Store) gameLocked(ownerID, gameID string) *entity.SavedGame {
	for _, game := range that.saved[ownerID] {
		if game.GameID == gameID {
			return game
		}
	}

	return nil
}

func userView(acc *account) entity.User {
	return entity.User{
		UserID:     acc.id,
		Email:      acc.email,
		WinNumber:  acc.wins,
		LoseNumber: acc.losses,
		GameCount:  acc.games,
	}
}
