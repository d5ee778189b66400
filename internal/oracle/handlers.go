package oracle

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
)

type errorEntry struct {
	Message string `json:"message"`
}

// errorsEnvelope is the business-rejection shape: HTTP 200 with a
// top-level errors array. Malformed requests get a plain 4xx instead.
type errorsEnvelope struct {
	Errors []errorEntry `json:"errors"`
}

type credentialsBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type emailBody struct {
	Email string `json:"email"`
}

type passwordBody struct {
	Password string `json:"password"`
}

type aiMoveBody struct {
	Board    entity.Board `json:"board"`
	Markup   string       `json:"markup"`
	Hardness string       `json:"hardness"`
	LastMove *entity.Cell `json:"lastMove"`
}

type aiMoveReply struct {
	Winner   *string        `json:"winner"`
	Region   *entity.Region `json:"region"`
	LastMove *entity.Cell   `json:"lastMove"`
	Board    entity.Board   `json:"board"`
}

type boardBody struct {
	Board entity.Board `json:"board"`
}

type winnerReply struct {
	Winner *string `json:"winner"`
}

type sessionReply struct {
	User *entity.User `json:"user,omitempty"`
}

type signupReply struct {
	UserID string `json:"userId"`
}

type resultReply struct {
	Result bool `json:"result"`
}

type isEqualReply struct {
	IsEqual bool `json:"isEqual"`
}

func decode[T any](r *http.Request) (T, error) {
	var body T
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return body, fmt.Errorf("failed to decode request body: %w", err)
	}

	return body, nil
}

func (that *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		that.logger.Error("failed to write response", "error", err)
	}
}

// reject answers a business rejection: 200 with the errors envelope.
func (that *Server) reject(w http.ResponseWriter, messages ...string) {
	envelope := errorsEnvelope{Errors: make([]errorEntry, 0, len(messages))}
	for _, message := range messages {
		envelope.Errors = append(envelope.Errors, errorEntry{Message: message})
	}

	that.writeJSON(w, http.StatusOK, envelope)
}

// currentUser resolves the session cookie to the account it names.
func (that *Server) currentUser(r *http.Request) (entity.User, error) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return entity.User{}, ErrNoSession
	}

	userID, err := verifyToken(that.secret, cookie.Value)
	if err != nil {
		return entity.User{}, err
	}

	return that.store.UserByID(userID)
}

func (that *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("pong")); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
}

func (that *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	body, err := decode[credentialsBody](r)
	if err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	user, err := that.store.Login(body.Email, body.Password)
	if err != nil {
		that.reject(w, err.Error())
		return
	}

	if err = that.openSession(w, user.UserID); err != nil {
		that.logger.Error("failed to open session", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)

		return
	}

	that.writeJSON(w, http.StatusOK, user)
}

func (that *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	clearSessionCookie(w)
	that.writeJSON(w, http.StatusOK, resultReply{Result: true})
}

func (that *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	body, err := decode[credentialsBody](r)
	if err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	user, err := that.store.Signup(body.Email, body.Password)
	if err != nil {
		that.reject(w, err.Error())
		return
	}

	if err = that.openSession(w, user.UserID); err != nil {
		that.logger.Error("failed to open session", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)

		return
	}

	that.writeJSON(w, http.StatusOK, signupReply{UserID: user.UserID})
}

// handleCheckSession answers the current user when the cookie names one,
// and an empty object otherwise. A dead session is not an error.
func (that *Server) handleCheckSession(w http.ResponseWriter, r *http.Request) {
	user, err := that.currentUser(r)
	if err != nil {
		that.writeJSON(w, http.StatusOK, sessionReply{})
		return
	}

	that.writeJSON(w, http.StatusOK, sessionReply{User: &user})
}

func (that *Server) handleIsUsedEmail(w http.ResponseWriter, r *http.Request) {
	body, err := decode[emailBody](r)
	if err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	that.writeJSON(w, http.StatusOK, resultReply{Result: that.store.EmailUsed(body.Email)})
}

func (that *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	user, err := that.currentUser(r)
	if err != nil {
		that.reject(w, ErrNoSession.Error())
		return
	}

	patch, err := decode[entity.UserPatch](r)
	if err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	updated, err := that.store.UpdateUser(user.UserID, patch)
	if err != nil {
		that.reject(w, err.Error())
		return
	}

	that.writeJSON(w, http.StatusOK, updated)
}

func (that *Server) handleCheckPassword(w http.ResponseWriter, r *http.Request) {
	user, err := that.currentUser(r)
	if err != nil {
		that.reject(w, ErrNoSession.Error())
		return
	}

	body, err := decode[passwordBody](r)
	if err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	isEqual, err := that.store.CheckPassword(user.UserID, body.Password)
	if err != nil {
		that.reject(w, err.Error())
		return
	}

	that.writeJSON(w, http.StatusOK, isEqualReply{IsEqual: isEqual})
}

// handleAIMove replies with the computer's move and the verdict for the
// board after it. A board that is already terminal gets its verdict back
// unchanged, without a move.
func (that *Server) handleAIMove(w http.ResponseWriter, r *http.Request) {
	body, err := decode[aiMoveBody](r)
	if err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	marker := entity.Marker(body.Markup)
	if !marker.Valid() {
		http.Error(w, "invalid markup", http.StatusBadRequest)
		return
	}

	difficulty, err := parseHardness(body.Hardness)
	if err != nil {
		http.Error(w, "invalid hardness", http.StatusBadRequest)
		return
	}

	board := body.Board
	if err = board.Validate(board.Size()); err != nil || board.Size() < entity.MinBoardSize {
		http.Error(w, "invalid board", http.StatusBadRequest)
		return
	}

	resolution := Inspect(board)
	if !resolution.Open() {
		that.writeJSON(w, http.StatusOK, aiMoveReply{
			Winner: winnerToken(resolution),
			Region: resolution.Region,
			Board:  board,
		})

		return
	}

	move, err := PickMove(board, marker, difficulty)
	if err != nil {
		that.reject(w, err.Error())
		return
	}

	board[move.Row][move.Column] = marker
	resolution = Inspect(board)

	that.logger.Debug("move played", "hardness", body.Hardness, "row", move.Row, "column", move.Column)

	that.writeJSON(w, http.StatusOK, aiMoveReply{
		Winner:   winnerToken(resolution),
		Region:   resolution.Region,
		LastMove: &move,
		Board:    board,
	})
}

func (that *Server) handleCheckBoard(w http.ResponseWriter, r *http.Request) {
	body, err := decode[boardBody](r)
	if err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	board := body.Board
	if err = board.Validate(board.Size()); err != nil || board.Size() < entity.MinBoardSize {
		http.Error(w, "invalid board", http.StatusBadRequest)
		return
	}

	that.writeJSON(w, http.StatusOK, winnerReply{Winner: winnerToken(Inspect(board))})
}

func (that *Server) openSession(w http.ResponseWriter, userID string) error {
	token, err := mintToken(that.secret, userID, sessionTTL)
	if err != nil {
		return err
	}

	setSessionCookie(w, token)

	return nil
}

func parseHardness(name string) (entity.Difficulty, error) {
	switch name {
	case "easy":
		return entity.DifficultyEasy, nil
	case "medium":
		return entity.DifficultyMedium, nil
	case "hard":
		return entity.DifficultyHard, nil
	default:
		return 0, fmt.Errorf("unknown hardness %q", name)
	}
}
