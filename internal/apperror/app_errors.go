package apperror

import "errors"

var (
	ErrGameFinished  = errors.New("game is already finished")
	ErrNotYourTurn   = errors.New("it's not your turn")
	ErrInputBlocked  = errors.New("input is blocked while a request is in flight")
	ErrInvalidCell   = errors.New("invalid cell index")
	ErrNoCurrentUser = errors.New("no current user is loaded")
	ErrNotFound      = errors.New("not found")
)
