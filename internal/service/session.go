package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/tictactoe-client/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
	"github.com/rocketscienceinc/tictactoe-client/internal/transport/rest"
)

var ErrPasswordMismatch = errors.New("passwords do not match")

var (
	loginPolicy          = rest.RetryPolicy{MaxRetries: 3, InitialDelay: 200 * time.Millisecond}
	signupPolicy         = rest.RetryPolicy{MaxRetries: 5, InitialDelay: 200 * time.Millisecond}
	checkSessionPolicy   = rest.RetryPolicy{MaxRetries: 3, InitialDelay: 50 * time.Millisecond}
	passwordChangePolicy = rest.RetryPolicy{MaxRetries: 3, InitialDelay: 200 * time.Millisecond}
	emailChangePolicy    = rest.RetryPolicy{MaxRetries: 3, InitialDelay: 100 * time.Millisecond}
)

const changePasswordQuery = `mutation changePassword($oldPassword: String!, $newPassword: String!) {
  changePassword(oldPassword: $oldPassword, newPassword: $newPassword) { result }
}`

const changeEmailQuery = `mutation changeEmail($email: String!) {
  changeEmail(email: $email) { result }
}`

// SessionService owns the current-user view. The view is either absent or
// present; in-flight requests leave it in its previous state until they
// resolve.
type SessionService interface {
	Login(ctx context.Context, email, password string) (*entity.User, error)
	Logout(ctx context.Context) (bool, error)
	Signup(ctx context.Context, email, password, confirmPassword string) (string, error)
	RestoreSession(ctx context.Context) bool

	UpdateUser(ctx context.Context, patch entity.UserPatch) error
	ChangePassword(ctx context.Context, oldPassword, newPassword string) error
	ChangeEmail(ctx context.Context, newEmail string) error

	IsUsedEmail(ctx context.Context, email string) bool
	IsCurrentUserPassword(ctx context.Context, password string) (bool, error)

	CurrentUser() (entity.User, bool)
	Clear()
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type signupResponse struct {
	UserID string `json:"userId"`
}

type checkSessionResponse struct {
	User *entity.User `json:"user"`
}

type checkPasswordRequest struct {
	Password string `json:"password"`
}

type checkPasswordResponse struct {
	IsEqual bool `json:"isEqual"`
}

type changePasswordResponse struct {
	Data struct {
		ChangePassword resultPayload `json:"changePassword"`
	} `json:"data"`
}

type changeEmailResponse struct {
	Data struct {
		ChangeEmail resultPayload `json:"changeEmail"`
	} `json:"data"`
}

type sessionService struct {
	logger   *slog.Logger
	client   *rest.Client
	notifier Notifier

	mu   sync.RWMutex
	user *entity.User
}

func NewSessionService(logger *slog.Logger, client *rest.Client, notifier Notifier) SessionService {
	return &sessionService{
		logger:   logger.With("component", "session"),
		client:   client,
		notifier: notifier,
	}
}

// Login - authenticates and makes the returned user current.
func (that *sessionService) Login(ctx context.Context, email, password string) (*entity.User, error) {
	user, err := rest.Do[entity.User](ctx, that.client, rest.MethodPost, "users/login",
		credentialsRequest{Email: email, Password: password}, rest.WithRetryPolicy(loginPolicy))
	if err != nil {
		return nil, fmt.Errorf("failed to login: %w", err)
	}

	that.setUser(&user)
	that.logger.Info("logged in", "userID", user.UserID)

	return &user, nil
}

// Logout - drops the backend session and clears the current user.
func (that *sessionService) Logout(ctx context.Context) (bool, error) {
	resp, err := rest.Do[resultPayload](ctx, that.client, rest.MethodPost, "users/logout", nil)
	if err != nil {
		return false, fmt.Errorf("failed to logout: %w", err)
	}

	that.Clear()
	that.logger.Info("logged out")

	return resp.Result, nil
}

// Signup - creates an account. The confirm check never leaves the process.
func (that *sessionService) Signup(ctx context.Context, email, password, confirmPassword string) (string, error) {
	if password != confirmPassword {
		return "", ErrPasswordMismatch
	}

	resp, err := rest.Do[signupResponse](ctx, that.client, rest.MethodPost, "users/signup",
		credentialsRequest{Email: email, Password: password}, rest.WithRetryPolicy(signupPolicy))
	if err != nil {
		return "", fmt.Errorf("failed to sign up: %w", err)
	}

	that.setUser(&entity.User{UserID: resp.UserID, Email: email})
	that.logger.Info("signed up", "userID", resp.UserID)

	return resp.UserID, nil
}

// RestoreSession - rehydrates the current user from the session cookie.
// Any failure leaves the view absent.
func (that *sessionService) RestoreSession(ctx context.Context) bool {
	resp, err := rest.Do[checkSessionResponse](ctx, that.client, rest.MethodPost, "users/check-session", nil,
		rest.WithRetryPolicy(checkSessionPolicy))
	if err != nil || resp.User == nil {
		that.Clear()
		that.logger.Info("no session to restore")

		return false
	}

	that.setUser(resp.User)
	that.logger.Info("session restored", "userID", resp.User.UserID)

	return true
}

// UpdateUser - sends a merge-patch. The local view changes only after the
// backend confirms; a failure is shown to the user and changes nothing.
func (that *sessionService) UpdateUser(ctx context.Context, patch entity.UserPatch) error {
	user, err := rest.Do[entity.User](ctx, that.client, rest.MethodPatch, "users/update-user", patch)
	if err != nil {
		that.notifier.Failure("failed to update the profile")
		return fmt.Errorf("failed to update user: %w", err)
	}

	that.setUser(&user)

	return nil
}

// ChangePassword - graphql mutation; failures are shown to the user.
func (that *sessionService) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	body := graphqlRequest{
		Query:     changePasswordQuery,
		Variables: map[string]any{"oldPassword": oldPassword, "newPassword": newPassword},
	}

	_, err := rest.Do[changePasswordResponse](ctx, that.client, rest.MethodPost, "graphql/users", body,
		rest.WithRetryPolicy(passwordChangePolicy))
	if err != nil {
		that.notifier.Failure("failed to change the password")
		return fmt.Errorf("failed to change password: %w", err)
	}

	return nil
}

// ChangeEmail - graphql mutation; the confirmed address is merged into the
// local view.
func (that *sessionService) ChangeEmail(ctx context.Context, newEmail string) error {
	body := graphqlRequest{
		Query:     changeEmailQuery,
		Variables: map[string]any{"email": newEmail},
	}

	_, err := rest.Do[changeEmailResponse](ctx, that.client, rest.MethodPost, "graphql/users", body,
		rest.WithRetryPolicy(emailChangePolicy))
	if err != nil {
		that.notifier.Failure("failed to change the email")
		return fmt.Errorf("failed to change email: %w", err)
	}

	that.mu.Lock()
	if that.user != nil {
		that.user.Email = newEmail
	}
	that.mu.Unlock()

	return nil
}

// IsUsedEmail - reports whether the address is taken. No usable answer
// counts as "not used".
func (that *sessionService) IsUsedEmail(ctx context.Context, email string) bool {
	resp, err := rest.Do[resultPayload](ctx, that.client, rest.MethodPost, "users/is-used-email", emailRequest{Email: email})
	if err != nil {
		return false
	}

	return resp.Result
}

// IsCurrentUserPassword - compares the password against the logged-in
// account. Without a current user the answer is undefined, which is an
// error here, distinct from false.
func (that *sessionService) IsCurrentUserPassword(ctx context.Context, password string) (bool, error) {
	if _, ok := that.CurrentUser(); !ok {
		return false, apperror.ErrNoCurrentUser
	}

	resp, err := rest.Do[checkPasswordResponse](ctx, that.client, rest.MethodPost, "users/check-password",
		checkPasswordRequest{Password: password})
	if err != nil {
		return false, fmt.Errorf("failed to check password: %w", err)
	}

	return resp.IsEqual, nil
}

// CurrentUser returns a copy of the current-user view.
func (that *sessionService) CurrentUser() (entity.User, bool) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	if that.user == nil {
		return entity.User{}, false
	}

	return *that.user, true
}

// Clear drops the current user.
func (that *sessionService) Clear() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.user = nil
}

func (that *sessionService) setUser(user *entity.User) {
	that.mu.Lock()
	defer that.mu.Unlock()

	copied := *user
	that.user = &copied
}
