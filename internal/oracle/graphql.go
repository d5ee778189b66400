package oracle

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
)

// The graphql endpoints are operation dispatchers: the query text selects
// the operation, variables carry its arguments. Nothing else of graphql is
// implemented.

type graphqlBody struct {
	Query     string          `json:"query"`
	Variables json.RawMessage `json:"variables"`
}

type changePasswordVars struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type saveGameVars struct {
	Game entity.SavedGame `json:"game"`
}

type renameGameVars struct {
	GameID string `json:"gameId"`
	Name   string `json:"name"`
}

type deleteGameVars struct {
	GameID string `json:"gameId"`
}

func (that *Server) handleUsersGraphQL(w http.ResponseWriter, r *http.Request) {
	user, body, ok := that.graphqlRequest(w, r)
	if !ok {
		return
	}

	switch {
	case strings.Contains(body.Query, "changePassword"):
		vars, err := decodeVars[changePasswordVars](body.Variables)
		if err != nil {
			http.Error(w, "invalid variables", http.StatusBadRequest)
			return
		}

		if err = that.store.ChangePassword(user.UserID, vars.OldPassword, vars.NewPassword); err != nil {
			that.reject(w, err.Error())
			return
		}

		that.graphqlData(w, "changePassword", resultReply{Result: true})

	case strings.Contains(body.Query, "changeEmail"):
		vars, err := decodeVars[emailBody](body.Variables)
		if err != nil {
			http.Error(w, "invalid variables", http.StatusBadRequest)
			return
		}

		if err = that.store.ChangeEmail(user.UserID, vars.Email); err != nil {
			that.reject(w, err.Error())
			return
		}

		that.graphqlData(w, "changeEmail", resultReply{Result: true})

	default:
		that.reject(w, "unknown operation")
	}
}

func (that *Server) handleGameGraphQL(w http.ResponseWriter, r *http.Request) {
	user, body, ok := that.graphqlRequest(w, r)
	if !ok {
		return
	}

	switch {
	case strings.Contains(body.Query, "saveGame"):
		vars, err := decodeVars[saveGameVars](body.Variables)
		if err != nil {
			http.Error(w, "invalid variables", http.StatusBadRequest)
			return
		}

		gameID, err := that.store.SaveGame(user.UserID, vars.Game)
		if err != nil {
			that.reject(w, err.Error())
			return
		}

		that.graphqlData(w, "saveGame", map[string]string{"gameId": gameID})

	case strings.Contains(body.Query, "renameGame"):
		vars, err := decodeVars[renameGameVars](body.Variables)
		if err != nil {
			http.Error(w, "invalid variables", http.StatusBadRequest)
			return
		}

		if err = that.store.RenameGame(user.UserID, vars.GameID, vars.Name); err != nil {
			that.reject(w, err.Error())
			return
		}

		that.graphqlData(w, "renameGame", resultReply{Result: true})

	case strings.Contains(body.Query, "deleteGame"):
		vars, err := decodeVars[deleteGameVars](body.Variables)
		if err != nil {
			http.Error(w, "invalid variables", http.StatusBadRequest)
			return
		}

		if err = that.store.DeleteGame(user.UserID, vars.GameID); err != nil {
			that.reject(w, err.Error())
			return
		}

		that.graphqlData(w, "deleteGame", resultReply{Result: true})

	case strings.Contains(body.Query, "games"):
		that.graphqlData(w, "games", that.store.ListGames(user.UserID))

	default:
		that.reject(w, "unknown operation")
	}
}

// graphqlRequest decodes the envelope and resolves the session; both
// endpoints require a logged-in user.
func (that *Server) graphqlRequest(w http.ResponseWriter, r *http.Request) (entity.User, graphqlBody, bool) {
	user, err := that.currentUser(r)
	if err != nil {
		that.reject(w, ErrNoSession.Error())
		return entity.User{}, graphqlBody{}, false
	}

	body, err := decode[graphqlBody](r)
	if err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return entity.User{}, graphqlBody{}, false
	}

	return user, body, true
}

func (that *Server) graphqlData(w http.ResponseWriter, field string, payload any) {
	that.writeJSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{field: payload},
	})
}

func decodeVars[T any](raw json.RawMessage) (T, error) {
	var vars T
	if len(raw) == 0 {
		return vars, nil
	}

	if err := json.Unmarshal(raw, &vars); err != nil {
		return vars, err
	}

	return vars, nil
}
