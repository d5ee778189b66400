package entity

// User is the authenticated account view owned by the session facade. The
// mixed json naming is fixed by the backend contract.
type User struct {
	UserID     string `json:"userId"`
	Email      string `json:"email"`
	WinNumber  int    `json:"winNumber"`
	LoseNumber int    `json:"loseNumber"`
	GameCount  int    `json:"game_count"`
}

// UserPatch is a merge-patch: nil fields are left untouched.
type UserPatch struct {
	Email      *string `json:"email,omitempty"`
	WinNumber  *int    `json:"winNumber,omitempty"`
	LoseNumber *int    `json:"loseNumber,omitempty"`
	GameCount  *int    `json:"game_count,omitempty"`
}

// Apply - merges the patch into the user in place.
func (that *User) Apply(patch UserPatch) {
	if patch.Email != nil {
		that.Email = *patch.Email
	}
	if patch.WinNumber != nil {
		that.WinNumber = *patch.WinNumber
	}
	if patch.LoseNumber != nil {
		that.LoseNumber = *patch.LoseNumber
	}
	if patch.GameCount != nil {
		that.GameCount = *patch.GameCount
	}
}
