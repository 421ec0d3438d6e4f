package core

// Role is a member's standing inside a room.
type Role string

const (
	RoleOwner     Role = "owner"
	RoleModerator Role = "moderator"
	RoleMember    Role = "member"
)

// Member is a room participant as reported by the membership collaborator.
type Member struct {
	User Sender `json:"user"`
	Role Role   `json:"role"`
}

// FindMember returns the member with the given user ID.
func FindMember(members []Member, userID string) (Member, bool) {
	for _, m := range members {
		if m.User.ID == userID {
			return m, true
		}
	}
	return Member{}, false
}
