package feed

import "agora/internal/models"

// CanDelete reports whether user may delete post: staff may delete anything,
// others only their own posts. A nil user may delete nothing.
func CanDelete(user *models.User, post models.Post) bool {
	if user == nil {
		return false
	}
	return user.IsStaff || user.Username == post.Author.Username
}
