package assignment

import "github.com/proft/portfolio/core/user"

// Policies take the acting user and the resource and answer whether the action is allowed.

func CanManageCategories(actor user.User) bool {
	return actor.IsActive && actor.IsAdmin()
}

func CanManageScores(actor user.User) bool {
	return actor.IsActive && actor.IsAdmin()
}

func CanGrade(actor user.User) bool {
	return actor.IsActive && actor.IsAdmin()
}

func CanManageAssignments(actor user.User) bool {
	return actor.IsActive && actor.IsAdmin()
}

func IsOwner(actor user.User, a Assignment) bool {
	return actor.ID != "" && actor.ID == a.TeacherID
}

func CanViewAssignment(actor user.User, a Assignment) bool {
	return actor.IsActive && (actor.IsAdmin() || IsOwner(actor, a))
}

func CanSubmitProgress(actor user.User, a Assignment) bool {
	return actor.IsActive && IsOwner(actor, a)
}

func CanViewStatistics(actor user.User) bool {
	return actor.IsActive && actor.IsAdmin()
}
