package service

import "mentor_lms_backend/internal/model"

// Actor 发起请求的用户
type Actor struct {
	ID   uint
	Role model.UserRole
}

func (a Actor) IsAdmin() bool {
	return a.Role == model.Admin
}
