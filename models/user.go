package models

// UserRole: роль из JWT-токена администратора.
type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleOperator UserRole = "operator"
)
