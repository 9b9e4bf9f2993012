package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Некорректный запрос: не хватает обязательных полей области и т.п.
	ErrInvalidInput = errors.New("invalid input")

	// Нарушение целостности: больше одной активной строки на одну область.
	// Это ошибка конфигурации, молча выбирать одну строку нельзя.
	ErrAmbiguousRule = errors.New("more than one active row matches the same scope")

	ErrMarkupRuleNotFound   = errors.New("markup rule not found")
	ErrHospitalityNotFound  = errors.New("hospitality not found")
	ErrAssignmentNotFound   = errors.New("hospitality assignment not found")
	ErrTicketMarkupNotFound = errors.New("legacy ticket markup not found")

	ErrRuleConflict = errors.New("an active rule already exists for this scope")

	ErrIconStorageDisabled = errors.New("icon storage is not configured")

	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrForbiddenOperation   = errors.New("operation not allowed for the current user")
)
