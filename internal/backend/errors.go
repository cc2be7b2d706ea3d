// errors.go — классификация ошибок REST API бэкенда.
// Каждый ответ попадает ровно в одну категорию: успех, 401 (ErrUnauthorized),
// прикладная ошибка (*APIError с сообщением бэкенда) или транспортный сбой
// (*APIError без статуса). Вызывающие никогда не видят сырые http.Response.
package backend

import "errors"

// ErrUnauthorized — любой ответ 401. Обнаружив её через errors.Is,
// UI-слой очищает сессию и отправляет пользователя на /login.
var ErrUnauthorized = errors.New("unauthorized: требуется повторный вход")

// APIError — прикладная или транспортная ошибка бэкенда.
// Message предназначен для показа пользователю.
type APIError struct {
	// Status — HTTP-статус ответа; 0 если запрос не дошёл до бэкенда.
	Status int
	// Message — сообщение из тела ответа бэкенда или generic fallback.
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// apiErrorBody — формат тела ошибки бэкенда
// ({timestamp, status, error, message, path}).
type apiErrorBody struct {
	Status  int    `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
}
