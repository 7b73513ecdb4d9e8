package utils

import "github.com/google/uuid"

// NewUUID генерирует новый UUID v4
func NewUUID() string {
	return uuid.New().String()
}

// IsUUID проверяет, что строка — корректный UUID (для X-Request-ID и X-Device-ID)
func IsUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
