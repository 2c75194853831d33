// internal/types/ids.go
package types

import (
	"github.com/google/uuid"
)

func NewEventID() string {
	return uuid.New().String()
}

func NewInvocationID() string {
	return "inv-" + uuid.New().String()
}

func NewSessionID() string {
	return uuid.New().String()
}
