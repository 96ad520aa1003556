package utils

import "github.com/google/uuid"

// UUIDGenerator issues time-ordered identifiers for records and offline
// changes. UUIDv7 keeps client-generated ids roughly sortable by creation
// time, which keeps the offline change queue naturally ordered.
type UUIDGenerator struct {
}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

func (g *UUIDGenerator) Generate() string {
	v7, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return v7.String()
}
