package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"translated duplicate key", gorm.ErrDuplicatedKey, true},
		{"wrapped duplicate key", fmt.Errorf("create customer: %w", gorm.ErrDuplicatedKey), true},
		{"sqlite message", errors.New("UNIQUE constraint failed: customers.email"), true},
		{"unrelated mention of unique", errors.New("column unique_code does not exist"), false},
		{"check constraint", errors.New("CHECK constraint failed: price_good"), false},
		{"record not found", gorm.ErrRecordNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUniqueViolation(tt.err))
		})
	}
}
