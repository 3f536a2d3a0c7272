package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"refused", errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"), true},
		{"reset", errors.New("read: connection reset by peer"), true},
		{"timeout", errors.New("i/o timeout"), true},
		{"pool closed", errors.New("pool closed"), true},
		{"wrapped", fmt.Errorf("find review: %w", errors.New("broken pipe")), true},
		{"constraint", errors.New("duplicate key value violates unique constraint"), false},
		{"syntax", errors.New("syntax error at or near SELECT"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsConnectionError(tt.err))
		})
	}
}
