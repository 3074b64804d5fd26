package remotesync

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mesh-intelligence/neuronotes/pkg/types"
)

func TestWinner(t *testing.T) {
	a := &types.Note{ID: "n", Title: "a", UpdatedAt: 10}
	b := &types.Note{ID: "n", Title: "b", UpdatedAt: 10}

	tests := []struct {
		name string
		l, r types.Entity
		want int
	}{
		{"newer local", &types.Workspace{ID: "w", UpdatedAt: 2}, &types.Workspace{ID: "w", UpdatedAt: 1}, 1},
		{"newer remote", &types.Workspace{ID: "w", UpdatedAt: 1}, &types.Workspace{ID: "w", UpdatedAt: 2}, -1},
		{"identical", &types.Workspace{ID: "w", Name: "x", UpdatedAt: 1}, &types.Workspace{ID: "w", Name: "x", UpdatedAt: 1}, 0},
		{"read state ignored",
			&types.Note{ID: "n", UpdatedAt: 1, ContentState: types.ContentLoaded},
			&types.Note{ID: "n", UpdatedAt: 1, ContentState: types.ContentNotLoaded}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, winner(tt.l, tt.r))
		})
	}

	// Both devices must pick the same row on a tie.
	assert.NotZero(t, winner(a, b))
	assert.Equal(t, -winner(a, b), winner(b, a))
}
