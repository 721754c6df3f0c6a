package repo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/DreamCutter28/payment-reminder-telegram-bot/internal/repo"
)

func TestSplitAmount(t *testing.T) {
	tests := []struct {
		name  string
		total int64
		n     int
		want  []int64
	}{
		{"even", 300, 3, []int64{100, 100, 100}},
		{"remainder to first month", 250, 3, []int64{84, 83, 83}},
		{"single month", 250, 1, []int64{250}},
		{"remainder bigger than one", 1003, 4, []int64{253, 250, 250, 250}},
		{"zero total", 0, 2, []int64{0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := repo.SplitAmount(tt.total, tt.n)
			assert.Equal(t, tt.want, got)

			var sum int64
			for _, a := range got {
				sum += a
			}
			assert.Equal(t, tt.total, sum, "no cents may be dropped")
		})
	}
}
