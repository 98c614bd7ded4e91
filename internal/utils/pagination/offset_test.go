package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name          string
		limit, offset int
		wantLimit     int
		wantOffset    int
	}{
		{"defaults", 0, 0, 20, 0},
		{"capped", 500, 10, 50, 10},
		{"negative offset", 5, -3, 5, 0},
		{"negative limit", -1, 4, 20, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, o := Normalize(tt.limit, tt.offset, 20, 50)
			assert.Equal(t, tt.wantLimit, l)
			assert.Equal(t, tt.wantOffset, o)
		})
	}
}

func TestWindow(t *testing.T) {
	start, end, more := Window(45, 20, 20, false)
	assert.Equal(t, []int{20, 40}, []int{start, end})
	assert.True(t, more)

	start, end, more = Window(45, 40, 20, false)
	assert.Equal(t, []int{40, 45}, []int{start, end})
	assert.False(t, more)

	start, end, more = Window(10, 30, 20, false)
	assert.Equal(t, []int{10, 10}, []int{start, end})
	assert.False(t, more)

	_, _, more = Window(40, 20, 20, true)
	assert.True(t, more, "a truncated list may continue")
}
