package pagination

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr error
	}{
		{name: "first page", params: Params{Page: 1, PageSize: 20}},
		{name: "max page size", params: Params{Page: 3, PageSize: 100}},
		{name: "zero page", params: Params{Page: 0, PageSize: 20}, wantErr: ErrInvalidPage},
		{name: "zero page size", params: Params{Page: 1, PageSize: 0}, wantErr: ErrInvalidPageSize},
		{name: "page size over limit", params: Params{Page: 1, PageSize: 101}, wantErr: ErrInvalidPageSize},
		{name: "last addressable page", params: Params{Page: math.MaxInt/100 + 1, PageSize: 100}},
		{name: "offset overflows", params: Params{Page: math.MaxInt/100 + 2, PageSize: 100}, wantErr: ErrPageTooLarge},
		{name: "max int page", params: Params{Page: math.MaxInt, PageSize: 100}, wantErr: ErrPageTooLarge},
		{name: "offset wraps to zero", params: Params{Page: 1<<62 + 1, PageSize: 4}, wantErr: ErrPageTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}
			require.NoError(t, err)
		})
	}
}

func TestSlice(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	assert.Equal(t, []int{1, 2}, Slice(items, Params{Page: 1, PageSize: 2}))
	assert.Equal(t, []int{5}, Slice(items, Params{Page: 3, PageSize: 2}))
	assert.Empty(t, Slice(items, Params{Page: 4, PageSize: 2}))
	assert.Empty(t, Slice(items, Params{Page: math.MaxInt, PageSize: 100}))
	assert.Empty(t, Slice(items, Params{Page: 1<<62 + 1, PageSize: 4}))
	assert.Empty(t, Slice(items, Params{Page: 1, PageSize: 0}))
}

func TestParams_Offset(t *testing.T) {
	assert.Equal(t, 0, Params{Page: 1, PageSize: 20}.Offset())
	assert.Equal(t, 40, Params{Page: 3, PageSize: 20}.Offset())
	assert.Equal(t, 0, Params{Page: math.MaxInt, PageSize: 100}.Offset())
}

func TestNewResult(t *testing.T) {
	res := NewResult([]string{"a", "b"}, Params{Page: 1, PageSize: 2}, 5)

	assert.Equal(t, 3, res.TotalPages)
	assert.True(t, res.HasNext)
	assert.Equal(t, 5, res.Total)

	empty := NewResult[string](nil, Params{Page: 1, PageSize: 10}, 0)
	assert.NotNil(t, empty.Items)
	assert.False(t, empty.HasNext)
}
