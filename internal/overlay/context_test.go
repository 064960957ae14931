package overlay

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseContext(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Context
		wantErr bool
	}{
		{
			name: "valid",
			raw:  `{"selected_text":"hello","has_screenshot":false}`,
			want: Context{SelectedText: "hello"},
		},
		{
			name: "unknown fields ignored",
			raw:  `{"selected_text":"","has_screenshot":true,"extra":[1,2]}`,
			want: Context{HasScreenshot: true},
		},
		{name: "not json", raw: `hello`, wantErr: true},
		{name: "missing has_screenshot", raw: `{"selected_text":"x"}`, wantErr: true},
		{name: "missing selected_text", raw: `{"has_screenshot":true}`, wantErr: true},
		{name: "wrong type", raw: `{"selected_text":1,"has_screenshot":true}`, wantErr: true},
		{name: "array", raw: `[]`, wantErr: true},
		{name: "empty", raw: ``, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseContext([]byte(tt.raw))
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidContext)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestContextCell(t *testing.T) {
	var c ContextCell

	_, ok := c.Get()
	assert.False(t, ok)

	c.Set(Context{SelectedText: "a"})
	got, ok := c.Get()
	require.True(t, ok)
	assert.Equal(t, "a", got.SelectedText)

	c.Clear()
	_, ok = c.Get()
	assert.False(t, ok)
}

func TestContextCell_Concurrent(t *testing.T) {
	var c ContextCell
	var wg sync.WaitGroup

	for i := range 20 {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				c.Set(Context{SelectedText: "even", HasScreenshot: true})
			} else {
				c.Clear()
			}
		}(i)
		go func() {
			defer wg.Done()
			if got, ok := c.Get(); ok {
				assert.Equal(t, Context{SelectedText: "even", HasScreenshot: true}, got)
			}
		}()
	}
	wg.Wait()
}

func TestContext_Describe(t *testing.T) {
	tests := []struct {
		name string
		ctx  Context
		max  int
		want string
	}{
		{"empty", Context{}, 10, ""},
		{"screenshot only", Context{HasScreenshot: true}, 10, "Screenshot"},
		{"text", Context{SelectedText: "hello"}, 10, "“hello”"},
		{"text and screenshot", Context{SelectedText: "hi", HasScreenshot: true}, 10, "“hi” + screenshot"},
		{"whitespace collapsed", Context{SelectedText: "  a\n\tb  "}, 10, "“a b”"},
		{"truncated by rune", Context{SelectedText: "héllo wörld"}, 5, "“héllo…”"},
		{"no limit", Context{SelectedText: "abcdef"}, 0, "“abcdef”"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ctx.Describe(tt.max))
		})
	}
}
