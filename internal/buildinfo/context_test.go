package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ctx  *Context
		want string
	}{
		{name: "nil context", ctx: nil, want: UnknownValue},
		{name: "empty version", ctx: NewContext("", "2026-01-01"), want: UnknownValue},
		{name: "release", ctx: NewContext("v1.0.0", "2026-01-01"), want: "v1.0.0"},
		{name: "pre-release tag", ctx: NewContext("v1.0.0-beta.1", ""), want: "v1.0.0-beta.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.ctx.Version())
		})
	}
}

func TestContextBuildDate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, UnknownValue, (*Context)(nil).BuildDate())
	assert.Equal(t, UnknownValue, NewContext("v1", "").BuildDate())
	assert.Equal(t, "2026-03-02T10:00:00Z", NewContext("v1", "2026-03-02T10:00:00Z").BuildDate())
}

func TestContextFormatting(t *testing.T) {
	t.Parallel()

	c := NewContext("v0.4.1", "2026-03-02")
	assert.Equal(t, "partdetect/v0.4.1", c.UserAgent())
	assert.Equal(t, "partdetect v0.4.1 (built 2026-03-02)", c.String())
	assert.Equal(t, "partdetect/unknown", NewContext("", "").UserAgent())
}
