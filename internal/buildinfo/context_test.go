package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContext_Getters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		ctx     *Context
		version string
		date    string
		commit  string
	}{
		{"nil context", nil, UnknownValue, UnknownValue, UnknownValue},
		{"empty fields", NewContext("", "", ""), UnknownValue, UnknownValue, UnknownValue},
		{"populated", NewContext("1.2.0", "2026-01-02", "abc1234"), "1.2.0", "2026-01-02", "abc1234"},
		{"pre-release", NewContext("1.2.0-rc.1", "", "abc1234"), "1.2.0-rc.1", UnknownValue, "abc1234"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.version, tt.ctx.GetVersion())
			assert.Equal(t, tt.date, tt.ctx.GetBuildDate())
			assert.Equal(t, tt.commit, tt.ctx.GetCommit())
		})
	}
}

func TestContext_ReleaseAndBanner(t *testing.T) {
	t.Parallel()

	c := NewContext("0.3.1", "2026-05-01", "deadbee")
	assert.Equal(t, "audiofx@0.3.1", c.Release())
	assert.Equal(t, "audiofx 0.3.1 (commit deadbee, built 2026-05-01)", c.String())

	var nilCtx *Context
	assert.Equal(t, "audiofx@unknown", nilCtx.Release())
}
