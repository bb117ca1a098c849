package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]struct {
		in      string
		want    string
		wantErr bool
	}{
		"default": {in: "", want: "info"},
		"debug":   {in: "DEBUG", want: "debug"},
		"warning": {in: "warning", want: "warn"},
		"error":   {in: "error", want: "error"},
		"bogus":   {in: "chatty", wantErr: true},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			lvl, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, lvl.String())
		})
	}
}

func TestNew(t *testing.T) {
	logger, err := New(Config{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))

	logger, err = New(Config{Level: "warn"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.InfoLevel))

	_, err = New(Config{Format: "xml"})
	assert.Error(t, err)
}
