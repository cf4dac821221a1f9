package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		scheme string
		path   string
	}{
		{"bare path", "/data/clip.rvf", "raw", "/data/clip.rvf"},
		{"relative bare path", "clip.rvf", "raw", "clip.rvf"},
		{"raw scheme", "raw:///data/clip.rvf", "raw", "/data/clip.rvf"},
		{"file scheme", "file:///data/clip.rvf", "file", "/data/clip.rvf"},
		{"test scheme no path", "test://", "test", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := ParseURI(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.scheme, u.Scheme)
			assert.Equal(t, tt.path, u.Path)
		})
	}
}

func TestParseURIEmpty(t *testing.T) {
	_, err := ParseURI("")
	assert.Error(t, err)
}

func TestURIParams(t *testing.T) {
	u, err := ParseURI("test://?w=640&h=480&fmt=RGB24&fps=abc")
	require.NoError(t, err)

	assert.Equal(t, 640, u.IntParam("w", 1))
	assert.Equal(t, 480, u.IntParam("h", 1))
	assert.Equal(t, 25, u.IntParam("fps", 25), "unparseable falls back to the default")
	assert.Equal(t, 30, u.IntParam("missing", 30))
	assert.Equal(t, "RGB24", u.StringParam("fmt", "GRAY8"))
	assert.Equal(t, "GRAY8", u.StringParam("other", "GRAY8"))
}
