package version_test

import (
	"runtime"
	"testing"

	"github.com/effective-security/xcsr/internal/version"
	"github.com/stretchr/testify/assert"
)

func TestCurrent(t *testing.T) {
	v := version.Current()
	assert.Equal(t, version.Version, v.Version)
	assert.Equal(t, version.Commit, v.Commit)
	assert.Equal(t, runtime.Version(), v.Runtime)
	assert.Equal(t, "v0.0.0 (dev, "+runtime.Version()+")", v.String())
}
