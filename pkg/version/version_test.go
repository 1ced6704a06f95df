package version

import (
	"encoding/json"
	"regexp"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersion_FollowsSemverOrDev(t *testing.T) {
	if Version == "dev" {
		return
	}
	semver := regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-zA-Z0-9.]+)?$`)
	require.True(t, semver.MatchString(Version), "got %s", Version)
}

func TestString(t *testing.T) {
	s := String()

	assert.Contains(t, s, "scout "+Version)
	assert.Contains(t, s, "commit: "+Commit)
	assert.Contains(t, s, runtime.Version())
	assert.Equal(t, Version, Short())
}

func TestGetInfo_JSON(t *testing.T) {
	data, err := json.Marshal(GetInfo())
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, Version, got["version"])
	assert.Equal(t, runtime.GOOS, got["os"])
	assert.Equal(t, runtime.GOARCH, got["arch"])
	assert.Contains(t, got, "go_version")
}
