package version

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseTime(t *testing.T) {
	want := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)

	assert.Equal(t, want, parseTime("2025-03-04T05:06:07Z"))
	assert.Equal(t, want, parseTime("2025-03-04T05:06:07"))
	assert.Equal(t, want, parseTime("2025-03-04 05:06:07"))
	assert.True(t, parseTime("unknown").IsZero())
	assert.True(t, parseTime("").IsZero())
}

func TestBuildInfo_Short(t *testing.T) {
	assert.Equal(t, "v1.0.0 (abcdef1)", (&BuildInfo{Version: "v1.0.0", GitCommit: "abcdef1234"}).Short())
	assert.Equal(t, "dev-abcdef1", (&BuildInfo{Version: "dev-abcdef1", GitCommit: "abcdef1234"}).Short())
	assert.Equal(t, "dev", (&BuildInfo{Version: "dev", GitCommit: "unknown"}).Short())
}

func TestBuildInfo_Detailed(t *testing.T) {
	b := &BuildInfo{
		Version:   "v1.0.0",
		GitCommit: "abc",
		Dirty:     true,
		BuildTime: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		GoVersion: "go1.24.4",
		Platform:  "linux/amd64",
	}

	assert.Equal(t, "Version: v1.0.0\nCommit: abc (modified)\nBuilt: 2025-01-02T03:04:05Z\nGo: go1.24.4\nPlatform: linux/amd64", b.Detailed())
	assert.Equal(t, "Version: dev\nGo: go1.24.4\nPlatform: linux/amd64",
		(&BuildInfo{Version: "dev", GitCommit: "unknown", GoVersion: "go1.24.4", Platform: "linux/amd64"}).Detailed())
}

func TestBuildInfo_IsRelease(t *testing.T) {
	assert.True(t, (&BuildInfo{Version: "v1.0.0"}).IsRelease())
	assert.False(t, (&BuildInfo{Version: "v1.0.0", Dirty: true}).IsRelease())
	assert.False(t, (&BuildInfo{Version: "dev"}).IsRelease())
	assert.False(t, (&BuildInfo{Version: "dev-abc1234"}).IsRelease())
}

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.GoVersion)
	assert.Contains(t, info.Platform, "/")
}
