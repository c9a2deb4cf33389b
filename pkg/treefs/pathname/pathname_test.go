package pathname

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateName(t *testing.T) {
	require.NoError(t, ValidateName("report.txt"))
	require.NoError(t, ValidateName("a"))

	assert.Error(t, ValidateName(""))
	assert.Error(t, ValidateName(".."))
	assert.Error(t, ValidateName("a/b"))
	assert.Error(t, ValidateName("bad\x00name"))
	assert.Error(t, ValidateName(strings.Repeat("x", MaxNameBytes+1)))
}

func TestNormalizeRoot(t *testing.T) {
	norm, comps, _, err := Normalize("/")
	require.NoError(t, err)
	assert.Equal(t, "/", norm)
	assert.Empty(t, comps)

	norm, comps, _, err = Normalize("//")
	require.NoError(t, err)
	assert.Equal(t, "/", norm)
	assert.Empty(t, comps)
}

func TestNormalizeSelf(t *testing.T) {
	norm, comps, _, err := Normalize(".")
	require.NoError(t, err)
	assert.Equal(t, ".", norm)
	assert.Nil(t, comps)
}

func TestNormalizeRejectsDotDot(t *testing.T) {
	_, _, _, err := Normalize("/a/../b")
	assert.Error(t, err)
}

func TestNormalizeAcceptsRelative(t *testing.T) {
	norm, comps, absolute, err := Normalize("a/b")
	require.NoError(t, err)
	assert.Equal(t, "a/b", norm)
	assert.Equal(t, []string{"a", "b"}, comps)
	assert.False(t, absolute)
}

func TestNormalizeCollapsesDoubleSlash(t *testing.T) {
	norm, comps, _, err := Normalize("//a//b/")
	require.NoError(t, err)
	assert.Equal(t, "/a/b", norm)
	assert.Equal(t, []string{"a", "b"}, comps)
}

func TestCombine(t *testing.T) {
	got, ok := Combine("docs", "archive/docs", "docs")
	require.True(t, ok)
	assert.Equal(t, "archive/docs", got)

	got, ok = Combine("docs", "archive/docs", "docs/report.txt")
	require.True(t, ok)
	assert.Equal(t, "archive/docs/report.txt", got)

	_, ok = Combine("docs", "archive/docs", "other/report.txt")
	assert.False(t, ok)
}
