package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "rangekeeper "+Version+" (commit: "+Commit+", built: "+Date+")", String())
}

func TestInitBinaryVersion_KeepsLinkedValues(t *testing.T) {
	saved := [...]string{Version, Commit, Date}

	t.Cleanup(func() {
		Version, Commit, Date = saved[0], saved[1], saved[2]
	})

	Version, Commit, Date = "v9.9.9", "abc", "2026-01-01"

	InitBinaryVersion()

	assert.Equal(t, "v9.9.9", Version)
	assert.Equal(t, "abc", Commit)
	assert.Equal(t, "2026-01-01", Date)
}
