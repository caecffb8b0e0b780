package topology

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sample = `
# comment line
10.0.0.1 0 3 2
10.0.0.2 3 0 3
10.0.0.3 2 3 0
`

// GIVEN a well-formed topology file
// WHEN it is loaded
// THEN distances are queryable by node name, and an unknown name is
// rejected.
func TestFromReaderParsesDistances(t *testing.T) {
	tp, err := FromReader(strings.NewReader(sample))
	require.NoError(t, err)
	require.Equal(t, 3, tp.NumNodes())

	d, err := tp.Distance("10.0.0.1", "10.0.0.3")
	require.NoError(t, err)
	require.Equal(t, 2.0, d)

	_, err = tp.Distance("10.0.0.1", "ghost")
	require.ErrorIs(t, err, ErrInvalidNode)
}

func TestFromReaderRejectsRaggedRows(t *testing.T) {
	_, err := FromReader(strings.NewReader("a 0 1\nb 1 0 2\n"))
	require.ErrorIs(t, err, ErrInvalidTopologyFile)
}

func TestFromReaderRejectsDuplicateNode(t *testing.T) {
	_, err := FromReader(strings.NewReader("a 0 1\na 1 0\n"))
	require.ErrorIs(t, err, ErrInvalidTopologyFile)
}

func TestFromReaderRejectsEmptyInput(t *testing.T) {
	_, err := FromReader(strings.NewReader("# only a comment\n"))
	require.ErrorIs(t, err, ErrInvalidTopologyFile)
}

func TestRandomizeLeavesDiagonalUntouched(t *testing.T) {
	tp, err := FromReader(strings.NewReader(sample))
	require.NoError(t, err)
	tp.Randomize(rand.New(rand.NewSource(7)))

	for _, name := range tp.Names() {
		d, err := tp.Distance(name, name)
		require.NoError(t, err)
		require.Equal(t, 0.0, d)
	}
}
