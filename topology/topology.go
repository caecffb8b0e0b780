// Package topology loads and queries a network topology expressed as the
// pairwise distance between named nodes, used by the hierarchical
// controller installer to pick the closest edge router for each computer.
package topology

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// ErrInvalidTopologyFile is returned when a topology file is missing, or
// its content does not parse into a well-formed square distance matrix:
// an empty line group, a duplicated node name, or a row whose width does
// not match every other row.
var ErrInvalidTopologyFile = errors.New("topology: invalid topology file")

// ErrInvalidNode is returned by Distance when either node name is unknown.
var ErrInvalidNode = errors.New("topology: unknown node")

// Topology holds the distance between any two named nodes, represented as
// a dense N×N matrix.
type Topology struct {
	names map[string]int
	dist  *mat.Dense
}

// FromFile loads a topology from a text file: one line per node, the node
// name followed by N distances to every node (including itself, normally
// 0). Empty lines and lines starting with '#' are skipped.
func FromFile(path string) (*Topology, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTopologyFile, path, err)
	}
	defer f.Close()
	t, err := FromReader(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, path)
	}
	return t, nil
}

// FromReader loads a topology from r, with the same format as FromFile.
func FromReader(r io.Reader) (*Topology, error) {
	names := make(map[string]int)
	var rows [][]float64
	width := -1

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("%w: malformed row %q", ErrInvalidTopologyFile, line)
		}
		name := fields[0]
		if _, dup := names[name]; dup {
			return nil, fmt.Errorf("%w: duplicate node %q", ErrInvalidTopologyFile, name)
		}

		row := make([]float64, 0, len(fields)-1)
		for _, f := range fields[1:] {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: malformed distance %q", ErrInvalidTopologyFile, f)
			}
			row = append(row, v)
		}
		if width < 0 {
			width = len(row)
		} else if width != len(row) {
			return nil, fmt.Errorf("%w: row for %q has %d columns, expected %d", ErrInvalidTopologyFile, name, len(row), width)
		}

		names[name] = len(rows)
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTopologyFile, err)
	}

	if len(rows) == 0 || width != len(rows) {
		return nil, ErrInvalidTopologyFile
	}

	n := len(rows)
	dist := mat.NewDense(n, n, nil)
	for i, row := range rows {
		for j, v := range row {
			dist.Set(i, j, v)
		}
	}

	return &Topology{names: names, dist: dist}, nil
}

// NumNodes returns the number of nodes in the topology.
func (t *Topology) NumNodes() int { return len(t.names) }

// Distance returns the distance between src and dst.
func (t *Topology) Distance(src, dst string) (float64, error) {
	i, ok := t.names[src]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrInvalidNode, src)
	}
	j, ok := t.names[dst]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrInvalidNode, dst)
	}
	return t.dist.At(i, j), nil
}

// Names returns every node name, in no particular order.
func (t *Topology) Names() []string {
	names := make([]string, 0, len(t.names))
	for name := range t.names {
		names = append(names, name)
	}
	return names
}

// Randomize replaces every off-diagonal distance with a value drawn from
// rng (uniform in [0,1)), leaving the diagonal untouched.
func (t *Topology) Randomize(rng *rand.Rand) {
	n := t.NumNodes()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j {
				t.dist.Set(i, j, rng.Float64())
			}
		}
	}
}

// String renders the topology in the same row-per-node format FromReader
// accepts.
func (t *Topology) String() string {
	names := make([]string, len(t.names))
	for name, idx := range t.names {
		names[idx] = name
	}

	var b strings.Builder
	n := t.NumNodes()
	for i := 0; i < n; i++ {
		b.WriteString(names[i])
		for j := 0; j < n; j++ {
			fmt.Fprintf(&b, " %v", t.dist.At(i, j))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
