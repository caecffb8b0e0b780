package config

import (
	"strings"
	"testing"

	"github.com/ccicconetti/serverlessedge/compute"
	"github.com/ccicconetti/serverlessedge/transport"
	"github.com/stretchr/testify/require"
)

const sampleDescriptor = `{
	"version": "1.0",
	"processors": [
		{"name": "cpu0", "type": "cpu", "speed": 1e9, "cores": 4, "memory": 1048576}
	],
	"lambdas": [
		{"name": "echo", "requirements": "proportional", "op-coeff": 1, "op-offset": 0, "mem-coeff": 1, "mem-offset": 0, "output-type": "copy-input"}
	],
	"containers": [
		{"name": "c0", "processor": "cpu0", "lambda": "echo", "num-workers": 2}
	]
}`

func noopCallback(uint64, *transport.LambdaResponse) {}

// GIVEN a well-formed computer descriptor
// WHEN decoded and applied
// THEN the computer ends up with the declared processor and container, and
// a matching task can be admitted.
func TestDecodeAndApplyComputerDescriptor(t *testing.T) {
	d, err := DecodeComputerDescriptor(strings.NewReader(sampleDescriptor))
	require.NoError(t, err)
	require.Len(t, d.Processors, 1)
	require.Len(t, d.Lambdas, 1)
	require.Len(t, d.Containers, 1)

	c := compute.NewComputer("computer1", noopCallback, nil)
	require.NoError(t, Apply(c, d))

	_, err = c.AddTask(&transport.LambdaRequest{Function: "echo", Input: []byte("hi")})
	require.NoError(t, err)
}

// GIVEN a descriptor with an unsupported version
// WHEN decoded
// THEN an error is returned.
func TestDecodeComputerDescriptorRejectsUnsupportedVersion(t *testing.T) {
	_, err := DecodeComputerDescriptor(strings.NewReader(`{"version": "2.0"}`))
	require.Error(t, err)
}

// GIVEN a container referencing a lambda not declared in the descriptor
// WHEN applied
// THEN an error is returned.
func TestApplyRejectsUnknownLambdaReference(t *testing.T) {
	d, err := DecodeComputerDescriptor(strings.NewReader(`{
		"version": "1.0",
		"processors": [{"name": "cpu0", "type": "cpu", "speed": 1, "cores": 1, "memory": 1}],
		"containers": [{"name": "c0", "processor": "cpu0", "lambda": "ghost", "num-workers": 1}]
	}`))
	require.NoError(t, err)

	c := compute.NewComputer("computer1", noopCallback, nil)
	require.Error(t, Apply(c, d))
}
