package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ccicconetti/serverlessedge/compute"
)

// SupportedComputerConfigVersion is the only "version" value a computer
// descriptor file may declare.
const SupportedComputerConfigVersion = "1.0"

// ProcessorSpec describes one entry of a computer descriptor's
// "processors" array.
type ProcessorSpec struct {
	Name   string  `json:"name"`
	Type   string  `json:"type"` // "cpu" or "gpu"
	Speed  float64 `json:"speed"`
	Cores  uint64  `json:"cores"`
	Memory uint64  `json:"memory"`
}

// LambdaSpec describes one entry of a computer descriptor's "lambdas"
// array: a function's cost model and output behavior, referenced by name
// from a ContainerSpec.
type LambdaSpec struct {
	Name         string  `json:"name"`
	Requirements string  `json:"requirements"` // "proportional" only
	OpCoeff      float64 `json:"op-coeff"`
	OpOffset     float64 `json:"op-offset"`
	MemCoeff     float64 `json:"mem-coeff"`
	MemOffset    float64 `json:"mem-offset"`
	OutputType   string  `json:"output-type"` // "copy-input" or "fixed"
	OutputValue  []byte  `json:"output-value,omitempty"`
}

// ContainerSpec describes one entry of a computer descriptor's
// "containers" array.
type ContainerSpec struct {
	Name       string `json:"name"`
	Processor  string `json:"processor"`
	Lambda     string `json:"lambda"`
	NumWorkers uint64 `json:"num-workers"`
}

// ComputerDescriptor is the JSON computer configuration file.
type ComputerDescriptor struct {
	Version    string          `json:"version"`
	Processors []ProcessorSpec `json:"processors"`
	Lambdas    []LambdaSpec    `json:"lambdas"`
	Containers []ContainerSpec `json:"containers"`
}

// LoadComputerDescriptor reads and decodes a computer descriptor file.
func LoadComputerDescriptor(path string) (*ComputerDescriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: opening computer descriptor: %w", err)
	}
	defer f.Close()
	return DecodeComputerDescriptor(f)
}

// DecodeComputerDescriptor decodes a computer descriptor from r, rejecting
// any unrecognized version.
func DecodeComputerDescriptor(r io.Reader) (*ComputerDescriptor, error) {
	var d ComputerDescriptor
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("config: decoding computer descriptor: %w", err)
	}
	if d.Version != SupportedComputerConfigVersion {
		return nil, fmt.Errorf("config: unsupported computer descriptor version %q", d.Version)
	}
	return &d, nil
}

// processorType maps a descriptor's "type" string to compute.ProcessorType.
// Any value other than "gpu" is treated as "cpu", matching
// compute.ProcessorType's own default-to-CPU String() behavior.
func processorType(s string) compute.ProcessorType {
	if s == "gpu" {
		return compute.ProcessorGPU
	}
	return compute.ProcessorCPU
}

// buildLambda turns a LambdaSpec into a compute.Lambda, wiring its
// requirements and output functions.
func buildLambda(spec LambdaSpec) (compute.Lambda, error) {
	if spec.Requirements != "proportional" {
		return compute.Lambda{}, fmt.Errorf("config: unsupported lambda requirements %q", spec.Requirements)
	}
	requirements := compute.ProportionalRequirements(spec.OpCoeff, spec.OpOffset, spec.MemCoeff, spec.MemOffset)

	var output compute.OutputFunc
	switch spec.OutputType {
	case "copy-input":
		output = compute.CopyInputOutput()
	case "fixed":
		output = compute.FixedOutput(spec.OutputValue)
	default:
		return compute.Lambda{}, fmt.Errorf("config: unsupported lambda output type %q", spec.OutputType)
	}

	return compute.Lambda{Name: spec.Name, Requirements: requirements, Output: output}, nil
}

// Apply configures computer with every processor, lambda and container
// named in d, in declaration order. It is meant to run once, immediately
// after compute.NewComputer, before the computer accepts any task —
// compute.Computer itself enforces this by rejecting configuration calls
// once a task has started the dispatcher.
func Apply(computer *compute.Computer, d *ComputerDescriptor) error {
	for _, p := range d.Processors {
		if err := computer.AddProcessor(p.Name, processorType(p.Type), p.Speed, p.Cores, p.Memory); err != nil {
			return fmt.Errorf("config: adding processor %q: %w", p.Name, err)
		}
	}

	lambdas := make(map[string]compute.Lambda, len(d.Lambdas))
	for _, l := range d.Lambdas {
		lambda, err := buildLambda(l)
		if err != nil {
			return fmt.Errorf("config: building lambda %q: %w", l.Name, err)
		}
		lambdas[l.Name] = lambda
	}

	for _, c := range d.Containers {
		lambda, ok := lambdas[c.Lambda]
		if !ok {
			return fmt.Errorf("config: container %q references unknown lambda %q", c.Name, c.Lambda)
		}
		if err := computer.AddContainer(c.Name, c.Processor, lambda, c.NumWorkers); err != nil {
			return fmt.Errorf("config: adding container %q: %w", c.Name, err)
		}
	}
	return nil
}
