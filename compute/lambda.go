package compute

import "github.com/ccicconetti/serverlessedge/transport"

// Requirements is the (ops, memory) cost of admitting a request.
type Requirements struct {
	Ops    uint64
	Memory uint64
}

// RequirementsFunc computes a request's resource requirements given the
// processor it would run on.
type RequirementsFunc func(p *Processor, req *transport.LambdaRequest) Requirements

// OutputFunc produces a response's output for a request. The container
// builds the response eagerly at push time, not at completion, so this
// runs synchronously inside push.
type OutputFunc func(req *transport.LambdaRequest) []byte

// Lambda is a function descriptor: its name, its cost model, and how it
// produces output.
type Lambda struct {
	Name         string
	Requirements RequirementsFunc
	Output       OutputFunc
}

// ProportionalRequirements builds a requirements model where ops and
// memory scale linearly with the request's input size.
func ProportionalRequirements(opCoeff, opOffset, memCoeff, memOffset float64) RequirementsFunc {
	return func(_ *Processor, req *transport.LambdaRequest) Requirements {
		n := float64(len(req.Input))
		ops := opCoeff*n + opOffset
		mem := memCoeff*n + memOffset
		if ops < 0 {
			ops = 0
		}
		if mem < 0 {
			mem = 0
		}
		return Requirements{Ops: uint64(ops), Memory: uint64(mem)}
	}
}

// CopyInputOutput returns an OutputFunc that copies the request input
// byte-for-byte into the response output.
func CopyInputOutput() OutputFunc {
	return func(req *transport.LambdaRequest) []byte {
		out := make([]byte, len(req.Input))
		copy(out, req.Input)
		return out
	}
}

// FixedOutput returns an OutputFunc that always produces the same value.
func FixedOutput(value []byte) OutputFunc {
	return func(*transport.LambdaRequest) []byte {
		return value
	}
}
