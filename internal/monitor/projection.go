package monitor

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// configureProjector installs a per-channel projection basis: an m×n
// matrix that reduces an n-sample waveform to m coefficients. The wire
// form is a base64-encoded mat.Dense; here the matrix arrives already
// decoded, decoding being the HTTP layer's job.
func (e *engine) configureProjector(key ChannelKey, projectors *mat.Dense) {
	reply := make(chan struct{})
	e.requests <- request{
		kind:           reqConfigureProjector,
		key:            key,
		projectors:     projectors,
		configureReply: reply,
	}
	<-reply
}

// lastProjection returns the most recent projection coefficients computed
// for key, or nil if no projector is configured or no waveform has
// arrived on that channel yet.
func (e *engine) lastProjection(key ChannelKey) []float64 {
	reply := make(chan []float64, 1)
	e.requests <- request{kind: reqLastProjection, key: key, projectionReply: reply}
	return <-reply
}

// project reduces a waveform's analog probe 1 samples to coefficients
// using channel's configured basis, returning (nil, nil) if no basis is
// configured and an error if the sample count doesn't match the basis width.
func (e *engine) project(key ChannelKey, samples []int16) ([]float64, error) {
	p, ok := e.projectors[key]
	if !ok {
		return nil, nil
	}
	_, cols := p.Dims()
	if cols != len(samples) {
		return nil, fmt.Errorf("monitor: projector for %+v expects %d samples, got %d", key, cols, len(samples))
	}

	x := make([]float64, len(samples))
	for i, s := range samples {
		x[i] = float64(s)
	}
	vec := mat.NewVecDense(len(x), x)

	rows, _ := p.Dims()
	var y mat.VecDense
	y.MulVec(p, vec)

	out := make([]float64, rows)
	for i := range out {
		out[i] = y.AtVec(i)
	}
	return out, nil
}
