// Package model provides the reference local model: a dense tanh mixing
// layer over a fixed hidden width, trained with momentum SGD against a
// local shift target and the network aggregate. It is deliberately small;
// the serving and training surfaces only depend on its interfaces.
package model

import (
	"context"
	"math"
	"math/rand"
	"sync"

	"miner-node/logging"
)

// Dense is a width x width tanh projection with bias. It backs both the
// peer serving surface (Forward/Backward) and the training loop
// (NextBatch/Step/LossAt). Peer gradients accumulate between steps and are
// applied with the next optimizer step.
type Dense struct {
	mu       sync.RWMutex
	width    int
	lr       float64
	momentum float64

	w  []float64 // width x width, row-major
	b  []float64
	vw []float64
	vb []float64

	gw []float64 // accumulated peer gradients
	gb []float64

	rng *rand.Rand
}

func New(width int, lr, momentum float64, seed int64) *Dense {
	d := &Dense{
		width:    width,
		lr:       lr,
		momentum: momentum,
		w:        make([]float64, width*width),
		b:        make([]float64, width),
		vw:       make([]float64, width*width),
		vb:       make([]float64, width),
		gw:       make([]float64, width*width),
		gb:       make([]float64, width),
		rng:      rand.New(rand.NewSource(seed)),
	}

	scale := 1.0 / math.Sqrt(float64(width))
	for i := range d.w {
		d.w[i] = (d.rng.Float64()*2 - 1) * scale
	}

	logging.Info("Model initialized", logging.Training,
		"width", width, "lr", lr, "momentum", momentum)
	return d
}

func (d *Dense) Width() int { return d.width }

// embed folds an arbitrary-length input into a width-sized vector.
func (d *Dense) embed(inputs []float64) []float64 {
	e := make([]float64, d.width)
	for k, v := range inputs {
		e[k%d.width] += v
	}
	return e
}

// forward computes tanh(W*e + b). Callers hold the lock.
func (d *Dense) forward(e []float64) []float64 {
	h := make([]float64, d.width)
	for j := 0; j < d.width; j++ {
		sum := d.b[j]
		row := d.w[j*d.width:]
		for k := 0; k < d.width; k++ {
			sum += row[k] * e[k]
		}
		h[j] = math.Tanh(sum)
	}
	return h
}

// Forward serves a peer's query: the hidden representation of its inputs.
func (d *Dense) Forward(ctx context.Context, inputs []float64) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.forward(d.embed(inputs)), nil
}

// Backward folds a peer's gradient into the accumulation buffers. The
// buffers apply with the next training step.
func (d *Dense) Backward(ctx context.Context, inputs, grads []float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	e := d.embed(inputs)
	h := d.forward(e)
	limit := d.width
	if len(grads) < limit {
		limit = len(grads)
	}
	for j := 0; j < limit; j++ {
		delta := grads[j] * (1 - h[j]*h[j])
		d.gb[j] += delta
		row := d.gw[j*d.width:]
		for k := 0; k < d.width; k++ {
			row[k] += delta * e[k]
		}
	}
	return nil
}

// NextBatch draws the next synthetic training inputs.
func (d *Dense) NextBatch() []float64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]float64, d.width)
	for i := range out {
		out[i] = d.rng.Float64() - 0.5
	}
	return out
}

// losses evaluates the local shift-prediction loss and the distillation
// loss against an aggregate. Callers hold the lock.
func (d *Dense) losses(e, h, aggregate []float64) (local, dist float64) {
	for j := 0; j < d.width; j++ {
		target := e[(j+1)%d.width]
		ld := h[j] - target
		local += ld * ld

		var a float64
		if j < len(aggregate) {
			a = aggregate[j]
		}
		dd := h[j] - a
		dist += dd * dd
	}
	local /= float64(d.width)
	dist /= float64(d.width)
	return local, dist
}

// Step applies one momentum SGD step on the combined local and
// distillation loss, consuming any accumulated peer gradients, and returns
// the local target loss.
func (d *Dense) Step(ctx context.Context, inputs, aggregate []float64) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	e := d.embed(inputs)
	h := d.forward(e)
	local, _ := d.losses(e, h, aggregate)

	norm := 2.0 / float64(d.width)
	for j := 0; j < d.width; j++ {
		target := e[(j+1)%d.width]
		var a float64
		if j < len(aggregate) {
			a = aggregate[j]
		}
		delta := norm * ((h[j] - target) + (h[j] - a)) * (1 - h[j]*h[j])

		gb := d.gb[j] + delta
		d.vb[j] = d.momentum*d.vb[j] - d.lr*gb
		d.b[j] += d.vb[j]
		d.gb[j] = 0

		wrow := d.w[j*d.width:]
		vrow := d.vw[j*d.width:]
		grow := d.gw[j*d.width:]
		for k := 0; k < d.width; k++ {
			g := grow[k] + delta*e[k]
			vrow[k] = d.momentum*vrow[k] - d.lr*g
			wrow[k] += vrow[k]
			grow[k] = 0
		}
	}

	return local, nil
}

// LossAt evaluates the combined loss at a hypothetical aggregate without
// touching parameters or accumulation buffers.
func (d *Dense) LossAt(inputs, aggregate []float64) (float64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	e := d.embed(inputs)
	h := d.forward(e)
	local, dist := d.losses(e, h, aggregate)
	return local + dist, nil
}
