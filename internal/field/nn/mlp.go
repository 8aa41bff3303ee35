// Package nn provides the small feed-forward networks and embedding tables
// composing the radiance field: a reference float64 implementation built on
// gonum matrices, and fused float32 counterparts evaluating the same
// parameters.
package nn

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Activation selects the output nonlinearity of a network.
type Activation int

const (
	// ActivationNone leaves the final layer output linear.
	ActivationNone Activation = iota
	// ActivationSigmoid squashes the final layer output to (0,1).
	ActivationSigmoid
)

// Network evaluates a batch of feature vectors. Implementations panic on
// input width mismatches; shape errors are programming errors, not runtime
// conditions.
type Network interface {
	// Forward maps an N×InDim batch to an N×OutDim batch.
	Forward(x *mat.Dense) *mat.Dense
	InDim() int
	OutDim() int
}

// MLP is the reference fully-connected network: ReLU hidden layers and a
// configurable output activation, evaluated in float64 with gonum.
type MLP struct {
	inDim  int
	outDim int
	// weights[i] is outN×inN for layer i; biases[i] has length outN.
	weights []*mat.Dense
	biases  [][]float64
	outAct  Activation
}

// NewMLP builds an MLP with numLayers linear layers in total: numLayers-1
// hidden layers of width hiddenDim, then a projection to outDim. Weights
// are He-uniform initialized from rng.
func NewMLP(inDim, outDim, hiddenDim, numLayers int, outAct Activation, rng *rand.Rand) *MLP {
	if inDim <= 0 || outDim <= 0 || numLayers < 1 {
		panic(fmt.Sprintf("nn: invalid MLP dims (in=%d out=%d layers=%d)", inDim, outDim, numLayers))
	}
	if numLayers > 1 && hiddenDim <= 0 {
		panic(fmt.Sprintf("nn: invalid MLP hidden dim %d", hiddenDim))
	}

	m := &MLP{inDim: inDim, outDim: outDim, outAct: outAct}
	fanIn := inDim
	for l := 0; l < numLayers; l++ {
		fanOut := hiddenDim
		if l == numLayers-1 {
			fanOut = outDim
		}
		limit := math.Sqrt(6 / float64(fanIn))
		w := mat.NewDense(fanOut, fanIn, nil)
		for i := 0; i < fanOut; i++ {
			for j := 0; j < fanIn; j++ {
				w.Set(i, j, (rng.Float64()*2-1)*limit)
			}
		}
		m.weights = append(m.weights, w)
		m.biases = append(m.biases, make([]float64, fanOut))
		fanIn = fanOut
	}
	return m
}

// Forward evaluates the network on an N×InDim batch.
func (m *MLP) Forward(x *mat.Dense) *mat.Dense {
	n, d := x.Dims()
	if d != m.inDim {
		panic(fmt.Sprintf("nn: MLP input has %d columns, want %d", d, m.inDim))
	}
	h := x
	for l, w := range m.weights {
		rows, _ := w.Dims()
		next := mat.NewDense(n, rows, nil)
		next.Mul(h, w.T())
		last := l == len(m.weights)-1
		for i := 0; i < n; i++ {
			for j := 0; j < rows; j++ {
				v := next.At(i, j) + m.biases[l][j]
				switch {
				case !last:
					v = ReLU(v)
				case m.outAct == ActivationSigmoid:
					v = Sigmoid(v)
				}
				next.Set(i, j, v)
			}
		}
		h = next
	}
	return h
}

// InDim returns the expected number of input columns.
func (m *MLP) InDim() int { return m.inDim }

// OutDim returns the number of output columns.
func (m *MLP) OutDim() int { return m.outDim }

// OutputActivation returns the configured output nonlinearity.
func (m *MLP) OutputActivation() Activation { return m.outAct }

// Weights exposes the per-layer weight matrices (read-only).
func (m *MLP) Weights() []*mat.Dense { return m.weights }

// Biases exposes the per-layer bias vectors (read-only).
func (m *MLP) Biases() [][]float64 { return m.biases }

var _ Network = (*MLP)(nil)
