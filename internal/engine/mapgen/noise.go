package mapgen

import "math/rand"

// valueNoise bilinearly interpolates random lattice values in integer
// arithmetic. Floats are avoided so fused multiply-add on some architectures
// cannot change the output.
type valueNoise struct {
	cell    int
	cols    int
	lattice []int
}

func newValueNoise(rng *rand.Rand, width, height, cell int) *valueNoise {
	if cell < 1 {
		cell = 1
	}
	cols := width/cell + 2
	rows := height/cell + 2
	lattice := make([]int, cols*rows)
	for i := range lattice {
		lattice[i] = rng.Intn(256)
	}
	return &valueNoise{cell: cell, cols: cols, lattice: lattice}
}

// at returns a value in [0, 256)
func (n *valueNoise) at(x, y int) int {
	s := n.cell
	gx, gy := x/s, y/s
	fx, fy := x%s, y%s

	a := n.lattice[gy*n.cols+gx]
	b := n.lattice[gy*n.cols+gx+1]
	c := n.lattice[(gy+1)*n.cols+gx]
	d := n.lattice[(gy+1)*n.cols+gx+1]

	top := a*(s-fx) + b*fx
	bottom := c*(s-fx) + d*fx
	return (top*(s-fy) + bottom*fy) / (s * s)
}

// fractalNoise blends a coarse and a fine octave 2:1
type fractalNoise struct {
	coarse *valueNoise
	fine   *valueNoise
}

func newFractalNoise(rng *rand.Rand, width, height, cell int) *fractalNoise {
	return &fractalNoise{
		coarse: newValueNoise(rng, width, height, cell),
		fine:   newValueNoise(rng, width, height, cell/2),
	}
}

func (f *fractalNoise) at(x, y int) int {
	return (2*f.coarse.at(x, y) + f.fine.at(x, y)) / 3
}
