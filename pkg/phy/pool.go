package phy

import "fmt"

const SCIPeriod = 40

// ResourcePool is the static partition of the cell bandwidth into
// equally-sized sub-channels.
type ResourcePool struct {
	SubChannelSize  int
	SubChannelCount int
	SubChannelStart int
	SCIPeriod       int
}

var subChannels = map[int]struct{ size, count int }{
	6:   {6, 1},
	15:  {5, 3},
	25:  {5, 5},
	50:  {10, 5},
	75:  {15, 5},
	100: {20, 5},
}

// NewResourcePool derives the default resource pool for the cell.
func NewResourcePool(cell Cell) (ResourcePool, error) {
	sc, ok := subChannels[cell.PRB]
	if !ok {
		return ResourcePool{}, fmt.Errorf("%w: %d", ErrUnsupportedBandwidth, cell.PRB)
	}
	return ResourcePool{
		SubChannelSize:  sc.size,
		SubChannelCount: sc.count,
		SCIPeriod:       SCIPeriod,
	}, nil
}

func (p ResourcePool) String() string {
	return fmt.Sprintf("{SubChannelSize: %d, SubChannelCount: %d}", p.SubChannelSize, p.SubChannelCount)
}
