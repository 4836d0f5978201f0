package utils

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// PartitionMap splits the index range [0, MaxIndex) into ParallelDegree
// contiguous buckets
type PartitionMap struct {
	MaxIndex       int // MaxIndex is partitioned into ParallelDegree partitions
	ParallelDegree int
	Partitions     [][2]int // Beginning and end index of partitions
}

// NewPartitionMap builds the buckets. A ParallelDegree of zero uses one
// bucket per CPU, never more buckets than items.
func NewPartitionMap(ParallelDegree, maxIndex int) (pm *PartitionMap) {
	if ParallelDegree <= 0 {
		ParallelDegree = runtime.NumCPU()
	}
	if ParallelDegree > maxIndex {
		ParallelDegree = maxIndex
	}
	if ParallelDegree < 1 {
		ParallelDegree = 1
	}
	pm = &PartitionMap{
		MaxIndex:       maxIndex,
		ParallelDegree: ParallelDegree,
		Partitions:     make([][2]int, ParallelDegree),
	}
	for n := 0; n < ParallelDegree; n++ {
		pm.Partitions[n] = pm.Split1D(n)
	}
	return
}

func (pm *PartitionMap) GetBucketRange(bucketNum int) (kMin, kMax int) {
	kMin, kMax = pm.Partitions[bucketNum][0], pm.Partitions[bucketNum][1]
	return
}

func (pm *PartitionMap) Split1D(threadNum int) (bucket [2]int) {
	// This routine splits one dimension into ParallelDegree pieces, with a maximum imbalance of one item
	var (
		Npart            = pm.MaxIndex / (pm.ParallelDegree)
		startAdd, endAdd int
		remainder        int
	)
	remainder = pm.MaxIndex % pm.ParallelDegree
	if remainder != 0 { // spread the remainder over the first chunks evenly
		if threadNum+1 > remainder {
			startAdd = remainder
			endAdd = 0
		} else {
			startAdd = threadNum
			endAdd = 1
		}
	}
	bucket[0] = threadNum*Npart + startAdd
	bucket[1] = bucket[0] + Npart + endAdd
	return
}

// ForEachBucket runs fn once per bucket, each in its own goroutine, and
// returns the first error. Buckets must not write to shared state outside
// their own index range.
func (pm *PartitionMap) ForEachBucket(fn func(bn, kMin, kMax int) error) error {
	var eg errgroup.Group
	for np := 0; np < pm.ParallelDegree; np++ {
		np := np
		kMin, kMax := pm.GetBucketRange(np)
		eg.Go(func() error {
			return fn(np, kMin, kMax)
		})
	}
	return eg.Wait()
}
