package pool

import "sync"

// HashChain is the index of an LZ-style match finder: Head maps a hash to
// the latest position with that hash and Prev links each position to the
// previous one in its chain.
type HashChain struct {
	Head []int32
	Prev []int32
}

var hashChainPool sync.Pool

// GetHashChain returns a HashChain with headSize heads all set to -1 and a
// chainSize ring whose contents are unspecified. Callers only follow Prev
// links written since Get.
func GetHashChain(headSize, chainSize int) *HashChain {
	hc, _ := hashChainPool.Get().(*HashChain)
	if hc == nil || cap(hc.Head) < headSize || cap(hc.Prev) < chainSize {
		hc = &HashChain{
			Head: make([]int32, headSize),
			Prev: make([]int32, chainSize),
		}
	}
	hc.Head = hc.Head[:headSize]
	hc.Prev = hc.Prev[:chainSize]

	for i := range hc.Head {
		hc.Head[i] = -1
	}

	return hc
}

// PutHashChain returns hc to the pool.
func PutHashChain(hc *HashChain) {
	if hc == nil {
		return
	}
	hashChainPool.Put(hc)
}
