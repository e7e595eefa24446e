package recsort

import (
	"github.com/lanrat/recsort/record"
)

// buckets at or below this size are insertion sorted
const insertionThreshold = 32

// radixSort sorts data by key with a stable least-significant-byte radix
// sort. scratch must hold at least len(data) entries. Byte positions whose
// value is the same for every entry are skipped, which covers the prefix
// shared by every member of a bucket.
func radixSort(data, scratch []record.SortRecord) {
	n := len(data)
	if n <= insertionThreshold {
		insertionSort(data)
		return
	}
	scratch = scratch[:n]

	var counts [record.KeySize][256]int
	for i := range data {
		k := &data[i].Key
		for p := 0; p < record.KeySize; p++ {
			counts[p][k[p]]++
		}
	}

	src, dst := data, scratch
	for p := record.KeySize - 1; p >= 0; p-- {
		count := &counts[p]
		if count[data[0].Key[p]] == n {
			continue
		}
		offset := 0
		for b := range count {
			c := count[b]
			count[b] = offset
			offset += c
		}
		for i := range src {
			b := src[i].Key[p]
			dst[count[b]] = src[i]
			count[b]++
		}
		src, dst = dst, src
	}
	if &src[0] != &data[0] {
		copy(data, src)
	}
}

func insertionSort(data []record.SortRecord) {
	for i := 1; i < len(data); i++ {
		cur := data[i]
		j := i - 1
		for j >= 0 && record.Less(cur.Key, data[j].Key) {
			data[j+1] = data[j]
			j--
		}
		data[j+1] = cur
	}
}
