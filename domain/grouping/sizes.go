package grouping

import (
	"sort"
	"strconv"
)

var letterSizes = map[string]int{
	"XS": 0, "S": 1, "M": 2, "L": 3, "XL": 4, "XXL": 5,
}

var uniqueSizes = map[string]struct{}{
	"U": {}, "ÚNICA": {}, "UNICA": {}, "TU": {},
}

// sizeSortKey orders sizes the way merchandisers read them: numeric sizes
// first, then the standard letter run XS..XXL, then one-size labels, then
// everything else alphabetically.
func sizeSortKey(size string) (tier int, num int, str string) {
	if n, err := strconv.Atoi(size); err == nil {
		return 0, n, ""
	}
	if idx, ok := letterSizes[size]; ok {
		return 1, idx, ""
	}
	if _, ok := uniqueSizes[size]; ok {
		return 2, 0, size
	}
	return 3, 0, size
}

// SortSizes orders size-dimension rows in place by merchandising size
// order. Keys are already normalized by GroupBy.
func SortSizes(results []GroupedResult) {
	sort.SliceStable(results, func(i, j int) bool {
		ti, ni, si := sizeSortKey(results[i].Key)
		tj, nj, sj := sizeSortKey(results[j].Key)
		if ti != tj {
			return ti < tj
		}
		if ni != nj {
			return ni < nj
		}
		return si < sj
	})
}
