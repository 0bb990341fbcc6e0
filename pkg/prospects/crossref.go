package prospects

import (
	"context"
)

// Result splits collected pks into those already stored as prospects and
// those that are new. Both lists keep the input order.
type Result struct {
	Existing []string `json:"existing"`
	New      []string `json:"new"`
}

// Total is the number of distinct pks considered
func (r Result) Total() int {
	return len(r.Existing) + len(r.New)
}

// Partition looks up pks and splits them into existing and new.
// Duplicate pks are considered once.
func Partition(ctx context.Context, lookup Lookup, pks []string) (Result, error) {
	unique := dedupe(pks)
	res := Result{Existing: []string{}, New: []string{}}
	if len(unique) == 0 {
		return res, nil
	}

	existing, err := lookup.ExistingPKs(ctx, unique)
	if err != nil {
		return Result{}, err
	}

	known := make(map[string]struct{}, len(existing))
	for _, pk := range existing {
		known[pk] = struct{}{}
	}

	for _, pk := range unique {
		if _, ok := known[pk]; ok {
			res.Existing = append(res.Existing, pk)
		} else {
			res.New = append(res.New, pk)
		}
	}
	return res, nil
}

func dedupe(pks []string) []string {
	seen := make(map[string]struct{}, len(pks))
	out := make([]string, 0, len(pks))
	for _, pk := range pks {
		if pk == "" {
			continue
		}
		if _, ok := seen[pk]; ok {
			continue
		}
		seen[pk] = struct{}{}
		out = append(out, pk)
	}
	return out
}
