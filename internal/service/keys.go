package service

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/samber/lo"

	"metrics-query-service/internal/reshape"
)

// ErrUnsupportedKeyShape is returned when the keys argument is neither a
// flat key collection nor a primary→secondary mapping.
var ErrUnsupportedKeyShape = errors.New("unsupported key shape")

// normalizedKeys is the canonical two-level key representation: the
// primary keys, the deduplicated union of all secondary keys (nil for
// flat input), and the per-primary scoping the trim step enforces.
type normalizedKeys struct {
	primary   []string
	secondary []string
	allowed   *reshape.AllowedKeys
}

// normalizeKeys converts the caller's key argument into normalizedKeys.
// Accepted shapes: []string, []int64, map[string][]string and
// map[int64][]int64; anything else fails with ErrUnsupportedKeyShape.
func normalizeKeys(keys any) (normalizedKeys, error) {
	switch k := keys.(type) {
	case []string:
		return normalizedKeys{primary: k, allowed: reshape.FlatKeys(k)}, nil
	case []int64:
		primary := lo.Map(k, func(v int64, _ int) string { return strconv.FormatInt(v, 10) })
		return normalizedKeys{primary: primary, allowed: reshape.FlatKeys(primary)}, nil
	case map[string][]string:
		return normalizedKeys{
			primary:   lo.Keys(k),
			secondary: lo.Uniq(lo.Flatten(lo.Values(k))),
			allowed:   reshape.NestedKeys(k),
		}, nil
	case map[int64][]int64:
		nested := make(map[string][]string, len(k))
		for primary, secondary := range k {
			nested[strconv.FormatInt(primary, 10)] = lo.Map(secondary,
				func(v int64, _ int) string { return strconv.FormatInt(v, 10) })
		}
		return normalizeKeys(nested)
	default:
		return normalizedKeys{}, fmt.Errorf("%w: %T", ErrUnsupportedKeyShape, keys)
	}
}
