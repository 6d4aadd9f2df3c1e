package coordinator

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/basekick-labs/linkview/internal/selection"
)

// Identifier is implemented by record-like payload items that carry an id.
type Identifier interface {
	RecordID() int
}

// Normalize turns a loosely typed selection payload into an ordered,
// deduplicated list of record ids. Anything that is not a sequence yields
// an empty list; entries that are not finite non-negative integers are
// dropped.
func Normalize(raw any) []int {
	ids, _, _ := normalize(raw)
	return ids
}

// normalize reports the number of dropped entries and whether the payload
// had a usable shape at all.
func normalize(raw any) (ids []int, dropped int, ok bool) {
	switch v := raw.(type) {
	case nil:
		return []int{}, 0, true
	case selection.IDSet:
		return v.IDs(), 0, true
	case []int:
		ids = make([]int, 0, len(v))
		seen := make(map[int]struct{}, len(v))
		for _, id := range v {
			if id < 0 {
				dropped++
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
		return ids, dropped, true
	case []any:
		return collect(len(v), func(i int) any { return v[i] })
	}

	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			// []byte is a string in disguise, not a list of ids.
			return []int{}, 0, false
		}
		return collect(rv.Len(), func(i int) any { return rv.Index(i).Interface() })
	}
	return []int{}, 0, false
}

func collect(n int, at func(i int) any) ([]int, int, bool) {
	ids := make([]int, 0, n)
	seen := make(map[int]struct{}, n)
	dropped := 0
	for i := 0; i < n; i++ {
		id, ok := itemID(at(i))
		if !ok {
			dropped++
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, dropped, true
}

// itemID accepts a bare id or an object carrying one under "id".
func itemID(v any) (int, bool) {
	switch x := v.(type) {
	case Identifier:
		return checkID(x.RecordID())
	case map[string]any:
		id, ok := x["id"]
		if !ok {
			return 0, false
		}
		return scalarID(id)
	case map[any]any:
		id, ok := x["id"]
		if !ok {
			return 0, false
		}
		return scalarID(id)
	}
	return scalarID(v)
}

func scalarID(v any) (int, bool) {
	switch x := v.(type) {
	case nil, bool:
		return 0, false
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return checkInt64(i)
		}
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		return floatID(f)
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return floatID(f)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return checkInt64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt32 {
			return 0, false
		}
		return int(u), true
	case reflect.Float32, reflect.Float64:
		return floatID(rv.Float())
	}
	return 0, false
}

func floatID(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < 0 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func checkInt64(i int64) (int, bool) {
	if i < 0 || i > math.MaxInt32 {
		return 0, false
	}
	return int(i), true
}

func checkID(id int) (int, bool) {
	if id < 0 {
		return 0, false
	}
	return id, true
}
