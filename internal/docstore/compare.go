package docstore

import (
	"cmp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// normalize folds the value kinds that come out of bson.M (and the ones
// callers pass as filter values) onto string, bool and float64.
func normalize(v any) any {
	switch x := v.(type) {
	case time.Time:
		return float64(x.UnixMilli())
	case primitive.DateTime:
		return float64(x)
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case float32:
		return float64(x)
	default:
		return v
	}
}

// compareValues orders a and b. ok is false when the values are not
// comparable with each other. Missing values sort first.
func compareValues(a, b any) (result int, ok bool) {
	a, b = normalize(a), normalize(b)
	switch {
	case a == nil && b == nil:
		return 0, true
	case a == nil:
		return -1, true
	case b == nil:
		return 1, true
	}
	switch x := a.(type) {
	case string:
		if y, isStr := b.(string); isStr {
			return strings.Compare(x, y), true
		}
	case float64:
		if y, isNum := b.(float64); isNum {
			return cmp.Compare(x, y), true
		}
	case bool:
		if y, isBool := b.(bool); isBool {
			switch {
			case x == y:
				return 0, true
			case !x:
				return -1, true
			default:
				return 1, true
			}
		}
	}
	return 0, false
}

func (f Filter) matches(doc map[string]any) bool {
	got := doc[f.Field]
	c, ok := compareValues(got, f.Value)
	if !ok {
		return false
	}
	switch f.Op {
	case Eq:
		return c == 0
	case Lt:
		return got != nil && c < 0
	case Lte:
		return got != nil && c <= 0
	case Gt:
		return got != nil && c > 0
	case Gte:
		return got != nil && c >= 0
	default:
		return false
	}
}
