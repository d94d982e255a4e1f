package entry

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// ParseSelector turns a forecast day/hour selector such as "1,2,3" or
// "[1,2,3]" into its offsets. An empty selector yields nil.
// Non-numeric pieces fail with a *strconv.NumError.
func ParseSelector(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	if s[0] == '[' {
		if len(s) < 2 {
			s = ""
		} else {
			s = s[1 : len(s)-1]
		}
	}

	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// selectorValue accepts a stored selector in either its string or list form.
func selectorValue(v any) ([]int, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		return ParseSelector(t)
	case []int:
		return t, nil
	}
	out, err := cast.ToIntSliceE(v)
	if err != nil {
		return nil, fmt.Errorf("selector %v: %w", v, err)
	}
	return out, nil
}
