package transport

import (
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// EncodeQuery converts query parameters to url.Values. Nil values (including
// nil pointers) are skipped. Every other value is stringified, so false and 0
// are sent. Slices are joined with ",", maps and structs are JSON encoded.
func EncodeQuery(params map[string]any) url.Values {
	values := make(url.Values, len(params))
	for key, v := range params {
		s, ok := stringify(v)
		if !ok {
			continue
		}
		values.Set(key, s)
	}
	return values
}

func stringify(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case bool:
		return strconv.FormatBool(x), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case time.Time:
		return x.Format(time.RFC3339Nano), true
	case time.Duration:
		return x.String(), true
	case fmt.Stringer:
		return x.String(), true
	case []byte:
		return string(x), true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return "", false
		}
		return stringify(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		parts := make([]string, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			s, _ := stringify(rv.Index(i).Interface())
			parts = append(parts, s)
		}
		return strings.Join(parts, ","), true
	case reflect.Map, reflect.Struct:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v), true
		}
		return string(data), true
	default:
		return fmt.Sprint(v), true
	}
}

// appendQuery returns endpoint with params added to its existing query.
func appendQuery(endpoint string, params map[string]any) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	if len(params) == 0 {
		return u.String(), nil
	}
	q := u.Query()
	for k, vs := range EncodeQuery(params) {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
