package transport

import (
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"time"
)

// buildURL joins base and path and appends the query. Absolute http(s) paths
// are used as-is.
func buildURL(baseURL, path string, query map[string]any) (string, error) {
	target := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		if baseURL == "" {
			return "", fmt.Errorf("no API base URL configured")
		}
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		target = strings.TrimRight(baseURL, "/") + path
	}

	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("invalid request URL %q: %w", target, err)
	}

	values := u.Query()
	for key, raw := range query {
		if v, ok := queryValue(raw); ok {
			values.Set(key, v)
		}
	}
	u.RawQuery = values.Encode()
	return u.String(), nil
}

// queryValue renders one query parameter. Nil values, nil pointers and zero
// times are skipped so they never reach the server as "null".
func queryValue(raw any) (string, bool) {
	if raw == nil {
		return "", false
	}
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		if rv.IsNil() {
			return "", false
		}
	}
	if rv.Kind() == reflect.Pointer {
		raw = rv.Elem().Interface()
	}

	switch v := raw.(type) {
	case string:
		return v, true
	case time.Time:
		if v.IsZero() {
			return "", false
		}
		return v.UTC().Format(time.RFC3339), true
	case fmt.Stringer:
		return v.String(), true
	default:
		return fmt.Sprint(v), true
	}
}
