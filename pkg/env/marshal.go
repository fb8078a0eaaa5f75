package env

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

const masked = "********"

var durationType = reflect.TypeOf(time.Duration(0))

// MarshalEnv renders the env-tagged fields of the struct pointers in cs as
// KEY=value lines. Zero values are skipped. Fields tagged secret:"true" are
// masked unless reveal is set.
func MarshalEnv(reveal bool, cs ...any) (string, error) {
	var lines []string
	for _, c := range cs {
		v := reflect.ValueOf(c)
		if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
			return "", fmt.Errorf("marshal env: expected pointer to struct, got %T", c)
		}
		v = v.Elem()
		t := v.Type()

		for i := 0; i < v.NumField(); i++ {
			field := t.Field(i)
			tag := field.Tag.Get("env")
			if tag == "" || !field.IsExported() {
				continue
			}

			// "KEY,required,notEmpty"
			key := strings.Split(tag, ",")[0]
			if key == "" {
				continue
			}

			val := v.Field(i)
			if isZeroValue(val) {
				continue
			}

			strVal := formatValue(val)
			if field.Tag.Get("secret") == "true" && !reveal {
				strVal = masked
			}
			lines = append(lines, fmt.Sprintf("%s=%s", key, strVal))
		}
	}

	result := strings.Join(lines, "\n")
	if result != "" {
		result += "\n"
	}
	return result, nil
}

func isZeroValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Chan, reflect.Func:
		return v.IsNil()
	case reflect.Slice:
		return v.Len() == 0
	default:
		return v.IsZero()
	}
}

func formatValue(v reflect.Value) string {
	if v.Type() == durationType {
		return time.Duration(v.Int()).String()
	}
	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10)
	case reflect.Float32:
		return strconv.FormatFloat(v.Float(), 'f', -1, 32)
	case reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64)
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	case reflect.Slice:
		parts := make([]string, v.Len())
		for i := range parts {
			parts[i] = formatValue(v.Index(i))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprintf("%v", v.Interface())
	}
}
