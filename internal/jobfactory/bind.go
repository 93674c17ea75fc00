package jobfactory

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/jholhewres/goquartz/internal/trigger"
)

// bindProperties writes data onto instance's settable fields, matched by
// their `job` tag or, when untagged, by Go field name, coercing string values to the field's primitive type per the
// rules: canonical decimal parse for numerics, case-insensitive
// true/false for booleans, single-character strings for runes. Setting a
// nil value onto a primitive field is an error.
func bindProperties(instance any, data trigger.JobDataMap, behavior UnknownPropertyBehavior, warnFn func(string)) error {
	v := reflect.ValueOf(instance)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("jobfactory: property binding requires a pointer to struct, got %T", instance)
	}
	elem := v.Elem()
	t := elem.Type()

	fieldByTag := make(map[string]reflect.Value, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		name := sf.Tag.Get("job")
		if name == "" {
			name = sf.Name
		}
		if !elem.Field(i).CanSet() {
			continue
		}
		fieldByTag[name] = elem.Field(i)
	}

	for key, value := range data {
		field, ok := fieldByTag[key]
		if !ok {
			switch behavior {
			case Throw:
				return fmt.Errorf("jobfactory: no writable field bound to job data key %q", key)
			case Warn:
				if warnFn != nil {
					warnFn(key)
				}
			}
			continue
		}
		if err := setCoerced(field, value); err != nil {
			return fmt.Errorf("jobfactory: field %q: %w", key, err)
		}
	}
	return nil
}

func setCoerced(field reflect.Value, value any) error {
	if value == nil {
		if field.Kind() != reflect.Ptr && field.Kind() != reflect.Interface && field.Kind() != reflect.Slice && field.Kind() != reflect.Map {
			return fmt.Errorf("cannot set nil onto primitive field of kind %s", field.Kind())
		}
		field.Set(reflect.Zero(field.Type()))
		return nil
	}

	rv := reflect.ValueOf(value)
	if rv.Type().AssignableTo(field.Type()) {
		field.Set(rv)
		return nil
	}

	s, isString := value.(string)
	if !isString {
		if rv.Type().ConvertibleTo(field.Type()) {
			field.Set(rv.Convert(field.Type()))
			return nil
		}
		return fmt.Errorf("value of type %T not assignable to field of type %s", value, field.Type())
	}

	// rune is an alias for int32, so a single-character string targeting an
	// int32 field is treated as a rune literal rather than a decimal parse.
	if field.Kind() == reflect.Int32 && len(s) == 1 {
		field.SetInt(int64(s[0]))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(s)
	case reflect.Bool:
		b, err := strconv.ParseBool(strings.ToLower(s))
		if err != nil {
			return fmt.Errorf("invalid bool %q", s)
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer %q", s)
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid unsigned integer %q", s)
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid float %q", s)
		}
		field.SetFloat(n)
	default:
		return fmt.Errorf("unsupported field kind %s for string coercion", field.Kind())
	}
	return nil
}
