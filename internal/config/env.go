package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
)

// lookupFunc matches os.LookupEnv
type lookupFunc func(key string) (string, bool)

// applyEnv overrides every field carrying an `env` tag whose variable is set.
// Nested structs are walked; the yaml path of a bad field is named in errors.
func applyEnv(v reflect.Value, path string, lookup lookupFunc) error {
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field, meta := v.Field(i), t.Field(i)
		name := yamlName(meta)
		if path != "" {
			name = path + "." + name
		}

		if field.Kind() == reflect.Struct {
			if err := applyEnv(field, name, lookup); err != nil {
				return err
			}
			continue
		}

		key := meta.Tag.Get("env")
		if key == "" {
			continue
		}
		raw, ok := lookup(key)
		if !ok {
			continue
		}
		if err := setFromString(field, raw); err != nil {
			return fmt.Errorf("%s (from %s): %w", name, key, err)
		}
	}
	return nil
}

func yamlName(f reflect.StructField) string {
	if tag, _, _ := strings.Cut(f.Tag.Get("yaml"), ","); tag != "" {
		return tag
	}
	return strings.ToLower(f.Name)
}

// setFromString parses raw into the kinds the Config struct uses. Durations
// stay strings and are checked by validateConfig.
func setFromString(field reflect.Value, raw string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Int, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer %q", raw)
		}
		field.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("invalid boolean %q", raw)
		}
		field.SetBool(b)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported list type %s", field.Type())
		}
		// comma separated, blanks dropped
		var items []string
		for _, item := range strings.Split(raw, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		field.Set(reflect.ValueOf(items))
	default:
		return fmt.Errorf("unsupported field type %s", field.Kind())
	}
	return nil
}

// loadFromEnv overrides configuration with environment variables
func loadFromEnv(config *Config) error {
	return applyEnv(reflect.ValueOf(config), "", os.LookupEnv)
}
