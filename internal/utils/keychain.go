package utils

import (
	"reflect"
	"strings"
)

// GetKeychainFields returns the JSON names of struct fields tagged with
// keychain:"true". Embedded structs are walked recursively so shared config
// bases contribute their fields too.
func GetKeychainFields[T any](t T) []string {
	fields := make([]string, 0)
	collectKeychainFields(reflect.TypeOf(t), &fields)

	return fields
}

func collectKeychainFields(t reflect.Type, fields *[]string) {
	if t == nil || t.Kind() != reflect.Struct {
		return
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Anonymous {
			collectKeychainFields(field.Type, fields)

			continue
		}

		if field.Tag.Get("keychain") != "true" {
			continue
		}

		name := field.Name
		if jsonTag := field.Tag.Get("json"); jsonTag != "" {
			name = strings.Split(jsonTag, ",")[0]
		}

		*fields = append(*fields, name)
	}
}
