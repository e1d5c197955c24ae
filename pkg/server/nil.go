package server

import "reflect"

// isNilPointer catches typed nil pointers hidden inside a Component interface.
func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
