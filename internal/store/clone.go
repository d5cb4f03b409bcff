package store

import "reflect"

// clone returns a deep copy of rec. Slices, maps, pointers and interfaces
// reached through exported fields are duplicated. Structs with unexported
// state (time.Time, decimal.Decimal) are copied by value and treated as
// immutable.
func clone[T any](rec T) T {
	src := reflect.ValueOf(&rec).Elem()
	dst := reflect.New(src.Type()).Elem()
	deepCopy(dst, src)
	return dst.Interface().(T)
}

func deepCopy(dst, src reflect.Value) {
	switch src.Kind() {
	case reflect.Struct:
		dst.Set(src)
		t := src.Type()
		for i := 0; i < src.NumField(); i++ {
			if !t.Field(i).IsExported() {
				continue
			}
			deepCopy(dst.Field(i), src.Field(i))
		}
	case reflect.Slice:
		if src.IsNil() {
			dst.Set(reflect.Zero(src.Type()))
			return
		}
		out := reflect.MakeSlice(src.Type(), src.Len(), src.Len())
		for i := 0; i < src.Len(); i++ {
			deepCopy(out.Index(i), src.Index(i))
		}
		dst.Set(out)
	case reflect.Array:
		for i := 0; i < src.Len(); i++ {
			deepCopy(dst.Index(i), src.Index(i))
		}
	case reflect.Map:
		if src.IsNil() {
			dst.Set(reflect.Zero(src.Type()))
			return
		}
		out := reflect.MakeMapWithSize(src.Type(), src.Len())
		iter := src.MapRange()
		for iter.Next() {
			v := reflect.New(src.Type().Elem()).Elem()
			deepCopy(v, iter.Value())
			out.SetMapIndex(iter.Key(), v)
		}
		dst.Set(out)
	case reflect.Pointer:
		if src.IsNil() {
			dst.Set(reflect.Zero(src.Type()))
			return
		}
		out := reflect.New(src.Elem().Type())
		deepCopy(out.Elem(), src.Elem())
		dst.Set(out)
	case reflect.Interface:
		if src.IsNil() {
			dst.Set(reflect.Zero(src.Type()))
			return
		}
		elem := src.Elem()
		out := reflect.New(elem.Type()).Elem()
		deepCopy(out, elem)
		dst.Set(out)
	default:
		dst.Set(src)
	}
}
