package keytable

import "unsafe"

func uintptr_of_impl(e *entry) uintptr {
	return uintptr(unsafe.Pointer(e))
}
