package vm

// Byte costs charged to the allocation counter. They approximate the Go
// footprint of each payload; only their relative size matters to the GC
// trigger and to allocation profiles.
const (
	memValueSize      int64 = 24
	memStringHead     int64 = 16
	memListHead       int64 = 24
	memDefHead        int64 = 64
	memNativeHead     int64 = 32
	memFrozenCellHead int64 = 16
)

// CostString is the charge for a string of n bytes.
func CostString(n int) int64 {
	if n < 0 {
		return memStringHead
	}
	return memStringHead + int64(n)
}

// CostList is the charge for a list of n values.
func CostList(n int) int64 {
	if n < 0 {
		return memListHead
	}
	return memListHead + int64(n)*memValueSize
}

// CostDef is the charge for a user-defined function.
func CostDef() int64 {
	return memDefHead
}

// CostNative is the charge for a native function.
func CostNative() int64 {
	return memNativeHead
}
