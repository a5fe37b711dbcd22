package guest

const (
	CabiRealloc = "cabi_realloc"
	CabiFree    = "cabi_free"
	MemoryName  = "memory"

	// Legacy names from pre-standardization component model toolchains
	legacyRealloc = "canonical_abi_realloc"
	legacyAlloc   = "allocate"
	simpleAlloc   = "alloc"
	legacyDealloc = "deallocate"
	simpleFree    = "free"
)

// reallocNames are tried in order; a match takes (ptr, old, align, new).
var reallocNames = []string{CabiRealloc, legacyRealloc}

// allocNames take (size) or (size, align).
var allocNames = []string{legacyAlloc, simpleAlloc}

// freeNames take (ptr), (ptr, size) or (ptr, size, align).
var freeNames = []string{CabiFree, legacyDealloc, simpleFree}
