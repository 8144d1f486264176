package permissions

// FlagMap is the engine's primary output: a closed, fully-populated map from
// every operation of a resource's type to a boolean. Callers may rely on
// every key being present even when false.
type FlagMap map[Operation]bool

// NewFlagMap returns the default-deny map for a resource type.
func NewFlagMap(t ResourceType) FlagMap {
	flags := make(FlagMap, len(operationSets[t]))
	for _, op := range operationSets[t] {
		flags[op] = false
	}
	return flags
}

// allTrueFlagMap returns the admin-bypass map for a resource type.
func allTrueFlagMap(t ResourceType) FlagMap {
	flags := make(FlagMap, len(operationSets[t]))
	for _, op := range operationSets[t] {
		flags[op] = true
	}
	return flags
}

// Clone returns an independent copy of the flag map.
func (f FlagMap) Clone() FlagMap {
	out := make(FlagMap, len(f))
	for op, allowed := range f {
		out[op] = allowed
	}
	return out
}

// Can reports whether the operation is allowed.
func (f FlagMap) Can(op Operation) bool {
	return f[op]
}

// grant sets the listed operations true. Only operations already present in
// the map are touched so a level table can never widen the operation set.
func (f FlagMap) grant(ops ...Operation) {
	for _, op := range ops {
		if _, ok := f[op]; ok {
			f[op] = true
		}
	}
}

// deny sets the listed operations false.
func (f FlagMap) deny(ops ...Operation) {
	for _, op := range ops {
		if _, ok := f[op]; ok {
			f[op] = false
		}
	}
}

// denyAllExcept sets every operation false apart from the listed ones.
func (f FlagMap) denyAllExcept(keep ...Operation) {
	kept := make(map[Operation]struct{}, len(keep))
	for _, op := range keep {
		kept[op] = struct{}{}
	}
	for op := range f {
		if _, ok := kept[op]; !ok {
			f[op] = false
		}
	}
}

// Equal reports whether two flag maps carry identical decisions.
func (f FlagMap) Equal(other FlagMap) bool {
	if len(f) != len(other) {
		return false
	}
	for op, allowed := range f {
		if other[op] != allowed {
			return false
		}
	}
	return true
}
