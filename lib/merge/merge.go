// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package merge implements the deep-merge rules for bundle
// composition: recursive map merge with overlay-wins semantics, plus
// the identity-keyed merge for module lists (sequences of module
// configuration entries).
//
// Merging is permissive, never strict-schema: when base and overlay
// disagree on a value's shape, the overlay value replaces the base
// value rather than erroring. Inputs are never mutated; results are
// freshly allocated with deep copies of both sides' subtrees, so
// later mutation of an input cannot alias into a merged result.
package merge

// moduleKey is the identity field of a module list entry.
const moduleKey = "module"

// Maps deep-merges overlay into base and returns the result. For each
// overlay key: absent in base → copied; both values maps → merged
// recursively; both values module-list-shaped sequences → merged with
// ModuleLists; anything else → overlay replaces base.
func Maps(base, overlay map[string]any) map[string]any {
	result := make(map[string]any, len(base)+len(overlay))
	for key, value := range base {
		result[key] = deepCopy(value)
	}

	for key, overlayValue := range overlay {
		baseValue, exists := result[key]
		if !exists {
			result[key] = deepCopy(overlayValue)
			continue
		}

		if baseMap, ok := baseValue.(map[string]any); ok {
			if overlayMap, ok := overlayValue.(map[string]any); ok {
				result[key] = Maps(baseMap, overlayMap)
				continue
			}
		}

		if baseList, ok := AsModuleList(baseValue); ok {
			if overlayList, ok := AsModuleList(overlayValue); ok {
				result[key] = ModuleLists(baseList, overlayList)
				continue
			}
		}

		result[key] = deepCopy(overlayValue)
	}
	return result
}

// ModuleLists merges two module lists by identity. Each entry's
// "module" field is its identity: an overlay entry whose identity
// already exists in the result deep-merges into the existing entry in
// place (keeping the base list's position); a new identity appends at
// the end in overlay order. This is what lets an overlay bundle tweak
// one tool's config without restating the whole tool list.
//
// Entries without a string "module" field have no identity and are
// always appended.
func ModuleLists(base, overlay []any) []any {
	result := make([]any, 0, len(base)+len(overlay))
	indexByID := make(map[string]int, len(base))

	for _, entry := range base {
		result = append(result, deepCopy(entry))
		if id, ok := moduleID(entry); ok {
			indexByID[id] = len(result) - 1
		}
	}

	for _, entry := range overlay {
		id, ok := moduleID(entry)
		if !ok {
			result = append(result, deepCopy(entry))
			continue
		}
		if existing, seen := indexByID[id]; seen {
			// Both sides are maps by construction (moduleID only
			// succeeds on maps).
			result[existing] = Maps(result[existing].(map[string]any), entry.(map[string]any))
			continue
		}
		result = append(result, deepCopy(entry))
		indexByID[id] = len(result) - 1
	}
	return result
}

// AsModuleList reports whether value is a module-list-shaped
// sequence: a non-empty []any whose every element is a map carrying a
// string "module" field. Plain sequences (scalars, maps without the
// identity field) are not module lists and merge by replacement.
func AsModuleList(value any) ([]any, bool) {
	list, ok := value.([]any)
	if !ok || len(list) == 0 {
		return nil, false
	}
	for _, entry := range list {
		if _, ok := moduleID(entry); !ok {
			return nil, false
		}
	}
	return list, true
}

// moduleID extracts the identity of a module list entry.
func moduleID(entry any) (string, bool) {
	entryMap, ok := entry.(map[string]any)
	if !ok {
		return "", false
	}
	id, ok := entryMap[moduleKey].(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// CopyMap returns a deep copy of a mapping, nil for an empty input.
func CopyMap(value map[string]any) map[string]any {
	if len(value) == 0 {
		return nil
	}
	return deepCopy(value).(map[string]any)
}

// CopyList returns a deep copy of a sequence, nil for an empty input.
func CopyList(value []any) []any {
	if len(value) == 0 {
		return nil
	}
	return deepCopy(value).([]any)
}

// deepCopy copies maps and sequences recursively. Scalars (and any
// other value type) are returned as-is.
func deepCopy(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		copied := make(map[string]any, len(typed))
		for key, element := range typed {
			copied[key] = deepCopy(element)
		}
		return copied
	case []any:
		copied := make([]any, len(typed))
		for index, element := range typed {
			copied[index] = deepCopy(element)
		}
		return copied
	default:
		return value
	}
}
