package content

// Merge deep-merges patch into base and returns the result without mutating
// either input. Semantics, per key in patch:
//   - explicit null deletes the key (no-op if absent)
//   - object onto object recurses
//   - anything else replaces wholesale (scalars and arrays are atomic)
//
// Keys absent from patch are preserved. This backs both PATCH-style partial
// updates and restore-with-correction overlays.
func Merge(base, patch Document) Document {
	return Document(mergeMaps(base, patch))
}

func mergeMaps(base, patch map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(patch))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range patch {
		if v == nil {
			delete(merged, k)
			continue
		}
		patchMap, patchIsMap := v.(map[string]any)
		baseMap, baseIsMap := merged[k].(map[string]any)
		if patchIsMap && baseIsMap {
			merged[k] = mergeMaps(baseMap, patchMap)
			continue
		}
		merged[k] = v
	}
	return merged
}

// SectionMerge performs the section-level branch merge: the union of both
// documents' sections with source winning on id collisions, target section
// order preserved, and variables/metadata shallow-merged with source
// precedence. Flat documents degrade gracefully to empty sections plus
// merged variables/metadata.
func SectionMerge(target, source Document) Document {
	targetSections := target.SectionMap()
	sourceSections := source.SectionMap()

	merged := make([]any, 0, len(targetSections)+len(sourceSections))
	seen := make(map[string]bool, len(targetSections))

	for _, s := range target.Sections() {
		if override, ok := sourceSections[s.ID]; ok {
			merged = append(merged, override)
		} else {
			merged = append(merged, targetSections[s.ID])
		}
		seen[s.ID] = true
	}
	for _, s := range source.Sections() {
		if !seen[s.ID] {
			merged = append(merged, sourceSections[s.ID])
		}
	}

	return Document{
		"sections":  merged,
		"variables": shallowUnion(target.Variables(), source.Variables()),
		"metadata":  shallowUnion(target.Metadata(), source.Metadata()),
	}
}

func shallowUnion(base, overlay map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}
