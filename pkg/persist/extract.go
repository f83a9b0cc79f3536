package persist

import "github.com/tidwall/gjson"

// ExtractField pulls one field out of a JSON blob without a full
// struct unmarshal — used for the human-readable fuzz.log line built
// from observe_generated's resolved-argument JSON (spec §11). Nothing in
// the repository reads corpus *.json sidecars through it; `genfuzz
// replay` reads only the raw input bytes.
func ExtractField(jsonBlob, path string) (string, bool) {
	result := gjson.Get(jsonBlob, path)
	if !result.Exists() {
		return "", false
	}
	return result.String(), true
}

// ExtractFields pulls several fields at once, skipping any that are
// absent from the blob.
func ExtractFields(jsonBlob string, paths []string) map[string]string {
	out := make(map[string]string, len(paths))
	for _, p := range paths {
		if v, ok := ExtractField(jsonBlob, p); ok {
			out[p] = v
		}
	}
	return out
}
