package utils

import (
	"encoding/json"
	"strings"
)

// Legacy proposal rows smuggle their location/timing metadata inside the
// content field behind an HTML-comment marker:
//
//	<content>\n\n<!-- METADATA:<json> -->
//
// New rows keep metadata in a structured column; these helpers exist as the
// compatibility shim for content that still carries (or must be rendered
// with) the marker.
const (
	metadataMarkerStart = "<!-- METADATA:"
	metadataMarkerEnd   = " -->"
	metadataSeparator   = "\n\n"
)

// EmbedMetadata appends the serialized metadata to the content behind the
// marker. Any marker already present is replaced, so re-saving is idempotent.
func EmbedMetadata(content string, meta json.RawMessage) string {
	plain := StripMetadata(content)
	if len(meta) == 0 {
		return plain
	}
	return plain + metadataSeparator + metadataMarkerStart + string(meta) + metadataMarkerEnd
}

// ExtractMetadata splits embedded metadata out of the content. When no valid
// marker is found the content is returned untouched.
func ExtractMetadata(content string) (string, json.RawMessage, bool) {
	idx := strings.LastIndex(content, metadataMarkerStart)
	if idx < 0 {
		return content, nil, false
	}

	tail := content[idx+len(metadataMarkerStart):]
	end := strings.LastIndex(tail, metadataMarkerEnd)
	if end < 0 {
		return content, nil, false
	}

	raw := tail[:end]
	if !json.Valid([]byte(raw)) {
		return content, nil, false
	}

	plain := strings.TrimSuffix(content[:idx], metadataSeparator)
	return plain, json.RawMessage(raw), true
}

// StripMetadata returns the display form of the content, marker removed.
func StripMetadata(content string) string {
	plain, _, _ := ExtractMetadata(content)
	return plain
}
