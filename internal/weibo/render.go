package weibo

import (
	"encoding/json"
	"regexp"

	"github.com/dop251/goja"
)

// Single-page-app variants of the mobile site inline their payload as
// `var $render_data = [{...}][0] || {};` inside a script tag.
var reRenderData = regexp.MustCompile(`(?s)var\s+\$render_data\s*=\s*(\[.*?\])\s*\[0\]`)

// HasRenderData reports whether a body carries the embedded-payload marker.
func HasRenderData(body string) bool {
	return reRenderData.MatchString(body)
}

// ExtractRenderData returns the first element of the $render_data array as
// JSON, or nil when the marker is absent or the script is unreadable. The
// captured literal is usually strict JSON; when it is JavaScript (trailing
// commas, single quotes) it is evaluated instead.
func ExtractRenderData(body string) []byte {
	m := reRenderData.FindStringSubmatch(body)
	if m == nil {
		return nil
	}
	raw := m[1]

	if json.Valid([]byte(raw)) {
		var arr []json.RawMessage
		if err := json.Unmarshal([]byte(raw), &arr); err == nil && len(arr) > 0 {
			return arr[0]
		}
	}

	vm := goja.New()
	v, err := vm.RunString("JSON.stringify((" + raw + ")[0])")
	if err != nil {
		return nil
	}
	s, ok := v.Export().(string)
	if !ok || s == "" || s == "undefined" {
		return nil
	}
	return []byte(s)
}
