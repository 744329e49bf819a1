package gojahost

import (
	"encoding/json"

	"github.com/tidwall/gjson"

	"github.com/nogcio/wrkr/infrastructure/wrkrerr"
)

// installJSONModule installs the `json` built-in (§6): parse/stringify over
// the script's native values, distinct from goja's own global `JSON` object
// so scripts have an explicit, documented module to import-by-convention.
func (h *Host) installJSONModule() {
	module := map[string]interface{}{
		"parse": func(s string) (interface{}, error) {
			var out interface{}
			if err := json.Unmarshal([]byte(s), &out); err != nil {
				return nil, wrkrerr.InvalidUsage("json.parse: %s", err)
			}
			return out, nil
		},
		"stringify": func(v interface{}) (string, error) {
			out, err := json.Marshal(v)
			if err != nil {
				return "", wrkrerr.InvalidUsage("json.stringify: %s", err)
			}
			return string(out), nil
		},
		// get extracts one field straight out of a raw JSON string via
		// gjson's dot-path syntax, without paying for a full json.parse
		// first - the cheap path for a scenario that only needs one field
		// out of a large response body on every iteration.
		"get": func(raw string, path string) interface{} {
			result := gjson.Get(raw, path)
			if !result.Exists() {
				return nil
			}
			return result.Value()
		},
	}
	h.vm.Set("json", module)
}
