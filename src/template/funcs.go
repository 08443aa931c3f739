package template

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strings"
	txttemplate "text/template"

	"github.com/Masterminds/sprig/v3"
)

// FuncMap returns the sprig text functions plus the job-document helpers.
func FuncMap() txttemplate.FuncMap {
	f := sprig.TxtFuncMap()
	f["xml"] = escapeXML
	f["sortedKeys"] = sortedKeys
	return f
}

// escapeXML escapes any value for XML character data or attribute values.
func escapeXML(v any) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(fmt.Sprint(v)))
	return b.String()
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
