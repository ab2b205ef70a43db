package importer

import (
	"strings"

	"github.com/Ramsey-B/bramble/pkg/registry"
)

// reserved characters may not appear in a page title.
const reserved = "#<>[]|{}"

// PageName is the title a record is exported under: "<PagePrefix>/<name>".
// An empty name gives an empty title.
func PageName(def *registry.ResourceTypeDef, name string) string {
	cleaned := strings.Map(func(r rune) rune {
		if strings.ContainsRune(reserved, r) || r < ' ' {
			return ' '
		}
		return r
	}, name)
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if cleaned == "" {
		return ""
	}
	return def.PagePrefix + "/" + cleaned
}
