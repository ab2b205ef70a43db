package crawl

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/registry"
)

var (
	detailURLPattern = regexp.MustCompile(`/(\d{4})-(\d+)/?`)
	guidPattern      = regexp.MustCompile(`^(\d{4})-(\d+)$`)
)

// ResolveReference maps one related reference from an API payload onto the
// entity it names. Accepted shapes, in order: an object with api_detail_url, an
// object with id, a bare number, "Games/123" and the "3030-123" guid.
func ResolveReference(reg *registry.Registry, rel registry.RelationDef, ref any) (models.CrawlFrontierItem, error) {
	other, err := reg.Definition(rel.OtherType)
	if err != nil {
		return models.CrawlFrontierItem{}, err
	}

	id, err := referenceID(reg, other, ref)
	if err != nil {
		return models.CrawlFrontierItem{}, err
	}
	if id <= 0 {
		return models.CrawlFrontierItem{}, fmt.Errorf("reference %v has non-positive id %d", ref, id)
	}
	return models.CrawlFrontierItem{ResourceType: other.Name, ExternalID: id}, nil
}

func referenceID(reg *registry.Registry, other *registry.ResourceTypeDef, ref any) (int64, error) {
	switch v := ref.(type) {
	case map[string]any:
		if url, ok := v["api_detail_url"].(string); ok && url != "" {
			if m := detailURLPattern.FindStringSubmatch(url); m != nil {
				return matchTypeCode(reg, other, m[1], m[2])
			}
		}
		if id, ok := models.ToInt64(v["id"]); ok {
			return id, nil
		}
		return 0, fmt.Errorf("object reference has neither a detail url nor an id")
	case models.EntityRecord:
		return referenceID(reg, other, map[string]any(v))
	case string:
		return stringReferenceID(reg, other, v)
	case nil:
		return 0, fmt.Errorf("reference is null")
	default:
		if id, ok := models.ToInt64(v); ok {
			return id, nil
		}
		return 0, fmt.Errorf("unsupported reference %T", ref)
	}
}

func stringReferenceID(reg *registry.Registry, other *registry.ResourceTypeDef, ref string) (int64, error) {
	ref = strings.TrimSpace(ref)
	if m := guidPattern.FindStringSubmatch(ref); m != nil {
		return matchTypeCode(reg, other, m[1], m[2])
	}

	if prefix, rawID, ok := strings.Cut(ref, "/"); ok {
		def, err := reg.Definition(prefix)
		if err != nil {
			return 0, fmt.Errorf("path %q names an unknown type", ref)
		}
		if def != other {
			return 0, fmt.Errorf("path %q names %s, relation expects %s", ref, def.Name, other.Name)
		}
		id, err := strconv.ParseInt(strings.Trim(rawID, "/"), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("path %q has no numeric id", ref)
		}
		return id, nil
	}

	if id, ok := models.ToInt64(ref); ok {
		return id, nil
	}
	return 0, fmt.Errorf("string reference %q is not a path, guid or id", ref)
}

func matchTypeCode(reg *registry.Registry, other *registry.ResourceTypeDef, rawCode, rawID string) (int64, error) {
	code, _ := strconv.Atoi(rawCode)
	def, ok := reg.ByTypeCode(code)
	if !ok {
		return 0, fmt.Errorf("type code %d is not registered", code)
	}
	if def != other {
		return 0, fmt.Errorf("type code %d names %s, relation expects %s", code, def.Name, other.Name)
	}
	return strconv.ParseInt(rawID, 10, 64)
}
