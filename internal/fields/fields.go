// Package fields resolves business-meaning field names to display values.
//
// Jira exposes custom attributes only through opaque IDs ("customfield_10031")
// plus a separate name catalog, and the shape of a value differs across
// instances and field generations: a bare scalar, an option object carrying
// a value or a name, or a list of either. Values are normalized once into a
// Value before any display string is extracted.
package fields

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/danielolaszy/jiradocs/pkg/models"
)

// Candidate display names for the custom attributes of an IssueRecord, in
// priority order.
var (
	TShirtSizeNames        = []string{"t-shirt size", "tshirt", "sizing", "size", "et - size"}
	StoryPointNames        = []string{"story points", "story point estimate"}
	WorkTypeNames          = []string{"work type", "work item type"}
	BusinessTeamNames      = []string{"requesting business team", "team"}
	BusinessObjectiveNames = []string{"business objective", "goal", "business value"}
	ImpactNames            = []string{"et - impact", "impact", "level", "severity", "class"}
	SprintNames            = []string{"sprint"}
)

const customFieldPrefix = "customfield_"

var (
	sizeToken    = regexp.MustCompile(`(?i)^(XS|S|M|L|XL|XXL)$`)
	sizeEstimate = regexp.MustCompile(`(?i)estimated as (XS|S|M|L|XL|XXL)`)
)

// Field is one entry of the Jira field catalog.
type Field struct {
	ID   string
	Name string
}

// Catalog maps lowercased field display names to field IDs.
type Catalog map[string]string

// NewCatalog builds a Catalog. When two fields share a display name the
// first one wins.
func NewCatalog(list []Field) Catalog {
	c := make(Catalog, len(list))
	for _, f := range list {
		name := strings.ToLower(strings.TrimSpace(f.Name))
		if name == "" || f.ID == "" {
			continue
		}
		if _, exists := c[name]; !exists {
			c[name] = f.ID
		}
	}
	return c
}

// Lookup returns the field ID registered under name, ignoring case.
func (c Catalog) Lookup(name string) (string, bool) {
	id, ok := c[strings.ToLower(strings.TrimSpace(name))]
	return id, ok
}

// IDs returns the IDs of every candidate name present in the catalog.
func (c Catalog) IDs(names []string) []string {
	var ids []string
	for _, name := range names {
		if id, ok := c.Lookup(name); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Kind tags the shape of a raw field value.
type Kind int

const (
	KindNull Kind = iota
	KindScalar
	KindObject
	KindList
)

// Value is a raw Jira field value normalized into a tagged union.
type Value struct {
	Kind   Kind
	Scalar string
	Object map[string]any
	Items  []Value
}

// Normalize classifies a decoded JSON value.
func Normalize(raw any) Value {
	switch v := raw.(type) {
	case nil:
		return Value{Kind: KindNull}
	case string:
		return Value{Kind: KindScalar, Scalar: v}
	case float64:
		return Value{Kind: KindScalar, Scalar: strconv.FormatFloat(v, 'f', -1, 64)}
	case json.Number:
		return Value{Kind: KindScalar, Scalar: v.String()}
	case bool:
		return Value{Kind: KindScalar, Scalar: strconv.FormatBool(v)}
	case map[string]any:
		return Value{Kind: KindObject, Object: v}
	case []any:
		items := make([]Value, 0, len(v))
		for _, item := range v {
			items = append(items, Normalize(item))
		}
		return Value{Kind: KindList, Items: items}
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return Value{Kind: KindNull}
		}
		return Value{Kind: KindScalar, Scalar: string(data)}
	}
}

// Display extracts the display string: the first element of a list, the
// value or name property of an object (its JSON form otherwise), or the
// scalar itself.
func (v Value) Display() string {
	switch v.Kind {
	case KindScalar:
		return v.Scalar
	case KindObject:
		if s := stringProp(v.Object, "value"); s != "" {
			return s
		}
		if s := stringProp(v.Object, "name"); s != "" {
			return s
		}
		data, err := json.Marshal(v.Object)
		if err != nil {
			return ""
		}
		return string(data)
	case KindList:
		if len(v.Items) == 0 {
			return ""
		}
		return v.Items[0].Display()
	default:
		return ""
	}
}

// Names returns the name property of every object in a list value, which is
// how Jira shapes the sprint field.
func (v Value) Names() []string {
	var items []Value
	switch v.Kind {
	case KindList:
		items = v.Items
	case KindObject:
		items = []Value{v}
	default:
		return nil
	}

	var names []string
	for _, item := range items {
		if item.Kind != KindObject {
			continue
		}
		if name := stringProp(item.Object, "name"); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func stringProp(obj map[string]any, key string) string {
	switch s := obj[key].(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return ""
	}
}

// Resolve walks candidate names in priority order and returns the first
// non-empty display value found through the catalog, or models.NotAvailable.
func Resolve(candidates []string, catalog Catalog, values map[string]any) string {
	for _, name := range candidates {
		id, ok := catalog.Lookup(name)
		if !ok {
			continue
		}
		raw, present := values[id]
		if !present || raw == nil {
			continue
		}
		if s := strings.TrimSpace(Normalize(raw).Display()); s != "" {
			return s
		}
	}
	return models.NotAvailable
}

// ResolveTShirtSize resolves the t-shirt size through decreasing-confidence
// signals: the catalog, then any select-shaped custom field holding a size
// token, then an "estimated as <SIZE>" phrase in the comments.
func ResolveTShirtSize(catalog Catalog, values map[string]any, comments []models.Comment) string {
	if size := Resolve(TShirtSizeNames, catalog, values); size != models.NotAvailable {
		return size
	}

	if size := scanCustomFieldsForSize(values); size != "" {
		return size
	}

	for _, c := range comments {
		if m := sizeEstimate.FindStringSubmatch(c.Body); m != nil {
			return strings.ToUpper(m[1])
		}
	}

	return models.NotAvailable
}

func scanCustomFieldsForSize(values map[string]any) string {
	ids := make([]string, 0, len(values))
	for id := range values {
		if strings.HasPrefix(id, customFieldPrefix) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	for _, id := range ids {
		v := Normalize(values[id])
		if v.Kind != KindObject && v.Kind != KindList {
			continue
		}
		if s := strings.TrimSpace(v.Display()); sizeToken.MatchString(s) {
			return s
		}
	}
	return ""
}
