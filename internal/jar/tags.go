package jar

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/OCharnyshevich/loot-randomizer/pkg/catalog"
)

// tagIndex maps a tag name to its raw members; members referencing other
// tags keep the "#" prefix.
type tagIndex map[string][]string

func parseTag(name string, data []byte) ([]string, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("tag %s: invalid json", name)
	}
	var members []string
	gjson.GetBytes(data, "values").ForEach(func(_, v gjson.Result) bool {
		ref := v.String()
		if v.IsObject() {
			ref = v.Get("id").String()
		}
		if ref == "" {
			return true
		}
		if rest, ok := strings.CutPrefix(ref, catalog.TagPrefix); ok {
			members = append(members, catalog.TagPrefix+stripNamespace(rest))
			return true
		}
		members = append(members, stripNamespace(ref))
		return true
	})
	return members, nil
}

// expand returns the sorted item members of name, following nested tags.
func (t tagIndex) expand(name string) []string {
	seen := make(map[string]struct{})
	t.collect(name, map[string]bool{}, seen)
	out := make([]string, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

func (t tagIndex) collect(name string, visiting map[string]bool, out map[string]struct{}) {
	if visiting[name] {
		return
	}
	visiting[name] = true
	for _, m := range t[name] {
		if ref, ok := strings.CutPrefix(m, catalog.TagPrefix); ok {
			t.collect(ref, visiting, out)
			continue
		}
		out[m] = struct{}{}
	}
}
