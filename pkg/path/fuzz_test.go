package path_test

import (
	"encoding/json"
	"testing"

	"github.com/glesirok/armedit/pkg/path"
)

// FuzzNavigator 用任意文档和路径驱动 Parse/Get/Set/Remove，只要求不 panic
func FuzzNavigator(f *testing.F) {
	f.Add([]byte(`{}`), "a")
	f.Add([]byte(`{"list":["a","b",["c",{"d":"e"},{"d":"f"}]]}`), "list[2][d=f].d")
	f.Add([]byte(`{"prop":null}`), "prop[-1]")
	f.Add([]byte(`[1,2,3]`), "[0]")

	f.Fuzz(func(t *testing.T, docBytes []byte, expr string) {
		var doc any
		if err := json.Unmarshal(docBytes, &doc); err != nil {
			return
		}

		p, err := path.Parse(expr)
		if err != nil {
			return
		}

		n := &path.Navigator{}
		_, _ = n.Get(doc, p)
		doc, err = n.Set(doc, p, "x")
		if err == nil && !hasPredicate(p) {
			if got, err := n.Get(doc, p); err != nil || got != "x" {
				t.Fatalf("Get after Set(%q) = %v, %v", expr, got, err)
			}
		}
		_, _ = n.Remove(doc, p, "")
	})
}

// 谓词写入后可能不再匹配自身，跳过这类路径
func hasPredicate(p *path.Path) bool {
	for _, s := range p.Steps {
		if s.Kind == path.StepPredicate {
			return true
		}
	}
	return false
}
