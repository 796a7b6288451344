package command

import (
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/glesirok/armedit/pkg/resourceid"
)

// ExpandIDs 展开 --ids 的值：资源 ID、管道传入的 JSON（带 id 字段的对象或对象数组）
// 或按行分隔的 TSV
func ExpandIDs(values []string) ([]resourceid.ID, error) {
	var raw []string
	for _, val := range assembleJSON(values) {
		var decoded any
		if err := json.Unmarshal([]byte(val), &decoded); err != nil {
			for _, line := range strings.Split(val, "\n") {
				if line = strings.TrimRight(line, "\r"); line != "" {
					raw = append(raw, line)
				}
			}
			continue
		}

		items, ok := decoded.([]any)
		if !ok {
			items = []any{decoded}
		}
		for _, item := range items {
			if obj, ok := item.(map[string]any); ok {
				if id, ok := obj["id"].(string); ok {
					raw = append(raw, id)
				}
			}
		}
	}

	ids := make([]resourceid.ID, 0, len(raw))
	for _, val := range raw {
		id, err := resourceid.Parse(val)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// assembleJSON 把 shell 拆开的 [ ... ] 重新拼成一个 JSON 值
func assembleJSON(values []string) []string {
	out := make([]string, 0, len(values))
	depth := 0
	var buf strings.Builder
	for _, v := range values {
		switch {
		case v == "[":
			depth++
			buf.WriteString(v)
		case v == "]" && depth > 0:
			depth--
			buf.WriteString(v)
			if depth == 0 {
				out = append(out, buf.String())
				buf.Reset()
			}
		case depth > 0:
			buf.WriteString(v)
		default:
			out = append(out, v)
		}
	}
	if buf.Len() > 0 {
		out = append(out, buf.String())
	}
	return out
}

// idPart 取出资源 ID 的某个组成部分
func idPart(id resourceid.ID, part string) (string, bool) {
	var v string
	switch part {
	case IDPartSubscription:
		v = id.Subscription
	case IDPartResourceGroup:
		v = id.ResourceGroup
	case IDPartNamespace:
		v = id.Namespace
	case IDPartType:
		v = strings.TrimPrefix(id.FullType(), id.Namespace+"/")
	case IDPartName:
		v = id.FullName()
	}
	return v, v != ""
}

// underivableError 某个参数无法从 ID 推出
func underivableError(option, id string) error {
	return errors.Newf("Argument %s cannot be derived from ID %s. "+
		"Please provide a complete resource ID containing all information of 'Resource Id' arguments.", option, id)
}
