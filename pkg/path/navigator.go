package path

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Navigator 负责在通用树中导航和修改节点
// 树由 map[string]any、[]any 和标量组成（encoding/json 的解码结果）
type Navigator struct{}

// Get 读取路径指向的值
func (n *Navigator) Get(root any, p *Path) (any, error) {
	node := root
	for i, step := range p.Steps {
		switch step.Kind {
		case StepField:
			m, err := asMapping(node, p.Steps, i)
			if err != nil {
				return nil, err
			}
			child, ok := m[step.Field]
			if !ok {
				return nil, notFound(m, step.Field, p.Steps[:i])
			}
			node = child

		default:
			seq, err := asSequence(node, p.Steps, i)
			if err != nil {
				return nil, err
			}
			idx, err := locate(seq, step, p.Steps[:i])
			if err != nil {
				return nil, err
			}
			node = seq[idx]
		}
	}
	return node, nil
}

// Set 把 value 写到路径位置
// 中间节点为 null 或不存在时自动创建：下一步是字段则创建 {}，是下标/谓词则创建 []
// 返回新的根节点（根为 nil 时会被替换）
func (n *Navigator) Set(root any, p *Path, value any) (any, error) {
	return n.update(root, p.Steps, 0, true, func(any) (any, error) {
		return value, nil
	})
}

// Add 向路径处的数组追加元素，数组为 null 或不存在时先创建
func (n *Navigator) Add(root any, p *Path, elems ...any) (any, error) {
	return n.update(root, p.Steps, 0, true, func(current any) (any, error) {
		if isNull(current) {
			current = []any{}
		}
		seq, ok := current.([]any)
		if !ok {
			return nil, &NotSequenceError{Path: where(p.Steps)}
		}
		return append(seq, elems...), nil
	})
}

// Remove 删除路径指向的节点
//   - selector 为空：从父节点删除最后一步（映射删键，数组删元素）
//   - selector 为整数：删除路径处数组的对应元素
//   - selector 为 key=value：删除路径处数组中唯一匹配的元素
//   - 其它：删除路径处映射的对应键
func (n *Navigator) Remove(root any, p *Path, selector string) (any, error) {
	if selector != "" {
		return n.update(root, p.Steps, 0, false, func(current any) (any, error) {
			return removeSelector(current, selector, p)
		})
	}

	last := p.Steps[len(p.Steps)-1]
	parent := p.Steps[:len(p.Steps)-1]
	return n.update(root, parent, 0, false, func(current any) (any, error) {
		if last.Kind == StepField {
			m, err := asMapping(current, p.Steps, len(p.Steps)-1)
			if err != nil {
				return nil, err
			}
			if _, ok := m[last.Field]; !ok {
				return nil, notFound(m, last.Field, parent)
			}
			delete(m, last.Field)
			return m, nil
		}

		seq, err := asSequence(current, p.Steps, len(p.Steps)-1)
		if err != nil {
			return nil, err
		}
		idx, err := locate(seq, last, parent)
		if err != nil {
			return nil, err
		}
		return without(seq, idx), nil
	})
}

// update 递归走到 steps 指向的位置，用 fn 的返回值替换该位置的值
// 数组是值类型，追加或删除后必须写回父节点，所以每一层都返回新的子节点
func (n *Navigator) update(node any, steps []Step, i int, vivify bool, fn func(any) (any, error)) (any, error) {
	if i == len(steps) {
		return fn(node)
	}

	step := steps[i]
	if vivify && isNull(node) {
		node = emptyFor(step)
	}

	switch step.Kind {
	case StepField:
		m, err := asMapping(node, steps, i)
		if err != nil {
			return nil, err
		}
		current, ok := m[step.Field]
		if !ok && !vivify {
			return nil, notFound(m, step.Field, steps[:i])
		}
		child, err := n.update(current, steps, i+1, vivify, fn)
		if err != nil {
			return nil, err
		}
		m[step.Field] = child
		return m, nil

	default:
		seq, err := asSequence(node, steps, i)
		if err != nil {
			return nil, err
		}
		idx, err := locate(seq, step, steps[:i])
		if err != nil {
			return nil, err
		}
		child, err := n.update(seq[idx], steps, i+1, vivify, fn)
		if err != nil {
			return nil, err
		}
		seq[idx] = child
		return seq, nil
	}
}

// asMapping 检查节点是否是映射，否则给出对应的错误
func asMapping(node any, steps []Step, i int) (map[string]any, error) {
	switch v := node.(type) {
	case map[string]any:
		return v, nil
	case []any:
		return nil, &NotFoundOnSequenceError{Field: steps[i].String(), Path: where(steps[:i])}
	default:
		return nil, &NotFoundError{Field: steps[i].String(), Path: where(steps[:i]), Scalar: true}
	}
}

// asSequence 检查节点是否是数组，否则给出对应的错误
func asSequence(node any, steps []Step, i int) ([]any, error) {
	switch v := node.(type) {
	case []any:
		return v, nil
	case map[string]any:
		return nil, notFound(v, steps[i].String(), steps[:i])
	default:
		return nil, &NotFoundError{Field: steps[i].String(), Path: where(steps[:i]), Scalar: true}
	}
}

// locate 按下标或谓词在数组中定位元素
func locate(seq []any, step Step, prefix []Step) (int, error) {
	if step.Kind == StepIndex {
		idx, ok := normalize(step.Index, len(seq))
		if !ok {
			return 0, &IndexError{Index: step.Index, Path: where(prefix)}
		}
		return idx, nil
	}

	found := -1
	for i, elem := range seq {
		if !matches(elem, step.Key, step.Value) {
			continue
		}
		if found != -1 {
			return 0, &AmbiguousKeyError{Key: step.Key, Path: where(prefix)}
		}
		found = i
	}
	if found == -1 {
		return 0, &ValueNotFoundError{Key: step.Key, Value: step.Value, Path: where(prefix)}
	}
	return found, nil
}

// removeSelector 处理 remove 带第二个参数的情况
func removeSelector(current any, selector string, p *Path) (any, error) {
	switch v := current.(type) {
	case []any:
		if idx, err := strconv.Atoi(selector); err == nil {
			i, ok := normalize(idx, len(v))
			if !ok {
				return nil, &IndexOutOfRangeError{Index: idx, Name: p.Name()}
			}
			return without(v, i), nil
		}
		if key, value, ok := strings.Cut(selector, "="); ok && key != "" {
			i, err := locate(v, Step{Kind: StepPredicate, Key: key, Value: value}, p.Steps)
			if err != nil {
				return nil, err
			}
			return without(v, i), nil
		}
		return nil, &NotFoundOnSequenceError{Field: selector, Path: where(p.Steps)}

	case map[string]any:
		if _, ok := v[selector]; !ok {
			return nil, notFound(v, selector, p.Steps)
		}
		delete(v, selector)
		return v, nil

	default:
		return nil, &NotFoundError{Field: selector, Path: where(p.Steps), Scalar: true}
	}
}

// matches 判断元素是否是包含 key 且值的字符串形式等于 value 的映射
func matches(elem any, key, value string) bool {
	m, ok := elem.(map[string]any)
	if !ok {
		return false
	}
	v, ok := m[key]
	if !ok {
		return false
	}
	return Stringify(v) == value
}

// Stringify 把标量转成用于比较的字符串
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// normalize 处理负数下标，-1 表示最后一个
func normalize(idx, length int) (int, bool) {
	if idx < 0 {
		idx += length
	}
	if idx < 0 || idx >= length {
		return 0, false
	}
	return idx, true
}

func without(seq []any, idx int) []any {
	out := make([]any, 0, len(seq)-1)
	out = append(out, seq[:idx]...)
	return append(out, seq[idx+1:]...)
}

// isNull 接口中的 nil 映射或 nil 数组同样视为 null
func isNull(node any) bool {
	switch v := node.(type) {
	case nil:
		return true
	case map[string]any:
		return v == nil
	case []any:
		return v == nil
	}
	return false
}

func emptyFor(step Step) any {
	if step.Kind == StepField {
		return map[string]any{}
	}
	return []any{}
}

func notFound(m map[string]any, field string, prefix []Step) error {
	options := make([]string, 0, len(m))
	for k := range m {
		options = append(options, k)
	}
	sort.Strings(options)
	return &NotFoundError{Field: field, Path: where(prefix), Options: options}
}

// where 渲染出错位置；空路径显示为 root
func where(steps []Step) string {
	if s := render(steps); s != "" {
		return s
	}
	return "root"
}
