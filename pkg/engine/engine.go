package engine

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/glesirok/armedit/pkg/path"
)

// Engine 把一批 set/add/remove 指令应用到通用树上
type Engine struct {
	navigator   *path.Navigator
	forceString bool
}

// Option 配置 Engine
type Option func(*Engine)

// WithForceString add 的参数不再尝试按 JSON 解析
func WithForceString(force bool) Option {
	return func(e *Engine) {
		e.forceString = force
	}
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		navigator: &path.Navigator{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply 按 set -> add -> remove 的顺序应用所有指令
// 任意一条失败立即返回，调用方不应再把树写回服务端
func (e *Engine) Apply(root any, rules []*Rule) (any, error) {
	for _, r := range rules {
		switch r.Action {
		case ActionSet, ActionAdd, ActionRemove:
		default:
			return nil, errors.Newf("unknown action: %s", r.Action)
		}
	}

	for _, action := range actionOrder {
		for _, r := range rules {
			if r.Action != action {
				continue
			}
			var err error
			root, err = e.apply(root, r)
			if err != nil {
				return nil, errors.Wrapf(err, "%s", r)
			}
		}
	}
	return root, nil
}

func (e *Engine) apply(root any, r *Rule) (any, error) {
	p, err := path.Parse(r.Path)
	if err != nil {
		return nil, err
	}

	switch r.Action {
	case ActionSet:
		return e.navigator.Set(root, p, r.Value)
	case ActionAdd:
		return e.add(root, p, r)
	default:
		return e.remove(root, p, r)
	}
}

// add 把参数组装成新元素：连续的 key=value 合并成同一个映射，
// 其它参数各自作为独立元素，并把之前累积的映射先追加
func (e *Engine) add(root any, p *path.Path, r *Rule) (any, error) {
	var elems []any
	if r.Value != nil {
		elems = append(elems, r.Value)
	}

	var entry map[string]any
	for _, arg := range r.Args {
		if key, value, ok := strings.Cut(arg, "="); ok {
			if entry == nil {
				entry = map[string]any{}
			}
			entry[key] = value
			continue
		}
		if entry != nil {
			elems = append(elems, entry)
			entry = nil
		}
		elems = append(elems, ParseValue(arg, e.forceString))
	}
	if entry != nil {
		elems = append(elems, entry)
	}

	root, err := e.navigator.Add(root, p, elems...)
	if err != nil {
		var notSeq *path.NotSequenceError
		if errors.As(err, &notSeq) {
			return nil, errors.WithHint(err, "usage: "+AddUsage)
		}
		return nil, err
	}
	return root, nil
}

func (e *Engine) remove(root any, p *path.Path, r *Rule) (any, error) {
	selector := ""
	if len(r.Args) > 0 {
		selector = r.Args[0]
	}
	return e.navigator.Remove(root, p, selector)
}

// ParseSet 解析 --set 的一个表达式 path=value
func ParseSet(expr string, forceString bool) (*Rule, error) {
	key, value, ok := path.SplitKeyValue(expr)
	if !ok {
		return nil, errors.WithHint(errors.Newf("invalid syntax: %s", expr), "usage: "+SetUsage)
	}
	if strings.TrimSpace(key) == "" {
		return nil, errors.WithHint(
			errors.New("usage error: Empty key in --set. Correct syntax: --set KEY=VALUE [KEY=VALUE ...]"),
			"usage: "+SetUsage)
	}
	return &Rule{Action: ActionSet, Path: key, Value: ParseValue(value, forceString)}, nil
}

// ParseAdd 解析 --add 的一组参数：第一个是数组路径，其余是元素
func ParseAdd(args []string) (*Rule, error) {
	if len(args) == 0 || args[0] == "" {
		return nil, errors.WithHint(errors.New("invalid syntax: --add requires a path"), "usage: "+AddUsage)
	}
	return &Rule{Action: ActionAdd, Path: args[0], Args: args[1:]}, nil
}

// ParseRemove 解析 --remove 的一组参数：路径和可选的下标或键
func ParseRemove(args []string) (*Rule, error) {
	if len(args) == 0 || len(args) > 2 || args[0] == "" {
		return nil, errors.WithHint(errors.Newf("invalid syntax: --remove %s", strings.Join(args, " ")), "usage: "+RemoveUsage)
	}
	return &Rule{Action: ActionRemove, Path: args[0], Args: args[1:]}, nil
}
