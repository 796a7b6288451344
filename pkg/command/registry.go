// Package command 提供显式的 (名词, 动词) -> 处理函数 注册表，并把它构建成 cobra 命令树
package command

import (
	"context"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/glesirok/armedit/pkg/config"
	"github.com/glesirok/armedit/pkg/mgmt"
)

// Key 命令的位置，名词可以有多级，如 "network nic"
type Key struct {
	Noun string
	Verb string
}

func (k Key) String() string {
	return strings.TrimSpace(k.Noun + " " + k.Verb)
}

// Handler 命令实现；返回值按 --output 格式打印，nil 不打印
type Handler func(ctx context.Context, inv *Invocation) (any, error)

// Command 一条命令的声明
type Command struct {
	Key       Key
	Short     string
	Long      string
	Example   string
	Arguments []Argument
	Handler   Handler
}

// Argument 按 Dest 查找参数
func (c Command) Argument(dest string) (Argument, bool) {
	for _, a := range c.Arguments {
		if a.Dest == dest {
			return a, true
		}
	}
	return Argument{}, false
}

// WithArguments 返回追加了参数的新命令，不修改原命令
func (c Command) WithArguments(args ...Argument) Command {
	out := c
	out.Arguments = append(append([]Argument(nil), c.Arguments...), args...)
	return out
}

// supportsIDs 带名称组成部分且不是 create 的命令自动获得 --ids
func (c Command) supportsIDs() bool {
	if c.Key.Verb == "create" {
		return false
	}
	for _, a := range c.Arguments {
		if a.IDPart == IDPartName {
			return true
		}
	}
	return false
}

// Runtime 命令执行时的依赖，由组合根在 PersistentPreRunE 中填充
type Runtime struct {
	Config   *config.Config
	Output   string
	Services func(ctx context.Context, subscription string) (mgmt.Service, error)
}

type scopedArgument struct {
	scope string
	arg   Argument
}

// Registry 命令注册表
type Registry struct {
	commands  map[Key]Command
	groups    map[string]string
	overrides []scopedArgument
}

func NewRegistry() *Registry {
	return &Registry{
		commands: map[Key]Command{},
		groups:   map[string]string{},
	}
}

// Register 注册命令，重复注册报错
func (r *Registry) Register(cmd Command) error {
	if cmd.Key.Verb == "" {
		return errors.Newf("command %q has no verb", cmd.Key.Noun)
	}
	if cmd.Handler == nil {
		return errors.Newf("command %q has no handler", cmd.Key)
	}
	if _, ok := r.commands[cmd.Key]; ok {
		return errors.Newf("command %q is already registered", cmd.Key)
	}
	r.commands[cmd.Key] = cmd
	return nil
}

// MustRegister 用于命令组的静态声明
func (r *Registry) MustRegister(cmds ...Command) *Registry {
	for _, cmd := range cmds {
		if err := r.Register(cmd); err != nil {
			panic(err)
		}
	}
	return r
}

// Group 设置命令组的说明
func (r *Registry) Group(noun, short string) *Registry {
	r.groups[noun] = short
	return r
}

// Override 对 scope 下（名词或完整命令名的前缀）所有同名参数应用覆盖
func (r *Registry) Override(scope string, arg Argument) *Registry {
	r.overrides = append(r.overrides, scopedArgument{scope: scope, arg: arg})
	return r
}

// Merge 合并另一个注册表
func (r *Registry) Merge(other *Registry) error {
	for _, key := range other.Keys() {
		if err := r.Register(other.commands[key]); err != nil {
			return err
		}
	}
	for noun, short := range other.groups {
		r.groups[noun] = short
	}
	r.overrides = append(r.overrides, other.overrides...)
	return nil
}

// Lookup 返回应用了覆盖之后的命令
func (r *Registry) Lookup(key Key) (Command, bool) {
	cmd, ok := r.commands[key]
	if !ok {
		return Command{}, false
	}
	return r.resolve(cmd), true
}

// Keys 按命令名排序
func (r *Registry) Keys() []Key {
	keys := make([]Key, 0, len(r.commands))
	for k := range r.commands {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
	return keys
}

// GroupFlags 所有多值参数的选项名，供 GroupArgs 使用
func (r *Registry) GroupFlags() []string {
	seen := map[string]bool{"--ids": true}
	for _, cmd := range r.commands {
		for _, a := range r.resolve(cmd).Arguments {
			if a.Kind == KindGroups {
				seen[a.Option()] = true
			}
		}
	}
	flags := make([]string, 0, len(seen))
	for f := range seen {
		flags = append(flags, f)
	}
	sort.Strings(flags)
	return flags
}

// resolve 按作用域从宽到窄应用覆盖
func (r *Registry) resolve(cmd Command) Command {
	name := cmd.Key.String()
	scoped := make([]scopedArgument, 0, len(r.overrides))
	for _, o := range r.overrides {
		if o.scope == "" || o.scope == name || strings.HasPrefix(name, o.scope+" ") {
			scoped = append(scoped, o)
		}
	}
	sort.SliceStable(scoped, func(i, j int) bool {
		return len(scoped[i].scope) < len(scoped[j].scope)
	})

	out := cmd
	out.Arguments = make([]Argument, len(cmd.Arguments))
	for i, a := range cmd.Arguments {
		for _, o := range scoped {
			if o.arg.Dest == a.Dest {
				a = a.Override(o.arg)
			}
		}
		out.Arguments[i] = a
	}
	return out
}

// Build 把注册表挂到 root 下
func (r *Registry) Build(root *cobra.Command, rt *Runtime) {
	groups := map[string]*cobra.Command{"": root}
	for _, key := range r.Keys() {
		parent := r.group(groups, key.Noun)
		parent.AddCommand(newCobraCommand(r.resolve(r.commands[key]), rt))
	}
}

// group 逐级创建名词对应的命令组
func (r *Registry) group(groups map[string]*cobra.Command, noun string) *cobra.Command {
	if c, ok := groups[noun]; ok {
		return c
	}

	parentNoun, word := "", noun
	if i := strings.LastIndex(noun, " "); i >= 0 {
		parentNoun, word = noun[:i], noun[i+1:]
	}
	parent := r.group(groups, parentNoun)

	c := &cobra.Command{
		Use:   word,
		Short: r.groups[noun],
		Args:  cobra.NoArgs,
	}
	parent.AddCommand(c)
	groups[noun] = c
	return c
}
