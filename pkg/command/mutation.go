package command

import (
	"github.com/cockroachdb/errors"

	"github.com/glesirok/armedit/pkg/engine"
	"github.com/glesirok/armedit/pkg/processor"
	"github.com/glesirok/armedit/pkg/rule"
)

// RegisterPathMutationArguments 给命令加上通用更新参数：
// --set、--add、--remove、--force-string、--rules 和 --dry-run
func RegisterPathMutationArguments(cmd Command) Command {
	return cmd.WithArguments(
		Argument{
			Dest: "set",
			Kind: KindGroups,
			Help: "Update an object by specifying a property path and value to set. Example: " + engine.SetUsage,
		},
		Argument{
			Dest: "add",
			Kind: KindGroups,
			Help: "Add an object to a list of objects by specifying a path and key value pairs. Example: " + engine.AddUsage,
		},
		Argument{
			Dest: "remove",
			Kind: KindGroups,
			Help: "Remove a property or an element from a list. Example: " + engine.RemoveUsage,
		},
		Argument{
			Dest: "force_string",
			Kind: KindBool,
			Help: "When using 'set' or 'add', preserve string literals instead of attempting to convert to JSON.",
		},
		Argument{
			Dest: "rules",
			Help: "YAML file with additional set/add/remove rules.",
		},
		Argument{
			Dest: "dry_run",
			Kind: KindBool,
			Help: "Print the changes as a JSON merge patch without writing them.",
		},
	)
}

// Rules 把 --set、--add、--remove 和规则文件解析成指令
// 规则文件中的指令排在命令行指令之后，执行时仍按 set、add、remove 分组
func (inv *Invocation) Rules() ([]*engine.Rule, error) {
	forceString := inv.Bool("force_string")

	var rules []*engine.Rule
	for _, group := range inv.Groups("set") {
		for _, expr := range group {
			r, err := engine.ParseSet(expr, forceString)
			if err != nil {
				return nil, err
			}
			rules = append(rules, r)
		}
	}
	for _, group := range inv.Groups("add") {
		r, err := engine.ParseAdd(group)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	for _, group := range inv.Groups("remove") {
		r, err := engine.ParseRemove(group)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}

	if file := inv.String("rules"); file != "" {
		loaded, err := rule.LoadFromFile(file)
		if err != nil {
			return nil, errors.Wrapf(err, "load rules %s", file)
		}
		rules = append(rules, loaded...)
	}
	return rules, nil
}

// Processor 用当前参数构造处理器
func (inv *Invocation) Processor() (*processor.Processor, error) {
	rules, err := inv.Rules()
	if err != nil {
		return nil, err
	}
	return processor.NewProcessor(rules,
		processor.WithEngine(engine.NewEngine(engine.WithForceString(inv.Bool("force_string")))),
		processor.WithOutput(inv.Out),
		processor.WithStatus(inv.Err),
	), nil
}
