package command

import (
	"context"
	"io"
	"maps"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/glesirok/armedit/pkg/fold"
	"github.com/glesirok/armedit/pkg/logging"
	"github.com/glesirok/armedit/pkg/mgmt"
	"github.com/glesirok/armedit/pkg/resourceid"
)

// Invocation 一次命令执行的参数值；--ids 给了多个 ID 时每个 ID 一份
type Invocation struct {
	Command Command
	Out     io.Writer
	Err     io.Writer

	runtime      *Runtime
	subscription string
	strings      map[string]*string
	bools        map[string]bool
	groups       map[string][][]string
	folds        map[string]*fold.State
}

// String 未设置时返回空串
func (inv *Invocation) String(dest string) string {
	if v := inv.strings[dest]; v != nil {
		return *v
	}
	return ""
}

// Value 未设置时返回 nil，用于区分 "未提供" 和 "显式置空"
func (inv *Invocation) Value(dest string) *string {
	return inv.strings[dest]
}

func (inv *Invocation) Bool(dest string) bool {
	return inv.bools[dest]
}

func (inv *Invocation) Groups(dest string) [][]string {
	return inv.groups[dest]
}

// Set 覆盖字符串参数的值
func (inv *Invocation) Set(dest, value string) {
	inv.strings[dest] = &value
}

// Fold 返回折叠结果，参数没有声明 FoldSpec 时为 nil
func (inv *Invocation) Fold(dest string) *fold.State {
	return inv.folds[dest]
}

// Subscription --ids 给出的订阅优先，其次是配置
func (inv *Invocation) Subscription() string {
	if inv.subscription != "" {
		return inv.subscription
	}
	if v := inv.String("subscription"); v != "" {
		return v
	}
	if inv.runtime != nil && inv.runtime.Config != nil {
		return inv.runtime.Config.Defaults.Subscription
	}
	return ""
}

// Service 返回当前订阅的资源管理服务
func (inv *Invocation) Service(ctx context.Context) (mgmt.Service, error) {
	if inv.runtime == nil || inv.runtime.Services == nil {
		return nil, errors.New("no resource management service configured")
	}
	return inv.runtime.Services(ctx, inv.Subscription())
}

// ResourceID 用当前订阅和资源组拼出资源 ID；typ 和 name 可以是 type/childType 和 name/childName
func (inv *Invocation) ResourceID(namespace, typ, name string) (resourceid.ID, error) {
	types := strings.Split(typ, "/")
	names := strings.Split(name, "/")
	if len(types) != len(names) || len(types) > 2 {
		return resourceid.ID{}, errors.Newf("resource type %q does not match resource name %q", typ, name)
	}

	id := resourceid.ID{
		Subscription:  inv.Subscription(),
		ResourceGroup: inv.String("resource_group"),
		Namespace:     namespace,
		Type:          types[0],
		Name:          names[0],
	}
	if len(types) == 2 {
		id.ChildType, id.ChildName = types[1], names[1]
	}
	if id.Subscription == "" {
		return resourceid.ID{}, errors.WithHint(errors.New("subscription is required"),
			"set defaults.subscription in the config file, pass --subscription or use --ids")
	}
	if !resourceid.IsValid(id.String()) {
		return resourceid.ID{}, errors.Newf("invalid resource ID: %s", id)
	}
	return id, nil
}

func (inv *Invocation) clone() *Invocation {
	out := *inv
	out.strings = maps.Clone(inv.strings)
	out.folds = map[string]*fold.State{}
	return &out
}

type binding struct {
	arg    Argument
	str    *string
	b      *bool
	groups *groupsValue
}

func idsArgument() Argument {
	return Argument{
		Dest: "ids",
		Kind: KindGroups,
		Help: "One or more resource IDs (space-delimited). It should be a complete resource ID containing " +
			"all information of 'Resource Id' arguments. You should provide either --ids or other 'Resource Id' arguments.",
	}
}

func newCobraCommand(cmd Command, rt *Runtime) *cobra.Command {
	if cmd.supportsIDs() {
		if _, ok := cmd.Argument("ids"); !ok {
			cmd = cmd.WithArguments(idsArgument())
		}
	}

	c := &cobra.Command{
		Use:          cmd.Key.Verb,
		Short:        cmd.Short,
		Long:         cmd.Long,
		Example:      cmd.Example,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
	}

	bindings := make([]*binding, 0, len(cmd.Arguments))
	flags := c.Flags()
	for _, a := range cmd.Arguments {
		b := &binding{arg: a}
		switch a.Kind {
		case KindBool:
			b.b = flags.BoolP(a.FlagName(), a.Shorthand, a.Default == "true", a.Help)
		case KindGroups:
			b.groups = &groupsValue{}
			flags.VarP(b.groups, a.FlagName(), a.Shorthand, a.Help)
		default:
			b.str = flags.StringP(a.FlagName(), a.Shorthand, a.Default, a.Help)
		}
		bindings = append(bindings, b)
	}

	c.RunE = func(c *cobra.Command, _ []string) error {
		inv := &Invocation{
			Command: cmd,
			Out:     c.OutOrStdout(),
			Err:     c.ErrOrStderr(),
			runtime: rt,
			strings: map[string]*string{},
			bools:   map[string]bool{},
			groups:  map[string][][]string{},
			folds:   map[string]*fold.State{},
		}
		for _, b := range bindings {
			switch {
			case b.b != nil:
				inv.bools[b.arg.Dest] = *b.b
			case b.groups != nil:
				inv.groups[b.arg.Dest] = b.groups.groups
			case c.Flags().Changed(b.arg.FlagName()) || b.arg.Default != "":
				v := *b.str
				inv.strings[b.arg.Dest] = &v
			}
		}
		return execute(c.Context(), inv)
	}
	return c
}

func execute(ctx context.Context, inv *Invocation) error {
	if ctx == nil {
		ctx = context.Background()
	}

	runs, err := inv.expandIDs(ctx)
	if err != nil {
		return err
	}

	var results []any
	for _, run := range runs {
		if err := run.prepare(ctx); err != nil {
			return err
		}
		res, err := inv.Command.Handler(ctx, run)
		if err != nil {
			return err
		}
		if res != nil {
			results = append(results, res)
		}
	}

	format := ""
	if inv.runtime != nil {
		format = inv.runtime.Output
	}
	switch len(results) {
	case 0:
		return nil
	case 1:
		return Print(inv.Out, format, results[0])
	default:
		return Print(inv.Out, format, results)
	}
}

// expandIDs 把 --ids 展开成每个 ID 一次调用，ID 的各部分写入对应参数
func (inv *Invocation) expandIDs(ctx context.Context) ([]*Invocation, error) {
	var values []string
	for _, group := range inv.groups["ids"] {
		values = append(values, group...)
	}
	if len(values) == 0 {
		return []*Invocation{inv}, nil
	}

	ids, err := ExpandIDs(values)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, errors.New("--ids did not contain any resource ID")
	}

	logger := logging.FromContext(ctx)
	for _, a := range inv.Command.Arguments {
		if a.IDPart != "" && inv.strings[a.Dest] != nil {
			logger.Warn("option '" + a.Option() + "' will be ignored due to use of '--ids'.")
		}
	}

	runs := make([]*Invocation, 0, len(ids))
	for _, id := range ids {
		run := inv.clone()
		run.subscription = id.Subscription
		for _, a := range inv.Command.Arguments {
			if a.IDPart == "" {
				continue
			}
			v, ok := idPart(id, a.IDPart)
			if !ok {
				return nil, underivableError(a.Option(), id.String())
			}
			run.Set(a.Dest, v)
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// prepare 应用配置默认值、检查必填参数并折叠 "名称或 ID" 参数
func (inv *Invocation) prepare(ctx context.Context) error {
	args := inv.Command.Arguments

	if inv.runtime != nil && inv.runtime.Config != nil {
		for _, a := range args {
			if a.Kind != KindString || a.DefaultFrom == nil || inv.strings[a.Dest] != nil {
				continue
			}
			if v := a.DefaultFrom(inv.runtime.Config); v != "" {
				inv.Set(a.Dest, v)
			}
		}
	}

	var missingIDParts, missing []string
	for _, a := range args {
		if !a.Required || a.Kind != KindString || inv.strings[a.Dest] != nil {
			continue
		}
		if a.IDPart != "" && inv.Command.supportsIDs() {
			missingIDParts = append(missingIDParts, a.Option())
		} else {
			missing = append(missing, a.Option())
		}
	}
	if len(missingIDParts) > 0 {
		return errors.Newf("(%s | --ids) are required", strings.Join(missingIDParts, " "))
	}
	if len(missing) > 0 {
		return errors.Newf("the following arguments are required: %s", strings.Join(missing, ", "))
	}

	for _, a := range args {
		if a.Fold == nil {
			continue
		}
		if err := inv.foldArgument(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// checkerFunc 延迟创建服务：不需要查询时不要求订阅和凭据
type checkerFunc func(ctx context.Context, resourceGroup, name, resourceType string) (bool, error)

func (f checkerFunc) Exists(ctx context.Context, resourceGroup, name, resourceType string) (bool, error) {
	return f(ctx, resourceGroup, name, resourceType)
}

func (inv *Invocation) foldArgument(ctx context.Context, a Argument) error {
	spec := a.Fold
	req := fold.Request{
		Value:         inv.Value(a.Dest),
		ResourceGroup: inv.String("resource_group"),
		ResourceType:  spec.ResourceType,
		ChildType:     spec.ChildType,
		AllowNone:     spec.AllowNone,
		AllowNew:      spec.AllowNew,
		DefaultNone:   spec.DefaultNone,
		Option:        a.Option(),
	}
	if spec.ParentDest != "" {
		req.ParentName = inv.String(spec.ParentDest)
		if parent, ok := inv.Command.Argument(spec.ParentDest); ok {
			req.ParentOption = parent.Option()
		}
	}

	resolver := &fold.Resolver{
		Service: checkerFunc(func(ctx context.Context, resourceGroup, name, resourceType string) (bool, error) {
			svc, err := inv.Service(ctx)
			if err != nil {
				return false, err
			}
			return svc.Exists(ctx, resourceGroup, name, resourceType)
		}),
		Subscription: inv.Subscription(),
	}

	state, err := resolver.Resolve(ctx, req)
	if err != nil {
		return err
	}
	logging.FromContext(ctx).Debug("folded argument", "option", a.Option(), "kind", state.Kind.String(), "id", state.ID)
	inv.folds[a.Dest] = &state
	return nil
}
