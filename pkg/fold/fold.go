// Package fold resolves "name or ID" arguments into a canonical resource ID.
package fold

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/glesirok/armedit/pkg/resourceid"
)

// Kind 折叠结果
type Kind int

const (
	KindUnresolved Kind = iota
	KindNone            // 未提供参数
	KindCleared         // 显式置空
	KindExisting        // 引用已存在的资源
	KindNew             // 调用方需要创建
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindCleared:
		return "cleared"
	case KindExisting:
		return "existing"
	case KindNew:
		return "new"
	default:
		return "unresolved"
	}
}

// State 是一次折叠的结果，只能被消费一次
type State struct {
	Raw  string
	Kind Kind
	ID   string

	consumed bool
}

// Consume 返回应写回参数的值：已存在或新建时为资源 ID，置空或未提供时为空串
func (s *State) Consume() (string, error) {
	if s.Kind == KindUnresolved {
		return "", errors.Newf("argument %q has not been resolved", s.Raw)
	}
	if s.consumed {
		return "", errors.Newf("argument %q has already been consumed", s.Raw)
	}
	s.consumed = true
	return s.ID, nil
}

// Checker 判断资源是否存在
type Checker interface {
	Exists(ctx context.Context, resourceGroup, name, resourceType string) (bool, error)
}

// Request 描述一个待折叠的参数
type Request struct {
	Value         *string // nil 表示未提供
	ResourceGroup string
	ResourceType  string // Microsoft.Network/virtualNetworks
	ChildType     string // subnets，非空表示子资源
	ParentName    string

	AllowNone   bool
	AllowNew    bool
	DefaultNone bool

	Option       string // --subnet
	ParentOption string // --vnet-name
}

// Resolver 把名称或 ID 解析成规范 ID
type Resolver struct {
	Service      Checker
	Subscription string
}

// Resolve 每个参数只调用一次
func (r *Resolver) Resolve(ctx context.Context, req Request) (State, error) {
	if req.Value == nil {
		if req.DefaultNone {
			return State{Kind: KindCleared}, nil
		}
		return State{Kind: KindNone}, nil
	}

	raw := *req.Value
	if isEmpty(raw) {
		if !req.AllowNone {
			return State{}, &RequiredError{Option: req.Option}
		}
		return State{Raw: raw, Kind: KindCleared}, nil
	}

	if resourceid.IsValid(raw) {
		return r.resolveID(ctx, req, raw)
	}
	return r.resolveName(ctx, req, raw)
}

func (r *Resolver) resolveID(ctx context.Context, req Request, raw string) (State, error) {
	if req.ParentName != "" {
		return State{}, &AmbiguousArgumentError{Option: req.Option, ParentOption: req.ParentOption}
	}

	id, err := resourceid.Parse(raw)
	if err != nil {
		return State{}, err
	}
	ok, err := r.Service.Exists(ctx, id.ResourceGroup, id.FullName(), id.FullType())
	if err != nil {
		return State{}, errors.Wrapf(err, "check %s", raw)
	}
	if !ok {
		return State{}, &ResourceNotFoundError{ID: raw}
	}
	return State{Raw: raw, Kind: KindExisting, ID: id.String()}, nil
}

func (r *Resolver) resolveName(ctx context.Context, req Request, raw string) (State, error) {
	if req.ChildType != "" && req.ParentName == "" {
		return State{}, &MissingParentArgumentError{Option: req.Option, ParentOption: req.ParentOption}
	}

	id, err := r.candidate(req, raw)
	if err != nil {
		return State{}, err
	}
	ok, err := r.Service.Exists(ctx, id.ResourceGroup, id.FullName(), id.FullType())
	if err != nil {
		return State{}, errors.Wrapf(err, "check %s", raw)
	}
	switch {
	case ok:
		return State{Raw: raw, Kind: KindExisting, ID: id.String()}, nil
	case req.AllowNew:
		return State{Raw: raw, Kind: KindNew, ID: id.String()}, nil
	default:
		return State{}, &ResourceNotFoundError{ID: id.String(), Name: raw}
	}
}

// candidate 用名称、资源组和期望类型拼出资源 ID；子资源挂在父资源名下
func (r *Resolver) candidate(req Request, raw string) (resourceid.ID, error) {
	if r.Subscription == "" {
		return resourceid.ID{}, errors.WithHint(
			errors.Newf("cannot resolve %s '%s' without a subscription", req.Option, raw),
			"set defaults.subscription in the config file or pass --subscription")
	}
	if req.ResourceGroup == "" {
		return resourceid.ID{}, errors.WithHint(
			errors.Newf("cannot resolve %s '%s' without a resource group", req.Option, raw),
			"pass --resource-group or set defaults.resource_group")
	}
	ns, typ, err := resourceid.SplitType(req.ResourceType)
	if err != nil {
		return resourceid.ID{}, err
	}

	id := resourceid.ID{
		Subscription:  r.Subscription,
		ResourceGroup: req.ResourceGroup,
		Namespace:     ns,
		Type:          typ,
		Name:          raw,
	}
	if req.ChildType != "" {
		id.Name = req.ParentName
		id.ChildType = req.ChildType
		id.ChildName = raw
	}
	return id, nil
}

func isEmpty(s string) bool {
	return s == "" || s == `""` || s == "''"
}
