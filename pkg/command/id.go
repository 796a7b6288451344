package command

import (
	"context"

	"github.com/MakeNowJust/heredoc/v2"

	"github.com/glesirok/armedit/pkg/fold"
	"github.com/glesirok/armedit/pkg/resourceid"
)

// IDCommands 资源 ID 工具：parse、build 和 resolve
func IDCommands() *Registry {
	parse := Command{
		Key:   Key{Noun: "id", Verb: "parse"},
		Short: "Split a resource ID into its parts",
		Arguments: []Argument{
			{Dest: "value", Help: "The resource ID.", Required: true},
		},
		Handler: parseID,
	}

	build := Command{
		Key:   Key{Noun: "id", Verb: "build"},
		Short: "Build a resource ID from its parts",
		Arguments: []Argument{
			ResourceGroupArgument(),
			{Dest: "namespace", Help: "Provider namespace (Ex: 'Microsoft.Network').", Required: true},
			{Dest: "resource_type", Help: "The resource type (Ex: 'virtualNetworks/subnets').", Required: true},
			{Dest: "resource_name", Help: "The resource name (Ex: 'vnet1/subnet1').", Required: true},
		},
		Example: heredoc.Doc(`
			armedit id build -g MyResourceGroup --namespace Microsoft.Network --resource-type virtualNetworks/subnets --resource-name MyVnet/default
		`),
		Handler: buildID,
	}

	resolve := Command{
		Key:   Key{Noun: "id", Verb: "resolve"},
		Short: "Fold a resource name or ID into a canonical resource ID",
		Arguments: []Argument{
			ResourceGroupArgument(),
			{Dest: "resource_type", Help: "Expected type (Ex: 'Microsoft.Network/virtualNetworks').", Required: true},
			{Dest: "child_type", Help: "Child type under --resource-type (Ex: 'subnets')."},
			{Dest: "parent", Help: "Parent resource name for child resources."},
			{Dest: "value", Help: "Name or ID to resolve."},
		},
		Example: heredoc.Doc(`
			armedit id resolve -g MyResourceGroup --resource-type Microsoft.Network/virtualNetworks --child-type subnets --parent MyVnet --value default
		`),
		Handler: resolveID,
	}

	return NewRegistry().
		Group("id", "Work with resource IDs").
		MustRegister(parse, build, resolve)
}

func idView(id resourceid.ID) map[string]any {
	out := map[string]any{
		"id":            id.String(),
		"subscription":  id.Subscription,
		"resourceGroup": id.ResourceGroup,
		"namespace":     id.Namespace,
		"type":          id.Type,
		"name":          id.Name,
		"fullType":      id.FullType(),
	}
	if id.IsChild() {
		out["childType"] = id.ChildType
		out["childName"] = id.ChildName
	}
	return out
}

func parseID(_ context.Context, inv *Invocation) (any, error) {
	id, err := resourceid.Parse(inv.String("value"))
	if err != nil {
		return nil, err
	}
	return idView(id), nil
}

func buildID(_ context.Context, inv *Invocation) (any, error) {
	id, err := inv.ResourceID(inv.String("namespace"), inv.String("resource_type"), inv.String("resource_name"))
	if err != nil {
		return nil, err
	}
	return idView(id), nil
}

func resolveID(ctx context.Context, inv *Invocation) (any, error) {
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

	state, err := resolver.Resolve(ctx, fold.Request{
		Value:         inv.Value("value"),
		ResourceGroup: inv.String("resource_group"),
		ResourceType:  inv.String("resource_type"),
		ChildType:     inv.String("child_type"),
		ParentName:    inv.String("parent"),
		AllowNone:     true,
		AllowNew:      true,
		Option:        "--value",
		ParentOption:  "--parent",
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"kind": state.Kind.String(),
		"id":   state.ID,
	}, nil
}
