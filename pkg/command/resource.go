package command

import (
	"context"

	"github.com/MakeNowJust/heredoc/v2"

	"github.com/glesirok/armedit/pkg/resourceid"
)

// ResourceCommands 通用资源命令：show、exists 和 update
func ResourceCommands() *Registry {
	idArgs := []Argument{
		ResourceGroupArgument(),
		{
			Dest:     "namespace",
			Help:     "Provider namespace (Ex: 'Microsoft.Network').",
			Required: true,
			IDPart:   IDPartNamespace,
		},
		{
			Dest:     "resource_type",
			Help:     "The resource type (Ex: 'virtualNetworks' or 'virtualNetworks/subnets').",
			Required: true,
			IDPart:   IDPartType,
		},
		NameArgument("The resource name. Child resources are written as parent/child (Ex: 'vnet1/subnet1')."),
	}

	show := Command{
		Key:       Key{Noun: "resource", Verb: "show"},
		Short:     "Get the details of a resource",
		Arguments: idArgs,
		Example: heredoc.Doc(`
			# Show a virtual network
			armedit resource show -g MyResourceGroup --namespace Microsoft.Network --resource-type virtualNetworks -n MyVnet

			# Show a subnet by ID
			armedit resource show --ids /subscriptions/{sub}/resourceGroups/MyResourceGroup/providers/Microsoft.Network/virtualNetworks/MyVnet/subnets/default
		`),
		Handler: showResource,
	}

	exists := Command{
		Key:       Key{Noun: "resource", Verb: "exists"},
		Short:     "Check whether a resource exists",
		Arguments: idArgs,
		Handler:   resourceExists,
	}

	update := RegisterPathMutationArguments(Command{
		Key:       Key{Noun: "resource", Verb: "update"},
		Short:     "Update a resource by setting, adding or removing properties",
		Arguments: idArgs,
		Long: heredoc.Doc(`
			Fetch the resource, apply --set, then --add, then --remove in memory and write the
			whole representation back. Nothing is written when any directive fails.
		`),
		Example: heredoc.Doc(`
			# Tag a virtual network and add a DNS server
			armedit resource update -g MyResourceGroup --namespace Microsoft.Network --resource-type virtualNetworks -n MyVnet \
			  --set tags.env=prod --add properties.dhcpOptions.dnsServers 10.0.0.4

			# Remove the first security rule of every NSG listed in a file, one ID per line
			armedit resource update --ids "$(cat nsg-ids.txt)" --remove properties.securityRules 0

			# Preview the change
			armedit resource update --ids {id} --set properties.enableFlowLogs=true --dry-run
		`),
		Handler: updateResource,
	})

	return NewRegistry().
		Group("resource", "Manage Azure resources").
		MustRegister(show, exists, update)
}

func genericID(inv *Invocation) (resourceid.ID, error) {
	return inv.ResourceID(inv.String("namespace"), inv.String("resource_type"), inv.String("name"))
}

func showResource(ctx context.Context, inv *Invocation) (any, error) {
	id, err := genericID(inv)
	if err != nil {
		return nil, err
	}
	svc, err := inv.Service(ctx)
	if err != nil {
		return nil, err
	}
	return svc.Get(ctx, id)
}

func resourceExists(ctx context.Context, inv *Invocation) (any, error) {
	id, err := genericID(inv)
	if err != nil {
		return nil, err
	}
	svc, err := inv.Service(ctx)
	if err != nil {
		return nil, err
	}
	return svc.Exists(ctx, id.ResourceGroup, id.FullName(), id.FullType())
}

func updateResource(ctx context.Context, inv *Invocation) (any, error) {
	id, err := genericID(inv)
	if err != nil {
		return nil, err
	}
	proc, err := inv.Processor()
	if err != nil {
		return nil, err
	}
	svc, err := inv.Service(ctx)
	if err != nil {
		return nil, err
	}

	result, err := proc.UpdateResource(ctx, svc, id, inv.Bool("dry_run"))
	if err != nil || inv.Bool("dry_run") {
		return nil, err
	}
	return result, nil
}
