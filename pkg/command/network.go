package command

import (
	"context"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/cockroachdb/errors"

	"github.com/glesirok/armedit/pkg/fold"
	"github.com/glesirok/armedit/pkg/path"
	"github.com/glesirok/armedit/pkg/processor"
)

const (
	networkNamespace = "Microsoft.Network"
	vnetType         = networkNamespace + "/virtualNetworks"
	nsgType          = networkNamespace + "/networkSecurityGroups"
)

// NetworkCommands network nic update 演示 "名称或 ID" 参数的折叠
func NetworkCommands() *Registry {
	update := RegisterPathMutationArguments(Command{
		Key:   Key{Noun: "network nic", Verb: "update"},
		Short: "Update a network interface",
		Arguments: []Argument{
			ResourceGroupArgument(),
			NameArgument("The network interface (NIC)."),
			FoldNameOrID("subnet",
				"Name or ID of an existing subnet. If name is specified, also specify --vnet-name.",
				FoldSpec{ResourceType: vnetType, ChildType: "subnets", ParentDest: "vnet_name"}),
			{
				Dest: "vnet_name",
				Help: "The virtual network (VNet) associated with the subnet (Omit if supplying a subnet id).",
			},
			FoldNameOrID("network_security_group",
				`Name or ID of an existing network security group, or "" to detach it.`,
				FoldSpec{ResourceType: nsgType, AllowNone: true}),
			{
				Dest: "ip_config_name",
				Help: "Name of the IP configuration the subnet is applied to.",
			},
		},
		Example: heredoc.Doc(`
			# Move the primary IP configuration to another subnet
			armedit network nic update -g MyResourceGroup -n MyNic --subnet MySubnet --vnet-name MyVnet

			# Same, with a subnet ID
			armedit network nic update -g MyResourceGroup -n MyNic --subnet /subscriptions/{sub}/resourceGroups/MyResourceGroup/providers/Microsoft.Network/virtualNetworks/MyVnet/subnets/MySubnet

			# Detach the network security group and tag the NIC
			armedit network nic update -g MyResourceGroup -n MyNic --network-security-group "" --set tags.owner=me
		`),
		Handler: updateNIC,
	})

	return NewRegistry().
		Group("network", "Manage Azure Network resources").
		Group("network nic", "Manage network interfaces").
		MustRegister(update)
}

func updateNIC(ctx context.Context, inv *Invocation) (any, error) {
	id, err := inv.ResourceID(networkNamespace, "networkInterfaces", inv.String("name"))
	if err != nil {
		return nil, err
	}

	subnet, err := referenceMutator(inv.Fold("subnet"), subnetPath(inv))
	if err != nil {
		return nil, err
	}
	nsg, err := referenceMutator(inv.Fold("network_security_group"), "properties.networkSecurityGroup")
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

	result, err := proc.UpdateResource(ctx, svc, id, inv.Bool("dry_run"), subnet, nsg)
	if err != nil || inv.Bool("dry_run") {
		return nil, err
	}
	return result, nil
}

// subnetPath 指定了 IP 配置名称时按名称定位，否则取第一个
func subnetPath(inv *Invocation) string {
	if name := inv.String("ip_config_name"); name != "" {
		return "properties.ipConfigurations[name=" + name + "].properties.subnet"
	}
	return "properties.ipConfigurations[0].properties.subnet"
}

// referenceMutator 已存在的资源写成 {"id": ...}，显式置空写成 null，未提供时不修改
func referenceMutator(state *fold.State, target string) (processor.Mutator, error) {
	noop := func(body map[string]any) (map[string]any, error) { return body, nil }
	if state == nil {
		return noop, nil
	}

	var value any
	switch state.Kind {
	case fold.KindNone:
		return noop, nil
	case fold.KindCleared:
		value = nil
	case fold.KindExisting:
		id, err := state.Consume()
		if err != nil {
			return nil, err
		}
		value = map[string]any{"id": id}
	default:
		return nil, errors.Newf("%s '%s' does not exist", target, state.Raw)
	}

	p, err := path.Parse(target)
	if err != nil {
		return nil, err
	}
	nav := &path.Navigator{}
	return func(body map[string]any) (map[string]any, error) {
		root, err := nav.Set(body, p, value)
		if err != nil {
			return nil, err
		}
		return root.(map[string]any), nil
	}, nil
}
