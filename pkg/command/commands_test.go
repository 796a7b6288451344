package command

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/glesirok/armedit/pkg/config"
	"github.com/glesirok/armedit/pkg/fold"
	"github.com/glesirok/armedit/pkg/logging"
	"github.com/glesirok/armedit/pkg/mgmt"
	"github.com/glesirok/armedit/pkg/path"
	"github.com/glesirok/armedit/pkg/resourceid"
)

const (
	sub      = "00000000-0000-0000-0000-000000000000"
	network  = "/subscriptions/" + sub + "/resourceGroups/rg/providers/Microsoft.Network/"
	vnetID   = network + "virtualNetworks/vnet1"
	subnetID = vnetID + "/subnets/default"
	backend  = vnetID + "/subnets/backend"
	nsgID    = network + "networkSecurityGroups/nsg1"
	nicID    = network + "networkInterfaces/nic1"
)

func init() {
	color.NoColor = true
}

type harness struct {
	t         *testing.T
	storePath string
	rt        *Runtime
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	storePath := filepath.Join(t.TempDir(), "store.yaml")
	store, err := mgmt.NewLocalStore(storePath)
	require.NoError(t, err)

	seed := map[string]map[string]any{
		vnetID: {
			"name": "vnet1",
			"tags": map[string]any{"env": "dev"},
			"properties": map[string]any{
				"dhcpOptions": map[string]any{"dnsServers": []any{}},
			},
		},
		subnetID: {"name": "default"},
		backend:  {"name": "backend"},
		nsgID:    {"name": "nsg1"},
		nicID: {
			"name": "nic1",
			"properties": map[string]any{
				"networkSecurityGroup": map[string]any{"id": nsgID},
				"ipConfigurations": []any{
					map[string]any{"name": "ipconfig1", "properties": map[string]any{"subnet": map[string]any{"id": subnetID}}},
					map[string]any{"name": "ipconfig2", "properties": map[string]any{}},
				},
			},
		},
	}
	for raw, body := range seed {
		id, err := resourceid.Parse(raw)
		require.NoError(t, err)
		_, err = store.Update(context.Background(), id, body)
		require.NoError(t, err)
	}

	cfg := config.Defaults()
	cfg.Defaults.Subscription = sub
	cfg.Store.Path = storePath

	return &harness{
		t:         t,
		storePath: storePath,
		rt: &Runtime{
			Config: &cfg,
			Output: "json",
			Services: func(context.Context, string) (mgmt.Service, error) {
				return mgmt.NewLocalStore(storePath)
			},
		},
	}
}

// run 像命令行一样执行，返回 stdout 和 stderr
func (h *harness) run(args ...string) (string, string, error) {
	h.t.Helper()
	reg := NewRegistry()
	for _, r := range []*Registry{ResourceCommands(), NetworkCommands(), FileCommands(), IDCommands()} {
		require.NoError(h.t, reg.Merge(r))
	}

	root := &cobra.Command{Use: "armedit", SilenceErrors: true, SilenceUsage: true}
	reg.Build(root, h.rt)

	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(GroupArgs(args, reg.GroupFlags()))

	logger := logging.New(logging.Config{Level: "warn", Format: "text"}, &stderr)
	err := root.ExecuteContext(logging.NewContext(context.Background(), logger))
	return stdout.String(), stderr.String(), err
}

func (h *harness) get(raw string) map[string]any {
	h.t.Helper()
	store, err := mgmt.NewLocalStore(h.storePath)
	require.NoError(h.t, err)
	id, err := resourceid.Parse(raw)
	require.NoError(h.t, err)
	body, err := store.Get(context.Background(), id)
	require.NoError(h.t, err)
	return body
}

func decode(t *testing.T, out string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	return v
}

func ipConfig(body map[string]any, i int) map[string]any {
	configs := body["properties"].(map[string]any)["ipConfigurations"].([]any)
	return configs[i].(map[string]any)["properties"].(map[string]any)
}

func TestResourceShow(t *testing.T) {
	h := newHarness(t)

	out, _, err := h.run("resource", "show", "-g", "rg", "--namespace", "Microsoft.Network",
		"--resource-type", "virtualNetworks", "-n", "vnet1")
	require.NoError(t, err)
	require.Equal(t, "vnet1", decode(t, out).(map[string]any)["name"])
}

func TestResourceShowDefaultResourceGroup(t *testing.T) {
	h := newHarness(t)
	h.rt.Config.Defaults.ResourceGroup = "rg"

	out, _, err := h.run("resource", "show", "--namespace", "Microsoft.Network",
		"--resource-type", "virtualNetworks/subnets", "-n", "vnet1/backend")
	require.NoError(t, err)
	require.Equal(t, "backend", decode(t, out).(map[string]any)["name"])
}

func TestResourceShowIDs(t *testing.T) {
	h := newHarness(t)

	out, _, err := h.run("resource", "show", "--ids", vnetID, subnetID)
	require.NoError(t, err)

	list := decode(t, out).([]any)
	require.Len(t, list, 2)
	require.Equal(t, "vnet1", list[0].(map[string]any)["name"])
	require.Equal(t, "default", list[1].(map[string]any)["name"])
}

func TestResourceShowPipedJSON(t *testing.T) {
	h := newHarness(t)

	out, _, err := h.run("resource", "show", "--ids",
		"[", "{", `"id":`, `"`+nsgID+`",`, `"name":`, `"nsg1"`, "},", "{", `"id":`, `"`+nicID+`"`, "}", "]")
	require.NoError(t, err)
	require.Len(t, decode(t, out).([]any), 2)
}

func TestResourceUpdateIDsFromLines(t *testing.T) {
	h := newHarness(t)

	out, _, err := h.run("resource", "update", "--ids", vnetID+"\n"+nsgID+"\n", "--set", "tags.env=prod")
	require.NoError(t, err)
	require.Len(t, decode(t, out).([]any), 2)
	require.Equal(t, map[string]any{"env": "prod"}, h.get(vnetID)["tags"])
	require.Equal(t, map[string]any{"env": "prod"}, h.get(nsgID)["tags"])
}

func TestResourceShowOutputFormats(t *testing.T) {
	h := newHarness(t)

	h.rt.Output = "yaml"
	out, _, err := h.run("resource", "show", "--ids", nsgID)
	require.NoError(t, err)
	require.Equal(t, "name: nsg1\n", out)

	h.rt.Output = "none"
	out, _, err = h.run("resource", "show", "--ids", nsgID)
	require.NoError(t, err)
	require.Empty(t, out)

	h.rt.Output = "table"
	_, _, err = h.run("resource", "show", "--ids", nsgID)
	require.ErrorContains(t, err, `unknown output format "table"`)
}

func TestRequiredArguments(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run("resource", "show", "-n", "vnet1")
	require.EqualError(t, err, "(--resource-group --namespace --resource-type | --ids) are required")

	_, _, err = h.run("id", "parse")
	require.EqualError(t, err, "the following arguments are required: --value")
}

func TestIDsIgnoresIDArguments(t *testing.T) {
	h := newHarness(t)

	out, stderr, err := h.run("resource", "show", "-n", "other", "--ids", vnetID)
	require.NoError(t, err)
	require.Contains(t, stderr, "option '--name' will be ignored due to use of '--ids'.")
	require.Equal(t, "vnet1", decode(t, out).(map[string]any)["name"])
}

func TestIDsErrors(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run("resource", "show", "--ids", "bogus")
	require.ErrorContains(t, err, "invalid resource ID: bogus")

	_, _, err = h.run("resource", "show", "--ids", "/subscriptions/"+sub+"/providers/Microsoft.Network/virtualNetworks/vnet1")
	require.ErrorContains(t, err, "Argument --resource-group cannot be derived from ID")
}

func TestResourceExists(t *testing.T) {
	h := newHarness(t)

	out, _, err := h.run("resource", "exists", "--ids", backend)
	require.NoError(t, err)
	require.Equal(t, true, decode(t, out))

	out, _, err = h.run("resource", "exists", "-g", "rg", "--namespace", "Microsoft.Network",
		"--resource-type", "virtualNetworks", "-n", "vnet2")
	require.NoError(t, err)
	require.Equal(t, false, decode(t, out))
}

func TestResourceUpdate(t *testing.T) {
	h := newHarness(t)

	out, stderr, err := h.run("resource", "update", "--ids", vnetID,
		"--set", "tags.env=prod", "tags.team=net",
		"--add", "properties.dhcpOptions.dnsServers", "10.0.0.4")
	require.NoError(t, err)
	require.Contains(t, stderr, "✓ Updated: "+vnetID)

	stored := h.get(vnetID)
	require.Equal(t, map[string]any{"env": "prod", "team": "net"}, stored["tags"])
	require.Equal(t, []any{"10.0.0.4"}, stored["properties"].(map[string]any)["dhcpOptions"].(map[string]any)["dnsServers"])
	require.Equal(t, stored["tags"], decode(t, out).(map[string]any)["tags"])
}

func TestResourceUpdateRulesFile(t *testing.T) {
	h := newHarness(t)
	rules := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(rules, []byte(`
rules:
  - action: remove
    path: tags.env
  - action: add
    path: properties.dhcpOptions.dnsServers
    args: ["10.0.0.5"]
`), 0644))

	_, _, err := h.run("resource", "update", "--ids", vnetID, "--rules", rules,
		"--add", "properties.dhcpOptions.dnsServers", "10.0.0.4")
	require.NoError(t, err)

	stored := h.get(vnetID)
	require.Empty(t, stored["tags"])
	require.Equal(t, []any{"10.0.0.4", "10.0.0.5"}, stored["properties"].(map[string]any)["dhcpOptions"].(map[string]any)["dnsServers"])
}

func TestResourceUpdateDryRun(t *testing.T) {
	h := newHarness(t)

	out, _, err := h.run("resource", "update", "--ids", vnetID, "--set", "tags.env=prod", "--dry-run")
	require.NoError(t, err)
	require.Contains(t, out, "=== Dry-run: "+vnetID+" ===")
	require.Contains(t, out, `"env": "prod"`)
	require.Equal(t, map[string]any{"env": "dev"}, h.get(vnetID)["tags"])
}

func TestResourceUpdateFailureWritesNothing(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run("resource", "update", "--ids", vnetID,
		"--set", "tags.env=prod",
		"--remove", "properties.dhcpOptions.dnsServers", "5")
	var outOfRange *path.IndexOutOfRangeError
	require.ErrorAs(t, err, &outOfRange)
	require.Equal(t, map[string]any{"env": "dev"}, h.get(vnetID)["tags"])
}

func TestNICUpdateSubnetByName(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run("network", "nic", "update", "-g", "rg", "-n", "nic1", "--subnet", "backend", "--vnet-name", "vnet1")
	require.NoError(t, err)

	stored := h.get(nicID)
	require.Equal(t, map[string]any{"id": backend}, ipConfig(stored, 0)["subnet"])
	require.Nil(t, ipConfig(stored, 1)["subnet"])
}

func TestNICUpdateSubnetByID(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run("network", "nic", "update", "--ids", nicID, "--subnet", backend, "--ip-config-name", "ipconfig2")
	require.NoError(t, err)

	stored := h.get(nicID)
	require.Equal(t, map[string]any{"id": subnetID}, ipConfig(stored, 0)["subnet"])
	require.Equal(t, map[string]any{"id": backend}, ipConfig(stored, 1)["subnet"])
}

func TestNICUpdateSubnetErrors(t *testing.T) {
	h := newHarness(t)
	base := []string{"network", "nic", "update", "-g", "rg", "-n", "nic1"}

	_, _, err := h.run(append(base, "--subnet", backend, "--vnet-name", "vnet1")...)
	var ambiguous *fold.AmbiguousArgumentError
	require.ErrorAs(t, err, &ambiguous)
	require.EqualError(t, err, "usage error: --subnet ID | --subnet NAME --vnet-name NAME")

	_, _, err = h.run(append(base, "--subnet", "backend")...)
	var missingParent *fold.MissingParentArgumentError
	require.ErrorAs(t, err, &missingParent)

	_, _, err = h.run(append(base, "--subnet", "frontend", "--vnet-name", "vnet1")...)
	var notFound *fold.ResourceNotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, vnetID+"/subnets/frontend", notFound.ID)

	_, _, err = h.run(append(base, "--subnet", vnetID+"/subnets/frontend")...)
	require.ErrorContains(t, err, "ID "+vnetID+"/subnets/frontend does not exist.")

	_, _, err = h.run(append(base, "--subnet", "")...)
	require.EqualError(t, err, "--subnet cannot be empty")

	require.Equal(t, map[string]any{"id": subnetID}, ipConfig(h.get(nicID), 0)["subnet"])
}

func TestNICUpdateDetachNSG(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run("network", "nic", "update", "-g", "rg", "-n", "nic1", "--network-security-group", "", "--set", "tags.owner=me")
	require.NoError(t, err)

	stored := h.get(nicID)
	props := stored["properties"].(map[string]any)
	require.Contains(t, props, "networkSecurityGroup")
	require.Nil(t, props["networkSecurityGroup"])
	require.Equal(t, map[string]any{"owner": "me"}, stored["tags"])
	require.Equal(t, map[string]any{"id": subnetID}, ipConfig(stored, 0)["subnet"])
}

func TestNICUpdateDryRunLeavesStore(t *testing.T) {
	h := newHarness(t)

	out, _, err := h.run("network", "nic", "update", "-g", "rg", "-n", "nic1",
		"--subnet", "backend", "--vnet-name", "vnet1", "--dry-run")
	require.NoError(t, err)
	require.Contains(t, out, backend)
	require.Equal(t, map[string]any{"id": subnetID}, ipConfig(h.get(nicID), 0)["subnet"])
}

func TestIDCommands(t *testing.T) {
	h := newHarness(t)

	out, _, err := h.run("id", "parse", "--value", subnetID)
	require.NoError(t, err)
	parts := decode(t, out).(map[string]any)
	require.Equal(t, "vnet1", parts["name"])
	require.Equal(t, "subnets", parts["childType"])
	require.Equal(t, "Microsoft.Network/virtualNetworks/subnets", parts["fullType"])

	out, _, err = h.run("id", "build", "-g", "rg", "--namespace", "Microsoft.Network",
		"--resource-type", "virtualNetworks/subnets", "--resource-name", "vnet1/default")
	require.NoError(t, err)
	require.Equal(t, subnetID, decode(t, out).(map[string]any)["id"])

	_, _, err = h.run("id", "build", "-g", "rg", "--namespace", "Microsoft.Network",
		"--resource-type", "virtualNetworks/subnets", "--resource-name", "vnet1")
	require.ErrorContains(t, err, "does not match resource name")
}

func TestIDResolve(t *testing.T) {
	h := newHarness(t)
	base := []string{"id", "resolve", "-g", "rg", "--resource-type", "Microsoft.Network/virtualNetworks"}

	tests := []struct {
		name string
		args []string
		kind string
		id   string
	}{
		{name: "existing name", args: []string{"--value", "vnet1"}, kind: "existing", id: vnetID},
		{name: "new name", args: []string{"--value", "vnet2"}, kind: "new", id: network + "virtualNetworks/vnet2"},
		{name: "child", args: []string{"--child-type", "subnets", "--parent", "vnet1", "--value", "default"}, kind: "existing", id: subnetID},
		{name: "cleared", args: []string{"--value", ""}, kind: "cleared"},
		{name: "absent", kind: "none"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := h.run(append(append([]string{}, base...), tt.args...)...)
			require.NoError(t, err)
			got := decode(t, out).(map[string]any)
			require.Equal(t, tt.kind, got["kind"])
			require.Equal(t, tt.id, got["id"])
		})
	}
}

func TestFileEdit(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	file := filepath.Join(dir, "vnet.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"name": "vnet1", "tags": {"env": "dev"}}`), 0644))

	_, stderr, err := h.run("file", "edit", "-i", file, "--set", "tags.env=prod", "--backup")
	require.NoError(t, err)
	require.Contains(t, stderr, "✓ Processed: "+file)

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	require.JSONEq(t, `{"name": "vnet1", "tags": {"env": "prod"}}`, string(data))

	backup, err := os.ReadFile(file + ".bak")
	require.NoError(t, err)
	require.JSONEq(t, `{"name": "vnet1", "tags": {"env": "dev"}}`, string(backup))
}

func TestFileEditDirectory(t *testing.T) {
	h := newHarness(t)
	in, out := t.TempDir(), filepath.Join(t.TempDir(), "out")
	require.NoError(t, os.WriteFile(filepath.Join(in, "nsg.yaml"), []byte("name: nsg1\n"), 0644))

	_, stderr, err := h.run("file", "edit", "-i", in, "--output-path", out, "--set", "tags.env=prod")
	require.NoError(t, err)
	require.Contains(t, stderr, "✓ All files processed successfully")

	data, err := os.ReadFile(filepath.Join(out, "nsg.yaml"))
	require.NoError(t, err)
	require.Contains(t, string(data), "env: prod")
}
