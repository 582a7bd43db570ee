package envprobe

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ansibleCapability inspects Ansible and its configured inventory.
type ansibleCapability struct{}

func (ansibleCapability) Name() string     { return "ansible" }
func (ansibleCapability) Category() string { return "automation" }

func (ansibleCapability) Keywords() []string {
	return []string{"ansible", "playbook", "playbooks", "inventory", "provisioning", "role", "roles"}
}

func (ansibleCapability) Probe(ctx context.Context, r *Runner) bool {
	return r.Probe(ctx, "ansible", "--version")
}

func (ansibleCapability) Query(ctx context.Context, r *Runner, question string) (*Report, error) {
	rep := &Report{
		Capability: "ansible",
		Category:   "automation",
		Available:  true,
		Facts:      map[string]string{},
	}

	ver, err := r.Run(ctx, "ansible", "--version")
	if err != nil {
		return nil, err
	}
	rep.Commands = append(rep.Commands, "ansible --version")

	// First line reads like "ansible [core 2.17.3]".
	version := "ansible"
	if lines := nonEmptyLines(ver.Stdout); len(lines) > 0 {
		version = lines[0]
	}
	rep.Facts["version"] = version

	inv, err := r.Run(ctx, "ansible-inventory", "--list")
	rep.Commands = append(rep.Commands, "ansible-inventory --list")
	if err != nil || inv.ExitCode != 0 {
		rep.Confidence = confPartial
		rep.Summary = fmt.Sprintf("%s is installed but the inventory could not be read.", version)
		return rep, nil
	}

	hosts := countInventoryHosts(inv.Stdout)
	if hosts < 0 {
		rep.Confidence = confPartial
		rep.Summary = fmt.Sprintf("%s is installed but the inventory output was not parseable.", version)
		return rep, nil
	}

	rep.Facts["inventory_hosts"] = strconv.Itoa(hosts)
	rep.Confidence = confFull
	switch hosts {
	case 0:
		rep.Summary = fmt.Sprintf("%s is installed; the inventory is empty.", version)
	case 1:
		rep.Summary = fmt.Sprintf("%s is installed; the inventory defines 1 host.", version)
	default:
		rep.Summary = fmt.Sprintf("%s is installed; the inventory defines %d hosts.", version, hosts)
	}
	return rep, nil
}

// countInventoryHosts counts hosts in ansible-inventory JSON output.
// Returns -1 when the output is not the expected shape.
func countInventoryHosts(raw string) int {
	var doc struct {
		Meta struct {
			Hostvars map[string]json.RawMessage `json:"hostvars"`
		} `json:"_meta"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &doc); err != nil {
		return -1
	}
	return len(doc.Meta.Hostvars)
}
