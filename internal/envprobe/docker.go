package envprobe

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// dockerCapability inspects the Docker daemon. The probe asks for the
// server version, not just the client, so "available" means containers
// can actually be listed.
type dockerCapability struct{}

func (dockerCapability) Name() string     { return "docker" }
func (dockerCapability) Category() string { return "containers" }

func (dockerCapability) Keywords() []string {
	return []string{
		"docker", "dockerfile", "compose", "containerd",
		"container", "containers", "image", "images",
	}
}

func (dockerCapability) Probe(ctx context.Context, r *Runner) bool {
	return r.Probe(ctx, "docker", "version", "--format", "{{.Server.Version}}")
}

func (dockerCapability) Query(ctx context.Context, r *Runner, question string) (*Report, error) {
	rep := &Report{
		Capability: "docker",
		Category:   "containers",
		Available:  true,
		Facts:      map[string]string{},
	}

	ver, err := r.Run(ctx, "docker", "version", "--format", "{{.Server.Version}}")
	if err != nil {
		return nil, err
	}
	rep.Commands = append(rep.Commands, "docker version")
	version := strings.TrimSpace(ver.Stdout)
	if ver.ExitCode != 0 || version == "" {
		// Daemon was reachable at discovery but is not anymore.
		rep.Confidence = confWeak
		rep.Summary = "The docker client is installed but the daemon is not responding."
		return rep, nil
	}
	rep.Facts["server_version"] = version

	ps, err := r.Run(ctx, "docker", "ps", "--format", "{{.Names}}\t{{.Image}}\t{{.Status}}")
	rep.Commands = append(rep.Commands, "docker ps")
	if err != nil || ps.ExitCode != 0 {
		rep.Confidence = confPartial
		rep.Summary = fmt.Sprintf("Docker daemon %s is reachable but listing containers failed.", version)
		return rep, nil
	}

	containers := nonEmptyLines(ps.Stdout)
	rep.Detail = strings.TrimSpace(ps.Stdout)
	rep.Facts["running_containers"] = strconv.Itoa(len(containers))
	rep.Confidence = confFull

	switch len(containers) {
	case 0:
		rep.Summary = fmt.Sprintf("Docker %s is running with no containers.", version)
	case 1:
		rep.Summary = fmt.Sprintf("Docker %s is running 1 container: %s.", version, firstField(containers[0]))
	default:
		rep.Summary = fmt.Sprintf("Docker %s is running %d containers.", version, len(containers))
	}
	return rep, nil
}
