package envprobe

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// podmanCapability mirrors the docker capability for daemonless
// setups. Both can be available at once; the merge keeps both reports.
type podmanCapability struct{}

func (podmanCapability) Name() string     { return "podman" }
func (podmanCapability) Category() string { return "containers" }

func (podmanCapability) Keywords() []string {
	return []string{"podman", "container", "containers", "image", "images", "pod", "pods"}
}

func (podmanCapability) Probe(ctx context.Context, r *Runner) bool {
	return r.Probe(ctx, "podman", "version", "--format", "{{.Version}}")
}

func (podmanCapability) Query(ctx context.Context, r *Runner, question string) (*Report, error) {
	rep := &Report{
		Capability: "podman",
		Category:   "containers",
		Available:  true,
		Facts:      map[string]string{},
	}

	ver, err := r.Run(ctx, "podman", "version", "--format", "{{.Version}}")
	if err != nil {
		return nil, err
	}
	rep.Commands = append(rep.Commands, "podman version")
	version := strings.TrimSpace(ver.Stdout)
	if ver.ExitCode != 0 || version == "" {
		rep.Confidence = confWeak
		rep.Summary = "The podman client is installed but not responding."
		return rep, nil
	}
	rep.Facts["version"] = version

	ps, err := r.Run(ctx, "podman", "ps", "--format", "{{.Names}}\t{{.Image}}\t{{.Status}}")
	rep.Commands = append(rep.Commands, "podman ps")
	if err != nil || ps.ExitCode != 0 {
		rep.Confidence = confPartial
		rep.Summary = fmt.Sprintf("Podman %s is installed but listing containers failed.", version)
		return rep, nil
	}

	containers := nonEmptyLines(ps.Stdout)
	rep.Detail = strings.TrimSpace(ps.Stdout)
	rep.Facts["running_containers"] = strconv.Itoa(len(containers))
	rep.Confidence = confFull

	switch len(containers) {
	case 0:
		rep.Summary = fmt.Sprintf("Podman %s is running with no containers.", version)
	case 1:
		rep.Summary = fmt.Sprintf("Podman %s is running 1 container: %s.", version, firstField(containers[0]))
	default:
		rep.Summary = fmt.Sprintf("Podman %s is running %d containers.", version, len(containers))
	}
	return rep, nil
}
