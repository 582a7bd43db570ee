package envprobe

import (
	"context"
	"fmt"
	"strings"
)

// hostinfoCapability answers questions about the host itself: kernel,
// architecture, CPU count, uptime. It is the one capability expected
// to be available nearly everywhere.
type hostinfoCapability struct{}

func (hostinfoCapability) Name() string     { return "hostinfo" }
func (hostinfoCapability) Category() string { return "host" }

func (hostinfoCapability) Keywords() []string {
	return []string{
		"host", "hostname", "os", "kernel", "linux", "machine",
		"system", "architecture", "cpu", "cpus", "cores",
		"processor", "processors", "uptime", "load",
	}
}

func (hostinfoCapability) Probe(ctx context.Context, r *Runner) bool {
	return r.Probe(ctx, "uname", "-s")
}

func (hostinfoCapability) Query(ctx context.Context, r *Runner, question string) (*Report, error) {
	rep := &Report{
		Capability: "hostinfo",
		Category:   "host",
		Available:  true,
		Facts:      map[string]string{},
	}

	uname, err := r.Run(ctx, "uname", "-srm")
	if err != nil {
		return nil, err
	}
	rep.Commands = append(rep.Commands, "uname -srm")
	kernel := strings.TrimSpace(uname.Stdout)
	if uname.ExitCode != 0 || kernel == "" {
		rep.Confidence = confWeak
		rep.Summary = "The host kernel could not be identified."
		return rep, nil
	}
	rep.Facts["kernel"] = kernel
	rep.Confidence = confPartial
	rep.Summary = fmt.Sprintf("The host runs %s.", kernel)

	// CPU count and uptime are enrichment; their absence does not
	// degrade the kernel answer.
	if nproc, err := r.Run(ctx, "nproc"); err == nil && nproc.ExitCode == 0 {
		rep.Commands = append(rep.Commands, "nproc")
		if cpus := strings.TrimSpace(nproc.Stdout); cpus != "" {
			rep.Facts["cpus"] = cpus
			rep.Confidence = confFull
			rep.Summary = fmt.Sprintf("The host runs %s with %s CPUs.", kernel, cpus)
		}
	}

	if up, err := r.Run(ctx, "uptime"); err == nil && up.ExitCode == 0 {
		rep.Commands = append(rep.Commands, "uptime")
		rep.Detail = strings.TrimSpace(up.Stdout)
	}

	return rep, nil
}
