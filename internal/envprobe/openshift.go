package envprobe

import (
	"context"
	"fmt"
	"strings"
)

// openshiftCapability inspects OpenShift through oc. Clusters running
// plain Kubernetes are covered by kubectl; oc adds login identity and
// the active project, which plain kubectl cannot report.
type openshiftCapability struct{}

func (openshiftCapability) Name() string     { return "oc" }
func (openshiftCapability) Category() string { return "cluster" }

func (openshiftCapability) Keywords() []string {
	return []string{"openshift", "oc", "okd", "route", "routes", "operator", "operators"}
}

func (openshiftCapability) Probe(ctx context.Context, r *Runner) bool {
	return r.Probe(ctx, "oc", "version", "--client")
}

func (openshiftCapability) Query(ctx context.Context, r *Runner, question string) (*Report, error) {
	rep := &Report{
		Capability: "oc",
		Category:   "cluster",
		Available:  true,
		Facts:      map[string]string{},
	}

	who, err := r.Run(ctx, "oc", "whoami")
	if err != nil {
		return nil, err
	}
	rep.Commands = append(rep.Commands, "oc whoami")
	if who.ExitCode != 0 {
		rep.Confidence = confWeak
		rep.Summary = "The oc client is installed but not logged in to any OpenShift cluster."
		return rep, nil
	}
	user := strings.TrimSpace(who.Stdout)
	rep.Facts["user"] = user

	proj, err := r.Run(ctx, "oc", "project", "-q")
	rep.Commands = append(rep.Commands, "oc project")
	if err != nil || proj.ExitCode != 0 {
		rep.Confidence = confPartial
		rep.Summary = fmt.Sprintf("OpenShift session for %s is active but no project is selected.", user)
		return rep, nil
	}

	project := strings.TrimSpace(proj.Stdout)
	rep.Facts["project"] = project
	rep.Confidence = confFull
	rep.Summary = fmt.Sprintf("OpenShift is reachable as %s with project %q selected.", user, project)
	return rep, nil
}
