package envprobe

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// kubectlCapability inspects Kubernetes through kubectl. The probe
// only checks the client binary; whether a cluster is reachable is
// decided at query time, because an unreachable cluster is itself an
// answer worth reporting.
type kubectlCapability struct{}

func (kubectlCapability) Name() string     { return "kubectl" }
func (kubectlCapability) Category() string { return "cluster" }

func (kubectlCapability) Keywords() []string {
	return []string{
		"kubernetes", "k8s", "kubectl", "cluster", "node", "nodes",
		"pod", "pods", "namespace", "deployment", "helm",
	}
}

func (kubectlCapability) Probe(ctx context.Context, r *Runner) bool {
	return r.Probe(ctx, "kubectl", "version", "--client", "-o", "json")
}

func (kubectlCapability) Query(ctx context.Context, r *Runner, question string) (*Report, error) {
	rep := &Report{
		Capability: "kubectl",
		Category:   "cluster",
		Available:  true,
		Facts:      map[string]string{},
	}

	cur, err := r.Run(ctx, "kubectl", "config", "current-context")
	if err != nil {
		return nil, err
	}
	rep.Commands = append(rep.Commands, "kubectl config current-context")
	if cur.ExitCode != 0 {
		rep.Confidence = confWeak
		rep.Summary = "kubectl is installed but no cluster context is configured."
		return rep, nil
	}
	kctx := strings.TrimSpace(cur.Stdout)
	rep.Facts["context"] = kctx

	nodes, err := r.Run(ctx, "kubectl", "get", "nodes", "-o", "wide", "--no-headers")
	rep.Commands = append(rep.Commands, "kubectl get nodes")
	if err != nil || nodes.ExitCode != 0 {
		rep.Confidence = confPartial
		rep.Summary = fmt.Sprintf("kubectl context %q is set but the cluster did not respond.", kctx)
		return rep, nil
	}

	nodeLines := nonEmptyLines(nodes.Stdout)
	rep.Detail = strings.TrimSpace(nodes.Stdout)
	rep.Facts["nodes"] = strconv.Itoa(len(nodeLines))
	rep.Confidence = confFull

	if len(nodeLines) == 1 {
		rep.Summary = fmt.Sprintf("Kubernetes context %q is reachable with 1 node.", kctx)
	} else {
		rep.Summary = fmt.Sprintf("Kubernetes context %q is reachable with %d nodes.", kctx, len(nodeLines))
	}
	return rep, nil
}
