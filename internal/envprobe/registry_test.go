package envprobe

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const dockerStub = `case "$1" in
  version) echo "27.1.1" ;;
  ps) printf "web\tnginx:1.27\tUp 2 hours\n" ;;
esac`

const podmanStub = `case "$1" in
  version) echo "5.2.0" ;;
  ps) : ;;
esac`

func TestSnapshotReportsAvailability(t *testing.T) {
	dir := t.TempDir()
	stubTool(t, dir, "docker", dockerStub)
	stubTool(t, dir, "uname", "echo Linux")
	t.Setenv("PATH", dir)

	reg := NewRegistry(DefaultRunnerConfig(), nil)
	statuses := reg.Snapshot(context.Background())

	if len(statuses) != 6 {
		t.Fatalf("got %d capabilities, want 6", len(statuses))
	}
	for i := 1; i < len(statuses); i++ {
		if statuses[i-1].Name > statuses[i].Name {
			t.Fatalf("snapshot not sorted: %q before %q", statuses[i-1].Name, statuses[i].Name)
		}
	}

	avail := make(map[string]bool)
	for _, s := range statuses {
		avail[s.Name] = s.Available
	}
	if !avail["docker"] || !avail["hostinfo"] {
		t.Errorf("stubbed tools not available: %v", avail)
	}
	if avail["kubectl"] || avail["podman"] || avail["oc"] || avail["ansible"] {
		t.Errorf("missing tools reported available: %v", avail)
	}
}

func TestDiscoverRunsOnce(t *testing.T) {
	dir := t.TempDir()
	stubTool(t, dir, "docker", `echo probe >> "$HOME/probes.txt"
exit 0`)
	t.Setenv("PATH", dir)
	t.Setenv("HOME", dir)

	reg := NewRegistry(DefaultRunnerConfig(), nil)
	ctx := context.Background()
	reg.Discover(ctx)
	reg.Discover(ctx)
	reg.Snapshot(ctx)

	data, err := os.ReadFile(filepath.Join(dir, "probes.txt"))
	if err != nil {
		t.Fatalf("probe never ran: %v", err)
	}
	if got := len(nonEmptyLines(string(data))); got != 1 {
		t.Errorf("docker probed %d times, want 1", got)
	}
}

func TestQueryRoutesByKeyword(t *testing.T) {
	dir := t.TempDir()
	stubTool(t, dir, "docker", dockerStub)
	t.Setenv("PATH", dir)

	reg := NewRegistry(DefaultRunnerConfig(), nil)
	res := reg.Query(context.Background(), "is docker running")

	if len(res.Reports) != 1 {
		t.Fatalf("got %d reports, want 1: %+v", len(res.Reports), res.Reports)
	}
	rep := res.Reports[0]
	if rep.Capability != "docker" {
		t.Errorf("capability = %q, want docker", rep.Capability)
	}
	if rep.Facts["server_version"] != "27.1.1" {
		t.Errorf("server_version = %q, want 27.1.1", rep.Facts["server_version"])
	}
	if rep.Facts["running_containers"] != "1" {
		t.Errorf("running_containers = %q, want 1", rep.Facts["running_containers"])
	}
	if res.Confidence != confFull {
		t.Errorf("Confidence = %.2f, want %.2f", res.Confidence, confFull)
	}
	if !strings.Contains(res.Summary, "1 container") {
		t.Errorf("Summary = %q, want container count", res.Summary)
	}
}

func TestQueryMergesContainerTools(t *testing.T) {
	dir := t.TempDir()
	stubTool(t, dir, "docker", dockerStub)
	stubTool(t, dir, "podman", podmanStub)
	t.Setenv("PATH", dir)

	reg := NewRegistry(DefaultRunnerConfig(), nil)
	res := reg.Query(context.Background(), "what containers are running")

	if len(res.Reports) != 2 {
		t.Fatalf("got %d reports, want docker and podman: %+v", len(res.Reports), res.Reports)
	}
	if res.Reports[0].Capability != "docker" || res.Reports[1].Capability != "podman" {
		t.Errorf("reports out of order: %s, %s",
			res.Reports[0].Capability, res.Reports[1].Capability)
	}
	if res.Confidence != confFull {
		t.Errorf("Confidence = %.2f, want %.2f", res.Confidence, confFull)
	}
	if !strings.Contains(res.Summary, "Docker") || !strings.Contains(res.Summary, "Podman") {
		t.Errorf("Summary = %q, want both tools mentioned", res.Summary)
	}
}

func TestQueryNoCapabilityMatches(t *testing.T) {
	dir := t.TempDir()
	stubTool(t, dir, "docker", dockerStub)
	t.Setenv("PATH", dir)

	reg := NewRegistry(DefaultRunnerConfig(), nil)
	res := reg.Query(context.Background(), "what is the meaning of life")

	if len(res.Reports) != 0 || res.Confidence != 0 {
		t.Fatalf("got %d reports confidence=%.2f, want none", len(res.Reports), res.Confidence)
	}
	if !strings.Contains(res.Summary, "No environment capability") {
		t.Errorf("Summary = %q, want no-match summary", res.Summary)
	}
}

func TestQueryUnavailableCapabilityNotRouted(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	reg := NewRegistry(DefaultRunnerConfig(), nil)
	res := reg.Query(context.Background(), "is docker running")

	if len(res.Reports) != 0 || res.Confidence != 0 {
		t.Fatalf("got %d reports confidence=%.2f, want none when docker is absent",
			len(res.Reports), res.Confidence)
	}
}

func TestQueryDisabledCapability(t *testing.T) {
	dir := t.TempDir()
	stubTool(t, dir, "docker", dockerStub)
	t.Setenv("PATH", dir)

	reg := NewRegistry(DefaultRunnerConfig(), []string{"docker"})

	for _, s := range reg.Snapshot(context.Background()) {
		if s.Name == "docker" {
			t.Fatal("disabled capability still registered")
		}
	}
	if res := reg.Query(context.Background(), "is docker running"); len(res.Reports) != 0 {
		t.Fatalf("disabled capability answered: %+v", res.Reports)
	}
}

func TestQueryDaemonDiedAfterDiscovery(t *testing.T) {
	dir := t.TempDir()
	// First invocation (the probe) succeeds; every later one fails.
	stubTool(t, dir, "docker", `if [ -f "$HOME/flip" ]; then
  exit 1
fi
: > "$HOME/flip"
echo "27.1.1"`)
	t.Setenv("PATH", dir)
	t.Setenv("HOME", dir)

	reg := NewRegistry(DefaultRunnerConfig(), nil)
	res := reg.Query(context.Background(), "is docker running")

	if len(res.Reports) != 1 {
		t.Fatalf("got %d reports, want a degraded docker report", len(res.Reports))
	}
	rep := res.Reports[0]
	if rep.Confidence != confWeak {
		t.Errorf("Confidence = %.2f, want %.2f", rep.Confidence, confWeak)
	}
	if !strings.Contains(rep.Summary, "not responding") {
		t.Errorf("Summary = %q, want a daemon-down summary", rep.Summary)
	}
}

func TestQueryKubernetesCluster(t *testing.T) {
	dir := t.TempDir()
	stubTool(t, dir, "kubectl", `case "$1" in
  version) echo '{"clientVersion":{"gitVersion":"v1.31.0"}}' ;;
  config) echo "prod-cluster" ;;
  get) printf "node-a   Ready   control-plane   45d   v1.31.0\nnode-b   Ready   worker   45d   v1.31.0\n" ;;
esac`)
	t.Setenv("PATH", dir)

	reg := NewRegistry(DefaultRunnerConfig(), nil)
	res := reg.Query(context.Background(), "what kubernetes cluster are we on")

	if len(res.Reports) != 1 {
		t.Fatalf("got %d reports, want 1", len(res.Reports))
	}
	rep := res.Reports[0]
	if rep.Facts["context"] != "prod-cluster" {
		t.Errorf("context = %q, want prod-cluster", rep.Facts["context"])
	}
	if rep.Facts["nodes"] != "2" {
		t.Errorf("nodes = %q, want 2", rep.Facts["nodes"])
	}
	if !strings.Contains(rep.Summary, `"prod-cluster"`) || !strings.Contains(rep.Summary, "2 nodes") {
		t.Errorf("Summary = %q", rep.Summary)
	}
}

func TestQueryKubectlWithoutContext(t *testing.T) {
	dir := t.TempDir()
	stubTool(t, dir, "kubectl", `case "$1" in
  version) echo '{}' ;;
  config) echo "error: current-context is not set" >&2; exit 1 ;;
esac`)
	t.Setenv("PATH", dir)

	reg := NewRegistry(DefaultRunnerConfig(), nil)
	res := reg.Query(context.Background(), "do we run kubernetes")

	if len(res.Reports) != 1 {
		t.Fatalf("got %d reports, want a weak kubectl report", len(res.Reports))
	}
	rep := res.Reports[0]
	if rep.Confidence != confWeak {
		t.Errorf("Confidence = %.2f, want %.2f", rep.Confidence, confWeak)
	}
	if !strings.Contains(rep.Summary, "no cluster context") {
		t.Errorf("Summary = %q", rep.Summary)
	}
}

func TestQueryHostInfo(t *testing.T) {
	dir := t.TempDir()
	stubTool(t, dir, "uname", `case "$1" in
  -s) echo "Linux" ;;
  -srm) echo "Linux 6.11.0 x86_64" ;;
esac`)
	stubTool(t, dir, "nproc", "echo 8")
	stubTool(t, dir, "uptime", `echo " 10:00:00 up 3 days, load average: 0.50"`)
	t.Setenv("PATH", dir)

	reg := NewRegistry(DefaultRunnerConfig(), nil)
	res := reg.Query(context.Background(), "what os is the host running")

	if len(res.Reports) != 1 {
		t.Fatalf("got %d reports, want 1", len(res.Reports))
	}
	rep := res.Reports[0]
	if rep.Facts["kernel"] != "Linux 6.11.0 x86_64" {
		t.Errorf("kernel = %q", rep.Facts["kernel"])
	}
	if rep.Facts["cpus"] != "8" {
		t.Errorf("cpus = %q, want 8", rep.Facts["cpus"])
	}
	if rep.Confidence != confFull {
		t.Errorf("Confidence = %.2f, want %.2f", rep.Confidence, confFull)
	}
	if !strings.Contains(rep.Detail, "load average") {
		t.Errorf("Detail = %q, want uptime output", rep.Detail)
	}
}

func TestCountInventoryHosts(t *testing.T) {
	full := `{"_meta": {"hostvars": {"web1": {}, "db1": {}}}, "all": {"children": ["web"]}}`
	if got := countInventoryHosts(full); got != 2 {
		t.Errorf("countInventoryHosts = %d, want 2", got)
	}
	if got := countInventoryHosts(`{"_meta": {"hostvars": {}}}`); got != 0 {
		t.Errorf("empty inventory = %d, want 0", got)
	}
	if got := countInventoryHosts("not json at all"); got != -1 {
		t.Errorf("garbage = %d, want -1", got)
	}
}
