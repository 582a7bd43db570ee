package keywords

import (
	"reflect"
	"testing"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "question words stripped",
			text: "What container platform is this project using?",
			want: []string{"container", "platform"},
		},
		{
			name: "duplicates removed order preserved",
			text: "docker docker compose Docker",
			want: []string{"docker", "compose"},
		},
		{
			name: "file names stay whole",
			text: "what does config.yaml configure",
			want: []string{"config.yaml", "configure"},
		},
		{
			name: "hyphenated tokens survive",
			text: "is gitlab-ci wired up",
			want: []string{"gitlab-ci", "wired", "up"},
		},
		{
			name: "empty input",
			text: "   ",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Extract(%q) = %#v, want %#v", tt.text, got, tt.want)
			}
		})
	}
}

func TestAnalyzeExpandsAbstractVocabulary(t *testing.T) {
	terms := Analyze("what orchestrator are we using?")

	if got, want := terms.Primary, []string{"orchestrator"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Primary = %#v, want %#v", got, want)
	}

	wantExpanded := []string{"kubernetes", "k8s", "openshift", "deployment", "swarm", "nomad"}
	if !reflect.DeepEqual(terms.Expanded, wantExpanded) {
		t.Fatalf("Expanded = %#v, want %#v", terms.Expanded, wantExpanded)
	}

	if got, want := terms.Weight("orchestrator"), WeightPrimary; got != want {
		t.Errorf("Weight(orchestrator) = %v, want %v", got, want)
	}
	if got, want := terms.Weight("kubernetes"), WeightExpanded; got != want {
		t.Errorf("Weight(kubernetes) = %v, want %v", got, want)
	}
	if got := terms.Weight("unrelated"); got != 0 {
		t.Errorf("Weight(unrelated) = %v, want 0", got)
	}
}

func TestAnalyzeFileTokens(t *testing.T) {
	terms := Analyze("what does deployment.yaml declare?")

	if got, want := terms.Files, []string{"deployment.yaml"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Files = %#v, want %#v", got, want)
	}
	// The stem is indexed too so directory names still match.
	if got, want := terms.Weight("deployment"), WeightPrimary; got != want {
		t.Errorf("Weight(deployment) = %v, want %v", got, want)
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	a := Analyze("how do we deploy containers to the cluster?")
	b := Analyze("how do we deploy containers to the cluster?")

	if !reflect.DeepEqual(a, b) {
		t.Fatalf("Analyze not deterministic:\n a = %#v\n b = %#v", a, b)
	}
	if !reflect.DeepEqual(a.All(), b.All()) {
		t.Fatalf("All() not deterministic: %v vs %v", a.All(), b.All())
	}
}

func TestAllDeduplicates(t *testing.T) {
	terms := Analyze("container platform")

	seen := make(map[string]int)
	for _, s := range terms.All() {
		seen[s]++
	}
	for term, n := range seen {
		if n > 1 {
			t.Errorf("All() returned %q %d times", term, n)
		}
	}
	// docker comes from both expansions but must appear once.
	if seen["docker"] != 1 {
		t.Errorf("docker appeared %d times, want 1", seen["docker"])
	}
}

func TestTechnologies(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "detects whole words only",
			text: "services run on Kubernetes behind nginx",
			want: []string{"kubernetes", "nginx"},
		},
		{
			name: "substring does not match",
			text: "we dockerized nothing",
			want: nil,
		},
		{
			name: "hyphen neighbors still match",
			text: "docker-compose.yml present",
			want: []string{"docker", "compose"},
		},
		{
			name: "canonical order",
			text: "ansible manages docker hosts in the kubernetes cluster",
			want: []string{"kubernetes", "docker", "ansible"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Technologies(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Technologies(%q) = %#v, want %#v", tt.text, got, tt.want)
			}
		})
	}
}
