package filescan

import (
	"path/filepath"
	"strings"
)

// High-signal file classes. Infrastructure manifests answer most
// "what are we running" questions directly, so a matching file in one
// of these classes gets a fixed score boost on top of its keyword
// score.
const (
	ClassIaCManifest        = "iac-manifest"
	ClassDependencyManifest = "dependency-manifest"
	ClassDecisionRecord     = "decision-record"
	ClassDocumentation      = "documentation"
)

const (
	boostIaC        = 0.25
	boostDependency = 0.20
	boostDecision   = 0.22
	boostDocs       = 0.10
)

// iacBases are exact file names that declare infrastructure.
var iacBases = map[string]bool{
	"dockerfile":         true,
	"containerfile":      true,
	"docker-compose.yml": true, "docker-compose.yaml": true,
	"compose.yml": true, "compose.yaml": true,
	"deployment.yml": true, "deployment.yaml": true,
	"service.yml": true, "service.yaml": true,
	"ingress.yml": true, "ingress.yaml": true,
	"kustomization.yml": true, "kustomization.yaml": true,
	"chart.yaml": true, "values.yaml": true, "values.yml": true,
	"skaffold.yaml": true, "vagrantfile": true,
	"playbook.yml": true, "playbook.yaml": true,
	"site.yml": true, "inventory.yml": true, "inventory.yaml": true,
	".gitlab-ci.yml": true, "jenkinsfile": true,
}

// iacDirs are directory names whose yaml/tf content is infrastructure.
var iacDirs = map[string]bool{
	"k8s": true, "kubernetes": true, "helm": true, "charts": true,
	"manifests": true, "deploy": true, "deployment": true,
	"ansible": true, "playbooks": true, "roles": true,
	"terraform": true, "infra": true, "infrastructure": true,
	"workflows": true, // .github/workflows
}

var dependencyBases = map[string]bool{
	"go.mod": true, "package.json": true, "requirements.txt": true,
	"pyproject.toml": true, "pipfile": true, "setup.py": true,
	"cargo.toml": true, "pom.xml": true, "build.gradle": true,
	"build.gradle.kts": true, "composer.json": true, "gemfile": true,
	"mix.exs": true, "pubspec.yaml": true,
}

// classify maps a relative path to its high-signal class and boost.
// Returns the empty class and zero boost for ordinary files.
func classify(rel string) (string, float64) {
	base := strings.ToLower(filepath.Base(rel))
	dir := strings.ToLower(filepath.ToSlash(filepath.Dir(rel)))

	if iacBases[base] {
		return ClassIaCManifest, boostIaC
	}
	ext := filepath.Ext(base)
	if ext == ".tf" || ext == ".tfvars" {
		return ClassIaCManifest, boostIaC
	}
	if ext == ".yml" || ext == ".yaml" {
		for _, seg := range strings.Split(dir, "/") {
			if iacDirs[seg] {
				return ClassIaCManifest, boostIaC
			}
		}
	}

	if dependencyBases[base] {
		return ClassDependencyManifest, boostDependency
	}

	if isDecisionRecord(base, dir) {
		return ClassDecisionRecord, boostDecision
	}

	if strings.HasPrefix(base, "readme") {
		return ClassDocumentation, boostDocs
	}
	if ext == ".md" && (strings.HasPrefix(dir, "docs") || strings.Contains(dir, "/docs")) {
		return ClassDocumentation, boostDocs
	}

	return "", 0
}

// isDecisionRecord recognizes architecture decision records by the
// usual conventions: adr directories and adr-NNNN file prefixes.
func isDecisionRecord(base, dir string) bool {
	for _, seg := range strings.Split(dir, "/") {
		switch seg {
		case "adr", "adrs", "decisions", "architecture":
			return true
		}
	}
	return strings.HasPrefix(base, "adr-") || strings.HasPrefix(base, "adr_")
}

// lockfileBases are scanned by name but never by content: they are
// huge and full of tokens that match everything.
var lockfileBases = map[string]bool{
	"go.sum": true, "package-lock.json": true, "yarn.lock": true,
	"pnpm-lock.yaml": true, "cargo.lock": true, "composer.lock": true,
	"gemfile.lock": true, "poetry.lock": true,
}

// binaryExts shortcut the content sniff for well-known binary formats.
var binaryExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".ico": true, ".pdf": true, ".zip": true, ".tar": true,
	".gz": true, ".bz2": true, ".xz": true, ".7z": true,
	".exe": true, ".dll": true, ".so": true, ".dylib": true,
	".bin": true, ".o": true, ".a": true, ".jar": true,
	".class": true, ".woff": true, ".woff2": true, ".ttf": true,
	".eot": true, ".mp3": true, ".mp4": true, ".webm": true,
	".db": true, ".sqlite": true,
}
