package project

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "kiln.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write kiln.toml: %v", err)
	}
	return path
}

func TestLoadFullManifest(t *testing.T) {
	root := t.TempDir()
	path := writeManifest(t, root, `# демо-манифест
[project]
name = "demo"

[compiler]
command = "kotlinc"
args = ["-nowarn"]
source-ext = ".kts"

[classpath]
base = ["lib/kit.jar"]
layers = ["env/root", "env/scripts"]

[extensions]
include = ["ext/a.kt", "ext/b.kt"]

[cache]
dir = "build/cache"
`)

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if m.Config.Project.Name != "demo" {
		t.Fatalf("project name = %q", m.Config.Project.Name)
	}
	if m.Config.Compiler.Command != "kotlinc" {
		t.Fatalf("compiler command = %q", m.Config.Compiler.Command)
	}
	if !reflect.DeepEqual(m.Config.Compiler.Args, []string{"-nowarn"}) {
		t.Fatalf("compiler args = %v", m.Config.Compiler.Args)
	}
	if m.Root != root {
		t.Fatalf("Root = %q, want %q", m.Root, root)
	}

	// Относительные пути манифеста должны стать абсолютными от корня.
	wantBase := []string{filepath.Join(root, "lib", "kit.jar")}
	if !reflect.DeepEqual(m.Config.Classpath.Base, wantBase) {
		t.Fatalf("base = %v, want %v", m.Config.Classpath.Base, wantBase)
	}
	wantLayers := []string{
		filepath.Join(root, "env", "root"),
		filepath.Join(root, "env", "scripts"),
	}
	if !reflect.DeepEqual(m.Config.Classpath.Layers, wantLayers) {
		t.Fatalf("layers = %v, want %v", m.Config.Classpath.Layers, wantLayers)
	}
	if want := filepath.Join(root, "build", "cache"); m.Config.Cache.Dir != want {
		t.Fatalf("cache dir = %q, want %q", m.Config.Cache.Dir, want)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	root := t.TempDir()
	path := writeManifest(t, root, `[project]
name = "demo"

[compiler]
command = "kotlinc"
`)

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if m.Config.Compiler.SourceExt != ".kts" {
		t.Fatalf("default source-ext = %q, want .kts", m.Config.Compiler.SourceExt)
	}
	if want := filepath.Join(root, ".kiln", "cache"); m.Config.Cache.Dir != want {
		t.Fatalf("default cache dir = %q, want %q", m.Config.Cache.Dir, want)
	}
}

func TestLoadDefaultProjectName(t *testing.T) {
	root := t.TempDir()
	path := writeManifest(t, root, `[project]

[compiler]
command = "kotlinc"
`)

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if m.Config.Project.Name != filepath.Base(root) {
		t.Fatalf("default project name = %q, want %q", m.Config.Project.Name, filepath.Base(root))
	}
}

func TestLoadMissingProjectSection(t *testing.T) {
	path := writeManifest(t, t.TempDir(), `[compiler]
command = "kotlinc"
`)

	_, err := Load(path)
	if !errors.Is(err, ErrProjectSectionMissing) {
		t.Fatalf("Load() error = %v, want ErrProjectSectionMissing", err)
	}
}

func TestLoadMissingCompilerCommand(t *testing.T) {
	path := writeManifest(t, t.TempDir(), `[project]
name = "demo"

[compiler]
command = "   "
`)

	_, err := Load(path)
	if !errors.Is(err, ErrCompilerCommandMissing) {
		t.Fatalf("Load() error = %v, want ErrCompilerCommandMissing", err)
	}
}

func TestLoadBadTOML(t *testing.T) {
	path := writeManifest(t, t.TempDir(), `[project
name =
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("Load() of malformed TOML succeeded")
	}
}

func TestFindKilnTomlWalksUp(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, `[project]
name = "demo"

[compiler]
command = "kotlinc"
`)
	nested := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	path, found, err := FindKilnToml(nested)
	if err != nil {
		t.Fatalf("FindKilnToml() error: %v", err)
	}
	if !found {
		t.Fatalf("FindKilnToml() did not find the manifest")
	}
	if want := filepath.Join(root, "kiln.toml"); path != want {
		t.Fatalf("FindKilnToml() = %q, want %q", path, want)
	}
}

func TestFindKilnTomlNotFound(t *testing.T) {
	_, found, err := FindKilnToml(t.TempDir())
	if err != nil {
		t.Fatalf("FindKilnToml() error: %v", err)
	}
	if found {
		t.Fatalf("FindKilnToml() found a manifest in an empty tree")
	}
}

func TestLoadFrom(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, `[project]
name = "demo"

[compiler]
command = "kotlinc"
`)

	m, found, err := LoadFrom(root)
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}
	if !found {
		t.Fatalf("LoadFrom() did not find the manifest")
	}
	if m.Config.Project.Name != "demo" {
		t.Fatalf("project name = %q", m.Config.Project.Name)
	}
}
