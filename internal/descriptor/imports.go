package descriptor

import (
	"fmt"
	"strings"
)

// Mode selects which import kinds a rewrite includes.
type Mode int

const (
	// ModeEdit is the regular IDE regeneration; every kind is imported.
	ModeEdit Mode = iota
	// ModeBuild is regeneration ahead of a player build; editor-only kinds are skipped.
	ModeBuild
)

// String returns the flag spelling of the mode.
func (m Mode) String() string {
	switch m {
	case ModeBuild:
		return "build"
	default:
		return "edit"
	}
}

// ParseMode parses "edit" or "build" (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "edit":
		return ModeEdit, nil
	case "build":
		return ModeBuild, nil
	default:
		return ModeEdit, fmt.Errorf("unknown mode %q (expected edit or build)", s)
	}
}

// Group is the file extension group of a companion import.
type Group string

const (
	GroupProps   Group = ".props"
	GroupTargets Group = ".targets"
)

// ImportKind is one family of companion files spliced into every descriptor.
type ImportKind struct {
	Name   string
	Suffix string
	// EditorOnly kinds are left out of build-mode rewrites.
	EditorOnly bool
}

var (
	KindShared = ImportKind{Name: "shared", Suffix: ".UnityShared"}
	KindEditor = ImportKind{Name: "editor", Suffix: ".UnityEditor", EditorOnly: true}
)

var knownKinds = []ImportKind{KindShared, KindEditor}

// KindByName looks up a built-in kind.
func KindByName(name string) (ImportKind, bool) {
	for _, k := range knownKinds {
		if strings.EqualFold(k.Name, name) {
			return k, true
		}
	}
	return ImportKind{}, false
}

// KindNames lists the built-in kind names in declaration order.
func KindNames() []string {
	names := make([]string, 0, len(knownKinds))
	for _, k := range knownKinds {
		names = append(names, k.Name)
	}
	return names
}

// ImportSpec is the ordered set of companion imports for a project.
type ImportSpec struct {
	// ProjectName prefixes every companion file name, usually the project directory name.
	ProjectName string
	Kinds       []ImportKind
}

// DefaultImportSpec imports the shared kind, then the editor kind.
func DefaultImportSpec(projectName string) ImportSpec {
	return ImportSpec{
		ProjectName: projectName,
		Kinds:       []ImportKind{KindShared, KindEditor},
	}
}

// NewImportSpec builds a spec from kind names, keeping their order.
func NewImportSpec(projectName string, names []string) (ImportSpec, error) {
	spec := ImportSpec{ProjectName: projectName}
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		k, ok := KindByName(name)
		if !ok {
			return ImportSpec{}, fmt.Errorf("unknown import kind %q (available: %s)", name, strings.Join(KindNames(), ", "))
		}
		if seen[k.Name] {
			continue
		}
		seen[k.Name] = true
		spec.Kinds = append(spec.Kinds, k)
	}
	return spec, nil
}

// Active returns the kinds included for mode, in declared order.
func (s ImportSpec) Active(mode Mode) []ImportKind {
	kinds := make([]ImportKind, 0, len(s.Kinds))
	for _, k := range s.Kinds {
		if mode == ModeBuild && k.EditorOnly {
			continue
		}
		kinds = append(kinds, k)
	}
	return kinds
}

// FileName is the companion file referenced by an Import element.
func (s ImportSpec) FileName(kind ImportKind, group Group) string {
	return s.ProjectName + kind.Suffix + string(group)
}

// Files lists every companion file regardless of mode.
func (s ImportSpec) Files() []string {
	files := make([]string, 0, len(s.Kinds)*2)
	for _, group := range []Group{GroupProps, GroupTargets} {
		for _, k := range s.Kinds {
			files = append(files, s.FileName(k, group))
		}
	}
	return files
}
