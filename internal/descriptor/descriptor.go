// Package descriptor rewrites generated MSBuild project descriptors (.csproj)
// from the legacy layout into the SDK-style layout.
//
// A rewrite:
//   - swaps the root attributes for a single Sdk attribute
//   - splices companion .props imports before the first PropertyGroup and
//     .targets imports after the last element
//   - tags the generator-version element
//   - serializes as UTF-8 and drops the default MSBuild namespace declaration
//
// Rewrites are not idempotent: each call expects a descriptor freshly emitted by
// the IDE integration. Running a rewrite over its own output duplicates the
// inserted blocks.
package descriptor

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/beevik/etree"
)

const (
	// MSBuildNamespace is the default namespace of legacy descriptors.
	MSBuildNamespace = "http://schemas.microsoft.com/developer/msbuild/2003"

	// Marker names the comment that brackets inserted imports.
	Marker = "sdkproj"

	// GeneratorSuffix is appended to the generator-version text.
	GeneratorSuffix = "-" + Marker

	tagPropertyGroup = "PropertyGroup"
	tagImport        = "Import"
	tagGenerator     = "UnityProjectGenerator"
	attrSdk          = "Sdk"
	attrProject      = "Project"

	indentSpaces = 2
)

// ErrMalformed is returned when a descriptor has no root or no PropertyGroup.
var ErrMalformed = errors.New("malformed descriptor")

// MarkerComment is the serialized form of the tool-marker comment.
func MarkerComment() string {
	return "<!--" + Marker + "-->"
}

// Transform rewrites raw and returns the new text.
// On ErrMalformed the returned text is raw, byte for byte.
func Transform(raw string, spec ImportSpec, mode Mode, sdkStyle bool, sdk string) (string, error) {
	doc, err := parse(raw)
	if err != nil {
		return raw, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	root := doc.Root()
	if root == nil {
		return raw, fmt.Errorf("%w: no root element", ErrMalformed)
	}
	if root.FindElement(".//"+tagPropertyGroup) == nil {
		return raw, fmt.Errorf("%w: no %s element", ErrMalformed, tagPropertyGroup)
	}

	if sdkStyle && !hasSdkAttr(root) {
		setSdkAttr(root, sdk)
	}

	active := spec.Active(mode)

	// Imports go in front one by one, so the last kind is inserted first.
	for i := len(active) - 1; i >= 0; i-- {
		root.InsertChildAt(0, importElement(spec.FileName(active[i], GroupProps)))
	}
	root.InsertChildAt(0, etree.NewComment(Marker))
	root.InsertChildAt(0, etree.NewComment(""))

	for _, kind := range active {
		root.AddChild(importElement(spec.FileName(kind, GroupTargets)))
	}
	root.AddChild(etree.NewComment(Marker))
	root.AddChild(etree.NewComment(""))

	if gen := root.FindElement(".//" + tagGenerator); gen != nil {
		gen.SetText(gen.Text() + GeneratorSuffix)
	}

	setUTF8Declaration(doc)
	doc.Indent(indentSpaces)

	out, err := doc.WriteToString()
	if err != nil {
		return raw, fmt.Errorf("serialize descriptor: %w", err)
	}

	if sdkStyle {
		out = StripDefaultNamespace(out, MSBuildNamespace)
	}
	return out, nil
}

// DeclaresSdk reports whether the root of raw already carries an Sdk
// attribute, in which case Transform keeps it and stamps nothing.
// Unparsable input reports false.
func DeclaresSdk(raw string) bool {
	doc, err := parse(raw)
	if err != nil || doc.Root() == nil {
		return false
	}
	return hasSdkAttr(doc.Root())
}

func parse(raw string) (*etree.Document, error) {
	doc := etree.NewDocument()
	// The input is already decoded text; whatever encoding it declares is rewritten on output.
	doc.ReadSettings.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	if err := doc.ReadFromString(strings.TrimPrefix(raw, "\ufeff")); err != nil {
		return nil, err
	}
	return doc, nil
}

// hasSdkAttr reports whether root already declares an Sdk attribute (any case).
func hasSdkAttr(root *etree.Element) bool {
	for _, a := range root.Attr {
		if isNamespaceDecl(a) {
			continue
		}
		if strings.EqualFold(a.Key, attrSdk) {
			return true
		}
	}
	return false
}

// setSdkAttr drops every root attribute and sets Sdk.
// The default namespace declaration stays because child elements are bound
// to it; the textual strip removes it afterwards. Prefixed declarations stay
// only while some element or attribute below the root uses the prefix.
func setSdkAttr(root *etree.Element, sdk string) {
	used := usedPrefixes(root)
	var drop []string
	for _, a := range root.Attr {
		switch {
		case a.Space == "" && a.Key == "xmlns":
		case a.Space == "xmlns" && used[a.Key]:
		default:
			drop = append(drop, a.FullKey())
		}
	}
	for _, key := range drop {
		root.RemoveAttr(key)
	}
	root.CreateAttr(attrSdk, sdk)
}

// usedPrefixes collects the namespace prefixes referenced by descendants of root.
func usedPrefixes(root *etree.Element) map[string]bool {
	used := make(map[string]bool)
	for _, el := range root.FindElements(".//*") {
		if el.Space != "" {
			used[el.Space] = true
		}
		for _, a := range el.Attr {
			if a.Space != "" && a.Space != "xmlns" {
				used[a.Space] = true
			}
		}
	}
	return used
}

func isNamespaceDecl(a etree.Attr) bool {
	return (a.Space == "" && a.Key == "xmlns") || a.Space == "xmlns"
}

func importElement(project string) *etree.Element {
	el := etree.NewElement(tagImport)
	el.CreateAttr(attrProject, project)
	return el
}

// Rewriter applies Transform with a fixed import spec and reports malformed
// descriptors as diagnostics instead of errors.
type Rewriter struct {
	spec   ImportSpec
	logger *slog.Logger
}

// NewRewriter creates a Rewriter. A nil logger discards diagnostics.
func NewRewriter(spec ImportSpec, logger *slog.Logger) *Rewriter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Rewriter{spec: spec, logger: logger}
}

// Spec returns the import spec used by the rewriter.
func (r *Rewriter) Spec() ImportSpec {
	return r.spec
}

// Rewrite returns the rewritten descriptor, or raw unchanged when it is malformed.
func (r *Rewriter) Rewrite(raw string, mode Mode, sdkStyle bool, sdk string) string {
	out, err := Transform(raw, r.spec, mode, sdkStyle, sdk)
	if err != nil {
		r.logger.Error("unable to rewrite descriptor, leaving it unchanged", "error", err)
		return raw
	}
	r.logger.Debug("descriptor rewritten", "mode", mode.String(), "sdk_style", sdkStyle, "sdk", sdk)
	return out
}
