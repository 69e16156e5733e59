package descriptor

import (
	"regexp"
	"strings"

	"github.com/beevik/etree"
)

// namespaceSearchLimit bounds the textual namespace removal. The declaration
// only ever appears in the opening root tag.
const namespaceSearchLimit = 512

var (
	encodingPseudoAttr = regexp.MustCompile(`encoding\s*=\s*("[^"]*"|'[^']*')`)
	versionPseudoAttr  = regexp.MustCompile(`version\s*=\s*("[^"]*"|'[^']*')`)
)

// setUTF8Declaration makes the XML declaration announce utf-8, adding one when absent.
func setUTF8Declaration(doc *etree.Document) {
	for _, t := range doc.Child {
		if p, ok := t.(*etree.ProcInst); ok && p.Target == "xml" {
			p.Inst = utf8Inst(p.Inst)
			return
		}
	}
	doc.InsertChildAt(0, etree.NewProcInst("xml", `version="1.0" encoding="utf-8"`))
}

func utf8Inst(inst string) string {
	if encodingPseudoAttr.MatchString(inst) {
		return encodingPseudoAttr.ReplaceAllString(inst, `encoding="utf-8"`)
	}
	// encoding must follow version and precede standalone
	if loc := versionPseudoAttr.FindStringIndex(inst); loc != nil {
		return inst[:loc[1]] + ` encoding="utf-8"` + inst[loc[1]:]
	}
	return strings.TrimSpace(`version="1.0" encoding="utf-8" ` + inst)
}

// StripDefaultNamespace removes the ` xmlns="<ns>"` declaration from text.
// Only occurrences that lie entirely within the first 512 bytes are removed;
// the rest of the text is returned untouched.
func StripDefaultNamespace(text, ns string) string {
	decl := ` xmlns="` + ns + `"`
	limit := min(len(text), namespaceSearchLimit)
	head := text[:limit]
	if !strings.Contains(head, decl) {
		return text
	}
	return strings.ReplaceAll(head, decl, "") + text[limit:]
}
