package hwpx

import (
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
	"go.uber.org/zap"
)

// ParagraphNS is the namespace of the paragraph vocabulary in HWPX sections.
const ParagraphNS = "http://www.hancom.co.kr/hwpml/2011/paragraph"

var textExpr = mustCompileNS("//hp:t", map[string]string{"hp": ParagraphNS})

func mustCompileNS(expr string, namespaces map[string]string) *xpath.Expr {
	e, err := xpath.CompileWithNS(expr, namespaces)
	if err != nil {
		panic(err)
	}
	return e
}

// Text returns the text runs of every section, one non-empty run per line,
// in section order. Sections that cannot be opened or parsed are logged and
// skipped. An empty result is not an error here; callers decide what an
// empty document means.
func (r *Reader) Text() (string, error) {
	var lines []string
	for _, f := range r.sections {
		rc, err := f.Open()
		if err != nil {
			r.log.Warn("skipping unreadable section", zap.String("section", f.Name), zap.Error(err))
			continue
		}
		doc, err := xmlquery.Parse(rc)
		rc.Close()
		if err != nil {
			r.log.Warn("skipping malformed section", zap.String("section", f.Name), zap.Error(err))
			continue
		}

		runs := sectionRuns(doc)
		r.log.Debug("section parsed", zap.String("section", f.Name), zap.Int("runs", len(runs)))
		lines = append(lines, runs...)
	}
	return strings.Join(lines, "\n"), nil
}

// sectionRuns collects the text of hp:t elements. Documents that do not bind
// the paragraph namespace fall back to any element whose local name is "t".
func sectionRuns(doc *xmlquery.Node) []string {
	nodes := xmlquery.QuerySelectorAll(doc, textExpr)
	if len(nodes) == 0 {
		nodes = localElements(doc, "t")
	}

	var runs []string
	for _, n := range nodes {
		if s := n.InnerText(); s != "" {
			runs = append(runs, s)
		}
	}
	return runs
}

func localElements(top *xmlquery.Node, local string) []*xmlquery.Node {
	var out []*xmlquery.Node
	var walk func(*xmlquery.Node)
	walk = func(n *xmlquery.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == xmlquery.ElementNode && c.Data == local {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(top)
	return out
}
