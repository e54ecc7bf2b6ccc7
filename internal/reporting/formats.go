// internal/reporting/formats.go
package reporting

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/scriptwalk/api/schemas"
)

// capturesDocument is the json and yaml shape of a captures file.
type capturesDocument struct {
	RunID    string            `json:"run_id" yaml:"run_id"`
	Captures []schemas.Capture `json:"captures" yaml:"captures"`
}

func encodeCaptures(w io.Writer, format, runID string, captures []schemas.Capture) error {
	if captures == nil {
		captures = []schemas.Capture{}
	}
	doc := capturesDocument{RunID: runID, Captures: captures}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	case "xml":
		_, err := capturesXML(runID, captures).WriteTo(w)
		return err
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// capturesXML renders
//
//	<captures run="id"><capture name="v"><value index="0">text</value></capture></captures>
func capturesXML(runID string, captures []schemas.Capture) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("captures")
	root.CreateAttr("run", runID)
	for _, c := range captures {
		el := root.CreateElement("capture")
		el.CreateAttr("name", c.Name)
		el.CreateAttr("count", strconv.Itoa(len(c.Values)))
		for i, v := range c.Values {
			val := el.CreateElement("value")
			val.CreateAttr("index", strconv.Itoa(i))
			val.SetText(v)
		}
	}
	doc.Indent(2)
	return doc
}

// PageTitle returns the trimmed text of the document's first <title>, or ""
// when there is none.
func PageTitle(source string) string {
	doc, err := html.Parse(strings.NewReader(source))
	if err != nil {
		return ""
	}
	var find func(*html.Node) string
	find = func(n *html.Node) string {
		if n.Type == html.ElementNode && n.DataAtom == atom.Title {
			var b strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					b.WriteString(c.Data)
				}
			}
			return strings.Join(strings.Fields(b.String()), " ")
		}
		// SVG titles are not page titles.
		if n.Type == html.ElementNode && n.DataAtom == atom.Svg {
			return ""
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if t := find(c); t != "" {
				return t
			}
		}
		return ""
	}
	return find(doc)
}
