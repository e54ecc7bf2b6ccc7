// internal/browser/locator.go
package browser

import (
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/scriptwalk/api/schemas"
)

// query is a chromedp selector plus the option that tells chromedp how to
// interpret it.
type query struct {
	sel string
	by  chromedp.QueryOption
}

// queryFor maps a script locator to a chromedp query. When all is set the
// query matches every element instead of the first.
func queryFor(loc schemas.Locator, all bool) (query, error) {
	if strings.TrimSpace(loc.Value) == "" {
		return query{}, fmt.Errorf("empty %s selector", loc.Kind)
	}

	css := chromedp.ByQuery
	if all {
		css = chromedp.ByQueryAll
	}

	switch loc.Kind {
	case schemas.SelectorID:
		if all {
			return query{sel: attrSelector("id", loc.Value), by: css}, nil
		}
		return query{sel: loc.Value, by: chromedp.ByID}, nil
	case schemas.SelectorClass:
		return query{sel: classSelector(loc.Value), by: css}, nil
	case schemas.SelectorCSS:
		return query{sel: loc.Value, by: css}, nil
	case schemas.SelectorXPath:
		// BySearch accepts XPath and always returns every match.
		return query{sel: loc.Value, by: chromedp.BySearch}, nil
	case schemas.SelectorName:
		return query{sel: attrSelector("name", loc.Value), by: css}, nil
	default:
		return query{}, fmt.Errorf("unsupported selector type %q", loc.Kind)
	}
}

// classSelector turns "a b" into ".a.b".
func classSelector(classes string) string {
	var b strings.Builder
	for _, c := range strings.Fields(classes) {
		b.WriteByte('.')
		b.WriteString(c)
	}
	return b.String()
}

func attrSelector(attr, value string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(value)
	return fmt.Sprintf(`[%s="%s"]`, attr, escaped)
}
