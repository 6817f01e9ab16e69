// File: internal/engine/diagnose.go
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"golang.org/x/net/html"
)

const snapshotBudget = 2 * time.Second

// snapshotDOM grabs the current document of a page with a small bounded
// budget. It runs after a wait has already timed out, so it must never hang
// the teardown path; on any error it returns an empty snapshot.
func snapshotDOM(ctx context.Context) string {
	sctx, cancel := context.WithTimeout(ctx, snapshotBudget)
	defer cancel()

	var doc string
	if err := chromedp.Run(sctx, chromedp.OuterHTML("html", &doc, chromedp.ByQuery)); err != nil {
		return ""
	}
	return doc
}

// SummarizeDOM condenses a DOM snapshot into a one-line description (title
// and element count) for log lines and summaries. The full snapshot stays on
// the error record verbatim.
func SummarizeDOM(snapshot string) string {
	if snapshot == "" {
		return "no DOM snapshot available"
	}

	doc, err := html.Parse(strings.NewReader(snapshot))
	if err != nil {
		return fmt.Sprintf("unparseable snapshot (%d bytes)", len(snapshot))
	}

	var title string
	var elements int
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			elements++
			if n.Data == "title" && title == "" && n.FirstChild != nil {
				title = strings.TrimSpace(n.FirstChild.Data)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if title == "" {
		title = "(untitled)"
	}
	return fmt.Sprintf("title=%q elements=%d bytes=%d", title, elements, len(snapshot))
}
