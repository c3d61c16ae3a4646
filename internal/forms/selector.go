package forms

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	simpleIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)
	safeName         = regexp.MustCompile(`^[A-Za-z0-9_\-\[\]\.:]+$`)
)

// uniqueSelector builds a CSS selector matching exactly s within doc.
// It prefers #id, then tag[name="..."], then a positional path from the root.
func uniqueSelector(doc *goquery.Document, s *goquery.Selection) string {
	tag := goquery.NodeName(s)

	if id := s.AttrOr("id", ""); simpleIdentifier.MatchString(id) {
		selector := "#" + id
		if doc.Find(selector).Length() == 1 {
			return selector
		}
	}

	if name := s.AttrOr("name", ""); safeName.MatchString(name) {
		selector := fmt.Sprintf(`%s[name="%s"]`, tag, name)
		if doc.Find(selector).Length() == 1 {
			return selector
		}
	}

	return positionalPath(s)
}

// positionalPath returns an "html > body > ... > tag:nth-child(k)" path to s.
func positionalPath(s *goquery.Selection) string {
	var parts []string
	for node := s.First(); node.Length() > 0; node = node.Parent() {
		tag := goquery.NodeName(node)
		if tag == "html" {
			parts = append(parts, "html")
			break
		}
		if tag == "" || tag == "#document" {
			break
		}
		parts = append(parts, fmt.Sprintf("%s:nth-child(%d)", tag, node.PrevAll().Length()+1))
	}

	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, " > ")
}
