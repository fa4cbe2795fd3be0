package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Classes returns the element's class list.
func Classes(n *html.Node) []string {
	v, ok := Attr(n, "class")
	if !ok {
		return nil
	}
	return strings.Fields(v)
}

// HasClass reports whether the element carries class c.
func HasClass(n *html.Node, c string) bool {
	for _, have := range Classes(n) {
		if have == c {
			return true
		}
	}
	return false
}

// AddClass appends c to the element's class list. It returns false when
// the class was already present.
func AddClass(n *html.Node, c string) bool {
	if n == nil || n.Type != html.ElementNode || HasClass(n, c) {
		return false
	}
	classes := append(Classes(n), c)
	SetAttr(n, "class", strings.Join(classes, " "))
	return true
}

// RemoveClass drops c from the element's class list, removing the class
// attribute entirely when it becomes empty. It returns false when the class
// was not present.
func RemoveClass(n *html.Node, c string) bool {
	if n == nil || !HasClass(n, c) {
		return false
	}
	var kept []string
	for _, have := range Classes(n) {
		if have != c {
			kept = append(kept, have)
		}
	}
	if len(kept) == 0 {
		RemoveAttr(n, "class")
		return true
	}
	SetAttr(n, "class", strings.Join(kept, " "))
	return true
}
