package render

import (
	"strings"

	"golang.org/x/net/html/atom"
)

// Both tables are filled once at init and only read afterwards.
var (
	voidElements = atomSet(
		"area", "base", "br", "col", "embed", "hr", "img", "input",
		"link", "meta", "param", "source", "track", "wbr",
	)

	htmlElements = atomSet(
		"a", "abbr", "address", "area", "article", "aside", "audio",
		"b", "base", "bdi", "bdo", "blockquote", "body", "br", "button",
		"canvas", "caption", "cite", "code", "col", "colgroup",
		"data", "datalist", "dd", "del", "details", "dfn", "dialog", "div", "dl", "dt",
		"em", "embed", "fieldset", "figcaption", "figure", "footer", "form",
		"h1", "h2", "h3", "h4", "h5", "h6", "head", "header", "hgroup", "hr", "html",
		"i", "iframe", "img", "input", "ins", "kbd", "label", "legend", "li", "link",
		"main", "map", "mark", "math", "menu", "meta", "meter", "nav", "noscript",
		"object", "ol", "optgroup", "option", "output", "p", "param", "picture", "pre", "progress",
		"q", "rp", "rt", "ruby", "s", "samp", "script", "section", "select", "slot", "small",
		"source", "span", "strong", "style", "sub", "summary", "sup", "svg",
		"table", "tbody", "td", "template", "textarea", "tfoot", "th", "thead", "time", "title", "tr", "track",
		"u", "ul", "var", "video", "wbr",
	)
)

// foreignElements are the SVG and MathML elements that may appear inside
// <svg> and <math>. atom only knows a few of them and SVG names are
// case-sensitive, so they are matched as strings.
var foreignElements = stringSet(
	// SVG
	"animate", "animateMotion", "animateTransform", "circle", "clipPath", "defs", "desc",
	"ellipse", "feBlend", "feColorMatrix", "feComponentTransfer", "feComposite",
	"feConvolveMatrix", "feDiffuseLighting", "feDisplacementMap", "feDistantLight",
	"feDropShadow", "feFlood", "feFuncA", "feFuncB", "feFuncG", "feFuncR",
	"feGaussianBlur", "feImage", "feMerge", "feMergeNode", "feMorphology", "feOffset",
	"fePointLight", "feSpecularLighting", "feSpotLight", "feTile", "feTurbulence",
	"filter", "foreignObject", "g", "image", "line", "linearGradient", "marker", "mask",
	"metadata", "mpath", "path", "pattern", "polygon", "polyline", "radialGradient",
	"rect", "set", "stop", "switch", "symbol", "text", "textPath", "tspan", "use", "view",
	// MathML
	"annotation", "annotation-xml", "maction", "menclose", "merror", "mfrac", "mi",
	"mmultiscripts", "mn", "mo", "mover", "mpadded", "mphantom", "mprescripts", "mroot",
	"mrow", "ms", "mspace", "msqrt", "mstyle", "msub", "msubsup", "msup", "mtable", "mtd",
	"mtext", "mtr", "munder", "munderover", "none", "semantics",
)

func stringSet(names ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

func atomSet(names ...string) map[atom.Atom]struct{} {
	set := make(map[atom.Atom]struct{}, len(names))
	for _, name := range names {
		if a := atom.Lookup([]byte(name)); a != 0 {
			set[a] = struct{}{}
		}
	}
	return set
}

func lookup(set map[atom.Atom]struct{}, tag string) bool {
	a := atom.Lookup([]byte(tag))
	if a == 0 {
		return false
	}
	_, ok := set[a]
	return ok
}

// IsVoid reports whether tag is an HTML void element. Matching is exact:
// tag names are never case-folded.
func IsVoid(tag string) bool {
	return lookup(voidElements, tag)
}

// IsHTMLElement reports whether tag names an HTML, SVG or MathML element
// rather than a component. Hyphenated names are custom elements and count
// as HTML.
func IsHTMLElement(tag string) bool {
	if strings.Contains(tag, "-") {
		return true
	}
	if _, ok := foreignElements[tag]; ok {
		return true
	}
	return lookup(htmlElements, tag)
}
