package docx

import (
	"math"
	"slices"
	"strconv"

	"github.com/beevik/etree"
)

// ns is the WordprocessingML prefix used by every element this package touches.
const ns = "w"

// Schema order of the paragraph and run property children we write. New
// children are inserted before the first existing sibling that must follow.
var (
	pPrOrder = []string{
		"pStyle", "keepNext", "keepLines", "pageBreakBefore", "framePr", "widowControl",
		"numPr", "suppressLineNumbers", "pBdr", "shd", "tabs", "suppressAutoHyphens",
		"kinsoku", "wordWrap", "overflowPunct", "topLinePunct", "autoSpaceDE", "autoSpaceDN",
		"bidi", "adjustRightInd", "snapToGrid", "spacing", "ind", "contextualSpacing",
		"mirrorIndents", "suppressOverlap", "jc", "textDirection", "textAlignment",
		"textboxTightWrap", "outlineLvl", "divId", "cnfStyle", "rPr", "sectPr", "pPrChange",
	}
	rPrOrder = []string{
		"rStyle", "rFonts", "b", "bCs", "i", "iCs", "caps", "smallCaps", "strike", "dstrike",
		"outline", "shadow", "emboss", "imprint", "noProof", "snapToGrid", "vanish",
		"webHidden", "color", "spacing", "w", "kern", "position", "sz", "szCs", "highlight",
		"u", "effect", "bdr", "shd", "fitText", "vertAlign", "rtl", "cs", "em", "lang",
		"eastAsianLayout", "specVanish", "oMath",
	}
)

func isW(el *etree.Element, tag string) bool {
	return el.Space == ns && el.Tag == tag
}

func child(el *etree.Element, tag string) *etree.Element {
	for _, c := range el.ChildElements() {
		if isW(c, tag) {
			return c
		}
	}
	return nil
}

func children(el *etree.Element, tag string) []*etree.Element {
	var out []*etree.Element
	for _, c := range el.ChildElements() {
		if isW(c, tag) {
			out = append(out, c)
		}
	}
	return out
}

func attr(el *etree.Element, key string) (string, bool) {
	for _, a := range el.Attr {
		if a.Space == ns && a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

func setAttr(el *etree.Element, key, value string) {
	el.CreateAttr(ns+":"+key, value)
}

// ensureFirst returns el's tag child, creating it as the first child.
func ensureFirst(el *etree.Element, tag string) *etree.Element {
	if c := child(el, tag); c != nil {
		return c
	}
	c := etree.NewElement(ns + ":" + tag)
	el.InsertChildAt(0, c)
	return c
}

// ensureOrdered returns el's tag child, creating it at its schema position.
func ensureOrdered(el *etree.Element, tag string, order []string) *etree.Element {
	if c := child(el, tag); c != nil {
		return c
	}
	rank := slices.Index(order, tag)
	c := etree.NewElement(ns + ":" + tag)
	for _, sib := range el.ChildElements() {
		if sib.Space != ns {
			continue
		}
		if r := slices.Index(order, sib.Tag); r > rank {
			el.InsertChildAt(sib.Index(), c)
			return c
		}
	}
	el.AddChild(c)
	return c
}

func halfPoints(pt float64) string {
	return strconv.Itoa(int(math.Round(pt * 2)))
}

func twips(pt float64) string {
	return strconv.Itoa(int(math.Round(pt * 20)))
}
