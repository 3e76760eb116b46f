// SPDX-License-Identifier: MPL-2.0

// Package idextract discovers which content identifiers a package document
// adds and which it overrides.
//
// Extraction is a single depth-first walk driven by a static rule table keyed
// by lowercase tag. Each stack frame carries an override flag, set below any
// <Override> element, and the context tag inherited from the nearest context
// rule. Nodes no rule matches are leaves: they are recorded for diagnostics
// and their children are not visited.
package idextract

import (
	"strings"
	"sync"

	"github.com/beevik/etree"

	"github.com/modsmith/modsmith/internal/xmltree"
	"github.com/modsmith/modsmith/pkg/modunit"
)

type (
	// Result holds the identifiers found in one document.
	Result struct {
		Adds      modunit.IDSet
		Overrides modunit.IDSet
	}

	// Extractor applies the rule table. It is safe for concurrent use; the
	// only shared state is the set of unknown tags.
	Extractor struct {
		mu      sync.Mutex
		unknown map[string]struct{}
	}

	frame struct {
		node     *etree.Element
		override bool
		context  string
	}
)

// New returns an Extractor with an empty unknown-tag set.
func New() *Extractor {
	return &Extractor{unknown: map[string]struct{}{}}
}

// Empty reports whether the result holds no identifiers.
func (r Result) Empty() bool { return len(r.Adds) == 0 && len(r.Overrides) == 0 }

// Extract walks the document rooted at root. A nil root, or a root that is a
// localization or wrapper document, yields an empty result.
func (x *Extractor) Extract(root *etree.Element) Result {
	res := Result{Adds: modunit.IDSet{}, Overrides: modunit.IDSet{}}
	if root == nil {
		return res
	}
	switch strings.ToLower(root.Tag) {
	case "infotext", "infotexts", "contentpackage", "english":
		return res
	}

	stack := []frame{{node: root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if rule, ok := rules[strings.ToLower(f.node.Tag)]; ok {
			stack = apply(rule, f, stack, &res)
			continue
		}
		if f.context != "" {
			if rule, ok := rules[f.context]; ok {
				stack = apply(rule, f, stack, &res)
				continue
			}
		}
		x.fallback(f, &res)
	}
	return res
}

// Unknown returns the tags that matched no rule, sorted.
func (x *Extractor) Unknown() []string {
	x.mu.Lock()
	defer x.mu.Unlock()

	s := make(modunit.IDSet, len(x.unknown))
	for tag := range x.unknown {
		s.Add(tag)
	}
	return s.Sorted()
}

func apply(rule Rule, f frame, stack []frame, res *Result) []frame {
	switch rule.Kind {
	case KindContext:
		ctx := rule.Context
		if ctx == "" {
			ctx = f.context
		}
		return pushChildren(stack, f.node, f.override, ctx)
	case KindOverride:
		return pushChildren(stack, f.node, true, f.context)
	case KindID:
		value := ""
		if rule.Attr != "" {
			value, _ = xmltree.Attr(f.node, rule.Attr)
		}
		if value == "" {
			value = f.node.Tag
		}
		res.emit(rule.Prefix+"."+value, f.override)
	case KindSpecial:
		res.emit(rule.Literal, f.override)
	case KindIgnore:
	}
	return stack
}

// pushChildren pushes element children in document order, so they pop in
// reverse; traversal order never affects the resulting sets.
func pushChildren(stack []frame, node *etree.Element, override bool, ctx string) []frame {
	for _, child := range node.ChildElements() {
		stack = append(stack, frame{node: child, override: override, context: ctx})
	}
	return stack
}

func (x *Extractor) fallback(f frame, res *Result) {
	anim, _ := xmltree.Attr(f.node, "animationtype")
	switch strings.ToLower(anim) {
	case "swimslow", "swimfast":
		res.emit("WaterAnimation."+f.node.Tag, f.override)
	case "walk", "run", "crouch":
		res.emit("GroundAnimation."+f.node.Tag, f.override)
	case "":
		x.mu.Lock()
		x.unknown[f.node.Tag] = struct{}{}
		x.mu.Unlock()
	}
}

func (r *Result) emit(id string, override bool) {
	if override {
		r.Overrides.Add(id)
		return
	}
	r.Adds.Add(id)
}
