// Package policy maps request paths to quota classes.
package policy

import (
	"sort"
	"strings"
	"time"
)

// Class is a named quota configuration applied to a group of endpoints.
// Capacity tokens are granted per Interval; both are fixed at construction.
type Class struct {
	Name     string
	Capacity int64
	Interval time.Duration
}

// rule binds a path prefix to a class.
type rule struct {
	prefix string
	class  Class
}

// Classifier maps a request path to exactly one Class.
// It is a pure function of the path and holds no mutable state.
type Classifier struct {
	rules   []rule
	general Class
}

// NewClassifier builds a Classifier from prefix→class bindings plus the
// general class used when no prefix matches. Longer prefixes are checked
// first so overlapping bindings stay unambiguous.
func NewClassifier(bindings map[string]Class, general Class) *Classifier {
	c := &Classifier{general: general}
	for prefix, class := range bindings {
		c.rules = append(c.rules, rule{prefix: prefix, class: class})
	}
	// Longest prefix wins.
	sort.Slice(c.rules, func(i, j int) bool {
		return len(c.rules[i].prefix) > len(c.rules[j].prefix)
	})
	return c
}

// Classify returns the class for the given request path.
func (c *Classifier) Classify(path string) Class {
	for _, r := range c.rules {
		if strings.HasPrefix(path, r.prefix) {
			return r.class
		}
	}
	return c.general
}

// General returns the default class.
func (c *Classifier) General() Class {
	return c.general
}
