package svcmgr

import (
	"fmt"
	"strings"
)

// ServiceLabel is the portable identity of a service, in reverse-DNS form.
// Qualifier and Organization are optional; an empty string means absent.
type ServiceLabel struct {
	Qualifier    string
	Organization string
	Application  string
}

// ParseServiceLabel splits a dotted string into a ServiceLabel.
//
// One token yields an application, two tokens organization.application, and
// three or more tokens qualifier.organization.application where the
// application keeps every remaining token joined by ".".
func ParseServiceLabel(s string) (ServiceLabel, error) {
	if s == "" {
		return ServiceLabel{}, fmt.Errorf("%w: empty label", ErrInvalidLabel)
	}

	tokens := strings.Split(s, ".")
	for _, t := range tokens {
		if t == "" {
			return ServiceLabel{}, fmt.Errorf("%w: %q has an empty segment", ErrInvalidLabel, s)
		}
	}

	switch len(tokens) {
	case 1:
		return ServiceLabel{Application: tokens[0]}, nil
	case 2:
		return ServiceLabel{Organization: tokens[0], Application: tokens[1]}, nil
	default:
		return ServiceLabel{
			Qualifier:    tokens[0],
			Organization: tokens[1],
			Application:  strings.Join(tokens[2:], "."),
		}, nil
	}
}

// MustParseServiceLabel is like ParseServiceLabel but panics on error
func MustParseServiceLabel(s string) ServiceLabel {
	l, err := ParseServiceLabel(s)
	if err != nil {
		panic(err)
	}
	return l
}

// QualifiedName joins the present parts with ".": "com.example.echo".
func (l ServiceLabel) QualifiedName() string {
	parts := make([]string, 0, 3)
	if l.Qualifier != "" {
		parts = append(parts, l.Qualifier)
	}
	if l.Organization != "" {
		parts = append(parts, l.Organization)
	}
	parts = append(parts, l.Application)
	return strings.Join(parts, ".")
}

// ScriptName is the name used for init scripts and unit files:
// "example-echo", or just the application without an organization.
func (l ServiceLabel) ScriptName() string {
	if l.Organization == "" {
		return l.Application
	}
	return l.Organization + "-" + l.Application
}

// String returns the qualified name
func (l ServiceLabel) String() string {
	return l.QualifiedName()
}
