// Package order computes the release order for a set of workspace
// packages: every package is placed after all of its in-workspace
// dependencies, and a circular dependency fails the whole resolution.
//
// The resolver is a pure function. It performs no I/O, owns all of its
// traversal state, and is deterministic: the same input slice (same
// packages, same declared dependency order) always yields the same order,
// the one implied by depth-first traversal in declaration order.
package order

import (
	"fmt"

	"github.com/crateship/crateship/pkg/workspace"
)

// CycleError reports a circular dependency: Dependency was reached from
// Dependent while Dependency's own resolution was still in progress.
type CycleError struct {
	Dependent  string
	Dependency string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("circular dependency detected: %s -> %s", e.Dependency, e.Dependent)
}

// Resolve returns the packages in an order they can be released: each
// package appears exactly once, after all of its dependencies that are
// themselves part of pkgs. Dependency names with no match in pkgs are
// assumed already published and contribute no constraint; a package is
// never treated as its own dependency.
//
// The input is not mutated. On a circular dependency the result is nil and
// the error is a *CycleError naming both ends of the back-edge.
func Resolve(pkgs []*workspace.Package) ([]*workspace.Package, error) {
	var order, chain []*workspace.Package
	for _, p := range pkgs {
		var err error
		order, chain, err = visit(pkgs, p, order, chain)
		if err != nil {
			return nil, err
		}
	}
	return order, nil
}

// visit resolves pkg depth-first, appending it to order after its
// dependencies. chain tracks the packages whose resolution is currently in
// progress; finding a dependency there means the graph has a cycle.
//
// The chain is cleared wholesale once a package is emitted, not popped one
// entry at a time. See order_test.go for the exact behavior this pins
// down: after any package completes, only the recursion path opened since
// then is checked for back-edges.
func visit(pkgs []*workspace.Package, pkg *workspace.Package, order, chain []*workspace.Package) ([]*workspace.Package, []*workspace.Package, error) {
	if contains(order, pkg.Name) {
		return order, chain, nil
	}
	chain = append(chain, pkg)

	for _, name := range pkg.Dependencies {
		dep := lookup(pkgs, name, pkg.Name)
		if dep == nil {
			continue
		}
		if contains(chain, dep.Name) {
			return nil, nil, &CycleError{Dependent: pkg.Name, Dependency: dep.Name}
		}
		var err error
		order, chain, err = visit(pkgs, dep, order, chain)
		if err != nil {
			return nil, nil, err
		}
	}

	order = append(order, pkg)
	return order, chain[:0], nil
}

// lookup finds the in-scope package for a dependency name, excluding the
// depending package itself so that a nominal self-reference never creates
// an edge.
func lookup(pkgs []*workspace.Package, name, self string) *workspace.Package {
	for _, p := range pkgs {
		if p.Name == name && p.Name != self {
			return p
		}
	}
	return nil
}

func contains(pkgs []*workspace.Package, name string) bool {
	for _, p := range pkgs {
		if p.Name == name {
			return true
		}
	}
	return false
}
