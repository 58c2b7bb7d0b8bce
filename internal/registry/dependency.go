package registry

import (
	"fmt"
	"maps"
	"sort"
	"strings"

	"github.com/conneroisu/gorsx/internal/errors"
	"github.com/conneroisu/gorsx/internal/markup"
	"github.com/conneroisu/gorsx/pkg/component"
)

// Dependencies returns the component tags used in root, sorted and
// without self.
func Dependencies(root markup.Root, self string) []string {
	var deps []string
	for _, tag := range markup.Tags(root) {
		if tag != self && component.IsComponentTag(tag) {
			deps = append(deps, tag)
		}
	}
	sort.Strings(deps)
	return deps
}

// DependencyAnalyzer answers questions about the dependency graph of the
// components in a registry.
type DependencyAnalyzer struct {
	registry *ComponentRegistry
}

// NewDependencyAnalyzer creates a new dependency analyzer
func NewDependencyAnalyzer(registry *ComponentRegistry) *DependencyAnalyzer {
	return &DependencyAnalyzer{
		registry: registry,
	}
}

// GetDependents returns components that depend on the given component
func (da *DependencyAnalyzer) GetDependents(componentName string) []*ComponentInfo {
	var dependents []*ComponentInfo
	for _, info := range da.registry.GetAll() {
		for _, dep := range info.Dependencies {
			if dep == componentName {
				dependents = append(dependents, info)
				break
			}
		}
	}
	return dependents
}

// GetDependencyGraph returns the full dependency graph
func (da *DependencyAnalyzer) GetDependencyGraph() map[string][]string {
	graph := make(map[string][]string)
	for _, info := range da.registry.GetAll() {
		graph[info.Name] = append([]string(nil), info.Dependencies...)
	}
	return graph
}

// DetectCycles returns one cycle per strongly connected start point found
// by a depth-first walk of graph. Each cycle ends with its first name.
func DetectCycles(graph map[string][]string) [][]string {
	var cycles [][]string

	visited := make(map[string]bool)
	recStack := make(map[string]bool)

	for _, name := range sortedKeys(graph) {
		if !visited[name] {
			if cycle := detectCycleDFS(name, graph, visited, recStack, nil); cycle != nil {
				cycles = append(cycles, cycle)
			}
		}
	}

	return cycles
}

// detectCycleDFS performs DFS to detect cycles
func detectCycleDFS(name string, graph map[string][]string, visited, recStack map[string]bool, path []string) []string {
	visited[name] = true
	recStack[name] = true
	path = append(path, name)

	for _, dep := range graph[name] {
		if !visited[dep] {
			if cycle := detectCycleDFS(dep, graph, visited, recStack, path); cycle != nil {
				return cycle
			}
		} else if recStack[dep] {
			cycleStart := -1
			for i, p := range path {
				if p == dep {
					cycleStart = i
					break
				}
			}
			if cycleStart >= 0 {
				cycle := make([]string, len(path)-cycleStart+1)
				copy(cycle, path[cycleStart:])
				cycle[len(cycle)-1] = dep
				return cycle
			}
		}
	}

	recStack[name] = false
	return nil
}

// BuildOrder sorts the names of graph so that every name comes after the
// names it depends on. Dependencies that are not keys of graph are
// provided elsewhere and ignored. Ties are broken alphabetically.
func BuildOrder(graph map[string][]string) ([]string, error) {
	if cycles := DetectCycles(graph); len(cycles) > 0 {
		return nil, CycleError(cycles[0])
	}

	order := make([]string, 0, len(graph))
	done := make(map[string]bool, len(graph))
	var visit func(string)
	visit = func(name string) {
		if done[name] {
			return
		}
		done[name] = true
		deps := append([]string(nil), graph[name]...)
		sort.Strings(deps)
		for _, dep := range deps {
			if _, ok := graph[dep]; ok {
				visit(dep)
			}
		}
		order = append(order, name)
	}
	for _, name := range sortedKeys(graph) {
		visit(name)
	}
	return order, nil
}

// CycleError reports cycle, a path that starts and ends with the same name.
func CycleError(cycle []string) *errors.MarkupError {
	return errors.NewValidationError(
		errors.ErrCodeDependencyCycle,
		fmt.Sprintf("circular component dependency: %s", strings.Join(cycle, " -> ")),
	).WithComponent(cycle[0]).WithContext("cycle", cycle)
}

// RemoveCycles returns a copy of graph without the members of any
// dependency cycle, and the cycles it removed. What remains can be
// passed to BuildOrder.
func RemoveCycles(graph map[string][]string) (map[string][]string, [][]string) {
	rest := maps.Clone(graph)
	var removed [][]string
	for {
		cycles := DetectCycles(rest)
		if len(cycles) == 0 {
			return rest, removed
		}
		for _, cycle := range cycles {
			for _, name := range cycle {
				delete(rest, name)
			}
		}
		removed = append(removed, cycles...)
	}
}

func sortedKeys(graph map[string][]string) []string {
	keys := make([]string, 0, len(graph))
	for k := range graph {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
