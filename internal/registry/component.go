package registry

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/conneroisu/gorsx/internal/errors"
	"github.com/conneroisu/gorsx/pkg/component"
)

// ComponentRegistry maps tag names to components. It is filled once and
// then frozen; after Freeze it is read-only and safe for concurrent use.
type ComponentRegistry struct {
	components map[string]*ComponentInfo
	frozen     bool
	mutex      sync.RWMutex
}

// ComponentInfo holds a registered component and what is known about
// where it came from.
type ComponentInfo struct {
	Name         string              `json:"name" yaml:"name"`
	FilePath     string              `json:"file_path,omitempty" yaml:"file_path,omitempty"`
	Hash         string              `json:"hash,omitempty" yaml:"hash,omitempty"`
	LastMod      time.Time           `json:"last_modified,omitempty" yaml:"last_modified,omitempty"`
	Schema       component.Schema    `json:"schema" yaml:"schema"`
	Dependencies []string            `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Component    component.Component `json:"-" yaml:"-"`
}

// NewComponentRegistry creates an empty, unfrozen registry.
func NewComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{
		components: make(map[string]*ComponentInfo),
	}
}

// Register adds a component. Names must be valid component tags, unique,
// and registered before Freeze.
func (r *ComponentRegistry) Register(info *ComponentInfo) error {
	if info == nil || info.Component == nil {
		return errors.NewValidationError(errors.ErrCodeInternalError, "cannot register a nil component")
	}
	if err := component.ValidateName(info.Name); err != nil {
		return err
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.frozen {
		return errors.NewValidationError(
			errors.ErrCodeRegistryFrozen,
			fmt.Sprintf("cannot register %q: registry is frozen", info.Name),
		).WithComponent(info.Name)
	}
	if existing, exists := r.components[info.Name]; exists {
		return errors.NewValidationError(
			errors.ErrCodeDuplicateName,
			fmt.Sprintf("component %q is already registered", info.Name),
		).WithComponent(info.Name).WithContext("existing", existing.FilePath)
	}

	if info.Schema.Props == nil {
		info.Schema = info.Component.Schema()
	}
	r.components[info.Name] = info
	return nil
}

// RegisterComponent registers c under name with no source metadata.
func (r *ComponentRegistry) RegisterComponent(name string, c component.Component) error {
	if c == nil {
		return r.Register(nil)
	}
	return r.Register(&ComponentInfo{Name: name, Component: c, Schema: c.Schema()})
}

// MustRegister is RegisterComponent for package-level setup; it panics on error.
func (r *ComponentRegistry) MustRegister(name string, c component.Component) *ComponentRegistry {
	if err := r.RegisterComponent(name, c); err != nil {
		panic(err)
	}
	return r
}

// Freeze makes the registry read-only.
func (r *ComponentRegistry) Freeze() *ComponentRegistry {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.frozen = true
	return r
}

// Frozen reports whether Freeze has been called.
func (r *ComponentRegistry) Frozen() bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return r.frozen
}

// Get retrieves a component's info by name
func (r *ComponentRegistry) Get(name string) (*ComponentInfo, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	info, exists := r.components[name]
	return info, exists
}

// Lookup returns the component bound to name.
func (r *ComponentRegistry) Lookup(name string) (component.Component, bool) {
	info, ok := r.Get(name)
	if !ok {
		return nil, false
	}
	return info.Component, true
}

// GetAll returns every registered component sorted by name.
func (r *ComponentRegistry) GetAll() []*ComponentInfo {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make([]*ComponentInfo, 0, len(r.components))
	for _, info := range r.components {
		result = append(result, info)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Names returns the registered names in sorted order.
func (r *ComponentRegistry) Names() []string {
	all := r.GetAll()
	names := make([]string, len(all))
	for i, info := range all {
		names[i] = info.Name
	}
	return names
}

// Count returns the number of registered components
func (r *ComponentRegistry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.components)
}
