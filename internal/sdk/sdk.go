// Package sdk selects where the SDK identifier stamped into descriptors comes from.
package sdk

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Strategy yields the SDK identifier for a conversion.
type Strategy interface {
	Name() string
	Identifier(ctx context.Context) (string, error)
}

// IdentifierSource is satisfied by *version.Resolver.
type IdentifierSource interface {
	Identifier(ctx context.Context) string
}

// Deps carries what the strategy factories may need.
type Deps struct {
	Resolver  IdentifierSource
	CustomSdk string
}

// Factory builds a Strategy.
type Factory func(Deps) (Strategy, error)

const (
	StrategyVoid   = "void"
	StrategyCustom = "custom"
)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{
		StrategyVoid:   newVoid,
		StrategyCustom: newCustom,
	}
)

// Register adds or replaces a strategy factory.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = f
}

// New builds the strategy registered under name.
func New(name string, deps Deps) (Strategy, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, &UnknownStrategyError{Name: name, Available: Names()}
	}
	return f(deps)
}

// Names returns registered strategy names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered reports whether name is a known strategy.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

// UnknownStrategyError is returned when an unknown strategy is requested.
type UnknownStrategyError struct {
	Name      string
	Available []string
}

func (e *UnknownStrategyError) Error() string {
	return fmt.Sprintf("unknown sdk strategy %q\nAvailable strategies: %s\nHint: Check generator.strategy in sdkproj.yaml",
		e.Name, strings.Join(e.Available, ", "))
}

// ValidateCustom checks an operator-supplied identifier of the form name/version.
func ValidateCustom(id string) error {
	name, version, found := strings.Cut(strings.TrimSpace(id), "/")
	switch {
	case id == "":
		return fmt.Errorf("custom sdk is empty")
	case !found:
		return fmt.Errorf("custom sdk %q must have the form name/version", id)
	case name == "":
		return fmt.Errorf("custom sdk %q has no name", id)
	case version == "":
		return fmt.Errorf("custom sdk %q has no version", id)
	}
	return nil
}

type voidStrategy struct {
	resolver IdentifierSource
}

func newVoid(d Deps) (Strategy, error) {
	if d.Resolver == nil {
		return nil, fmt.Errorf("void sdk strategy requires a version resolver")
	}
	return &voidStrategy{resolver: d.Resolver}, nil
}

func (s *voidStrategy) Name() string { return StrategyVoid }

func (s *voidStrategy) Identifier(ctx context.Context) (string, error) {
	return s.resolver.Identifier(ctx), nil
}

type customStrategy struct {
	id string
}

func newCustom(d Deps) (Strategy, error) {
	if err := ValidateCustom(d.CustomSdk); err != nil {
		return nil, err
	}
	return &customStrategy{id: strings.TrimSpace(d.CustomSdk)}, nil
}

func (s *customStrategy) Name() string { return StrategyCustom }

func (s *customStrategy) Identifier(context.Context) (string, error) {
	return s.id, nil
}
