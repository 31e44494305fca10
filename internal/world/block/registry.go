package block

import (
	"fmt"
	"sort"
	"sync"

	"github.com/annel0/sandworld/internal/physics"
	"github.com/annel0/sandworld/internal/world"
)

// BehaviorFactory строит поведение по параметрам из каталога
type BehaviorFactory func(def TypeDef) world.TickBehaviorGen

var (
	registryMu sync.RWMutex
	registry   = make(map[string]BehaviorFactory)
)

// Register добавляет именованное поведение в регистр. Повторная регистрация
// имени заменяет прежнюю фабрику.
func Register(name string, factory BehaviorFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Get возвращает фабрику поведения по имени
func Get(name string) (BehaviorFactory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[name]
	return f, ok
}

// IsValidBehavior проверяет, зарегистрировано ли поведение
func IsValidBehavior(name string) bool {
	_, ok := Get(name)
	return ok
}

// Behaviors возвращает отсортированный список имён поведений
func Behaviors() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func combinator(build func(def TypeDef) world.TickBehavior) BehaviorFactory {
	return func(def TypeDef) world.TickBehaviorGen {
		return func(*world.World) world.TickBehavior { return build(def) }
	}
}

func init() {
	Register("static", func(TypeDef) world.TickBehaviorGen { return nil })
	Register("fall", combinator(func(TypeDef) world.TickBehavior { return physics.Fall(nil) }))
	Register("crumble", combinator(func(TypeDef) world.TickBehavior { return physics.Crumble(nil) }))
	Register("cascade", combinator(func(TypeDef) world.TickBehavior { return physics.Cascade(nil) }))
	Register("flow", combinator(func(def TypeDef) world.TickBehavior {
		chance := def.FlowChance
		if chance <= 0 {
			chance = 1
		}
		return physics.Flow(chance, nil)
	}))
}

func unknownBehavior(name string) error {
	return fmt.Errorf("неизвестное поведение %q, доступны: %v", name, Behaviors())
}
