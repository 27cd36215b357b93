package database

import (
	"reflect"
	"sync"
)

var (
	modelsMu sync.Mutex
	models   []any
)

// RegisterModel adds models to the set migrated at startup. App packages call
// it from init in their models.go.
func RegisterModel(ms ...any) {
	modelsMu.Lock()
	defer modelsMu.Unlock()

	for _, m := range ms {
		if m == nil {
			continue
		}
		t := reflect.TypeOf(m)
		dup := false
		for _, existing := range models {
			if reflect.TypeOf(existing) == t {
				dup = true
				break
			}
		}
		if !dup {
			models = append(models, m)
		}
	}
}

// Models returns the registered models in registration order.
func Models() []any {
	modelsMu.Lock()
	defer modelsMu.Unlock()
	out := make([]any, len(models))
	copy(out, models)
	return out
}
