// Package unit defines collection units: the things a command runs to
// gather diagnostics into a task directory.
package unit

import (
	"context"
	"fmt"

	"github.com/spachava753/casscheck/internal/layout"
	"github.com/spachava753/casscheck/internal/models"
)

// Unit produces output files in the task directory it is given.
type Unit interface {
	// Name is the stable identifier used as the task directory leaf and the
	// report key. It must be unique within one run.
	Name() string

	// Description is a one-line summary shown in listings and reports.
	Description() string

	// Reportable reports whether the unit's receipt should be picked up by
	// the report command.
	Reportable() bool

	// Produce writes the unit's output into taskDir, which already exists
	// and belongs to this unit alone. A non-nil error marks the unit failed.
	Produce(ctx context.Context, taskDir string) error
}

// Constructor builds a fresh unit bound to the shared run configuration.
type Constructor func(cfg models.RunConfig) (Unit, error)

// Entry is a named constructor as yielded by a registry.
type Entry struct {
	Name        string
	Description string
	New         Constructor
}

// Static returns a constructor that always yields u.
func Static(u Unit) Constructor {
	return func(models.RunConfig) (Unit, error) { return u, nil }
}

// ValidateName checks that name can be used as a unit name: a single
// directory leaf that does not collide with the receipt file a unit's
// output shares its task directory with.
func ValidateName(name string) error {
	if err := layout.ValidateName(name); err != nil {
		return err
	}
	if name == models.ReceiptFileName {
		return fmt.Errorf("name %q is reserved for the task receipt", name)
	}
	return nil
}
