package registry

import (
	"errors"
	"fmt"
	"strings"
)

// UnknownComponentError reports a (category, name) pair with no factory.
type UnknownComponentError struct {
	Category Category
	Name     string
	Known    []string
}

func (e *UnknownComponentError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("unknown %s %q: no %s components are registered", e.Category, e.Name, e.Category)
	}
	return fmt.Sprintf("unknown %s %q (known: %s)", e.Category, e.Name, strings.Join(e.Known, ", "))
}

// Ref names one component.
type Ref struct {
	Category Category
	Name     string
}

func (r Ref) String() string {
	return string(r.Category) + "/" + r.Name
}

// Check resolves every ref without constructing anything and reports all
// misses together.
func (r *Registry) Check(refs ...Ref) error {
	var errs []error
	for _, ref := range refs {
		var err error
		switch ref.Category {
		case CategoryAugmenter:
			_, err = r.Augmenter(ref.Name)
		case CategoryNetwork:
			_, err = r.Network(ref.Name)
		case CategoryCallback:
			_, err = r.Callback(ref.Name)
		case CategoryInputter:
			_, err = r.Inputter(ref.Name)
		case CategoryModeler:
			_, err = r.Modeler(ref.Name)
		case CategoryRunner:
			_, err = r.Runner(ref.Name)
		case CategoryEngine:
			_, err = r.Engine(ref.Name)
		default:
			err = &UnknownComponentError{Category: ref.Category, Name: ref.Name}
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
