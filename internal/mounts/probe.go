package mounts

import (
	"errors"
	"fmt"

	"github.com/smazurov/rpirtspd/internal/pipeline"
)

// ErrProbeFailed wraps every startup probe failure.
var ErrProbeFailed = errors.New("pipeline probe failed")

// Probe verifies that the capture sources are available and that every
// mount description builds. The caller treats failure as fatal outside
// test mode.
func Probe(s Settings, mounts []Mount) error {
	source := s.VideoSource
	if source == "" {
		source = "rpicamsrc"
	}

	var errs []error
	for _, name := range []string{source, "alsasrc"} {
		if err := probeSource(name); err != nil {
			errs = append(errs, err)
		}
	}

	for _, mt := range mounts {
		inst, err := pipeline.Parse(mt.Description)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %w", ErrProbeFailed, mt.Name, err))
			continue
		}
		inst.Close()
	}

	return errors.Join(errs...)
}

func probeSource(name string) error {
	f, ok := pipeline.LookupFactory(name)
	if !ok || !f.Source {
		return fmt.Errorf("%w: no source element %q", ErrProbeFailed, name)
	}
	inst, err := pipeline.Parse("(" + name + ")")
	if err != nil {
		return fmt.Errorf("%w: (%s): %w", ErrProbeFailed, name, err)
	}
	inst.Close()
	return nil
}
