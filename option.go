package golpk

import "github.com/pkg/errors"

type Option func(*Problem) error

func WithLogger(logger Logger) Option {
	return func(p *Problem) error {
		if logger == nil {
			return errors.Wrap(ErrInvalidOption, "nil logger")
		}
		p.logger = logger

		return nil
	}
}

// WithName sets the problem name.
func WithName(name string) Option {
	return func(p *Problem) error {
		return p.setName(name)
	}
}

// WithBfcp sets the basis factorization parameters used by the problem.
func WithBfcp(parm *Bfcp) Option {
	return func(p *Problem) error {
		if err := parm.validate(); err != nil {
			return err
		}
		p.bfcp = *parm

		return nil
	}
}

// WithTermOut enables or disables solver output to the logger.
func WithTermOut(on bool) Option {
	return func(p *Problem) error {
		p.termOut = on

		return nil
	}
}
