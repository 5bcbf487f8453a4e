package proposal

import "fmt"

// Builder collects actions and keeps the first encoding error, so a list of action
// constructors can be written without checking each one:
//
//	var b Builder
//	b.Add(comet.UpdateAssetSupplyCap(m, asset, cap))
//	b.Add(comet.DeployAndUpgradeTo(m))
//	p, err := b.Proposal(description)
type Builder struct {
	actions []Action
	err     error
}

func (b *Builder) Add(a Action, err error) *Builder {
	if b.err != nil {
		return b
	}
	if err != nil {
		b.err = fmt.Errorf("action %d: %w", len(b.actions), err)
		return b
	}
	b.actions = append(b.actions, a)
	return b
}

func (b *Builder) Err() error {
	return b.err
}

func (b *Builder) Actions() ([]Action, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.actions) == 0 {
		return nil, ErrNoActions
	}
	return append([]Action(nil), b.actions...), nil
}

func (b *Builder) Proposal(description string) (*Proposal, error) {
	actions, err := b.Actions()
	if err != nil {
		return nil, err
	}
	p := New(description, actions...)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
