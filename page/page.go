// Package page implements the attack demo page: its state machine, the
// submit flow against an Attacker, and HTML rendering.
package page

import (
	"context"
	"sync"

	"github.com/TIANLI0/AttackLens/model"
	"github.com/TIANLI0/AttackLens/service"
)

// AttackPage is one page view. It is safe for concurrent use; at most one
// submission is in flight at a time.
type AttackPage struct {
	attacker service.Attacker

	mu    sync.Mutex
	state State
}

func New(attacker service.Attacker) *AttackPage {
	return &AttackPage{
		attacker: attacker,
		state:    NewState(),
	}
}

// State returns a snapshot of the current state.
func (p *AttackPage) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *AttackPage) SelectFile(f *File) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = p.state.SelectFile(f)
}

func (p *AttackPage) SetEpsilon(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = p.state.SetEpsilon(v)
}

func (p *AttackPage) CanSubmit() bool {
	return p.State().CanSubmit()
}

// Submit sends the selected file and epsilon to the attacker and records
// the outcome. It returns false without doing anything when no file is
// selected or a submission is already in flight.
func (p *AttackPage) Submit(ctx context.Context) bool {
	p.mu.Lock()
	if !p.state.CanSubmit() {
		p.mu.Unlock()
		return false
	}
	p.state = p.state.StartSubmit()
	file := p.state.SelectedFile()
	req := model.AttackRequest{
		Filename:    file.Name,
		ContentType: file.ContentType,
		Image:       file.Data,
		Epsilon:     p.state.Epsilon(),
	}
	p.mu.Unlock()

	result, err := p.attacker.Attack(ctx, req)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.state = p.state.ResolveError(err.Error())
	} else {
		p.state = p.state.ResolveSuccess(result)
	}
	return true
}
