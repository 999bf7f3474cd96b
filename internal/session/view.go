package session

import (
	"context"
	"errors"
)

// View — сессия так, как её видит обработчик запроса.
type View interface {
	State() State
	Wait(ctx context.Context) (State, error)
	Retry(ctx context.Context) error
	SignOut(ctx context.Context) error
}

var _ View = (*Resolver)(nil)

// ErrNoSession — у запроса нет сессии, выходить неоткуда.
var ErrNoSession = errors.New("no session")

type staticView struct {
	state State
}

// Static возвращает View с неизменным состоянием.
// Используется для посетителей без cookie сессии.
func Static(st State) View {
	return staticView{state: st}
}

func (v staticView) State() State                        { return v.state }
func (v staticView) Wait(context.Context) (State, error) { return v.state, nil }
func (v staticView) Retry(context.Context) error         { return nil }
func (v staticView) SignOut(context.Context) error       { return ErrNoSession }
