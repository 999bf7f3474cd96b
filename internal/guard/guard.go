// Package guard решает, что показать на пути при данном состоянии сессии:
// страницу, заглушку загрузки, редирект или страницу ошибки профиля.
package guard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/magabrotheeeer/ems-portal/internal/config"
	"github.com/magabrotheeeer/ems-portal/internal/session"
)

// Class — класс пути в таблице маршрутов.
type Class int

const (
	ClassUnknown Class = iota
	ClassPublic
	ClassEntry
	ClassProtected
)

func (c Class) String() string {
	switch c {
	case ClassPublic:
		return "public"
	case ClassEntry:
		return "entry"
	case ClassProtected:
		return "protected"
	default:
		return "unknown"
	}
}

// Action — что сделать с запросом.
type Action int

const (
	ActionRender Action = iota
	ActionLoading
	ActionRedirect
	ActionProfileError
)

func (a Action) String() string {
	switch a {
	case ActionRender:
		return "render"
	case ActionLoading:
		return "loading"
	case ActionRedirect:
		return "redirect"
	case ActionProfileError:
		return "profile_error"
	default:
		return "unknown"
	}
}

// Decision — результат проверки пути.
// Replace означает, что редирект заменяет текущую запись истории.
type Decision struct {
	Action  Action
	Target  string
	Replace bool
}

func render() Decision { return Decision{Action: ActionRender} }

func redirect(to string) Decision {
	return Decision{Action: ActionRedirect, Target: to, Replace: true}
}

// ErrInvalidTable — таблица маршрутов противоречива.
var ErrInvalidTable = errors.New("invalid route table")

// Table — статическая таблица классов путей.
type Table struct {
	classes          map[string]Class
	entryDefault     string
	protectedDefault string
}

// NewTable строит таблицу из конфига. Путь не может входить в два класса,
// пути по умолчанию должны принадлежать своим классам.
func NewTable(cfg config.Routes) (*Table, error) {
	const op = "guard.NewTable"

	t := &Table{
		classes:          make(map[string]Class),
		entryDefault:     cfg.EntryDefault,
		protectedDefault: cfg.ProtectedDefault,
	}
	groups := []struct {
		class Class
		paths []string
	}{
		{ClassPublic, cfg.Public},
		{ClassEntry, cfg.Entry},
		{ClassProtected, cfg.Protected},
	}
	for _, g := range groups {
		for _, p := range g.paths {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			if !strings.HasPrefix(p, "/") {
				return nil, fmt.Errorf("%s: %w: path %q must start with /", op, ErrInvalidTable, p)
			}
			if prev, ok := t.classes[p]; ok {
				return nil, fmt.Errorf("%s: %w: path %q is both %s and %s", op, ErrInvalidTable, p, prev, g.class)
			}
			t.classes[p] = g.class
		}
	}

	if t.classes[t.entryDefault] != ClassEntry {
		return nil, fmt.Errorf("%s: %w: entry default %q is not an entry path", op, ErrInvalidTable, t.entryDefault)
	}
	if t.classes[t.protectedDefault] != ClassProtected {
		return nil, fmt.Errorf("%s: %w: protected default %q is not a protected path", op, ErrInvalidTable, t.protectedDefault)
	}
	return t, nil
}

// MustNewTable как NewTable, но паникует при ошибке.
func MustNewTable(cfg config.Routes) *Table {
	t, err := NewTable(cfg)
	if err != nil {
		panic(err)
	}
	return t
}

// Classify возвращает класс пути. Сравнение точное.
func (t *Table) Classify(path string) Class {
	return t.classes[path]
}

// EntryDefault путь входа по умолчанию.
func (t *Table) EntryDefault() string { return t.entryDefault }

// ProtectedDefault защищённый путь по умолчанию.
func (t *Table) ProtectedDefault() string { return t.protectedDefault }

// Decide возвращает решение для пути при данном статусе сессии.
// Неизвестные пути рендерятся, дальше их обрабатывает роутер.
func (t *Table) Decide(status session.Status, path string) Decision {
	class := t.Classify(path)
	if class == ClassUnknown {
		return render()
	}

	switch status {
	case session.StatusAnonymous:
		if class == ClassProtected {
			return redirect(t.entryDefault)
		}
		return render()
	case session.StatusAuthenticated:
		if class == ClassEntry {
			return redirect(t.protectedDefault)
		}
		return render()
	case session.StatusProfileUnavailable:
		switch class {
		case ClassEntry:
			return redirect(t.protectedDefault)
		case ClassProtected:
			return Decision{Action: ActionProfileError}
		}
		return render()
	default:
		return Decision{Action: ActionLoading}
	}
}
