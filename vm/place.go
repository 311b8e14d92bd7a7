package vm

import (
	"fmt"

	"github.com/mrtrizer/Abuksigun.UpScript/env"
	"github.com/mrtrizer/Abuksigun.UpScript/reflection"
)

// place is an assignable location on the stack: what a VarPlace,
// MemberPlace, or IndexPlace instruction pushes in place of a plain
// value. get reads the current value; set is only ever called by SetOp.
type place interface {
	get() (any, error)
	set(value any) error
}

// varPlace is the place a VarPlace instruction pushes: a named binding in
// the environment.
type varPlace struct {
	env  env.Environment
	name string
}

func (p varPlace) get() (any, error) {
	v, _ := p.env.Get(p.name)
	return v, nil
}

func (p varPlace) set(value any) error {
	p.env.Set(p.name, value)
	return nil
}

// readThrough resolves v to a concrete value: if v is a place (pushed but
// not yet popped-and-read, e.g. the subject or an index of a still-pending
// MemberPlace/IndexPlace), it reads through it; otherwise it is already a
// value.
func readThrough(v any) (any, error) {
	if p, ok := v.(place); ok {
		return p.get()
	}
	return v, nil
}

func readThroughAll(vs []any) ([]any, error) {
	out := make([]any, len(vs))
	for i, v := range vs {
		rv, err := readThrough(v)
		if err != nil {
			return nil, err
		}
		out[i] = rv
	}
	return out, nil
}

// memberPlace is the place a MemberPlace instruction pushes: a field or
// property member of subject. subject is popped raw when MemberPlace
// executes and is read through lazily, here, at get/set time — it may
// itself still be a place (e.g. a.b.c chains one memberPlace's subject
// being another memberPlace).
type memberPlace struct {
	member  reflection.Member
	subject any
}

func (p memberPlace) get() (any, error) {
	receiver, err := readThrough(p.subject)
	if err != nil {
		return nil, err
	}
	if p.member.Static {
		receiver = nil
	}
	return p.member.Get(receiver)
}

func (p memberPlace) set(value any) error {
	if p.member.Set == nil {
		return fmt.Errorf("member %q is read-only", p.member.Name)
	}
	receiver, err := readThrough(p.subject)
	if err != nil {
		return err
	}
	if p.member.Static {
		receiver = nil
	}
	return p.member.Set(receiver, value)
}

// indexPlace is the place an IndexPlace instruction pushes: subject's
// element at indices. Both subject and every index are popped raw when
// IndexPlace executes and are read through lazily, here, at get/set time
// — so an index expression that is itself an assignment (e.g.
// arr[i] = (i = 5)) observes the post-assignment value of i, since the
// index isn't read until the outer SetOp calls set.
type indexPlace struct {
	indexer reflection.Indexer
	subject any
	indices []any
}

func (p indexPlace) get() (any, error) {
	subject, err := readThrough(p.subject)
	if err != nil {
		return nil, err
	}
	indices, err := readThroughAll(p.indices)
	if err != nil {
		return nil, err
	}
	return p.indexer.Get(subject, indices)
}

func (p indexPlace) set(value any) error {
	if p.indexer.Set == nil {
		return fmt.Errorf("indexer is read-only")
	}
	subject, err := readThrough(p.subject)
	if err != nil {
		return err
	}
	indices, err := readThroughAll(p.indices)
	if err != nil {
		return err
	}
	return p.indexer.Set(subject, indices, value)
}
