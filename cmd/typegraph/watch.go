package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/wippyai/typegraph/store/filestore"
	"github.com/wippyai/typegraph/types"
)

// printer reports graph changes as they are applied.
type printer struct {
	w io.Writer
}

func (p printer) MemberAdded(m *types.Member) {
	fmt.Fprintf(p.w, "+ member %s.%s (%s)\n", m.Parent().Name(), m.Name(), m.BaseTypeName())
}

func (p printer) MemberDeleted(m *types.Member) {
	fmt.Fprintf(p.w, "- member %s.%s\n", m.Parent().Name(), m.Name())
}

func (p printer) MemberUpdated(m *types.Member) {
	fmt.Fprintf(p.w, "~ member %s.%s (%s)@%d\n", m.Parent().Name(), m.Name(), m.BaseTypeName(), m.Offset())
}

func (p printer) MembersMoved(affected []*types.Type) {
	for _, t := range affected {
		fmt.Fprintf(p.w, "~ moved members of %s\n", t.Name())
	}
}

func (p printer) TypeAdded(t *types.Type) {
	fmt.Fprintf(p.w, "+ type %s (%s, %d bits)\n", t.Name(), t.Category(), t.BitSize())
}

func (p printer) TypeDeleted(t *types.Type) {
	fmt.Fprintf(p.w, "- type %s\n", t.Name())
}

func (p printer) TypesUpdated(affected []*types.Type) {
	for _, t := range affected {
		fmt.Fprintf(p.w, "~ type %s (%d bits)\n", t.Name(), t.BitSize())
	}
}

func (p printer) SubstitutionsAdded(s []*types.Substitution) {
	fmt.Fprintf(p.w, "+ %d substitutions\n", len(s))
}

func (p printer) SubstitutionsChanged(s []*types.Substitution) {
	fmt.Fprintf(p.w, "~ %d substitutions\n", len(s))
}

func (p printer) SubstitutionsDeleted(s []*types.Substitution) {
	fmt.Fprintf(p.w, "- %d substitutions\n", len(s))
}

func runWatch(ctx context.Context, m *types.Manager, fs *filestore.Backend) error {
	w := fs.Watcher()
	if w == nil {
		return fmt.Errorf("watcher not started")
	}
	p := printer{w: os.Stdout}
	m.AddTypeChangedListener(p)
	m.AddSubstitutionChangedListener(p)

	fmt.Printf("Watching %s (%d types)\n", fs.Path(), len(m.Types()))
	err := w.Run(ctx, m, func(d filestore.Diff, err error) {
		if err != nil {
			fmt.Fprintf(os.Stderr, "reload: %v\n", err)
			return
		}
		fmt.Printf("reloaded: %d changes\n", d.Len())
	})
	if stderrors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
