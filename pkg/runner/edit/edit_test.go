package edit

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/fatih/color"

	"tableflip.dev/tabtree/pkg/app"
	"tableflip.dev/tabtree/pkg/store"
	"tableflip.dev/tabtree/pkg/structure"
	"tableflip.dev/tabtree/pkg/tree"
)

type testConfig struct {
	path string
}

func (t testConfig) BasePath() string {
	return t.path
}

func newService(t *testing.T) *app.Service {
	t.Helper()
	p, err := store.Load(testConfig{path: t.TempDir()})
	if err != nil {
		t.Fatalf("load persistence: %v", err)
	}
	collapsed := false
	w := &store.Window{Name: "main", Items: []structure.Item{
		{ID: "a", Parent: structure.NoParent, Collapsed: &collapsed},
		{ID: "b", Parent: structure.NoParent, Collapsed: &collapsed},
	}}
	if err := p.Save(w); err != nil {
		t.Fatalf("save: %v", err)
	}
	return &app.Service{Persistence: p}
}

func quiet(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	out, noColor := color.Output, color.NoColor
	color.Output, color.NoColor = &buf, true
	t.Cleanup(func() { color.Output, color.NoColor = out, noColor })
	return &buf
}

func TestEditSavesAndPrints(t *testing.T) {
	buf := quiet(t)
	svc := newService(t)
	e := Edit{
		Service: svc,
		Trace:   true,
		Change: func(ctx context.Context, sess *app.Session) ([]string, error) {
			_, err := sess.Attach(ctx, "b", "a", tree.AttachOptions{Broadcast: true})
			return []string{"main"}, err
		},
	}
	if err := e.Do(context.Background()); err != nil {
		t.Fatalf("edit: %v", err)
	}
	w, err := svc.Persistence.Load(context.Background(), "main")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if w.Items[1].Parent != 0 {
		t.Fatalf("items = %+v", w.Items)
	}
	if !bytes.Contains(buf.Bytes(), []byte("main")) {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestEditKeepsChangeError(t *testing.T) {
	quiet(t)
	svc := newService(t)
	boom := errors.New("boom")
	e := Edit{
		Service: svc,
		Quiet:   true,
		Change: func(ctx context.Context, sess *app.Session) ([]string, error) {
			return nil, boom
		},
	}
	if err := e.Do(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("edit = %v", err)
	}
}

func TestEditNeedsService(t *testing.T) {
	if err := (&Edit{}).Do(context.Background()); err == nil {
		t.Fatal("expected an error")
	}
}
