package persona

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbiterlabs/council/types"
)

func validDescriptor(id string) Descriptor {
	return Descriptor{
		ID:       id,
		Name:     "Name-" + id,
		Role:     "reviewer",
		Identity: "You review things.",
	}
}

func TestDescriptor_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Descriptor)
		wantErr bool
	}{
		{"Valid", func(d *Descriptor) {}, false},
		{"MissingID", func(d *Descriptor) { d.ID = "" }, true},
		{"BlankID", func(d *Descriptor) { d.ID = "   " }, true},
		{"MissingName", func(d *Descriptor) { d.Name = "" }, true},
		{"MissingIdentity", func(d *Descriptor) { d.Identity = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := validDescriptor("p1")
			tt.mutate(&d)
			err := d.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, types.ErrInvalidRequest, types.GetErrorCode(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRegistry_PreservesInsertionOrder(t *testing.T) {
	t.Parallel()
	reg := NewRegistry(nil)

	ids := []string{"zulu", "alpha", "mike", "bravo"}
	for _, id := range ids {
		require.NoError(t, reg.Add(validDescriptor(id)))
	}

	all := reg.All()
	require.Len(t, all, len(ids))
	for i, id := range ids {
		assert.Equal(t, id, all[i].ID, "position %d", i)
	}
	assert.Equal(t, len(ids), reg.Len())
}

func TestRegistry_RejectsDuplicateID(t *testing.T) {
	t.Parallel()
	reg := NewRegistry(nil)
	require.NoError(t, reg.Add(validDescriptor("p1")))

	err := reg.Add(validDescriptor("p1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_Get(t *testing.T) {
	t.Parallel()
	reg := NewRegistry(nil)
	require.NoError(t, reg.Add(validDescriptor("p1")))

	d, ok := reg.Get("p1")
	assert.True(t, ok)
	assert.Equal(t, "Name-p1", d.Name)

	_, ok = reg.Get("missing")
	assert.False(t, ok)
}

func TestRegistry_AllReturnsCopy(t *testing.T) {
	t.Parallel()
	reg := NewRegistry(nil)
	require.NoError(t, reg.Add(validDescriptor("p1")))

	all := reg.All()
	all[0].Name = "mutated"

	d, _ := reg.Get("p1")
	assert.Equal(t, "Name-p1", d.Name)
}

func TestParseRoster(t *testing.T) {
	t.Parallel()

	doc := []byte(`
personas:
  - id: architect
    name: Architect
    role: systems architect
    focus: long-term structure
    identity: You weigh structural tradeoffs.
  - id: security
    name: Security Analyst
    role: security analyst
    identity: You hunt for vulnerabilities.
`)
	reg, err := ParseRoster(doc, nil)
	require.NoError(t, err)
	require.Equal(t, 2, reg.Len())

	all := reg.All()
	assert.Equal(t, "architect", all[0].ID)
	assert.Equal(t, "security", all[1].ID)
	assert.Equal(t, "long-term structure", all[0].Focus)
}

func TestParseRoster_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{"Empty", "personas: []"},
		{"InvalidYAML", ":\n  - not yaml"},
		{"MissingIdentity", "personas:\n  - id: a\n    name: A"},
		{"DuplicateID", "personas:\n  - id: a\n    name: A\n    identity: x\n  - id: a\n    name: B\n    identity: y"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseRoster([]byte(tt.doc), nil)
			assert.Error(t, err)
		})
	}
}

func TestComposer_Compose(t *testing.T) {
	t.Parallel()
	comp := NewComposer()

	d := Descriptor{
		ID:       "arch",
		Name:     "Architect",
		Role:     "systems architect",
		Focus:    "maintainability",
		Identity: "You weigh structural tradeoffs.",
	}

	t.Run("AdvisoryAppendsGuideline", func(t *testing.T) {
		t.Parallel()
		out, err := comp.Compose(d, types.Advisory(1024))
		require.NoError(t, err)
		assert.Contains(t, out, "You weigh structural tradeoffs.")
		assert.Contains(t, out, "systems architect")
		assert.Contains(t, out, "maintainability")
		assert.Contains(t, out, fmt.Sprintf("roughly %d tokens", 1024))
	})

	t.Run("EnforcedAddsNoText", func(t *testing.T) {
		t.Parallel()
		out, err := comp.Compose(d, types.Enforced(8192))
		require.NoError(t, err)
		assert.NotContains(t, out, "tokens")
	})

	t.Run("UnboundedAddsNoText", func(t *testing.T) {
		t.Parallel()
		out, err := comp.Compose(d, types.Unbounded())
		require.NoError(t, err)
		assert.NotContains(t, out, "tokens")
	})

	t.Run("MalformedDescriptor", func(t *testing.T) {
		t.Parallel()
		_, err := comp.Compose(Descriptor{ID: "x", Name: "X"}, types.Unbounded())
		require.Error(t, err)
	})
}
