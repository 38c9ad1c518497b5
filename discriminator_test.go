package handling

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testView() View {
	return InspectMessage(NewEvent(
		json.RawMessage(`{"source":"billing","detail":{"userId":"123"},"count":42}`),
		Metadata{"version": "2", "tenant": "acme"},
	))
}

func TestHasFields(t *testing.T) {
	view := testView()

	tests := []struct {
		name  string
		paths []string
		want  bool
	}{
		{name: "all present", paths: []string{"source", "detail.userId"}, want: true},
		{name: "metadata and payload", paths: []string{"metadata.tenant", "source"}, want: true},
		{name: "one missing", paths: []string{"source", "missing"}, want: false},
		{name: "missing header", paths: []string{"metadata.region"}, want: false},
		{name: "no paths", paths: nil, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasFields(tt.paths...).Match(view))
		})
	}
}

func TestFieldEquals(t *testing.T) {
	view := testView()

	assert.True(t, FieldEquals("source", "billing").Match(view))
	assert.False(t, FieldEquals("source", "shipping").Match(view))
	assert.False(t, FieldEquals("count", "42").Match(view), "numbers never equal strings")
	assert.False(t, FieldEquals("missing", "").Match(view))
}

func TestMetadataEquals(t *testing.T) {
	view := testView()

	assert.True(t, MetadataEquals("version", "2").Match(view))
	assert.False(t, MetadataEquals("version", "1").Match(view))
	assert.False(t, MetadataEquals("region", "").Match(view))
}

func TestCombinators(t *testing.T) {
	view := testView()
	yes := FieldEquals("source", "billing")
	no := FieldEquals("source", "shipping")

	tests := []struct {
		name string
		d    Discriminator
		want bool
	}{
		{name: "and all true", d: And(yes, yes), want: true},
		{name: "and one false", d: And(yes, no), want: false},
		{name: "empty and", d: And(), want: true},
		{name: "or one true", d: Or(no, yes), want: true},
		{name: "or all false", d: Or(no, no), want: false},
		{name: "empty or", d: Or(), want: false},
		{name: "not false", d: Not(no), want: true},
		{name: "not true", d: Not(yes), want: false},
		{name: "nested", d: And(Or(no, yes), Not(no), MetadataEquals("tenant", "acme")), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.d.Match(view))
		})
	}
}

func TestDiscriminatorFunc(t *testing.T) {
	var seen View
	d := DiscriminatorFunc(func(v View) bool {
		seen = v
		return true
	})

	view := testView()
	assert.True(t, d.Match(view))
	assert.Same(t, view, seen)
}
