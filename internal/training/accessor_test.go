package training

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	entries []Entry
	err     error
}

func (f *fakeStore) ListActive(ctx context.Context, orgID string, types ...DataType) ([]Entry, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []Entry
	for _, e := range f.entries {
		if e.OrgID == orgID && e.IsActive {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) List(ctx context.Context, orgID string) ([]Entry, error) {
	return f.entries, f.err
}

func (f *fakeStore) Create(ctx context.Context, orgID string, dataType DataType, content string) (*Entry, error) {
	e := Entry{ID: "new", OrgID: orgID, DataType: dataType, Content: content, IsActive: true, Version: 1}
	f.entries = append(f.entries, e)
	return &e, nil
}

func (f *fakeStore) Update(ctx context.Context, orgID, id, content string) (*Entry, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStore) Deactivate(ctx context.Context, orgID, id string) error {
	return f.err
}

type fakeKnowledge struct {
	entries map[string][]string
	err     error
}

func (f *fakeKnowledge) Append(ctx context.Context, orgID string, entries []string) error {
	if f.entries == nil {
		f.entries = map[string][]string{}
	}
	f.entries[orgID] = append(f.entries[orgID], entries...)
	return f.err
}

func (f *fakeKnowledge) Replace(ctx context.Context, orgID string, entries []string) error {
	if f.entries == nil {
		f.entries = map[string][]string{}
	}
	f.entries[orgID] = entries
	return f.err
}

func (f *fakeKnowledge) List(ctx context.Context, orgID string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.entries[orgID], nil
}

func TestAccessorLoad(t *testing.T) {
	store := &fakeStore{entries: []Entry{
		{ID: "1", OrgID: "org-1", DataType: TypeSalesScript, Content: "a", IsActive: true},
		{ID: "2", OrgID: "org-1", DataType: TypeSOP, Content: "b", IsActive: false},
		{ID: "3", OrgID: "org-1", DataType: TypeSalesScript, Content: "c", IsActive: true},
	}}
	kb := &fakeKnowledge{entries: map[string][]string{"org-1": {"Free parking"}}}

	m, err := NewAccessor(store, kb, nil).Load(context.Background(), "org-1")
	require.NoError(t, err)
	assert.Len(t, m.Entries, 2)
	assert.Equal(t, []string{"Free parking"}, m.Knowledge)
	assert.Len(t, m.ByType()[TypeSalesScript], 2)
	assert.Empty(t, m.ByType()[TypeSOP])
}

func TestAccessorLoad_KnowledgeFailureIsSkipped(t *testing.T) {
	store := &fakeStore{entries: []Entry{{ID: "1", OrgID: "org-1", DataType: TypeSOP, IsActive: true}}}
	kb := &fakeKnowledge{err: errors.New("redis down")}

	m, err := NewAccessor(store, kb, nil).Load(context.Background(), "org-1")
	require.NoError(t, err)
	assert.Len(t, m.Entries, 1)
	assert.Empty(t, m.Knowledge)
}

func TestAccessorLoad_StoreFailure(t *testing.T) {
	_, err := NewAccessor(&fakeStore{err: errors.New("db down")}, nil, nil).Load(context.Background(), "org-1")
	assert.Error(t, err)
}
