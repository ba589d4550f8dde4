package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-labs/vaultsync/internal/backend"
)

// fakeClient scripts backend responses for reconciler tests.
type fakeClient struct {
	mu         sync.Mutex
	conn       backend.Connection
	probeErr   error
	models     []backend.ModelOption
	modelsErr  error
	pref       backend.Preference
	prefErr    error
	pushErr    error
	pushedIDs  []*string
	probeCalls int
}

func (f *fakeClient) Probe(context.Context) (backend.Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probeCalls++
	return f.conn, f.probeErr
}

func (f *fakeClient) ListModels(context.Context) ([]backend.ModelOption, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.models, f.modelsErr
}

func (f *fakeClient) GetPreference(context.Context) (backend.Preference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pref, f.prefErr
}

func (f *fakeClient) PutPreference(_ context.Context, id *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushedIDs = append(f.pushedIDs, id)
	return f.pushErr
}

// memPrefs records persisted selections.
type memPrefs struct {
	mu    sync.Mutex
	saved []*string
}

func (p *memPrefs) SetSelectedModel(id *string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saved = append(p.saved, id)
	return nil
}

func (p *memPrefs) last() *string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.saved) == 0 {
		return nil
	}
	return p.saved[len(p.saved)-1]
}

func strPtr(s string) *string { return &s }

func twoModels() []backend.ModelOption {
	return []backend.ModelOption{{ID: "1", Name: "one"}, {ID: "2", Name: "two"}}
}

func TestRefresh_AdoptsServerPreference(t *testing.T) {
	client := &fakeClient{
		conn:   backend.Connection{Connected: true},
		models: twoModels(),
		pref:   backend.Preference{SelectedModelID: strPtr("2")},
	}
	r := New(client, &memPrefs{}, nil, nil)

	snap, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateConnectedWithModels, snap.State)
	require.NotNil(t, snap.SelectedModelID)
	assert.Equal(t, "2", *snap.SelectedModelID)
}

func TestRefresh_StalePreferenceFallsBackToDefault(t *testing.T) {
	prefs := &memPrefs{}
	client := &fakeClient{
		conn:   backend.Connection{Connected: true},
		models: twoModels(),
		pref:   backend.Preference{SelectedModelID: strPtr("7")},
	}
	r := New(client, prefs, nil, nil)

	snap, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snap.SelectedModelID, "id 7 is not in the model list")
	// The fallback is persisted so the UI reflects it.
	require.NotEmpty(t, prefs.saved)
	assert.Nil(t, prefs.last())
}

func TestRefresh_NoServerPreference(t *testing.T) {
	client := &fakeClient{
		conn:   backend.Connection{Connected: true},
		models: twoModels(),
	}
	r := New(client, &memPrefs{}, strPtr("1"), nil)

	snap, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snap.SelectedModelID, "server null and local null collapse to one state")
}

func TestRefresh_Idempotent(t *testing.T) {
	client := &fakeClient{
		conn:   backend.Connection{Connected: true},
		models: twoModels(),
		pref:   backend.Preference{SelectedModelID: strPtr("1")},
	}
	r := New(client, &memPrefs{}, nil, nil)

	first, err := r.Refresh(context.Background())
	require.NoError(t, err)
	second, err := r.Refresh(context.Background())
	require.NoError(t, err)

	require.NotNil(t, first.SelectedModelID)
	require.NotNil(t, second.SelectedModelID)
	assert.Equal(t, *first.SelectedModelID, *second.SelectedModelID)
	assert.Equal(t, first.State, second.State)
}

func TestRefresh_DisconnectionResetsEverything(t *testing.T) {
	client := &fakeClient{
		conn:   backend.Connection{Connected: true},
		models: twoModels(),
		pref:   backend.Preference{SelectedModelID: strPtr("1")},
	}
	prefs := &memPrefs{}
	r := New(client, prefs, nil, nil)

	snap, err := r.Refresh(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap.SelectedModelID)

	client.mu.Lock()
	client.conn = backend.Connection{Connected: false, StatusMessage: "Not connected"}
	client.mu.Unlock()

	snap, err = r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateDisconnected, snap.State)
	assert.Empty(t, snap.Models)
	assert.Nil(t, snap.SelectedModelID)
	assert.Nil(t, prefs.last())
}

func TestRefresh_ProbeErrorTreatedAsDisconnected(t *testing.T) {
	client := &fakeClient{
		conn:     backend.Connection{Connected: false, StatusMessage: "Not connected"},
		probeErr: errors.New("dial tcp: refused"),
	}
	r := New(client, &memPrefs{}, strPtr("1"), nil)

	snap, err := r.Refresh(context.Background())
	require.NoError(t, err, "probe failure is a state, not an error")
	assert.Equal(t, StateDisconnected, snap.State)
	assert.Nil(t, snap.SelectedModelID)
}

func TestRefresh_FetchFailureClearsState(t *testing.T) {
	client := &fakeClient{
		conn:      backend.Connection{Connected: true},
		modelsErr: errors.New("boom"),
		pref:      backend.Preference{SelectedModelID: strPtr("1")},
	}
	r := New(client, &memPrefs{}, strPtr("1"), nil)

	snap, err := r.Refresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateDisconnected, snap.State)
	assert.Empty(t, snap.Models)
	assert.Nil(t, snap.SelectedModelID)
}

func TestRefresh_ConnectedNoModels(t *testing.T) {
	client := &fakeClient{conn: backend.Connection{Connected: true}}
	r := New(client, &memPrefs{}, nil, nil)

	snap, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateConnectedNoModels, snap.State)
}

func TestSelect_PushSuccess(t *testing.T) {
	prefs := &memPrefs{}
	client := &fakeClient{conn: backend.Connection{Connected: true}, models: twoModels()}
	r := New(client, prefs, nil, nil)

	require.NoError(t, r.Select(context.Background(), strPtr("2")))
	snap := r.Snapshot()
	require.NotNil(t, snap.SelectedModelID)
	assert.Equal(t, "2", *snap.SelectedModelID)
	require.NotNil(t, prefs.last())
	assert.Equal(t, "2", *prefs.last())
}

func TestSelect_FailedPushReverts(t *testing.T) {
	prefs := &memPrefs{}
	client := &fakeClient{
		conn:    backend.Connection{Connected: true},
		models:  twoModels(),
		pref:    backend.Preference{SelectedModelID: strPtr("1")},
		pushErr: errors.New("server said no"),
	}
	r := New(client, prefs, nil, nil)
	_, err := r.Refresh(context.Background())
	require.NoError(t, err)

	err = r.Select(context.Background(), strPtr("2"))
	require.Error(t, err)

	snap := r.Snapshot()
	require.NotNil(t, snap.SelectedModelID)
	assert.Equal(t, "1", *snap.SelectedModelID, "failed push reverts to last known-good")
}

func TestSnapshot_ReturnsCopies(t *testing.T) {
	client := &fakeClient{
		conn:   backend.Connection{Connected: true},
		models: twoModels(),
		pref:   backend.Preference{SelectedModelID: strPtr("1")},
	}
	r := New(client, &memPrefs{}, nil, nil)
	_, err := r.Refresh(context.Background())
	require.NoError(t, err)

	snap := r.Snapshot()
	snap.Models[0].ID = "mutated"
	*snap.SelectedModelID = "mutated"

	fresh := r.Snapshot()
	assert.Equal(t, "1", fresh.Models[0].ID)
	assert.Equal(t, "1", *fresh.SelectedModelID)
}
