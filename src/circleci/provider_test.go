package circleci

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"monobuild/src/provider"
)

func TestCircleCIProvider_Name(t *testing.T) {
	p := NewProvider(provider.Settings{Token: "fake-token"})
	if p.Name() != "circleci" {
		t.Errorf("Name() = %v, want circleci", p.Name())
	}
}

func TestCircleCIProvider_Registered(t *testing.T) {
	p, err := provider.GetProvider("circleci", provider.Settings{Owner: "acme", Repo: "mono"})
	if err != nil {
		t.Fatalf("GetProvider() error = %v", err)
	}
	if _, ok := p.(*Provider); !ok {
		t.Errorf("GetProvider() returned %T, want *circleci.Provider", p)
	}
}

func TestCircleCIProvider_FetchStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"build_num":3,"lifecycle":"finished","outcome":"timedout","status":"timedout"}`))
	}))
	defer server.Close()

	p := NewProvider(provider.Settings{Owner: "acme", Repo: "mono", Token: "tok", APIBaseURL: server.URL})
	status, err := p.FetchStatus(context.Background(), 3)
	if err != nil {
		t.Fatalf("FetchStatus() error = %v", err)
	}

	want := provider.Status{
		Lifecycle: provider.LifecycleFinished,
		Outcome:   provider.OutcomeTimedOut,
		Status:    provider.BuildStatusTimedOut,
	}
	if status != want {
		t.Errorf("FetchStatus() = %+v, want %+v", status, want)
	}
}

func TestCircleCIProvider_BuildURL(t *testing.T) {
	p := NewProvider(provider.Settings{Owner: "acme", Repo: "mono", WebBaseURL: "https://ci.example.com/"})
	if got := p.BuildURL(9); got != "https://ci.example.com/gh/acme/mono/9" {
		t.Errorf("BuildURL() = %v", got)
	}
}
