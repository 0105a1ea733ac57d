package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"evacconsole/internal/credentials"
	"evacconsole/internal/transport"
)

type apiCall struct {
	method string
	path   string
	opts   transport.RequestOptions
}

// fakeAPI replays scripted results per "METHOD path". The last scripted
// result for a key is reused once the queue is drained.
type fakeAPI struct {
	mu        sync.Mutex
	responses map[string][]transport.Result
	calls     []apiCall
	gate      chan struct{}
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{responses: map[string][]transport.Result{}}
}

func (f *fakeAPI) on(method, path string, res ...transport.Result) *fakeAPI {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := method + " " + path
	f.responses[key] = append(f.responses[key], res...)
	return f
}

func (f *fakeAPI) Request(ctx context.Context, method, path string, opts transport.RequestOptions) transport.Result {
	f.mu.Lock()
	f.calls = append(f.calls, apiCall{method: method, path: path, opts: opts})
	gate := f.gate
	key := method + " " + path
	queue := f.responses[key]
	var res transport.Result
	switch len(queue) {
	case 0:
		res = failed(404, fmt.Sprintf("HTTP 404: no route for %s", key))
	case 1:
		res = queue[0]
	default:
		res = queue[0]
		f.responses[key] = queue[1:]
	}
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return res
}

func (f *fakeAPI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeAPI) lastCall() apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return apiCall{}
	}
	return f.calls[len(f.calls)-1]
}

func (f *fakeAPI) called(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.method == method && c.path == path {
			n++
		}
	}
	return n
}

func ok(data string) transport.Result {
	res := transport.Result{Success: true, Status: 200}
	if data != "" {
		res.Data = json.RawMessage(data)
	}
	return res
}

func failed(status int, msg string) transport.Result {
	return transport.Result{Success: false, Status: status, Error: msg}
}

// fakeCredStore is an in-memory CredentialStore.
type fakeCredStore struct {
	mu         sync.Mutex
	creds      credentials.Credentials
	authFailed bool
	setErr     error
}

func (f *fakeCredStore) Get() credentials.Credentials {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creds
}

func (f *fakeCredStore) Set(ctx context.Context, u credentials.Update) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	if u.Token != nil {
		f.creds.Token = *u.Token
	}
	if u.BaseURL != nil {
		f.creds.BaseURL = *u.BaseURL
	}
	f.authFailed = false
	return nil
}

func (f *fakeCredStore) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creds.Token = ""
	return nil
}

func (f *fakeCredStore) AuthFailed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authFailed
}
