package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bigkaa/reporting-module/internal/domain/model"
	"github.com/bigkaa/reporting-module/internal/repository"
	"github.com/bigkaa/reporting-module/internal/tokenmint"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRemote — Metabase из памяти: ответы по "METHOD path", журнал вызовов.
type fakeRemote struct {
	mu        sync.Mutex
	responses map[string]string
	calls     []string
	bodies    map[string]any
}

func newFakeRemote(responses map[string]string) *fakeRemote {
	if responses == nil {
		responses = map[string]string{}
	}
	return &fakeRemote{responses: responses, bodies: map[string]any{}}
}

func (f *fakeRemote) do(method, path string, body any) json.RawMessage {
	key := method + " " + path
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, key)
	if body != nil {
		f.bodies[key] = body
	}
	resp, ok := f.responses[key]
	if !ok {
		return nil
	}
	return json.RawMessage(resp)
}

func (f *fakeRemote) Get(_ context.Context, path string) json.RawMessage {
	return f.do("GET", path, nil)
}

func (f *fakeRemote) Post(_ context.Context, path string, body any) json.RawMessage {
	return f.do("POST", path, body)
}

func (f *fakeRemote) Put(_ context.Context, path string, body any) json.RawMessage {
	return f.do("PUT", path, body)
}

func (f *fakeRemote) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeRemote) calledWithPrefix(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// bodyJSON возвращает тело запроса, перекодированное в map.
func (f *fakeRemote) bodyJSON(key string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, _ := json.Marshal(f.bodies[key])
	var out map[string]any
	_ = json.Unmarshal(data, &out)
	return out
}

// fakeMappingRepo — repository.MappingRepository в памяти.
type fakeMappingRepo struct {
	mu    sync.Mutex
	items map[string]*model.Mapping
	err   error
}

func newFakeMappingRepo(items ...*model.Mapping) *fakeMappingRepo {
	r := &fakeMappingRepo{items: map[string]*model.Mapping{}}
	for _, m := range items {
		r.items[m.UserID] = m
	}
	return r
}

func (r *fakeMappingRepo) Create(_ context.Context, m *model.Mapping) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if _, ok := r.items[m.UserID]; ok {
		return repository.ErrConflict
	}
	now := time.Now().UTC()
	m.CreatedAt, m.ModifiedAt = now, now
	cp := *m
	r.items[m.UserID] = &cp
	return nil
}

func (r *fakeMappingRepo) GetByUserID(_ context.Context, userID string) (*model.Mapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	m, ok := r.items[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *fakeMappingRepo) GetByEmail(_ context.Context, email string) (*model.Mapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.items {
		if strings.EqualFold(m.Email, email) {
			cp := *m
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeMappingRepo) Update(_ context.Context, m *model.Mapping) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if _, ok := r.items[m.UserID]; !ok {
		return repository.ErrNotFound
	}
	m.ModifiedAt = time.Now().UTC()
	cp := *m
	r.items[m.UserID] = &cp
	return nil
}

func (r *fakeMappingRepo) Delete(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if _, ok := r.items[userID]; !ok {
		return repository.ErrNotFound
	}
	delete(r.items, userID)
	return nil
}

func (r *fakeMappingRepo) List(_ context.Context) ([]*model.Mapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	out := make([]*model.Mapping, 0, len(r.items))
	for _, m := range r.items {
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

var errDBDown = errors.New("соединение с БД потеряно")

// fakeMinter запоминает последние claims и возвращает фиксированный токен или ошибку.
type fakeMinter struct {
	embed tokenmint.EmbedClaims
	sso   tokenmint.SSOClaims
	err   error
}


func (m *fakeMinter) MintEmbed(_ context.Context, c tokenmint.EmbedClaims) (tokenmint.Result, error) {
	m.embed = c
	if m.err != nil {
		return tokenmint.Result{}, m.err
	}
	return tokenmint.Result{Token: "tok-embed", Strategy: tokenmint.StrategyLocal}, nil
}

func (m *fakeMinter) MintSSO(_ context.Context, c tokenmint.SSOClaims) (tokenmint.Result, error) {
	m.sso = c
	if m.err != nil {
		return tokenmint.Result{}, m.err
	}
	return tokenmint.Result{Token: "tok-sso", Strategy: tokenmint.StrategyLocal}, nil
}

func (m *fakeMinter) Strategy() tokenmint.Strategy { return tokenmint.StrategyLocal }
