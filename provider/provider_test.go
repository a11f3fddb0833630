package provider

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

type testProvider struct {
	name      string
	available bool
}

func (p *testProvider) Name() string                       { return p.name }
func (p *testProvider) IsAvailable(_ context.Context) bool { return p.available }

func TestRegistryRegisterAndCreate(t *testing.T) {
	reg := NewRegistry[*testProvider]()
	reg.RegisterFactory("mock", func(cfg map[string]any) (*testProvider, error) {
		return &testProvider{name: "mock", available: true}, nil
	})

	p, err := reg.Create("mock", nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if p.Name() != "mock" {
		t.Errorf("expected name 'mock', got %q", p.Name())
	}
}

func TestRegistryCreateUnregistered(t *testing.T) {
	reg := NewRegistry[*testProvider]()
	reg.RegisterFactory("whisper", func(map[string]any) (*testProvider, error) { return &testProvider{}, nil })
	_, err := reg.Create("missing", nil)
	if err == nil {
		t.Fatal("expected error for unregistered factory")
	}
	if !strings.Contains(err.Error(), "not registered") || !strings.Contains(err.Error(), "whisper") {
		t.Errorf("expected known names in error, got %q", err.Error())
	}
}

func TestRegistryList(t *testing.T) {
	reg := NewRegistry[*testProvider]()
	reg.RegisterFactory("whisper", func(map[string]any) (*testProvider, error) { return &testProvider{}, nil })
	reg.RegisterFactory("mock", func(map[string]any) (*testProvider, error) { return &testProvider{}, nil })

	names := reg.List()
	if len(names) != 2 || names[0] != "mock" || names[1] != "whisper" {
		t.Errorf("expected sorted [mock whisper], got %v", names)
	}
}

func TestRegistryGetOrCreateCaches(t *testing.T) {
	reg := NewRegistry[*testProvider]()
	var calls int
	var mu sync.Mutex
	reg.RegisterFactory("mock", func(map[string]any) (*testProvider, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return &testProvider{name: "mock"}, nil
	})

	first, err := reg.GetOrCreate("mock", nil)
	if err != nil {
		t.Fatal(err)
	}
	second, _ := reg.GetOrCreate("mock", nil)
	if first != second {
		t.Error("expected cached instance")
	}
	if calls != 1 {
		t.Errorf("expected factory called once, got %d", calls)
	}
}

func TestRegistryGetSet(t *testing.T) {
	reg := NewRegistry[*testProvider]()
	if _, ok := reg.Get("cached"); ok {
		t.Error("expected Get to return false before Set")
	}
	reg.Set("cached", &testProvider{name: "cached"})
	got, ok := reg.Get("cached")
	if !ok || got.Name() != "cached" {
		t.Fatalf("expected cached provider, got %v %v", got, ok)
	}
}

type decodeTarget struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	Workers int           `mapstructure:"workers"`
}

func TestDecodeConfig(t *testing.T) {
	var out decodeTarget
	err := DecodeConfig(map[string]any{
		"base_url": "http://localhost:9000",
		"timeout":  "90s",
		"workers":  "2",
	}, &out)
	if err != nil {
		t.Fatalf("DecodeConfig: %v", err)
	}
	if out.BaseURL != "http://localhost:9000" || out.Timeout != 90*time.Second || out.Workers != 2 {
		t.Errorf("unexpected decode result %+v", out)
	}
}

func TestDecodeConfigTypeError(t *testing.T) {
	var out decodeTarget
	if err := DecodeConfig(map[string]any{"workers": []int{1}}, &out); err == nil {
		t.Fatal("expected decode error")
	}
}

type closer struct{ closed bool }

func (c *closer) Close(context.Context) error { c.closed = true; return nil }

func TestCloseIfCloseable(t *testing.T) {
	c := &closer{}
	if err := CloseIfCloseable(context.Background(), c); err != nil || !c.closed {
		t.Fatalf("expected Close to be called, err=%v", err)
	}
	if err := CloseIfCloseable(context.Background(), &testProvider{}); err != nil {
		t.Fatalf("non-closeable should be a no-op, got %v", err)
	}
}
