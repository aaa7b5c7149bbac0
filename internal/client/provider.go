package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/AnshRaj112/skillswap-backend/internal/reconciler"
)

const providerFile = "provider.json"

// FileProvider is a federated identity provider session persisted on disk.
// SignIn records the session a browser sign-in produced; attached listeners
// see every change in order on a delivery goroutine of their own.
type FileProvider struct {
	path string

	mu        sync.Mutex
	listeners map[int]*providerListener
	nextID    int
}

type providerListener struct {
	fn      func(*reconciler.ProviderUser)
	mu      sync.Mutex
	pending []*reconciler.ProviderUser
	wake    chan struct{}
	stop    chan struct{}
	done    chan struct{}
}

// NewFileProvider keeps the provider session under dir.
func NewFileProvider(dir string) *FileProvider {
	return &FileProvider{
		path:      filepath.Join(dir, providerFile),
		listeners: make(map[int]*providerListener),
	}
}

// Current returns the stored session, or nil when signed out.
func (p *FileProvider) Current() (*reconciler.ProviderUser, error) {
	b, err := os.ReadFile(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read provider session: %w", err)
	}
	var pu reconciler.ProviderUser
	if err := json.Unmarshal(b, &pu); err != nil {
		return nil, fmt.Errorf("decode provider session: %w", err)
	}
	if pu.UID == "" {
		return nil, nil
	}
	return &pu, nil
}

// SignIn stores pu as the provider session and notifies listeners.
func (p *FileProvider) SignIn(pu reconciler.ProviderUser) error {
	if pu.UID == "" {
		return fmt.Errorf("%w: provider uid is required", ErrInvalidInput)
	}
	b, err := json.Marshal(pu)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		return fmt.Errorf("create provider dir: %w", err)
	}
	if err := writeFileAtomic(p.path, b); err != nil {
		return fmt.Errorf("write provider session: %w", err)
	}
	p.broadcast(&pu)
	return nil
}

// SignOut removes the session and notifies listeners with nil.
func (p *FileProvider) SignOut(context.Context) error {
	if err := os.Remove(p.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove provider session: %w", err)
	}
	p.broadcast(nil)
	return nil
}

// Active reports whether a provider session is stored.
func (p *FileProvider) Active() bool {
	pu, err := p.Current()
	return err == nil && pu != nil
}

// Attach registers fn. The current session is delivered first.
func (p *FileProvider) Attach(fn func(*reconciler.ProviderUser)) (func(), error) {
	current, err := p.Current()
	if err != nil {
		return nil, err
	}

	l := &providerListener{
		fn:      fn,
		pending: []*reconciler.ProviderUser{current},
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	l.wake <- struct{}{}

	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = l
	p.mu.Unlock()

	go l.run()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.listeners, id)
			p.mu.Unlock()
			close(l.stop)
			<-l.done
		})
	}, nil
}

func (p *FileProvider) broadcast(pu *reconciler.ProviderUser) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, l := range p.listeners {
		var cp *reconciler.ProviderUser
		if pu != nil {
			v := *pu
			cp = &v
		}
		l.push(cp)
	}
}

func (l *providerListener) push(pu *reconciler.ProviderUser) {
	l.mu.Lock()
	l.pending = append(l.pending, pu)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *providerListener) run() {
	defer close(l.done)
	for {
		select {
		case <-l.stop:
			return
		case <-l.wake:
		}
		l.mu.Lock()
		batch := l.pending
		l.pending = nil
		l.mu.Unlock()
		for _, pu := range batch {
			select {
			case <-l.stop:
				return
			default:
			}
			l.fn(pu)
		}
	}
}
