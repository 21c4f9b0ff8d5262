// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package script

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/jeranaias/ircpipe/internal/hooks"
	"github.com/jeranaias/ircpipe/internal/storage"
)

// =============================================================================
// REGISTRY
// =============================================================================

// entry is the registry's record of one script.
type entry struct {
	meta    Script
	hooks   hooks.Hooks
	log     *ringLog
	limiter *rate.Limiter

	// guard serializes calls into this script's interpreter.
	guard sync.Mutex
}

// Registry owns every installed script, its enabled flag and its log.
// Each method is atomic with respect to the others.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]*entry
	host    Host

	compile   Compiler
	logCap    int
	sendRate  rate.Limit
	sendBurst int
	spamKill  bool

	kv     storage.Store
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithHost attaches the transport adapter used by send capabilities.
func WithHost(h Host) Option {
	return func(r *Registry) { r.host = h }
}

// WithCompiler replaces the interpreter-backed Compile.
func WithCompiler(c Compiler) Option {
	return func(r *Registry) {
		if c != nil {
			r.compile = c
		}
	}
}

// WithLogBufferSize sets the per-script log capacity.
func WithLogBufferSize(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.logCap = n
		}
	}
}

// WithSendLimit allows perSecond sends with the given burst per script.
// When spamKill is set a script exceeding the limit is disabled.
func WithSendLimit(perSecond float64, burst int, spamKill bool) Option {
	return func(r *Registry) {
		if perSecond > 0 {
			r.sendRate = rate.Limit(perSecond)
		} else {
			r.sendRate = rate.Inf
		}
		if burst > 0 {
			r.sendBurst = burst
		}
		r.spamKill = spamKill
	}
}

// WithPersistence restores scripts from kv and saves every change back.
func WithPersistence(kv storage.Store) Option {
	return func(r *Registry) { r.kv = kv }
}

// WithLogger sets the registry logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// NewRegistry creates a registry and restores persisted scripts. A stored
// script that no longer compiles is kept, disabled, with its error recorded.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		entries:   make(map[string]*entry),
		compile:   Compile,
		logCap:    DefaultLogBufferSize,
		sendRate:  rate.Limit(5),
		sendBurst: 10,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.restore()
	return r
}

// SetHost attaches or replaces the capability host.
func (r *Registry) SetHost(h Host) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.host = h
}

// =============================================================================
// INSTALL / REPLACE / REMOVE
// =============================================================================

// Install compiles source under a new id. The script starts disabled.
func (r *Registry) Install(source string, config json.RawMessage) (Script, error) {
	return r.InstallNamed(uuid.NewString(), "", source, config)
}

// InstallNamed is Install with a caller-chosen id and display name.
func (r *Registry) InstallNamed(id, name, source string, config json.RawMessage) (Script, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Script{}, ErrInvalidID
	}
	if err := validateConfig(config); err != nil {
		return Script{}, err
	}

	r.mu.RLock()
	_, exists := r.entries[id]
	r.mu.RUnlock()
	if exists {
		return Script{}, fmt.Errorf("%w: %s", ErrExists, id)
	}

	// Compile outside the lock: top-level initializers may call irc.Log.
	// Their lines are kept in boot until the entry exists.
	boot := newBootLog(config)
	h, err := r.compile(source, apiExports(scriptAPI{r: r, id: id, boot: boot}))
	if err != nil {
		return Script{}, err
	}

	now := r.now()
	e := &entry{
		meta: Script{
			ID:          id,
			Name:        name,
			Source:      source,
			Config:      cloneRaw(config),
			Hooks:       h.Names(),
			InstalledAt: now,
			UpdatedAt:   now,
		},
		hooks:   h,
		log:     newRingLog(r.logCap),
		limiter: rate.NewLimiter(r.sendRate, r.sendBurst),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[id]; exists {
		return Script{}, fmt.Errorf("%w: %s", ErrExists, id)
	}
	boot.drainInto(e.log)
	r.entries[id] = e
	r.order = append(r.order, id)
	r.persistLocked()

	r.logger.Info("script installed", "id", id, "name", name, "hooks", e.meta.Hooks)
	return e.snapshot(), nil
}

// Replace recompiles an installed script with new source. The enabled
// flag, config and log are kept. On error the old version stays active.
func (r *Registry) Replace(id, source string) (Script, error) {
	if _, err := r.Get(id); err != nil {
		return Script{}, err
	}
	h, err := r.compile(source, apiExports(scriptAPI{r: r, id: id}))
	if err != nil {
		return Script{}, err
	}

	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return Script{}, &NotFoundError{ID: id}
	}
	r.mu.Unlock()

	// Wait for any in-flight hook before swapping interpreters.
	e.guard.Lock()
	r.mu.Lock()
	e.hooks = h
	e.meta.Source = source
	e.meta.Hooks = h.Names()
	e.meta.LastError = ""
	e.meta.UpdatedAt = r.now()
	e.log.append("reloaded")
	r.persistLocked()
	snap := e.snapshot()
	r.mu.Unlock()
	e.guard.Unlock()

	r.logger.Info("script replaced", "id", id, "hooks", snap.Hooks)
	return snap, nil
}

// Remove deletes a script and its log.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; !ok {
		return &NotFoundError{ID: id}
	}
	delete(r.entries, id)
	for i, other := range r.order {
		if other == id {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
	r.persistLocked()
	r.logger.Info("script removed", "id", id)
	return nil
}

// =============================================================================
// STATE
// =============================================================================

// SetEnabled turns hook participation on or off. It never recompiles and
// is idempotent.
func (r *Registry) SetEnabled(id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return &NotFoundError{ID: id}
	}
	if e.meta.Enabled == enabled {
		return nil
	}
	e.meta.Enabled = enabled
	e.meta.UpdatedAt = r.now()
	r.persistLocked()
	r.logger.Debug("script toggled", "id", id, "enabled", enabled)
	return nil
}

// SetConfig replaces a script's config value.
func (r *Registry) SetConfig(id string, config json.RawMessage) error {
	if err := validateConfig(config); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return &NotFoundError{ID: id}
	}
	e.meta.Config = cloneRaw(config)
	e.meta.UpdatedAt = r.now()
	r.persistLocked()
	return nil
}

// AppendLog adds a line to the script's own log buffer.
func (r *Registry) AppendLog(id, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return &NotFoundError{ID: id}
	}
	e.log.append(text)
	return nil
}

// Logs returns the script's log, oldest first.
func (r *Registry) Logs(id string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return e.log.snapshot(), nil
}

// Get returns a snapshot of one script.
func (r *Registry) Get(id string) (Script, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return Script{}, &NotFoundError{ID: id}
	}
	return e.snapshot(), nil
}

// List returns every script in registration order.
func (r *Registry) List() []Script {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Script, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id].snapshot())
	}
	return out
}

// Len returns the number of installed scripts.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Lint checks source without running it.
func (r *Registry) Lint(source string) []Diagnostic {
	return Lint(source)
}

// =============================================================================
// hooks.Provider
// =============================================================================

// Bindings returns the enabled scripts in registration order.
func (r *Registry) Bindings() []hooks.Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]hooks.Binding, 0, len(r.order))
	for _, id := range r.order {
		e := r.entries[id]
		if !e.meta.Enabled || e.hooks.Empty() {
			continue
		}
		id := id
		out = append(out, hooks.Binding{
			ScriptID: id,
			Hooks:    e.hooks,
			Guard:    &e.guard,
			Enabled:  func() bool { return r.isEnabled(id) },
		})
	}
	return out
}

// RecordError stores a hook failure as the script's last error and logs it
// to the script's buffer.
func (r *Registry) RecordError(id string, err error) {
	if err == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return
	}
	e.meta.LastError = err.Error()
	e.log.append("error: " + err.Error())
}

func (r *Registry) isEnabled(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return ok && e.meta.Enabled
}

// =============================================================================
// CAPABILITY SUPPORT
// =============================================================================

func (r *Registry) currentHost() Host {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.host
}

func (r *Registry) configOf(id string) (json.RawMessage, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[id]; ok {
		return cloneRaw(e.meta.Config), true
	}
	return nil, false
}

// beginSend resolves the host and network for a send and charges the
// script's rate limiter. Over the limit the send is dropped and, with spam
// kill on, the script is disabled.
func (r *Registry) beginSend(id string, networkID []string) (Host, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, "", &NotFoundError{ID: id}
	}
	if r.host == nil {
		return nil, "", ErrNoHost
	}
	if !e.limiter.Allow() {
		e.log.append("send dropped: rate limit exceeded")
		if r.spamKill && e.meta.Enabled {
			e.meta.Enabled = false
			e.meta.LastError = "disabled: " + ErrRateLimited.Error()
			r.persistLocked()
			r.logger.Warn("script disabled for spamming", "id", id)
		}
		return nil, "", ErrRateLimited
	}

	network := r.host.DefaultNetwork()
	if len(networkID) > 0 && networkID[0] != "" {
		network = networkID[0]
	}
	return r.host, network, nil
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// record is the persisted form of a script. Logs are not persisted.
type record struct {
	ID          string          `json:"id"`
	Name        string          `json:"name,omitempty"`
	Source      string          `json:"source"`
	Enabled     bool            `json:"enabled"`
	Config      json.RawMessage `json:"config,omitempty"`
	InstalledAt time.Time       `json:"installed_at"`
}

func (r *Registry) persistLocked() {
	if r.kv == nil {
		return
	}
	records := make([]record, 0, len(r.order))
	for _, id := range r.order {
		m := r.entries[id].meta
		records = append(records, record{
			ID: m.ID, Name: m.Name, Source: m.Source, Enabled: m.Enabled,
			Config: m.Config, InstalledAt: m.InstalledAt,
		})
	}
	_ = storage.SaveJSON(r.kv, storage.KeyScripts, records, r.logger)
}

func (r *Registry) restore() {
	var records []record
	if !storage.LoadJSON(r.kv, storage.KeyScripts, &records, r.logger) {
		return
	}
	for _, rec := range records {
		if rec.ID == "" || r.entries[rec.ID] != nil {
			continue
		}
		e := &entry{
			meta: Script{
				ID: rec.ID, Name: rec.Name, Source: rec.Source, Enabled: rec.Enabled,
				Config: rec.Config, InstalledAt: rec.InstalledAt, UpdatedAt: rec.InstalledAt,
			},
			log:     newRingLog(r.logCap),
			limiter: rate.NewLimiter(r.sendRate, r.sendBurst),
		}
		boot := newBootLog(rec.Config)
		h, err := r.compile(rec.Source, apiExports(scriptAPI{r: r, id: rec.ID, boot: boot}))
		boot.drainInto(e.log)
		if err != nil {
			e.meta.Enabled = false
			e.meta.LastError = err.Error()
			e.log.append("load failed: " + err.Error())
			r.logger.Warn("stored script failed to load", "id", rec.ID, "error", err)
		} else {
			e.hooks = h
			e.meta.Hooks = h.Names()
		}
		r.entries[rec.ID] = e
		r.order = append(r.order, rec.ID)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func (e *entry) snapshot() Script {
	s := e.meta
	s.Config = cloneRaw(e.meta.Config)
	s.Hooks = append([]string(nil), e.meta.Hooks...)
	return s
}

func validateConfig(config json.RawMessage) error {
	if len(config) == 0 || json.Valid(config) {
		return nil
	}
	return ErrInvalidConfig
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	return append(json.RawMessage(nil), raw...)
}
