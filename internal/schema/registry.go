// Package schema loads and compiles the canonical JSON Schemas for inbound
// events and exposes warn-only validation: failures are never fatal and
// never drop a record; they tag it and increment a counter.
package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Descriptor is the public shape returned by List/GET /api/schemas.
type Descriptor struct {
	Key         string   `json:"key"`
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Required    []string `json:"required"`
	Properties  []string `json:"properties"`
	OutboundType string  `json:"outboundType"`
}

// Result is the outcome of validating one payload.
type Result struct {
	OK    bool
	Error string
}

// Registry compiles and holds every canonical schema, keyed by schema key
// (e.g. "gameStateUpdate", "newTrade").
type Registry struct {
	schemas     map[string]*jsonschema.Schema
	descriptors map[string]Descriptor
	order       []string
}

// outboundTypeOf maps a validated schema key to its outbound frame type.
var outboundTypeOf = map[string]string{
	"gameStateUpdate":       "game_state_update",
	"newTrade":              "trade",
	"currentSideBet":        "side_bet",
	"newSideBet":            "side_bet",
	"gameStatePlayerUpdate": "player_update",
	"playerUpdate":          "player_update",
}

// Load compiles every schemaKey.json file under dir into a Registry.
// A missing or unparsable canonical schema is a fatal startup error.
func Load(dir string) (*Registry, error) {
	entries, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("glob schema dir %q: %w", dir, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no canonical schemas found in %q", dir)
	}

	compiler := jsonschema.NewCompiler()
	reg := &Registry{
		schemas:     make(map[string]*jsonschema.Schema, len(entries)),
		descriptors: make(map[string]Descriptor, len(entries)),
	}

	for _, path := range entries {
		key := strings.TrimSuffix(filepath.Base(path), ".json")

		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read schema %q: %w", key, err)
		}

		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parse schema %q: %w", key, err)
		}

		url := "mem://" + key + ".json"
		if err := compiler.AddResource(url, strings.NewReader(string(raw))); err != nil {
			return nil, fmt.Errorf("add schema resource %q: %w", key, err)
		}
		compiled, err := compiler.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("compile schema %q: %w", key, err)
		}

		reg.schemas[key] = compiled
		reg.descriptors[key] = descriptorFrom(key, doc)
		reg.order = append(reg.order, key)
	}

	sort.Strings(reg.order)
	return reg, nil
}

func descriptorFrom(key string, doc map[string]any) Descriptor {
	d := Descriptor{
		Key:          key,
		OutboundType: outboundTypeOf[key],
	}
	if id, ok := doc["$id"].(string); ok {
		d.ID = id
	}
	if title, ok := doc["title"].(string); ok {
		d.Title = title
	}
	if req, ok := doc["required"].([]any); ok {
		for _, r := range req {
			if s, ok := r.(string); ok {
				d.Required = append(d.Required, s)
			}
		}
	}
	if props, ok := doc["properties"].(map[string]any); ok {
		for name := range props {
			d.Properties = append(d.Properties, name)
		}
		sort.Strings(d.Properties)
	}
	return d
}

// Validate checks payload against schemaKey. A missing schemaKey is itself
// a schema-violation result, never an error — there is no such thing as
// an unrecoverable validation outcome under warn-only policy.
func (r *Registry) Validate(schemaKey string, payload []byte) Result {
	s, ok := r.schemas[schemaKey]
	if !ok {
		return Result{OK: false, Error: fmt.Sprintf("unknown schema key %q", schemaKey)}
	}

	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return Result{OK: false, Error: fmt.Sprintf("invalid json: %v", err)}
	}

	if err := s.Validate(doc); err != nil {
		return Result{OK: false, Error: err.Error()}
	}
	return Result{OK: true}
}

// List returns every descriptor, sorted by key.
func (r *Registry) List() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.descriptors[key])
	}
	return out
}

// OutboundTypeFor returns the outbound frame type for a schema key.
func OutboundTypeFor(schemaKey string) string {
	return outboundTypeOf[schemaKey]
}
