package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

const schemaBaseURL = "https://arenabot.ai/schemas/"

// Validator checks raw frames against the embedded JSON schemas.
// Compiled schemas are read-only, so one Validator may serve every agent.
type Validator struct {
	snapshot *jsonschema.Schema
	command  *jsonschema.Schema
}

var (
	defaultOnce      sync.Once
	defaultValidator *Validator
	defaultErr       error
)

// DefaultValidator compiles the embedded schemas once per process.
func DefaultValidator() (*Validator, error) {
	defaultOnce.Do(func() {
		defaultValidator, defaultErr = NewValidator()
	})
	return defaultValidator, defaultErr
}

func NewValidator() (*Validator, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft7
	for _, name := range []string{"snapshot.schema.json", "command.schema.json"} {
		b, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			return nil, err
		}
		if err := c.AddResource(schemaBaseURL+name, bytes.NewReader(b)); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", name, err)
		}
	}
	snap, err := c.Compile(schemaBaseURL + "snapshot.schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile snapshot schema: %w", err)
	}
	cmd, err := c.Compile(schemaBaseURL + "command.schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile command schema: %w", err)
	}
	return &Validator{snapshot: snap, command: cmd}, nil
}

// ValidateSnapshot reports schema violations as ErrMalformedSnapshot.
func (v *Validator) ValidateSnapshot(b []byte) error {
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return malformed("", "envelope: %v", err)
	}
	if err := v.snapshot.Validate(doc); err != nil {
		return malformed("", "schema: %v", err)
	}
	return nil
}

func (v *Validator) ValidateCommand(b []byte) error {
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedCommand, err)
	}
	if err := v.command.Validate(doc); err != nil {
		return fmt.Errorf("%w: schema: %v", ErrMalformedCommand, err)
	}
	return nil
}

// DecodeSnapshotStrict validates b against the snapshot schema before decoding it.
func (v *Validator) DecodeSnapshotStrict(b []byte) (Snapshot, error) {
	if err := v.ValidateSnapshot(b); err != nil {
		return Snapshot{}, err
	}
	return DecodeSnapshot(b)
}
