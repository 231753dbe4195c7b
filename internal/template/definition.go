// Package template loads YAML tree definitions and instantiates them into
// fresh node graphs, one per tree.
package template

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var (
	// ErrUnknownNodeType is returned for a node type the builder cannot
	// construct.
	ErrUnknownNodeType = errors.New("unknown node type")
	// ErrUnknownAction is returned for an action node naming an action that
	// was never registered.
	ErrUnknownAction = errors.New("unknown action")
	// ErrInvalid wraps every validation failure.
	ErrInvalid = errors.New("invalid template")
)

// NodeTypes lists the accepted node types.
var NodeTypes = []string{
	"sequence", "selector", "parallel", "random", "weighted",
	"inverter", "repeater", "force", "timeout", "failure", "watcher", "wait",
	"expr", "script", "set", "status", "action", "plan",
}

// Definition is a tree template.
type Definition struct {
	Name           string         `yaml:"name" validate:"required"`
	Description    string         `yaml:"description,omitempty"`
	Capacity       int            `yaml:"capacity,omitempty" validate:"gte=0"`
	Pooled         bool           `yaml:"pooled,omitempty"`
	GrowthFactor   float64        `yaml:"growth_factor,omitempty" validate:"omitempty,gt=1"`
	MaxParallelism int            `yaml:"max_parallelism,omitempty" validate:"gte=0"`
	BlackboardSize int            `yaml:"blackboard_size,omitempty" validate:"gte=0"`
	Blackboard     map[string]any `yaml:"blackboard,omitempty"`
	Roots          []NodeSpec     `yaml:"roots" validate:"required,min=1,dive"`
}

// NodeSpec describes one node. Which fields apply depends on Type.
type NodeSpec struct {
	Type     string        `yaml:"type" validate:"required"`
	Name     string        `yaml:"name,omitempty"`
	Children []NodeSpec    `yaml:"children,omitempty" validate:"dive"`
	Fallback *NodeSpec     `yaml:"fallback,omitempty"`
	Weight   float64       `yaml:"weight,omitempty" validate:"gte=0"`
	Count    int           `yaml:"count,omitempty" validate:"gte=0"`
	Duration time.Duration `yaml:"duration,omitempty" validate:"gte=0"`
	Mode     string        `yaml:"mode,omitempty"`
	// DataKey names a blackboard entry that reconfigures weighted,
	// repeater, timeout and failure nodes before every run.
	DataKey string `yaml:"data_key,omitempty"`
	// RequireAll makes a parallel node succeed only when every child does.
	RequireAll bool       `yaml:"require_all,omitempty"`
	Expr       string     `yaml:"expr,omitempty"`
	Script     string     `yaml:"script,omitempty"`
	Key        string     `yaml:"key,omitempty"`
	Value      any        `yaml:"value,omitempty"`
	Status     string     `yaml:"status,omitempty"`
	Action     string     `yaml:"action,omitempty"`
	Goals      []GoalSpec `yaml:"goals,omitempty" validate:"dive"`
	Actions    []string   `yaml:"actions,omitempty"`
}

// GoalSpec is one alternative goal of a plan node; all conditions must
// hold.
type GoalSpec struct {
	Conditions []CondSpec `yaml:"all" validate:"required,min=1,dive"`
}

// CondSpec is a condition on a blackboard key: either equality with Equals
// or an expression over `value`.
type CondSpec struct {
	Key    string `yaml:"key" validate:"required"`
	Equals any    `yaml:"equals,omitempty"`
	Expr   string `yaml:"expr,omitempty"`
}

var validate = validator.New()

// Parse decodes a definition from YAML. Unknown top-level fields are an
// error.
func Parse(data []byte) (*Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var def Definition
	if err := dec.Decode(&def); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalid)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return &def, nil
}

// Load reads and parses the definition at path.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// Marshal encodes def as YAML.
func Marshal(def *Definition) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(def); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// validateStruct runs the struct tag rules.
func validateStruct(def *Definition) error {
	err := validate.Struct(def)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}
