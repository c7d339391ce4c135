// Package serial provides the pluggable value serializers used by archives.
//
// Archives never interpret stored values themselves: every byte that reaches
// disk, a database or an object store passes through a Serializer.
package serial

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Serializer converts values to and from bytes.
type Serializer interface {
	// Marshal encodes v.
	Marshal(v any) ([]byte, error)
	// Unmarshal decodes data into the value pointed to by v.
	Unmarshal(data []byte, v any) error
	// Extension returns the file extension without dot (e.g., "json").
	Extension() string
}

// Compile-time checks.
var (
	_ Serializer = JSON{}
	_ Serializer = Gob{}
	_ Serializer = YAML{}
)

// JSON encodes values with encoding/json.
type JSON struct{}

// Marshal encodes v as JSON.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Extension returns "json".
func (JSON) Extension() string { return "json" }

// Gob encodes values with encoding/gob. Interface-typed values must be
// registered with gob.Register by the caller.
type Gob struct{}

// Marshal encodes v with encoding/gob.
func (Gob) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes gob data into v.
func (Gob) Unmarshal(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// Extension returns "gob".
func (Gob) Extension() string { return "gob" }

// YAML encodes values with gopkg.in/yaml.v3.
type YAML struct{}

// Marshal encodes v as YAML.
func (YAML) Marshal(v any) ([]byte, error) { return yaml.Marshal(v) }

// Unmarshal decodes YAML data into v.
func (YAML) Unmarshal(data []byte, v any) error { return yaml.Unmarshal(data, v) }

// Extension returns "yaml".
func (YAML) Extension() string { return "yaml" }

// ByName returns the serializer registered under name: "json", "gob" or "yaml".
func ByName(name string) (Serializer, error) {
	switch name {
	case "", "json":
		return JSON{}, nil
	case "gob":
		return Gob{}, nil
	case "yaml", "yml":
		return YAML{}, nil
	default:
		return nil, fmt.Errorf("unknown serializer: %s", name)
	}
}
