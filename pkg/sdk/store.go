package sdk

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/celerix-dev/celerix-prefs/internal/prefs"
	"github.com/celerix-dev/celerix-prefs/pkg/jsonv"
)

// exchanger performs one request against the service and returns the raw
// JSON reply, which is nil when the service replied without a body.
type exchanger interface {
	exchange(verb prefs.Verb, route string, body []byte) ([]byte, error)
}

// ops implements PrefsStore on top of an exchanger, so the remote client
// and the embedded store share the request encoding.
type ops struct {
	ex exchanger
}

// Get returns the value at path inside the document, or the whole document
// when no path is given. Missing paths inside an existing document read as
// an empty object.
func (o ops) Get(category, identifier string, path ...string) (any, error) {
	if identifier == "" {
		return nil, &Error{Status: http.StatusBadRequest, Message: "an identifier is required"}
	}
	r, err := route(append([]string{category, identifier}, path...)...)
	if err != nil {
		return nil, err
	}
	v, err := o.read(r, nil)
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

// Set writes val at path inside the document, creating the document and any
// missing intermediate objects.
func (o ops) Set(category, identifier string, val any, path ...string) error {
	if identifier == "" {
		return &Error{Status: http.StatusBadRequest, Message: "an identifier is required"}
	}
	r, err := route(append([]string{category, identifier}, path...)...)
	if err != nil {
		return err
	}
	body, err := jsonv.FromInterface(val)
	if err != nil {
		return fmt.Errorf("failed to encode value: %w", err)
	}
	_, err = o.ex.exchange(prefs.Write, r, body.Bytes())
	return err
}

// Delete removes the value at path, or the whole document without a path.
// Deleting something that does not exist is not an error.
func (o ops) Delete(category, identifier string, path ...string) error {
	if identifier == "" {
		return &Error{Status: http.StatusBadRequest, Message: "an identifier is required"}
	}
	r, err := route(append([]string{category, identifier}, path...)...)
	if err != nil {
		return err
	}
	_, err = o.ex.exchange(prefs.Delete, r, nil)
	return err
}

func (o ops) Categories() ([]string, error) {
	v, err := o.read("/", nil)
	if err != nil {
		return nil, err
	}
	return v.Strings(), nil
}

func (o ops) List(category string, filter map[string]any) ([]string, error) {
	if category == "" {
		return nil, &Error{Status: http.StatusBadRequest, Message: "a category is required"}
	}
	r, err := route(category)
	if err != nil {
		return nil, err
	}
	var body []byte
	if filter != nil {
		f, err := jsonv.FromInterface(filter)
		if err != nil {
			return nil, fmt.Errorf("failed to encode filter: %w", err)
		}
		body = f.Bytes()
	}
	v, err := o.read(r, body)
	if err != nil {
		return nil, err
	}
	return v.Strings(), nil
}

func (o ops) CreateCategory(name string) error {
	return o.category(prefs.Write, name)
}

func (o ops) DropCategory(name string) error {
	return o.category(prefs.Delete, name)
}

func (o ops) DropAll() error {
	_, err := o.ex.exchange(prefs.Delete, "/", nil)
	return err
}

func (o ops) category(verb prefs.Verb, name string) error {
	if name == "" {
		return &Error{Status: http.StatusBadRequest, Message: "a category is required"}
	}
	r, err := route(name)
	if err != nil {
		return err
	}
	_, err = o.ex.exchange(verb, r, nil)
	return err
}

func (o ops) read(r string, body []byte) (jsonv.Value, error) {
	raw, err := o.ex.exchange(prefs.Read, r, body)
	if err != nil {
		return jsonv.Value{}, err
	}
	if raw == nil {
		return jsonv.NullValue(), nil
	}
	v, err := jsonv.Parse(raw)
	if err != nil {
		return jsonv.Value{}, fmt.Errorf("malformed reply: %w", err)
	}
	return v, nil
}

// --- Generics Support ---

// Get retrieves a value decoded into T.
func Get[T any](s DocumentReader, category, identifier string, path ...string) (T, error) {
	var target T
	val, err := s.Get(category, identifier, path...)
	if err != nil {
		return target, err
	}

	if v, ok := val.(T); ok {
		return v, nil
	}

	// Values arrive as plain JSON shapes, so convert them through JSON.
	data, err := json.Marshal(val)
	if err != nil {
		return target, err
	}
	err = json.Unmarshal(data, &target)
	return target, err
}

// Set stores a typed value.
func Set[T any](s DocumentWriter, category, identifier string, val T, path ...string) error {
	return s.Set(category, identifier, val, path...)
}
