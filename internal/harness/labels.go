package harness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/histore/internal/record"
)

// labels maps scenario labels to the ids the graph generated for them.
type labels struct {
	ids   map[string]string // label -> id
	names map[string]string // id -> first label
	auto  int
}

func newLabels() *labels {
	return &labels{
		ids:   make(map[string]string),
		names: make(map[string]string),
	}
}

// save binds label to id. Empty labels and ids are ignored.
func (l *labels) save(label, id string) error {
	if label == "" || id == "" {
		return nil
	}
	if prev, ok := l.ids[label]; ok && prev != id {
		return fmt.Errorf("label %q already bound to another id", label)
	}
	l.ids[label] = id
	if _, ok := l.names[id]; !ok {
		l.names[id] = label
	}
	return nil
}

// name renders id for the trace. Unlabeled ids get "#n" on first sight.
func (l *labels) name(id string) string {
	if id == "" {
		return ""
	}
	if n, ok := l.names[id]; ok {
		return n
	}
	l.auto++
	n := fmt.Sprintf("#%d", l.auto)
	l.names[id] = n
	return n
}

func (l *labels) nameAll(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = l.name(id)
	}
	return out
}

// lookup resolves one reference. "$label" must be bound; anything else is
// literal.
func (l *labels) lookup(ref string) (string, error) {
	label, ok := strings.CutPrefix(ref, "$")
	if !ok {
		return ref, nil
	}
	id, ok := l.ids[label]
	if !ok {
		return "", fmt.Errorf("unknown label %q", label)
	}
	return id, nil
}

// resolve replaces references throughout a YAML value.
func (l *labels) resolve(v any) (any, error) {
	switch val := v.(type) {
	case string:
		return l.lookup(val)
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			r, err := l.resolve(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = r
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			r, err := l.resolve(elem)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = r
		}
		return out, nil
	default:
		return v, nil
	}
}

// args wraps resolved step arguments with typed accessors.
type args map[string]any

func (a args) str(key string) (string, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("arg %q: expected string, got %T", key, v)
	}
	return s, nil
}

func (a args) strs(key string) ([]string, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("arg %q: expected list, got %T", key, v)
	}
	out := make([]string, len(list))
	for i, elem := range list {
		s, ok := elem.(string)
		if !ok {
			return nil, fmt.Errorf("arg %q[%d]: expected string, got %T", key, i, elem)
		}
		out[i] = s
	}
	return out, nil
}

func (a args) boolean(key string) (bool, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("arg %q: expected bool, got %T", key, v)
	}
	return b, nil
}

func (a args) object(key string) (record.Object, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return record.Object{}, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("arg %q: expected map, got %T", key, v)
	}
	obj, err := toObject(m)
	if err != nil {
		return nil, fmt.Errorf("arg %q: %w", key, err)
	}
	return obj, nil
}

// toObject converts a YAML-parsed map to a payload object.
func toObject(m map[string]any) (record.Object, error) {
	obj := make(record.Object, len(m))
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, err := toValue(m[k])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		obj[k] = v
	}
	return obj, nil
}

// toValue converts a YAML-parsed value to a payload value.
func toValue(val any) (record.Value, error) {
	switch v := val.(type) {
	case nil:
		return record.Null{}, nil
	case string:
		return record.String(v), nil
	case int:
		return record.Int(v), nil
	case int64:
		return record.Int(v), nil
	case uint64:
		return record.Int(int64(v)), nil
	case float64:
		// Integers written with a fraction part still pass.
		if v == float64(int64(v)) {
			return record.Int(int64(v)), nil
		}
		return nil, fmt.Errorf("floats are not allowed in node content: %v", v)
	case bool:
		return record.Bool(v), nil
	case []any:
		arr := make(record.Array, len(v))
		for i, elem := range v {
			e, err := toValue(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = e
		}
		return arr, nil
	case map[string]any:
		return toObject(v)
	default:
		return nil, fmt.Errorf("unsupported type %T", val)
	}
}
