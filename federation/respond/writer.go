package respond

import (
	"github.com/goccy/go-json"
	"github.com/n9te9/federation-core/federation/errs"
)

// ResponseWriter completes a merged response tree against a shape,
// applying null propagation before the tree is serialized to the client.
type ResponseWriter struct{}

// New returns a ResponseWriter.
func New() *ResponseWriter {
	return &ResponseWriter{}
}

// DecodeSubgraphResponse decodes a subgraph's raw JSON body into its
// data/errors parts. It uses goccy/go-json rather than encoding/json.
// Nothing in the module calls it: the executor decodes subgraph bodies
// itself with encoding/json.
func (w *ResponseWriter) DecodeSubgraphResponse(raw []byte) (map[string]interface{}, []interface{}, error) {
	var envelope struct {
		Data   map[string]interface{} `json:"data"`
		Errors []interface{}          `json:"errors"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, nil, err
	}
	return envelope.Data, envelope.Errors, nil
}

// Write completes data (the merged, pruned response tree for shape's
// root selection) against shape, returning the client-ready data tree
// plus any errors null propagation generated. A nil return for data with
// no errors is a legitimate all-null response only if shape's root type
// itself is nullable; callers at the operation root should treat a
// bubbled nil here as "data": null.
func (w *ResponseWriter) Write(shape *ConcreteShapeSeed, data map[string]interface{}) (map[string]interface{}, []*errs.GraphQLError) {
	result, errList, _ := writeObject(shape, data, nil)
	return result, errList
}

func writeObject(shape *ConcreteShapeSeed, obj map[string]interface{}, path []any) (map[string]interface{}, []*errs.GraphQLError, bool) {
	if obj == nil {
		return nil, nil, false
	}
	fields, err := resolve(shape, obj)
	if err != nil {
		return nil, []*errs.GraphQLError{errs.Wrap(errs.CodeInternal, err).WithPath(path)}, false
	}

	result := map[string]interface{}{}
	var allErrs []*errs.GraphQLError
	if typename, ok := obj["__typename"]; ok {
		result["__typename"] = typename
	}

	for _, seed := range fields {
		fieldPath := append(append([]any{}, path...), seed.ResponseKey)
		raw, present := obj[seed.ResponseKey]
		if !present {
			raw = nil
		}
		value, fieldErrs, bubble := completeValue(seed, raw, fieldPath)
		allErrs = append(allErrs, fieldErrs...)
		if bubble {
			return nil, allErrs, true
		}
		result[seed.ResponseKey] = value
	}
	return result, allErrs, false
}

func completeValue(seed *FieldSeed, raw interface{}, path []any) (interface{}, []*errs.GraphQLError, bool) {
	if raw == nil {
		if seed.Type.IsNonNull() {
			return nil, []*errs.GraphQLError{
				errs.New(errs.CodeSubgraphInvalidResponse, "subgraph returned null for non-nullable field").WithPath(path),
			}, true
		}
		return nil, nil, false
	}

	if seed.Type.IsList() {
		list, ok := raw.([]interface{})
		if !ok {
			if seed.Type.IsNonNull() {
				return nil, []*errs.GraphQLError{
					errs.New(errs.CodeSubgraphInvalidResponse, "expected a list value").WithPath(path),
				}, true
			}
			return nil, nil, false
		}
		elementSeed := &FieldSeed{ResponseKey: seed.ResponseKey, Type: seed.Type.Element(), SubShape: seed.SubShape}
		results := make([]interface{}, len(list))
		var allErrs []*errs.GraphQLError
		for i, item := range list {
			elemPath := append(append([]any{}, path...), i)
			v, errList, bubble := completeValue(elementSeed, item, elemPath)
			allErrs = append(allErrs, errList...)
			if bubble {
				if seed.Type.IsNonNull() {
					return nil, allErrs, true
				}
				return nil, allErrs, false
			}
			results[i] = v
		}
		return results, allErrs, false
	}

	if seed.SubShape != nil {
		obj, ok := raw.(map[string]interface{})
		if !ok {
			if seed.Type.IsNonNull() {
				return nil, []*errs.GraphQLError{
					errs.New(errs.CodeSubgraphInvalidResponse, "expected an object value").WithPath(path),
				}, true
			}
			return nil, nil, false
		}
		value, objErrs, bubble := writeObject(seed.SubShape, obj, path)
		if bubble {
			return nil, objErrs, seed.Type.IsNonNull()
		}
		return value, objErrs, false
	}

	return raw, nil, false
}
