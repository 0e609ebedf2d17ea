package grpc

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/abroadportal/internal/common"
	"google.golang.org/protobuf/types/known/structpb"
)

// args reads typed fields from a request struct. Numbers and booleans are
// also accepted as strings, which is what key=value clients send.
type args struct{ s *structpb.Struct }

func (a args) value(key string) (*structpb.Value, bool) {
	v, ok := a.s.GetFields()[key]
	if !ok || v == nil {
		return nil, false
	}
	if _, null := v.GetKind().(*structpb.Value_NullValue); null {
		return nil, false
	}
	return v, true
}

func (a args) str(key string) string {
	v, ok := a.value(key)
	if !ok {
		return ""
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return k.StringValue
	case *structpb.Value_NumberValue:
		return strconv.FormatFloat(k.NumberValue, 'f', -1, 64)
	case *structpb.Value_BoolValue:
		return strconv.FormatBool(k.BoolValue)
	}
	return ""
}

func (a args) required(key string) (string, error) {
	v := strings.TrimSpace(a.str(key))
	if v == "" {
		return "", fmt.Errorf("%w: %s is required", common.ErrorValidation, key)
	}
	return v, nil
}

// optional returns nil when key is absent or empty.
func (a args) optional(key string) *string {
	v := strings.TrimSpace(a.str(key))
	if v == "" {
		return nil
	}
	return &v
}

func (a args) int(key string) (int, error) {
	v, ok := a.value(key)
	if !ok {
		return 0, fmt.Errorf("%w: %s is required", common.ErrorValidation, key)
	}
	if n, isNum := v.GetKind().(*structpb.Value_NumberValue); isNum {
		f := n.NumberValue
		if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
			return 0, fmt.Errorf("%w: %s must be an integer", common.ErrorValidation, key)
		}
		return int(f), nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(a.str(key)))
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", common.ErrorValidation, key)
	}
	return n, nil
}

func (a args) intOr(key string, def int) (int, error) {
	if _, ok := a.value(key); !ok {
		return def, nil
	}
	return a.int(key)
}

func (a args) bool(key string) (bool, error) {
	v, ok := a.value(key)
	if !ok {
		return false, nil
	}
	if b, isBool := v.GetKind().(*structpb.Value_BoolValue); isBool {
		return b.BoolValue, nil
	}
	b, err := strconv.ParseBool(a.str(key))
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean", common.ErrorValidation, key)
	}
	return b, nil
}

// json returns key as a JSON document. A string value is taken as JSON
// text, anything else is encoded as is.
func (a args) json(key string) (json.RawMessage, error) {
	v, ok := a.value(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s is required", common.ErrorValidation, key)
	}
	if s, isStr := v.GetKind().(*structpb.Value_StringValue); isStr {
		return json.RawMessage(s.StringValue), nil
	}
	b, err := json.Marshal(v.AsInterface())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", common.ErrorValidation, key, err)
	}
	return b, nil
}
