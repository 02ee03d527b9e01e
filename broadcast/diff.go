// Package broadcast ships engine and quiz events to observers.
package broadcast

import (
	"fmt"
	"reflect"

	"github.com/go-viper/mapstructure/v2"
)

// Event names.
const (
	PlayerStatus    = "playerStatus"
	QuizStart       = "quizStart"
	QuizResult      = "quizResult"
	QuizStateUpdate = "quizStateUpdate"
	QuizEnd         = "quizEnd"
	QuizAnswer      = "quizAnswer"
)

// Snapshot flattens a struct into a map keyed by its json field names.
func Snapshot(v any) (map[string]any, error) {
	out := make(map[string]any)
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  &out,
	})
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(v); err != nil {
		return nil, fmt.Errorf("snapshot %T: %w", v, err)
	}
	return out, nil
}

// Diff returns the keys of next whose values differ from prev.
// Keys that disappeared are reported with a nil value.
func Diff(prev, next any) (map[string]any, error) {
	before, err := Snapshot(prev)
	if err != nil {
		return nil, err
	}
	after, err := Snapshot(next)
	if err != nil {
		return nil, err
	}

	changes := make(map[string]any)
	for k, v := range after {
		if old, ok := before[k]; !ok || !reflect.DeepEqual(old, v) {
			changes[k] = v
		}
	}
	for k := range before {
		if _, ok := after[k]; !ok {
			changes[k] = nil
		}
	}
	return changes, nil
}
