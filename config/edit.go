package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	levenshtein "github.com/ka-weihe/fast-levenshtein"
	"github.com/kara-engine/kara/constant"
	"github.com/kara-engine/kara/where"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// UnknownKeyError is returned for keys that are not registered.
type UnknownKeyError struct {
	Key string
	// Suggestion is the closest registered key.
	Suggestion string
}

func (e *UnknownKeyError) Error() string {
	return fmt.Sprintf("unknown key %s, did you mean %s?", e.Key, e.Suggestion)
}

// Lookup returns the registered field of k.
func Lookup(k string) (Field, error) {
	if f, ok := Default[k]; ok {
		return f, nil
	}

	closest := lo.MinBy(lo.Keys(Default), func(a, b string) bool {
		return levenshtein.Distance(k, a) < levenshtein.Distance(k, b)
	})
	return Field{}, &UnknownKeyError{Key: k, Suggestion: closest}
}

// Parse converts command line values to the type of the field default.
// List fields take one value per argument or a comma separated list.
func (f *Field) Parse(raw ...string) (any, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%s needs a value", f.Key)
	}

	switch f.Value.(type) {
	case string:
		return strings.Join(raw, " "), nil
	case int:
		n, err := strconv.Atoi(raw[0])
		if err != nil {
			return nil, fmt.Errorf("%s expects an integer, got %q", f.Key, raw[0])
		}
		return n, nil
	case bool:
		b, err := strconv.ParseBool(raw[0])
		if err != nil {
			return nil, fmt.Errorf("%s expects a boolean, got %q", f.Key, raw[0])
		}
		return b, nil
	case []string:
		return splitList(raw), nil
	case []int:
		items := splitList(raw)
		ints := make([]int, 0, len(items))
		for _, item := range items {
			n, err := strconv.Atoi(item)
			if err != nil {
				return nil, fmt.Errorf("%s expects integers, got %q", f.Key, item)
			}
			ints = append(ints, n)
		}
		return ints, nil
	}

	return nil, fmt.Errorf("%s cannot be set from the command line", f.Key)
}

func splitList(raw []string) []string {
	items := lo.FlatMap(raw, func(r string, _ int) []string { return strings.Split(r, ",") })
	items = lo.Map(items, func(s string, _ int) string { return strings.TrimSpace(s) })
	return lo.Compact(items)
}

// Set parses and assigns the value of a registered key.
func Set(k string, raw ...string) (any, error) {
	f, err := Lookup(k)
	if err != nil {
		return nil, err
	}
	v, err := f.Parse(raw...)
	if err != nil {
		return nil, err
	}
	viper.Set(k, v)
	return v, nil
}

// Restore restores the defaults of the given keys, or of every key when none is given.
// Nothing changes when one of the keys is unknown.
func Restore(keys ...string) error {
	if len(keys) == 0 {
		keys = lo.Keys(Default)
	}

	fields := make([]Field, 0, len(keys))
	for _, k := range keys {
		f, err := Lookup(k)
		if err != nil {
			return err
		}
		fields = append(fields, f)
	}

	for _, f := range fields {
		viper.Set(f.Key, f.Value)
	}
	return nil
}

// Path is the configuration file.
func Path() string {
	return filepath.Join(where.Config(), constant.Kara+".toml")
}

// Save writes the current configuration to Path. An existing file is only
// replaced when overwrite is set.
func Save(overwrite bool) error {
	if overwrite {
		return viper.WriteConfigAs(Path())
	}
	return viper.SafeWriteConfigAs(Path())
}
