package logging

import (
	"time"
)

// Common field constructors
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Uint64(key string, value uint64) Field {
	return Field{Key: key, Value: value}
}

func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Component tags entries with the emitting component name
func Component(name string) Field {
	return String("component", name)
}

// Domain-specific field helpers

// NodeID tags entries with a structure node ID
func NodeID(id uint64) Field {
	return Uint64("node_id", id)
}

// EdgeID tags entries with a pipe edge ID
func EdgeID(id uint64) Field {
	return Uint64("edge_id", id)
}

// Area tags entries with an area in squared map units
func Area(value float64) Field {
	return Float64("area", value)
}
