package core

import "testing"

func TestApplyOptions(t *testing.T) {
	s := ApplyOptions(WithSampleRate(96000), WithBlockSize(512))
	if s.SampleRate != 96000 {
		t.Fatalf("sample rate = %v, want 96000", s.SampleRate)
	}

	if s.BlockSize != 512 {
		t.Fatalf("block size = %d, want 512", s.BlockSize)
	}

	if got := s.BlockRate(); got != 187.5 {
		t.Fatalf("block rate = %v, want 187.5", got)
	}
}

func TestInvalidOptionsIgnored(t *testing.T) {
	s := ApplyOptions(WithSampleRate(0), WithBlockSize(-1), nil)

	def := DefaultSettings()
	if s != def {
		t.Fatalf("settings = %#v, want %#v", s, def)
	}

	err := s.Validate()
	if err != nil {
		t.Fatalf("default settings invalid: %v", err)
	}

	if err := (OperatorSettings{}).Validate(); err == nil {
		t.Fatal("expected error for zero settings")
	}
}

func TestEnvironmentLookup(t *testing.T) {
	env := Environment{"address": "bus-1", "channel": 3}

	addr, ok := Lookup[string](env, "address")
	if !ok || addr != "bus-1" {
		t.Fatalf("address = %q, %v", addr, ok)
	}

	if _, ok := Lookup[string](env, "channel"); ok {
		t.Fatal("channel must not resolve as string")
	}

	if _, ok := Lookup[int](nil, "channel"); ok {
		t.Fatal("nil environment must resolve nothing")
	}

	clone := env.Clone()
	clone["address"] = "bus-2"

	if env["address"] != "bus-1" {
		t.Fatal("clone shares storage with original")
	}
}
