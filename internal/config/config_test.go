package config

import "testing"

func TestDefaultsValidate(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("Defaults() should validate, got %v", err)
	}
}

func TestValidateRejectsUnknownGauge(t *testing.T) {
	o := Defaults()
	o.Gauge = "quarter"
	if err := o.Validate(); err == nil {
		t.Fatal("expected error for unrecognized gauge")
	}
}

func TestValidateRejectsInsertDepthZero(t *testing.T) {
	o := Defaults()
	o.InsertDepth = 0
	if err := o.Validate(); err == nil {
		t.Fatal("expected error for insertDepth < 1")
	}
}

func TestValidateRejectsUnknownCastOnType(t *testing.T) {
	o := Defaults()
	o.CastOnType = "zigzag"
	if err := o.Validate(); err == nil {
		t.Fatal("expected error for unrecognized castOnType")
	}
}
