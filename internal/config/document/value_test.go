package document

import (
	"errors"
	"slices"
	"testing"
)

func TestDetectType(t *testing.T) {
	tests := []struct {
		literal string
		want    Kind
	}{
		{"", KindString},
		{"hello", KindString},
		{"'17030'", KindString},
		{`"quoted"`, KindString},
		{"17030", KindInteger},
		{"-42", KindInteger},
		{"+7", KindInteger},
		{"3.14", KindFloat},
		{"1e-3", KindFloat},
		{".5", KindFloat},
		{"5.", KindFloat},
		{"true", KindBoolean},
		{"FALSE", KindBoolean},
		{".TRUE.", KindBoolean},
		{".false.", KindBoolean},
		{"[a, b]", KindArray},
		{"[]", KindArray},
		{"inf", KindString},
		{"NaN", KindString},
		{"1.2.3", KindString},
		{"2025-01-01", KindString},
		{"yes", KindString},
	}

	for _, tt := range tests {
		t.Run(tt.literal, func(t *testing.T) {
			got := DetectType(tt.literal)
			if got != tt.want {
				t.Errorf("DetectType(%q) = %s, want %s", tt.literal, got, tt.want)
			}
			// Classification is stable when fed its own input again.
			if again := DetectType(tt.literal); again != got {
				t.Errorf("DetectType(%q) not idempotent: %s then %s", tt.literal, got, again)
			}
		})
	}
}

func TestValue_Coercion(t *testing.T) {
	v := NewValue("17030")
	if n, err := v.AsInt(); err != nil || n != 17030 {
		t.Errorf("AsInt() = %d, %v; want 17030, nil", n, err)
	}
	if f, err := v.AsDouble(); err != nil || f != 17030 {
		t.Errorf("AsDouble() = %v, %v; want 17030, nil", f, err)
	}

	quoted := NewValue("'42'")
	if quoted.Kind() != KindString {
		t.Errorf("Kind() = %s, want string", quoted.Kind())
	}
	if n, err := quoted.AsInt(); err != nil || n != 42 {
		t.Errorf("quoted AsInt() = %d, %v; want 42, nil", n, err)
	}
	if got := quoted.AsString(); got != "42" {
		t.Errorf("AsString() = %q, want %q", got, "42")
	}

	if n, err := NewValue("3.0").AsInt(); err != nil || n != 3 {
		t.Errorf("AsInt(3.0) = %d, %v; want 3, nil", n, err)
	}
}

func TestValue_ConversionErrors(t *testing.T) {
	tests := []struct {
		name string
		call func() error
	}{
		{"int from text", func() error { _, err := NewValue("abc").AsInt(); return err }},
		{"int from fraction", func() error { _, err := NewValue("2.5").AsInt(); return err }},
		{"int above range", func() error { _, err := NewValue("9223372036854775808.0").AsInt(); return err }},
		{"int below range", func() error { _, err := NewValue("-9223372036854777856.0").AsInt(); return err }},
		{"double from text", func() error { _, err := NewValue("abc").AsDouble(); return err }},
		{"double from inf", func() error { _, err := NewValue("inf").AsDouble(); return err }},
		{"bool from text", func() error { _, err := NewValue("maybe").AsBoolean(); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if err == nil {
				t.Fatal("expected conversion error")
			}
			if !errors.Is(err, ErrConversion) {
				t.Errorf("errors.Is(err, ErrConversion) = false for %v", err)
			}
			var ce *ConversionError
			if !errors.As(err, &ce) {
				t.Errorf("expected *ConversionError, got %T", err)
			}
		})
	}
}

func TestValue_AsBoolean(t *testing.T) {
	tests := []struct {
		literal string
		want    bool
	}{
		{"true", true},
		{".TRUE.", true},
		{"Yes", true},
		{"1", true},
		{"on", true},
		{"false", false},
		{".false.", false},
		{"NO", false},
		{"0", false},
		{"off", false},
	}

	for _, tt := range tests {
		got, err := NewValue(tt.literal).AsBoolean()
		if err != nil {
			t.Errorf("AsBoolean(%q) error: %v", tt.literal, err)
			continue
		}
		if got != tt.want {
			t.Errorf("AsBoolean(%q) = %v, want %v", tt.literal, got, tt.want)
		}
	}
}

func TestValue_AsStringVector(t *testing.T) {
	tests := []struct {
		literal string
		want    []string
	}{
		{"[a, b, c]", []string{"a", "b", "c"}},
		{"a,b", []string{"a", "b"}},
		{"[]", []string{}},
		{"", []string{}},
		{`["x, y", 'z']`, []string{"x, y", "z"}},
		{`["it's, ""x""", b]`, []string{`it's, "x"`, "b"}},
		{"single", []string{"single"}},
	}

	for _, tt := range tests {
		got := NewValue(tt.literal).AsStringVector()
		if !slices.Equal(got, tt.want) {
			t.Errorf("AsStringVector(%q) = %q, want %q", tt.literal, got, tt.want)
		}
	}
}

func TestJoinList_RoundTrip(t *testing.T) {
	lists := [][]string{
		{"a", "b"},
		{"with, comma", "plain"},
		{`say "hi"`, "it's"},
		{""},
		{" padded "},
		{`it's, "x"`, "b"},
		{`""`, `'`, `a""b`},
	}

	for _, elems := range lists {
		lit := JoinList(elems)
		if DetectType(lit) != KindArray {
			t.Errorf("DetectType(%q) = %s, want array", lit, DetectType(lit))
		}
		got := SplitList(lit)
		if !slices.Equal(got, elems) {
			t.Errorf("SplitList(JoinList(%q)) = %q", elems, got)
		}
	}
}

func TestNormalizeKey(t *testing.T) {
	tests := map[string]string{
		"id":       "id",
		".id":      "id",
		" .id ":    "id",
		"..id":     ".id",
		"a.b":      "a.b",
		"_content": "_content",
	}
	for in, want := range tests {
		if got := NormalizeKey(in); got != want {
			t.Errorf("NormalizeKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValueConstructors(t *testing.T) {
	if v := FloatValue(2); v.Literal() != "2.0" || v.Kind() != KindFloat {
		t.Errorf("FloatValue(2) = %q (%s)", v.Literal(), v.Kind())
	}
	if v := IntValue(-5); v.Literal() != "-5" || v.Kind() != KindInteger {
		t.Errorf("IntValue(-5) = %q (%s)", v.Literal(), v.Kind())
	}
	if v := BoolValue(true); v.Literal() != "true" || v.Kind() != KindBoolean {
		t.Errorf("BoolValue(true) = %q (%s)", v.Literal(), v.Kind())
	}
	if v := ListValue([]string{"a", "b"}); v.Literal() != "[a, b]" || v.Kind() != KindArray {
		t.Errorf("ListValue = %q (%s)", v.Literal(), v.Kind())
	}
}
