package codec

import (
	"strings"
	"testing"

	"github.com/dshills/cfgdoc/internal/config/document"
)

func TestNativeCodec_Decode(t *testing.T) {
	input := `! Observation setup
object.
	.id = '17030'
	.name = 'Sierks'

# legacy comment
time.
	.start_date = 2025-01-01
	.step = 0.5
	.verbose = .TRUE.
	this line has no equals sign
	.list = [a, b]

[search]
	.max_magnitude = 20
`
	doc, err := NativeCodec{}.Decode([]byte(input))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}

	if got := strings.Join(doc.SectionNames(), ","); got != "object,time,search" {
		t.Errorf("SectionNames() = %s", got)
	}

	tests := []struct {
		section, key, literal string
		kind                  document.Kind
	}{
		{"object", "id", "17030", document.KindString},
		{"object", "name", "Sierks", document.KindString},
		{"time", "start_date", "2025-01-01", document.KindString},
		{"time", "step", "0.5", document.KindFloat},
		{"time", "verbose", ".TRUE.", document.KindBoolean},
		{"time", "list", "[a, b]", document.KindArray},
		{"search", "max_magnitude", "20", document.KindInteger},
	}
	for _, tt := range tests {
		v, ok := doc.GetValue(tt.section, "."+tt.key)
		if !ok {
			t.Errorf("%s.%s missing", tt.section, tt.key)
			continue
		}
		if v.Literal() != tt.literal || v.Kind() != tt.kind {
			t.Errorf("%s.%s = %q (%s), want %q (%s)", tt.section, tt.key, v.Literal(), v.Kind(), tt.literal, tt.kind)
		}
	}

	s, _ := doc.GetSection("time")
	if s.Len() != 4 {
		t.Errorf("time has %d parameters, want 4", s.Len())
	}
}

func TestNativeCodec_SkipsOrphanParameters(t *testing.T) {
	doc, err := NativeCodec{}.Decode([]byte(".orphan = 1\nobject.\n.id = 2\n"))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if doc.Len() != 1 || doc.ParameterCount() != 1 {
		t.Errorf("got %d sections, %d parameters; want 1, 1", doc.Len(), doc.ParameterCount())
	}
}

func TestNativeCodec_CommentsOnly(t *testing.T) {
	if _, err := (NativeCodec{}).Decode([]byte("! nothing here\n# still nothing\n")); err == nil {
		t.Error("expected error for comment-only input")
	}
}

func TestNativeCodec_Encode(t *testing.T) {
	doc := document.New()
	doc.SetValue("object", "id", document.StringValue("17030"))
	doc.SetParameter("object", "mag", "16.5")
	doc.AddSection("empty")

	data, err := NativeCodec{}.Encode(doc)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	want := "object.\n\t.id = '17030'\n\t.mag = 16.5\n\nempty.\n"
	if string(data) != want {
		t.Errorf("Encode() =\n%q\nwant\n%q", data, want)
	}
}

func TestNativeToJSONScenario(t *testing.T) {
	doc, err := NativeCodec{}.Decode([]byte("object.\n\t.id = '17030'\n\t.name = 'Sierks'\n"))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	data, err := JSONCodec{Compact: true}.Encode(doc)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	want := `{"object":{"id":"17030","name":"Sierks"}}`
	if string(data) != want {
		t.Errorf("JSON = %s, want %s", data, want)
	}
}
