package config

import (
	"bytes"
	"io"

	"go.uber.org/zap"

	"github.com/dshills/cfgdoc/internal/config/codec"
	"github.com/dshills/cfgdoc/internal/config/document"
)

// Load replaces the document with the content of path decoded as f. On
// failure the document is left untouched.
func (c *Config) Load(f codec.Format, path string) bool {
	cd, err := codec.MustLookup(f)
	if err != nil {
		return c.loadFailed(f, path, err)
	}
	doc, err := codec.LoadFile(c.fsys, path, cd)
	if err != nil {
		return c.loadFailed(f, path, err)
	}
	c.replace(f, doc, path)
	return true
}

// LoadFile loads path, inferring the format from its extension.
func (c *Config) LoadFile(path string) bool {
	f, err := codec.FormatFromPath(path)
	if err != nil {
		return c.loadFailed("", path, err)
	}
	return c.Load(f, path)
}

// LoadString replaces the document with s decoded as f.
func (c *Config) LoadString(f codec.Format, s string) bool {
	cd, err := codec.MustLookup(f)
	if err != nil {
		return c.loadFailed(f, SourceString, err)
	}
	doc, err := cd.Decode([]byte(s))
	if err != nil {
		return c.loadFailed(f, SourceString, err)
	}
	c.replace(f, doc, SourceString)
	return true
}

// LoadFrom replaces the document with everything read from r decoded
// as f.
func (c *Config) LoadFrom(f codec.Format, r io.Reader) bool {
	cd, err := codec.MustLookup(f)
	if err != nil {
		return c.loadFailed(f, SourceStream, err)
	}
	doc, err := codec.Read(r, cd)
	if err != nil {
		return c.loadFailed(f, SourceStream, err)
	}
	c.replace(f, doc, SourceStream)
	return true
}

// Save writes the document to path encoded as f.
func (c *Config) Save(f codec.Format, path string) bool {
	cd, err := codec.MustLookup(f)
	if err == nil {
		err = codec.SaveFile(c.fsys, path, cd, c.doc)
	}
	return c.saved(f, path, err)
}

// SaveFile saves to path, inferring the format from its extension.
func (c *Config) SaveFile(path string) bool {
	f, err := codec.FormatFromPath(path)
	if err != nil {
		return c.saved("", path, err)
	}
	return c.Save(f, path)
}

// SaveString returns the document encoded as f, or "" on failure.
func (c *Config) SaveString(f codec.Format) string {
	var buf bytes.Buffer
	if !c.SaveTo(f, &buf) {
		return ""
	}
	return buf.String()
}

// SaveTo writes the document encoded as f to w.
func (c *Config) SaveTo(f codec.Format, w io.Writer) bool {
	cd, err := codec.MustLookup(f)
	if err == nil {
		err = codec.Write(w, cd, c.doc)
	}
	return c.saved(f, SourceStream, err)
}

func (c *Config) replace(f codec.Format, doc *document.Document, source string) {
	c.doc.CopyFrom(doc)
	codecOperations.WithLabelValues(string(f), "load", resultOK).Inc()
	c.logger.Debug("document loaded",
		zap.String("format", string(f)),
		zap.String("source", source),
		zap.Int("sections", doc.Len()),
	)
	c.notifier.NotifyReload(source)
}

func (c *Config) loadFailed(f codec.Format, target string, err error) bool {
	codecOperations.WithLabelValues(string(f), "load", resultError).Inc()
	return c.fail("load", target, err)
}

func (c *Config) saved(f codec.Format, target string, err error) bool {
	if err != nil {
		codecOperations.WithLabelValues(string(f), "save", resultError).Inc()
		return c.fail("save", target, err)
	}
	codecOperations.WithLabelValues(string(f), "save", resultOK).Inc()
	return true
}

// LoadFromOop loads a native format file.
func (c *Config) LoadFromOop(path string) bool { return c.Load(codec.FormatNative, path) }

// SaveToOop saves a native format file.
func (c *Config) SaveToOop(path string) bool { return c.Save(codec.FormatNative, path) }

// LoadFromOopString loads native format text.
func (c *Config) LoadFromOopString(s string) bool { return c.LoadString(codec.FormatNative, s) }

// SaveToOopString renders native format text.
func (c *Config) SaveToOopString() string { return c.SaveString(codec.FormatNative) }

// LoadFromJSON loads a JSON file.
func (c *Config) LoadFromJSON(path string) bool { return c.Load(codec.FormatJSON, path) }

// SaveToJSON saves a JSON file.
func (c *Config) SaveToJSON(path string) bool { return c.Save(codec.FormatJSON, path) }

// LoadFromJSONString loads JSON text.
func (c *Config) LoadFromJSONString(s string) bool { return c.LoadString(codec.FormatJSON, s) }

// SaveToJSONString renders JSON text.
func (c *Config) SaveToJSONString() string { return c.SaveString(codec.FormatJSON) }

// LoadFromXML loads an XML file.
func (c *Config) LoadFromXML(path string) bool { return c.Load(codec.FormatXML, path) }

// SaveToXML saves an XML file.
func (c *Config) SaveToXML(path string) bool { return c.Save(codec.FormatXML, path) }

// LoadFromXMLString loads XML text.
func (c *Config) LoadFromXMLString(s string) bool { return c.LoadString(codec.FormatXML, s) }

// SaveToXMLString renders XML text.
func (c *Config) SaveToXMLString() string { return c.SaveString(codec.FormatXML) }

// LoadFromYAML loads a YAML file.
func (c *Config) LoadFromYAML(path string) bool { return c.Load(codec.FormatYAML, path) }

// SaveToYAML saves a YAML file.
func (c *Config) SaveToYAML(path string) bool { return c.Save(codec.FormatYAML, path) }

// LoadFromYAMLString loads YAML text.
func (c *Config) LoadFromYAMLString(s string) bool { return c.LoadString(codec.FormatYAML, s) }

// SaveToYAMLString renders YAML text.
func (c *Config) SaveToYAMLString() string { return c.SaveString(codec.FormatYAML) }

// LoadFromTOML loads a TOML file.
func (c *Config) LoadFromTOML(path string) bool { return c.Load(codec.FormatTOML, path) }

// SaveToTOML saves a TOML file.
func (c *Config) SaveToTOML(path string) bool { return c.Save(codec.FormatTOML, path) }

// LoadFromTOMLString loads TOML text.
func (c *Config) LoadFromTOMLString(s string) bool { return c.LoadString(codec.FormatTOML, s) }

// SaveToTOMLString renders TOML text.
func (c *Config) SaveToTOMLString() string { return c.SaveString(codec.FormatTOML) }

// LoadFromCSV loads a CSV file.
func (c *Config) LoadFromCSV(path string) bool { return c.Load(codec.FormatCSV, path) }

// SaveToCSV saves a CSV file.
func (c *Config) SaveToCSV(path string) bool { return c.Save(codec.FormatCSV, path) }

// LoadFromCSVString loads CSV text.
func (c *Config) LoadFromCSVString(s string) bool { return c.LoadString(codec.FormatCSV, s) }

// SaveToCSVString renders CSV text.
func (c *Config) SaveToCSVString() string { return c.SaveString(codec.FormatCSV) }
