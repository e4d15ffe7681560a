package layer

// Standard priority levels. Higher values override lower values during
// merging; files loaded in order can use PriorityFile+i.
const (
	PriorityDefaults = 0
	PriorityFile     = 100
	PriorityEnv      = 500
	PriorityArgs     = 600
	PrioritySession  = 1000
)

// DefaultPriority returns the default priority for a given source.
func DefaultPriority(source Source) int {
	switch source {
	case SourceFile:
		return PriorityFile
	case SourceEnv:
		return PriorityEnv
	case SourceArgs:
		return PriorityArgs
	case SourceSession:
		return PrioritySession
	default:
		return PriorityDefaults
	}
}

var standardNames = map[Source]string{
	SourceDefaults: "defaults",
	SourceFile:     "file",
	SourceEnv:      "environment",
	SourceArgs:     "arguments",
	SourceSession:  "session",
}

// StandardName returns the standard layer name for a source.
func StandardName(source Source) string {
	if name, ok := standardNames[source]; ok {
		return name
	}
	return "unknown"
}
