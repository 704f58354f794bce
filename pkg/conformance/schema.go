package conformance

// TestSuite represents a complete YAML test file
type TestSuite struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Tests       []TestCase `yaml:"tests"`
}

// UnitSource is one VM translation unit inside a test
type UnitSource struct {
	Name string `yaml:"name"`
	Code string `yaml:"code"`
}

// TestCase represents a single test within a suite. A test supplies either
// VM units or raw assembly.
type TestCase struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Skip        interface{}    `yaml:"skip,omitempty"` // bool or string
	Bootstrap   bool           `yaml:"bootstrap,omitempty"`
	Units       []UnitSource   `yaml:"units,omitempty"`
	Asm         string         `yaml:"asm,omitempty"`
	RAM         map[string]int `yaml:"ram,omitempty"`   // initial writes, address or symbol → value
	Steps       uint64         `yaml:"steps,omitempty"` // 0 uses the runner default
	Expect      Expectation    `yaml:"expect"`
}

// Expectation defines what result is expected from a test
type Expectation struct {
	RAM   map[string]int `yaml:"ram,omitempty"`   // address or symbol → value, negative values allowed
	Error string         `yaml:"error,omitempty"` // substring of the pipeline or runtime error
}

// IsSkipped returns true if this test should be skipped
func (tc *TestCase) IsSkipped() (bool, string) {
	if tc.Skip == nil {
		return false, ""
	}

	switch v := tc.Skip.(type) {
	case bool:
		if v {
			return true, "skipped"
		}
		return false, ""
	case string:
		return true, v
	default:
		return false, ""
	}
}
