package conformance

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// TestPath is the bundled suite directory, relative to this package.
const TestPath = "testdata"

// LoadedTest represents a test with its source file path
type LoadedTest struct {
	File  string
	Suite TestSuite
	Test  TestCase
}

// LoadAllTests loads every .yaml suite under dir, in file name order.
func LoadAllTests(dir string) ([]LoadedTest, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".yaml" {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	var loaded []LoadedTest
	for _, path := range paths {
		tests, err := loadTestFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		relPath, err := filepath.Rel(dir, path)
		if err != nil {
			relPath = path
		}
		for _, test := range tests {
			test.File = relPath
			loaded = append(loaded, test)
		}
	}
	return loaded, nil
}

// loadTestFile parses a single YAML file and returns all test cases
func loadTestFile(path string) ([]LoadedTest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseSuite(data)
}

func parseSuite(data []byte) ([]LoadedTest, error) {
	var suite TestSuite
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, err
	}
	if suite.Name == "" {
		return nil, fmt.Errorf("suite has no name")
	}

	var tests []LoadedTest
	for _, test := range suite.Tests {
		if test.Name == "" {
			return nil, fmt.Errorf("suite %s: test without a name", suite.Name)
		}
		tests = append(tests, LoadedTest{
			Suite: suite,
			Test:  test,
		})
	}
	return tests, nil
}
